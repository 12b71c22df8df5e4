package log

const (
	KeyAppName            = "app"
	KeyRequestID          = "requestId"
	KeyTraceID            = "traceId"
	KeySpanID             = "spanId"
	KeyProcess            = "process"
	KeyToken              = "token"
	KeyTag                = "tag"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestProcessedAt = "requestProcessedAt"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyResponseStatus     = "responseStatus"
	KeyConfig             = "config"
	KeyPathValues         = "pathValues"

	KeyUserID       = "userId"
	KeyUsername     = "username"
	KeyProductID    = "productId"
	KeyProduct      = "product"
	KeyProducts     = "products"
	KeyCategory     = "category"
	KeySearchTerm   = "searchTerm"
	KeyQuantity     = "quantity"
	KeyCart         = "cart"
	KeyCartItems    = "cartItems"
	KeyCartItemsLen = "cartItemsLen"
	KeyCacheKey     = "cacheKey"
	KeyJsonCache    = "jsonCache"
	KeyEvent        = "event"
	KeyEventOrigin  = "eventOrigin"
	KeyChannel      = "channel"
	KeyEndpoint     = "endpoint"
	KeyStatusCode   = "statusCode"
	KeyFilename     = "filename"
	KeySessionKey   = "sessionKey"
	KeyDbURL        = "dbUrl"
)
