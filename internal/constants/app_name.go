package constants

const (
	AppStorefront     = "storefront"
	AppCartService    = "cart-service"
	AppProductService = "product-service"
	AppUserService    = "user-service"
	AudienceUser      = "audience-user"
)
