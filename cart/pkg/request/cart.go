package request

type AddItem struct {
	UserID    string  `validate:"required" json:"userId"`
	ProductID string  `validate:"required" json:"productId"`
	Quantity  float64 `validate:"gt=0"     json:"quantity"`
}

type UpdateItem struct {
	UserID    string  `validate:"required" json:"userId"`
	ProductID string  `validate:"required" json:"productId"`
	Quantity  float64 `validate:"gt=0"     json:"quantity"`
}

// RemoveItem travels as DELETE /remove/{productId} with only the user id in the body.
type RemoveItem struct {
	UserID    string `validate:"required" json:"userId"`
	ProductID string `validate:"required" json:"-"`
}

type ClearCart struct {
	UserID string `validate:"required" json:"userId"`
}
