package request

import "github.com/shopspring/decimal"

type InsertProduct struct {
	Name     string          `validate:"required" json:"name"`
	Brand    string          `validate:"required" json:"brand"`
	Category string          `validate:"required" json:"category"`
	Image    string          `                    json:"image"`
	Price    decimal.Decimal `validate:"gt=0"     json:"price"`
}
