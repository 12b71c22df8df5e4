package response

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	ID       string          `json:"_id"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Category string          `json:"category"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
}
