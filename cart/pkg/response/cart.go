package response

import (
	"github.com/shopspring/decimal"

	productRes "github.com/Alturino/storefront/product/pkg/response"
)

// CartLineItem is one product-quantity pairing. Product is the backend's snapshot of the
// product at fetch time and is nil when the product no longer exists.
type CartLineItem struct {
	ProductID string              `json:"productId"`
	Product   *productRes.Product `json:"product"`
	Quantity  float64             `json:"quantity"`
}

type Cart struct {
	Items []CartLineItem `json:"items"`
}

type Mutation struct {
	Cart Cart `json:"cart"`
}

// ApproximateTotal sums price times quantity, pricing lines without a product at zero.
func ApproximateTotal(items []CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		total = total.Add(item.Product.Price.Mul(decimal.NewFromFloat(item.Quantity)))
	}
	return total
}
