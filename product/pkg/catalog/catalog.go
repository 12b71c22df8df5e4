package catalog

import (
	"strings"

	"github.com/Alturino/storefront/product/pkg/response"
)

// Categories is the shop's fixed category list.
var Categories = []string{
	"Pooja & Religious",
	"Essentials",
	"Spices & Masala",
	"Personal & Beauty Care",
	"Kids & Baby Care",
	"Household & Kitchen Essentials",
	"Snacks",
	"Miscellaneous",
}

// FilterByCategory keeps products whose category equals category, ignoring case. An empty
// category or "All" keeps everything.
func FilterByCategory(products []response.Product, category string) []response.Product {
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, "all") {
		return products
	}

	filtered := make([]response.Product, 0, len(products))
	for _, product := range products {
		if strings.EqualFold(product.Category, category) {
			filtered = append(filtered, product)
		}
	}
	return filtered
}

// Search keeps products whose name, brand or category contains term, ignoring case.
func Search(products []response.Product, term string) []response.Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return products
	}

	found := make([]response.Product, 0, len(products))
	for _, product := range products {
		if strings.Contains(strings.ToLower(product.Name), term) ||
			strings.Contains(strings.ToLower(product.Brand), term) ||
			strings.Contains(strings.ToLower(product.Category), term) {
			found = append(found, product)
		}
	}
	return found
}
