package response

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	productRes "github.com/Alturino/storefront/product/pkg/response"
)

func TestApproximateTotal(t *testing.T) {
	tests := []struct {
		name     string
		items    []CartLineItem
		expected decimal.Decimal
	}{
		{
			name:     "given empty cart should return zero",
			items:    nil,
			expected: decimal.Zero,
		},
		{
			name: "given missing product should price it at zero",
			items: []CartLineItem{
				{ProductID: "p1", Product: &productRes.Product{ID: "p1", Price: decimal.NewFromInt(10)}, Quantity: 2},
				{ProductID: "p2", Product: nil, Quantity: 3},
			},
			expected: decimal.NewFromInt(20),
		},
		{
			name: "given fractional quantity should multiply exactly",
			items: []CartLineItem{
				{ProductID: "rice", Product: &productRes.Product{ID: "rice", Price: decimal.RequireFromString("60")}, Quantity: 1.5},
				{ProductID: "oil", Product: &productRes.Product{ID: "oil", Price: decimal.RequireFromString("120.25")}, Quantity: 2},
			},
			expected: decimal.RequireFromString("330.5"),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual := ApproximateTotal(test.items)
			assert.True(t, test.expected.Equal(actual), "expected %s got %s", test.expected, actual)
		})
	}
}

func TestCartLineItemDecodesNullProduct(t *testing.T) {
	cart := Cart{}
	err := json.Unmarshal(
		[]byte(`{"items":[{"productId":"p1","product":null,"quantity":0.5},{"productId":"p2","product":{"_id":"p2","name":"Soap","price":25},"quantity":1}]}`),
		&cart,
	)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Nil(t, cart.Items[0].Product)
	assert.Equal(t, 0.5, cart.Items[0].Quantity)
	require.NotNil(t, cart.Items[1].Product)
	assert.True(t, decimal.NewFromInt(25).Equal(cart.Items[1].Product.Price))
}
