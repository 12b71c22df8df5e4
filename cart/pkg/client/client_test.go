package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/internal/httpclient"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
}

func newServer(t *testing.T, status int, responseBody string, calls *[]recorded) *CartClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recorded{method: r.Method, path: r.URL.Path}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &call.body))
		}
		*calls = append(*calls, call)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(responseBody))
	}))
	t.Cleanup(server.Close)
	return NewCartClient(httpclient.New(server.URL + "/api/cart"))
}

func TestFetchCart(t *testing.T) {
	calls := []recorded{}
	cl := newServer(t, http.StatusOK, `{"items":[{"productId":"p1","product":{"_id":"p1","name":"Rice","price":10},"quantity":2},{"productId":"p2","product":null,"quantity":1}]}`, &calls)

	items, err := cl.FetchCart(context.Background(), "u 1")

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.Nil(t, items[1].Product)
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodGet, calls[0].method)
	assert.Equal(t, "/api/cart/u 1", calls[0].path)
}

func TestMutationRoutes(t *testing.T) {
	tests := []struct {
		name         string
		call         func(cl *CartClient) error
		expectedCall recorded
	}{
		{
			name: "add",
			call: func(cl *CartClient) error {
				return cl.AddItem(context.Background(), request.AddItem{UserID: "u1", ProductID: "p1", Quantity: 1.5})
			},
			expectedCall: recorded{
				method: http.MethodPost,
				path:   "/api/cart/add",
				body:   map[string]any{"userId": "u1", "productId": "p1", "quantity": 1.5},
			},
		},
		{
			name: "update",
			call: func(cl *CartClient) error {
				return cl.UpdateItem(context.Background(), request.UpdateItem{UserID: "u1", ProductID: "p1", Quantity: 3})
			},
			expectedCall: recorded{
				method: http.MethodPut,
				path:   "/api/cart/update",
				body:   map[string]any{"userId": "u1", "productId": "p1", "quantity": float64(3)},
			},
		},
		{
			name: "remove",
			call: func(cl *CartClient) error {
				return cl.RemoveItem(context.Background(), request.RemoveItem{UserID: "u1", ProductID: "p1"})
			},
			expectedCall: recorded{
				method: http.MethodDelete,
				path:   "/api/cart/remove/p1",
				body:   map[string]any{"userId": "u1"},
			},
		},
		{
			name: "clear",
			call: func(cl *CartClient) error {
				return cl.ClearCart(context.Background(), request.ClearCart{UserID: "u1"})
			},
			expectedCall: recorded{
				method: http.MethodDelete,
				path:   "/api/cart/clear",
				body:   map[string]any{"userId": "u1"},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			calls := []recorded{}
			cl := newServer(t, http.StatusOK, `{"cart":{"items":[]}}`, &calls)

			require.NoError(t, test.call(cl))
			require.Len(t, calls, 1)
			assert.Equal(t, test.expectedCall, calls[0])
		})
	}
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "given server error should fail", status: http.StatusInternalServerError, body: `{}`},
		{name: "given not found should fail", status: http.StatusNotFound, body: `{"message":"cart item not found"}`},
		{name: "given html body should fail", status: http.StatusOK, body: `<html></html>`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			calls := []recorded{}
			cl := newServer(t, test.status, test.body, &calls)

			_, err := cl.FetchCart(context.Background(), "u1")
			assert.Error(t, err)
		})
	}
}
