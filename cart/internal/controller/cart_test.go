package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/token"
	productRes "github.com/Alturino/storefront/product/pkg/response"
)

const secretKey = "secret"

type catalog map[string]productRes.Product

func (cat catalog) FindProductByID(_ context.Context, productID string) (productRes.Product, error) {
	product, ok := cat[productID]
	if !ok {
		return productRes.Product{}, inErrors.ErrProductNotFound
	}
	return product, nil
}

func newRouter() *mux.Router {
	products := catalog{
		"p1": {ID: "p1", Name: "Soap", Brand: "Lux", Category: "Essentials", Price: decimal.NewFromInt(40)},
		"p2": {ID: "p2", Name: "Agarbatti", Brand: "Cycle", Category: "Pooja & Religious", Price: decimal.NewFromInt(60)},
	}
	svc := service.NewCartService(repository.NewMemory(), products)
	router := mux.NewRouter()
	AttachCartController(router, &svc, secretKey)
	return router
}

func do(t *testing.T, router http.Handler, method string, target string, body string, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if bearer != "" {
		req.Header.Set(inHttp.HeaderAuthorization, "Bearer "+bearer)
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decodeCart(t *testing.T, recorder *httptest.ResponseRecorder) response.Cart {
	t.Helper()
	cart := response.Cart{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &cart))
	return cart
}

func decodeMutation(t *testing.T, recorder *httptest.ResponseRecorder) response.Mutation {
	t.Helper()
	mutation := response.Mutation{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &mutation))
	return mutation
}

func TestCartRoutes(t *testing.T) {
	router := newRouter()

	empty := do(t, router, http.MethodGet, "/api/cart/u1", "", "")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, `{"items":[]}`, empty.Body.String())

	added := do(t, router, http.MethodPost, "/api/cart/add", `{"userId":"u1","productId":"p1","quantity":2}`, "")
	require.Equal(t, http.StatusOK, added.Code)
	mutation := decodeMutation(t, added)
	require.Len(t, mutation.Cart.Items, 1)
	assert.Equal(t, "Soap", mutation.Cart.Items[0].Product.Name)

	added = do(t, router, http.MethodPost, "/api/cart/add", `{"userId":"u1","productId":"p2","quantity":1}`, "")
	require.Equal(t, http.StatusOK, added.Code)

	updated := do(t, router, http.MethodPut, "/api/cart/update", `{"userId":"u1","productId":"p1","quantity":1.5}`, "")
	require.Equal(t, http.StatusOK, updated.Code)
	assert.Equal(t, 1.5, decodeMutation(t, updated).Cart.Items[0].Quantity)

	updated = do(t, router, http.MethodPut, "/api/cart/update/u1/p2", `{"quantity":4}`, "")
	require.Equal(t, http.StatusOK, updated.Code)
	assert.Equal(t, float64(4), decodeMutation(t, updated).Cart.Items[1].Quantity)

	removed := do(t, router, http.MethodDelete, "/api/cart/remove/p1", `{"userId":"u1"}`, "")
	require.Equal(t, http.StatusOK, removed.Code)
	assert.Len(t, decodeMutation(t, removed).Cart.Items, 1)

	removed = do(t, router, http.MethodDelete, "/api/cart/remove/u1/p2", "", "")
	require.Equal(t, http.StatusOK, removed.Code)
	assert.Empty(t, decodeMutation(t, removed).Cart.Items)

	_ = do(t, router, http.MethodPost, "/api/cart/add", `{"userId":"u1","productId":"p1","quantity":1}`, "")
	cleared := do(t, router, http.MethodDelete, "/api/cart/clear", `{"userId":"u1"}`, "")
	require.Equal(t, http.StatusOK, cleared.Code)
	assert.JSONEq(t, `{}`, cleared.Body.String())
	assert.Empty(t, decodeCart(t, do(t, router, http.MethodGet, "/api/cart/u1", "", "")).Items)
}

func TestCartRouteErrors(t *testing.T) {
	signed, err := token.Sign(context.Background(), secretKey, "u1", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name            string
		method          string
		target          string
		body            string
		bearer          string
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:           "given malformed body should return bad request",
			method:         http.MethodPost,
			target:         "/api/cart/add",
			body:           `{"userId":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "given non positive quantity should return bad request",
			method:         http.MethodPost,
			target:         "/api/cart/add",
			body:           `{"userId":"u1","productId":"p1","quantity":0}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:            "given unknown product should return not found",
			method:          http.MethodPost,
			target:          "/api/cart/add",
			body:            `{"userId":"u1","productId":"p9","quantity":1}`,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: inErrors.ErrProductNotFound.Error(),
		},
		{
			name:            "given item not in cart should return not found",
			method:          http.MethodPut,
			target:          "/api/cart/update",
			body:            `{"userId":"u1","productId":"p1","quantity":1}`,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: inErrors.ErrCartItemNotFound.Error(),
		},
		{
			name:           "given remove without user should return bad request",
			method:         http.MethodDelete,
			target:         "/api/cart/remove/p1",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "given invalid token should return unauthorized",
			method:         http.MethodGet,
			target:         "/api/cart/u1",
			bearer:         "garbage",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:            "given token of another user should return forbidden",
			method:          http.MethodGet,
			target:          "/api/cart/u2",
			bearer:          signed,
			expectedStatus:  http.StatusForbidden,
			expectedMessage: inErrors.ErrForbidden.Error(),
		},
		{
			name:           "given token of cart owner should succeed",
			method:         http.MethodGet,
			target:         "/api/cart/u1",
			bearer:         signed,
			expectedStatus: http.StatusOK,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			recorder := do(t, newRouter(), test.method, test.target, test.body, test.bearer)
			assert.Equal(t, test.expectedStatus, recorder.Code)
			if test.expectedMessage == "" {
				return
			}
			body := map[string]string{}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, "failed", body["status"])
			assert.Equal(t, test.expectedMessage, body["message"])
		})
	}
}
