package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/httpclient"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// CartClient talks to the cart API rooted at the base URL of its httpclient, for example
// http://localhost:5000/api/cart.
type CartClient struct {
	http *httpclient.Client
}

func NewCartClient(http *httpclient.Client) *CartClient {
	return &CartClient{http: http}
}

func (cl *CartClient) FetchCart(c context.Context, userID string) ([]response.CartLineItem, error) {
	c, span := otel.Tracer.Start(c, "CartClient FetchCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartClient FetchCart").
		Str(log.KeyUserID, userID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "getting cart").Logger()
	logger.Trace().Msg("getting cart")
	cart := response.Cart{}
	err := cl.http.Do(logger.WithContext(c), http.MethodGet, "/"+url.PathEscape(userID), nil, &cart)
	if err != nil {
		err = fmt.Errorf("failed getting cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int(log.KeyCartItemsLen, len(cart.Items)).Msg("got cart")

	return cart.Items, nil
}

func (cl *CartClient) AddItem(c context.Context, param request.AddItem) error {
	return cl.send(c, "CartClient AddItem", http.MethodPost, "/add", param)
}

func (cl *CartClient) UpdateItem(c context.Context, param request.UpdateItem) error {
	return cl.send(c, "CartClient UpdateItem", http.MethodPut, "/update", param)
}

func (cl *CartClient) RemoveItem(c context.Context, param request.RemoveItem) error {
	return cl.send(c, "CartClient RemoveItem", http.MethodDelete, "/remove/"+url.PathEscape(param.ProductID), param)
}

func (cl *CartClient) ClearCart(c context.Context, param request.ClearCart) error {
	return cl.send(c, "CartClient ClearCart", http.MethodDelete, "/clear", param)
}

// send discards the response body; the store re-fetches after every write.
func (cl *CartClient) send(c context.Context, tag string, method string, path string, body any) error {
	c, span := otel.Tracer.Start(c, tag)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, tag).
		Str(log.KeyRequestMethod, method).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "sending cart mutation").Logger()
	logger.Trace().Msg("sending cart mutation")
	if err := cl.http.Do(logger.WithContext(c), method, path, body, nil); err != nil {
		err = fmt.Errorf("failed sending cart mutation with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("sent cart mutation")
	return nil
}
