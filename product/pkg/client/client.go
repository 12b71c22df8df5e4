package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/httpclient"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/pkg/response"
)

type ProductClient struct {
	http *httpclient.Client
}

func NewProductClient(http *httpclient.Client) *ProductClient {
	return &ProductClient{http: http}
}

func (cl *ProductClient) FindProducts(c context.Context) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductClient FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductClient FindProducts").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "getting products").Logger()
	logger.Trace().Msg("getting products")
	products := []response.Product{}
	if err := cl.http.Do(logger.WithContext(c), http.MethodGet, "/all", nil, &products); err != nil {
		err = fmt.Errorf("failed getting products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int("productsLen", len(products)).Msg("got products")

	return products, nil
}

// FindProductByID returns inErrors.ErrProductNotFound when the API answers 404.
func (cl *ProductClient) FindProductByID(c context.Context, productID string) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductClient FindProductByID")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductClient FindProductByID").
		Str(log.KeyProductID, productID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "getting product").Logger()
	logger.Trace().Msg("getting product")
	product := response.Product{}
	err := cl.http.Do(logger.WithContext(c), http.MethodGet, "/"+url.PathEscape(productID), nil, &product)
	if httpclient.StatusCode(err) == http.StatusNotFound {
		err = fmt.Errorf("%w: %w", inErrors.ErrProductNotFound, err)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed getting product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("got product")

	return product, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, inErrors.ErrProductNotFound)
}
