package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/internal/repository"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

const (
	KeyProducts = "product:"
	cacheTTL    = time.Hour
)

type Querier interface {
	FindProducts(c context.Context) ([]repository.Product, error)
	FindProductById(c context.Context, id uuid.UUID) (repository.Product, error)
	InsertProduct(c context.Context, arg repository.InsertProductParams) (repository.Product, error)
	DeleteProduct(c context.Context, id uuid.UUID) (int64, error)
}

type ProductService struct {
	queries Querier
	cache   *redis.Client
}

func NewProductService(queries Querier, cache *redis.Client) ProductService {
	return ProductService{queries: queries, cache: cache}
}

func (svc ProductService) FindProducts(c context.Context) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProducts").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding products in database").Logger()
	logger.Trace().Msg("finding products in database")
	products, err := svc.queries.FindProducts(c)
	if err != nil {
		err = fmt.Errorf("failed finding products in database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int("productsLen", len(products)).Msg("found products in database")

	result := make([]response.Product, 0, len(products))
	for _, product := range products {
		result = append(result, product.Response())
	}
	return result, nil
}

// FindProductById reads through the cache. Unknown and malformed ids are ErrProductNotFound.
func (svc ProductService) FindProductById(c context.Context, productID string) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductById")
	defer span.End()

	cacheKey := KeyProducts + productID
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProductById").
		Str(log.KeyProductID, productID).
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	id, err := uuid.Parse(productID)
	if err != nil {
		err = fmt.Errorf("%w: %w", inErrors.ErrProductNotFound, err)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "finding product in cache").Logger()
	logger.Trace().Msg("finding product in cache")
	jsonCache, err := svc.cache.Get(c, cacheKey).Result()
	if err == nil {
		product := response.Product{}
		if err := json.Unmarshal([]byte(jsonCache), &product); err == nil {
			logger.Debug().Str(log.KeyJsonCache, jsonCache).Msg("found product in cache")
			return product, nil
		}
		logger.Warn().Msg("ignoring undecodable product in cache")
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn().Err(err).Msg("failed reading product from cache")
	}

	logger = logger.With().Str(log.KeyProcess, "finding product in database").Logger()
	logger.Trace().Msg("finding product in database")
	found, err := svc.queries.FindProductById(c, id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = fmt.Errorf("%w: %w", inErrors.ErrProductNotFound, err)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed finding product in database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	product := found.Response()
	logger.Info().Msg("found product in database")

	svc.cacheProduct(logger.WithContext(c), product)
	return product, nil
}

func (svc ProductService) InsertProduct(c context.Context, param request.InsertProduct) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductService InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService InsertProduct").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "inserting product to database").Logger()
	logger.Trace().Msg("inserting product to database")
	inserted, err := svc.queries.InsertProduct(c, repository.InsertProductParams{
		ID:       uuid.New(),
		Name:     param.Name,
		Brand:    param.Brand,
		Category: param.Category,
		Image:    param.Image,
		Price:    repository.DecimalToNumeric(param.Price),
	})
	if err != nil {
		err = fmt.Errorf("failed inserting product to database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	product := inserted.Response()
	logger.Info().Str(log.KeyProductID, product.ID).Msg("inserted product to database")

	svc.cacheProduct(logger.WithContext(c), product)
	return product, nil
}

func (svc ProductService) DeleteProduct(c context.Context, productID string) error {
	c, span := otel.Tracer.Start(c, "ProductService DeleteProduct")
	defer span.End()

	cacheKey := KeyProducts + productID
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService DeleteProduct").
		Str(log.KeyProductID, productID).
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	id, err := uuid.Parse(productID)
	if err != nil {
		err = fmt.Errorf("%w: %w", inErrors.ErrProductNotFound, err)
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return err
	}

	logger = logger.With().Str(log.KeyProcess, "deleting product in database").Logger()
	logger.Trace().Msg("deleting product in database")
	deleted, err := svc.queries.DeleteProduct(c, id)
	if err != nil {
		err = fmt.Errorf("failed deleting product in database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if deleted == 0 {
		err = inErrors.ErrProductNotFound
		otel.RecordError(err, span)
		logger.Info().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted product in database")

	logger = logger.With().Str(log.KeyProcess, "deleting product in cache").Logger()
	if err := svc.cache.Del(c, cacheKey).Err(); err != nil {
		logger.Warn().Err(err).Msg("failed deleting product in cache")
	}
	return nil
}

func (svc ProductService) cacheProduct(c context.Context, product response.Product) {
	cacheKey := KeyProducts + product.ID
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyProcess, "inserting product to cache").
		Str(log.KeyCacheKey, cacheKey).
		Logger()

	payload, err := json.Marshal(product)
	if err != nil {
		logger.Warn().Err(err).Msg("failed marshaling product for cache")
		return
	}
	if err := svc.cache.Set(c, cacheKey, payload, cacheTTL).Err(); err != nil {
		logger.Warn().Err(err).Msg("failed inserting product to cache")
		return
	}
	logger.Trace().Msg("inserted product to cache")
}
