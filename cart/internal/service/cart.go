package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	productRes "github.com/Alturino/storefront/product/pkg/response"
)

const maxConcurrentLookups = 8

type ProductFinder interface {
	FindProductByID(c context.Context, productID string) (productRes.Product, error)
}

type CartService struct {
	repo     repository.Repository
	products ProductFinder
	lookups  *singleflight.Group
}

func NewCartService(repo repository.Repository, products ProductFinder) CartService {
	return CartService{repo: repo, products: products, lookups: &singleflight.Group{}}
}

func (svc CartService) FindCart(c context.Context, userID string) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService FindCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService FindCart").
		Str(log.KeyUserID, userID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding cart items").Logger()
	logger.Trace().Msg("finding cart items")
	items, err := svc.repo.FindItems(logger.WithContext(c), userID)
	if err != nil {
		err = fmt.Errorf("failed finding cart items with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Int(log.KeyCartItemsLen, len(items)).Msg("found cart items")

	return svc.denormalize(logger.WithContext(c), items), nil
}

func (svc CartService) AddItem(c context.Context, param request.AddItem) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddItem").
		Str(log.KeyUserID, param.UserID).
		Str(log.KeyProductID, param.ProductID).
		Float64(log.KeyQuantity, param.Quantity).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "checking product").Logger()
	logger.Trace().Msg("checking product")
	if _, err := svc.findProduct(logger.WithContext(c), param.ProductID); err != nil {
		err = fmt.Errorf("failed checking product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("checked product")

	logger = logger.With().Str(log.KeyProcess, "adding item").Logger()
	logger.Trace().Msg("adding item")
	items, err := svc.repo.UpdateItems(logger.WithContext(c), param.UserID, func(items []repository.Item) ([]repository.Item, error) {
		for i := range items {
			if items[i].ProductID == param.ProductID {
				items[i].Quantity += param.Quantity
				return items, nil
			}
		}
		return append(items, repository.Item{ProductID: param.ProductID, Quantity: param.Quantity}), nil
	})
	if err != nil {
		err = fmt.Errorf("failed adding item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Int(log.KeyCartItemsLen, len(items)).Msg("added item")

	return svc.denormalize(logger.WithContext(c), items), nil
}

func (svc CartService) UpdateItem(c context.Context, param request.UpdateItem) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService UpdateItem").
		Str(log.KeyUserID, param.UserID).
		Str(log.KeyProductID, param.ProductID).
		Float64(log.KeyQuantity, param.Quantity).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "updating item").Logger()
	logger.Trace().Msg("updating item")
	items, err := svc.repo.UpdateItems(logger.WithContext(c), param.UserID, func(items []repository.Item) ([]repository.Item, error) {
		for i := range items {
			if items[i].ProductID == param.ProductID {
				items[i].Quantity = param.Quantity
				return items, nil
			}
		}
		return nil, inErrors.ErrCartItemNotFound
	})
	if err != nil {
		err = fmt.Errorf("failed updating item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("updated item")

	return svc.denormalize(logger.WithContext(c), items), nil
}

func (svc CartService) RemoveItem(c context.Context, param request.RemoveItem) (response.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveItem").
		Str(log.KeyUserID, param.UserID).
		Str(log.KeyProductID, param.ProductID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "removing item").Logger()
	logger.Trace().Msg("removing item")
	items, err := svc.repo.UpdateItems(logger.WithContext(c), param.UserID, func(items []repository.Item) ([]repository.Item, error) {
		for i := range items {
			if items[i].ProductID == param.ProductID {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, inErrors.ErrCartItemNotFound
	})
	if err != nil {
		err = fmt.Errorf("failed removing item with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("removed item")

	return svc.denormalize(logger.WithContext(c), items), nil
}

func (svc CartService) ClearCart(c context.Context, param request.ClearCart) error {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService ClearCart").
		Str(log.KeyUserID, param.UserID).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "clearing cart").Logger()
	logger.Trace().Msg("clearing cart")
	if err := svc.repo.DeleteItems(logger.WithContext(c), param.UserID); err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("cleared cart")

	return nil
}

// findProduct collapses concurrent lookups of the same product into one request.
func (svc CartService) findProduct(c context.Context, productID string) (productRes.Product, error) {
	v, err, _ := svc.lookups.Do(productID, func() (any, error) {
		return svc.products.FindProductByID(c, productID)
	})
	if err != nil {
		return productRes.Product{}, err
	}
	return v.(productRes.Product), nil
}

// denormalize attaches the current product snapshot to every line. A product that cannot be
// resolved leaves the line with a nil product.
func (svc CartService) denormalize(c context.Context, items []repository.Item) response.Cart {
	c, span := otel.Tracer.Start(c, "CartService denormalize")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService denormalize").
		Int(log.KeyCartItemsLen, len(items)).
		Logger()

	lines := make([]response.CartLineItem, len(items))
	g := errgroup.Group{}
	g.SetLimit(maxConcurrentLookups)
	for i, item := range items {
		lines[i] = response.CartLineItem{ProductID: item.ProductID, Quantity: item.Quantity}
		g.Go(func() error {
			product, err := svc.findProduct(c, item.ProductID)
			if errors.Is(err, inErrors.ErrProductNotFound) {
				logger.Debug().Str(log.KeyProductID, item.ProductID).Msg("product no longer exists")
				return nil
			}
			if err != nil {
				logger.Warn().Err(err).Str(log.KeyProductID, item.ProductID).Msg("failed resolving product")
				return nil
			}
			lines[i].Product = &product
			return nil
		})
	}
	_ = g.Wait()

	return response.Cart{Items: lines}
}
