package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/controller"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/internal/service"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/httpclient"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/server"
	productClient "github.com/Alturino/storefront/product/pkg/client"
)

func RunCartService(c context.Context, cfg *config.Config) error {
	c, span := otel.Tracer.Start(c, "RunCartService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppCartService).
		Str(log.KeyTag, "main RunCartService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := otel.InitOtelSdk(c, constants.AppCartService, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized otel sdk")
	defer func() {
		logger := logger.With().Str(log.KeyProcess, "shutting down otel").Logger()
		logger.Info().Msg("shutting down otel")
		if err := otel.ShutdownOtel(context.WithoutCancel(c), shutdownFuncs); err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()

	var repo repository.Repository
	if cfg.Cache.Host == "" {
		logger.Warn().Msg("cache host not configured, keeping carts in memory")
		repo = repository.NewMemory()
	} else {
		logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
		logger.Info().Msg("initializing cache")
		c = logger.WithContext(c)
		cache, err := infra.NewCacheClient(c, cfg.Cache)
		if err != nil {
			err = fmt.Errorf("failed initializing cache with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return err
		}
		logger.Info().Msg("initialized cache")
		defer func() {
			logger := logger.With().Str(log.KeyProcess, "shutting down cache connection").Logger()
			logger.Info().Msg("shutting down cache connection")
			if err := cache.Close(); err != nil {
				err = fmt.Errorf("failed closing cache with error=%w", err)
				logger.Error().Err(err).Msg(err.Error())
				return
			}
			logger.Info().Msg("shutdown cache connection")
		}()
		repo = repository.NewRedis(cache)
	}

	logger = logger.With().Str(log.KeyProcess, "initializing product client").Logger()
	logger.Info().Str(log.KeyEndpoint, cfg.Backend.ProductURL).Msg("initializing product client")
	products := productClient.NewProductClient(httpclient.New(
		cfg.Backend.ProductURL,
		httpclient.WithTimeout(cfg.Backend.Timeout),
		httpclient.WithBreaker(constants.AppProductService, cfg.Backend.BreakerFailures, cfg.Backend.BreakerCooldown),
	))
	logger.Info().Msg("initialized product client")

	logger = logger.With().Str(log.KeyProcess, "initializing cartService").Logger()
	logger.Info().Msg("initializing cartService")
	cartService := service.NewCartService(repo, products)
	logger.Info().Msg("initialized cartService")

	logger = logger.With().Str(log.KeyProcess, "attaching cart controller").Logger()
	logger.Info().Msg("attaching cart controller")
	router := server.NewRouter(constants.AppCartService)
	controller.AttachCartController(router, &cartService, cfg.Application.SecretKey)
	logger.Info().Msg("attached cart controller")

	c = logger.WithContext(c)
	return server.Serve(c, cfg.Application, router)
}
