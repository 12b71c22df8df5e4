package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/internal/server"
	"github.com/Alturino/storefront/user/internal/controller"
	"github.com/Alturino/storefront/user/internal/repository"
	"github.com/Alturino/storefront/user/internal/service"
)

func RunUserService(c context.Context, cfg *config.Config) error {
	c, span := otel.Tracer.Start(c, "RunUserService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppUserService).
		Str(log.KeyTag, "main RunUserService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	shutdownFuncs, err := otel.InitOtelSdk(c, constants.AppUserService, cfg.Otel)
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

	logger = logger.With().Str(log.KeyProcess, "initializing database").Logger()
	logger.Info().Msg("initializing database")
	c = logger.WithContext(c)
	db, err := infra.NewDatabaseClient(c, cfg.Database)
	if err != nil {
		err = fmt.Errorf("failed initializing database with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("initialized database")
	defer func() {
		logger := logger.With().Str(log.KeyProcess, "shutting down database connection").Logger()
		logger.Info().Msg("shutting down database connection")
		db.Close()
		logger.Info().Msg("shutdown database connection")
	}()

	logger = logger.With().Str(log.KeyProcess, "initializing userService").Logger()
	logger.Info().Msg("initializing userService")
	userService := service.NewUserService(repository.New(db), cfg.Application.SecretKey)
	logger.Info().Msg("initialized userService")

	logger = logger.With().Str(log.KeyProcess, "attaching user controller").Logger()
	logger.Info().Msg("attaching user controller")
	router := server.NewRouter(constants.AppUserService)
	controller.AttachUserController(router, &userService)
	logger.Info().Msg("attached user controller")

	c = logger.WithContext(c)
	return server.Serve(c, cfg.Application, router)
}
