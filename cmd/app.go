package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/cart/pkg/broadcast"
	cartClient "github.com/Alturino/storefront/cart/pkg/client"
	"github.com/Alturino/storefront/cart/pkg/store"
	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/httpclient"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	productClient "github.com/Alturino/storefront/product/pkg/client"
	"github.com/Alturino/storefront/session"
	"github.com/Alturino/storefront/user/pkg/account"
	userClient "github.com/Alturino/storefront/user/pkg/client"
)

const (
	sessionDriverFile   = "file"
	sessionDriverRedis  = "redis"
	sessionDriverMemory = "memory"
)

// app holds the client side of the storefront: API clients, the session and the cart store.
type app struct {
	cfg         *config.Config
	sessions    *session.StorageProvider
	products    *productClient.ProductClient
	cart        *store.Store
	accounts    *account.Service
	broadcaster broadcast.Broadcaster
	cache       *redis.Client
	shutdown    []otel.ShutdownFunc
}

func newApp(c context.Context, cfg *config.Config) (*app, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppStorefront).
		Str(log.KeyTag, "main newApp").
		Logger()

	a := &app{cfg: cfg}

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Debug().Msg("initializing otel sdk")
	shutdown, err := otel.InitOtelSdk(logger.WithContext(c), constants.AppStorefront, cfg.Otel)
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	a.shutdown = shutdown
	logger.Debug().Msg("initialized otel sdk")

	if cfg.Cache.Host != "" {
		logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
		logger.Debug().Msg("initializing cache")
		cache, err := infra.NewCacheClient(logger.WithContext(c), cfg.Cache)
		if err != nil {
			err = fmt.Errorf("failed initializing cache with error=%w", err)
			logger.Error().Err(err).Msg(err.Error())
			a.Close(c)
			return nil, err
		}
		a.cache = cache
		logger.Debug().Msg("initialized cache")
	}

	logger = logger.With().Str(log.KeyProcess, "initializing session storage").Logger()
	logger.Debug().Str("driver", cfg.Session.Driver).Msg("initializing session storage")
	storage, err := a.sessionStorage()
	if err != nil {
		err = fmt.Errorf("failed initializing session storage with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		a.Close(c)
		return nil, err
	}
	a.sessions = session.NewStorageProvider(storage)
	logger.Debug().Msg("initialized session storage")

	a.broadcaster = a.newBroadcaster()
	logger.Debug().Str("broadcaster", fmt.Sprintf("%T", a.broadcaster)).Msg("initialized broadcaster")

	newHTTPClient := func(name string, baseURL string) *httpclient.Client {
		return httpclient.New(
			baseURL,
			httpclient.WithTimeout(cfg.Backend.Timeout),
			httpclient.WithBreaker(name, cfg.Backend.BreakerFailures, cfg.Backend.BreakerCooldown),
			httpclient.WithTokenSource(a.sessions),
		)
	}

	a.products = productClient.NewProductClient(newHTTPClient(constants.AppProductService, cfg.Backend.ProductURL))
	a.cart = store.New(
		cartClient.NewCartClient(newHTTPClient(constants.AppCartService, cfg.Backend.CartURL)),
		a.sessions,
		store.WithBroadcaster(a.broadcaster),
		store.WithClearOnFetchError(cfg.Cart.ClearOnFetchError),
		store.WithTimeout(cfg.Backend.Timeout),
	)
	a.accounts = account.NewService(
		userClient.NewUserClient(newHTTPClient(constants.AppUserService, cfg.Backend.UserURL)),
		a.sessions,
		account.WithCart(a.cart),
		account.WithBroadcaster(a.broadcaster, a.cart.Origin()),
	)

	return a, nil
}

// newBroadcaster picks redis when a cache is configured. Otherwise instances on one host share
// an event file, except with memory sessions, which never outlive the process.
func (a *app) newBroadcaster() broadcast.Broadcaster {
	switch {
	case a.cache != nil:
		return broadcast.NewRedis(a.cache, a.cfg.Cart.SyncChannel)
	case a.cfg.Session.Driver == sessionDriverMemory:
		return broadcast.NewLocal()
	default:
		return broadcast.NewFile(a.cfg.Cart.SyncFile)
	}
}

func (a *app) sessionStorage() (session.Storage, error) {
	switch a.cfg.Session.Driver {
	case sessionDriverMemory:
		return session.NewMemoryStorage(), nil
	case sessionDriverRedis:
		if a.cache == nil {
			return nil, errors.New("redis session driver requires cache.host")
		}
		return session.NewRedisStorage(a.cache, a.cfg.Session.Namespace), nil
	case sessionDriverFile, "":
		return session.NewFileStorage(a.cfg.Session.Path), nil
	default:
		return nil, fmt.Errorf("unknown session driver %q", a.cfg.Session.Driver)
	}
}

func (a *app) Close(c context.Context) {
	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "app Close").Logger()
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed closing cache")
		}
	}
	if err := otel.ShutdownOtel(context.WithoutCancel(c), a.shutdown); err != nil {
		logger.Warn().Err(err).Msg("failed shutting down otel")
	}
}

// withApp loads the config, builds the app for one command and closes it afterwards.
func withApp(run func(c context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, cfg, err := loadConfig(cmd, constants.AppStorefront)
		if err != nil {
			return err
		}
		a, err := newApp(c, cfg)
		if err != nil {
			return err
		}
		defer a.Close(c)
		return run(c, cmd, a, args)
	}
}
