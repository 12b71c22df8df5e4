package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/internal/config"
	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
)

const flagConfig = "config"

// loadConfig reads the file named by --config, falling back to name when the flag is unset.
// The returned context carries the logger configured by log.path and application.env.
func loadConfig(cmd *cobra.Command, name string) (context.Context, *config.Config, error) {
	if flag := cmd.Flag(flagConfig); flag != nil && flag.Changed {
		name = flag.Value.String()
	}
	cfg, err := config.Load(cmd.Context(), name)
	if err != nil {
		return nil, nil, err
	}

	logger := log.InitLogger(cfg.Log.Path, cfg.Application.Env).
		With().
		Str(log.KeyAppName, name).
		Logger()
	logger.Debug().Str("path", cfg.Log.Path).Msg("initialized logger")
	return logger.WithContext(cmd.Context()), cfg, nil
}

func Start() {
	// replaced by the configured logger once a command has loaded its config
	logger := log.New(os.Stderr, zerolog.InfoLevel).
		With().
		Str(log.KeyAppName, constants.AppStorefront).
		Str(log.KeyTag, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Browse the catalog, manage the cart and run the storefront services",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String(flagConfig, constants.AppStorefront, "config name under ./env")
	rootCmd.AddCommand(
		newCartCommand(),
		newProductsCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newSignupCommand(),
		newAccountCommand(),
		newServeCommand(),
	)
	if err := rootCmd.ExecuteContext(c); err != nil {
		stop()
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
