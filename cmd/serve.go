package cmd

import (
	"context"

	"github.com/spf13/cobra"

	cartSvc "github.com/Alturino/storefront/cart/cmd"
	"github.com/Alturino/storefront/internal/config"
	productSvc "github.com/Alturino/storefront/product/cmd"
	userSvc "github.com/Alturino/storefront/user/cmd"
)

func newServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a backend service",
	}

	service := func(use string, short string, run func(context.Context, *config.Config) error) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, cfg, err := loadConfig(cmd, use)
				if err != nil {
					return err
				}
				return run(c, cfg)
			},
		}
	}

	serveCmd.AddCommand(
		service("cart", "Run cart service", cartSvc.RunCartService),
		service("product", "Run product service", productSvc.RunProductService),
		service("user", "Run user service", userSvc.RunUserService),
	)
	return serveCmd
}
