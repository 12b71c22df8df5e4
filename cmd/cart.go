package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/cart/pkg/export"
	"github.com/Alturino/storefront/cart/pkg/store"
	"github.com/Alturino/storefront/internal/log"
)

var errLoginRequired = errors.New("please log in to view and manage your cart")

// explain turns a missing session into the message shown to the user.
func explain(err error) error {
	if errors.Is(err, store.ErrNotAuthenticated) {
		return errLoginRequired
	}
	return err
}

func parseQuantity(raw string) (float64, error) {
	quantity, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidQuantity, raw)
	}
	return quantity, nil
}

func newCartCommand() *cobra.Command {
	cartCmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart of the logged-in user",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.cart.FetchCart(c); err != nil {
				return explain(err)
			}
			return printCart(cmd.OutOrStdout(), a.cart.Items())
		}),
	}

	addCmd := &cobra.Command{
		Use:   "add <productId> [quantity]",
		Short: "Add a product to the cart",
		Args:  cobra.RangeArgs(1, 2),
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, args []string) error {
			quantity := 1.0
			if len(args) == 2 {
				var err error
				if quantity, err = parseQuantity(args[1]); err != nil {
					return err
				}
			}
			if err := a.cart.AddItem(c, args[0], quantity); err != nil {
				return explain(err)
			}
			return printCart(cmd.OutOrStdout(), a.cart.Items())
		}),
	}

	updateCmd := &cobra.Command{
		Use:   "update <productId> <quantity>",
		Short: "Set the quantity of a product in the cart",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, args []string) error {
			quantity, err := parseQuantity(args[1])
			if err != nil {
				return err
			}
			if err := a.cart.UpdateItem(c, args[0], quantity); err != nil {
				return explain(err)
			}
			return printCart(cmd.OutOrStdout(), a.cart.Items())
		}),
	}

	removeCmd := &cobra.Command{
		Use:   "remove <productId>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, args []string) error {
			if err := a.cart.RemoveItem(c, args[0]); err != nil {
				return explain(err)
			}
			return printCart(cmd.OutOrStdout(), a.cart.Items())
		}),
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.cart.ClearCart(c); err != nil {
				return explain(err)
			}
			return printCart(cmd.OutOrStdout(), a.cart.Items())
		}),
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh",
		Short: "Fetch the cart again from the server",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.cart.FetchCart(c); err != nil {
				return explain(err)
			}
			return printCart(cmd.OutOrStdout(), a.cart.Items())
		}),
	}

	totalCmd := &cobra.Command{
		Use:   "total",
		Short: "Show the approximate cart total",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			if err := a.cart.FetchCart(c); err != nil {
				return explain(err)
			}
			return printTotal(cmd.OutOrStdout(), a.cart.Items())
		}),
	}

	var outputDir string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the cart as a PDF",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			return exportCart(c, cmd, a, outputDir)
		}),
	}
	exportCmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for the PDF, defaults to export.output_dir")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Show the cart and refresh it whenever another session changes it",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			unsubscribe := a.cart.Subscribe(func(snapshot store.Snapshot) {
				fmt.Fprintf(out, "\n-- %s --\n", time.Now().Format(time.TimeOnly))
				_ = printCart(out, snapshot.Items)
			})
			defer unsubscribe()

			if err := a.cart.Init(c); err != nil {
				zerolog.Ctx(c).Warn().Err(err).Str(log.KeyTag, "cart watch").Msg("failed loading cart")
			}
			return a.cart.Sync(c)
		}),
	}

	cartCmd.AddCommand(listCmd, addCmd, updateCmd, removeCmd, clearCmd, refreshCmd, totalCmd, exportCmd, watchCmd)
	return cartCmd
}

func exportCart(c context.Context, cmd *cobra.Command, a *app, outputDir string) error {
	logger := zerolog.Ctx(c).With().Str(log.KeyTag, "cart export").Logger()

	if err := a.cart.FetchCart(c); err != nil {
		return explain(err)
	}

	customer := export.Customer{}
	user, err := a.accounts.Profile(c)
	if err != nil {
		logger.Warn().Err(err).Msg("failed loading customer details")
	} else {
		customer = export.Customer{Name: user.Name, Mobile: user.Mobile}
	}

	if outputDir == "" {
		outputDir = a.cfg.Export.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed creating output directory with error=%w", err)
	}

	path := filepath.Join(outputDir, export.Filename(customer))
	logger = logger.With().Str(log.KeyFilename, path).Logger()
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed creating export file with error=%w", err)
	}
	defer file.Close()

	document := export.Document{
		StoreName:   a.cfg.Export.StoreName,
		Customer:    customer,
		Items:       a.cart.Items(),
		GeneratedAt: time.Now(),
	}
	if err := document.WritePDF(logger.WithContext(c), file); err != nil {
		return err
	}
	logger.Info().Msg("exported cart")

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
	return err
}
