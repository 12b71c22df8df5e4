package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alturino/storefront/product/pkg/catalog"
)

func newProductsCommand() *cobra.Command {
	productsCmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}

	var category, search string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List products, optionally filtered by category and search term",
		Args:  cobra.NoArgs,
		RunE: withApp(func(c context.Context, cmd *cobra.Command, a *app, _ []string) error {
			products, err := a.products.FindProducts(c)
			if err != nil {
				return err
			}
			products = catalog.Search(catalog.FilterByCategory(products, category), search)
			return printProducts(cmd.OutOrStdout(), products)
		}),
	}
	listCmd.Flags().StringVar(&category, "category", "", "category to show, empty or all for every category")
	listCmd.Flags().StringVar(&search, "search", "", "match against name, brand and category")

	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "List the shop categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range catalog.Categories {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	productsCmd.AddCommand(listCmd, categoriesCmd)
	return productsCmd
}
