package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/Alturino/storefront/cart/pkg/export"
	"github.com/Alturino/storefront/cart/pkg/response"
	productRes "github.com/Alturino/storefront/product/pkg/response"
	userRes "github.com/Alturino/storefront/user/pkg/response"
)

func printCart(w io.Writer, items []response.CartLineItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "Your cart is empty")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SL.NO\tPRODUCT ID\tBRAND\tPRODUCT NAME\tQTY\tCATEGORY\tPRICE")
	for i, row := range export.Rows(items) {
		price := "N/A"
		if product := items[i].Product; product != nil {
			price = product.Price.StringFixed(2)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.SerialNo, items[i].ProductID, row.Brand, row.ProductName, row.Quantity, row.Category, price)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return printTotal(w, items)
}

func printTotal(w io.Writer, items []response.CartLineItem) error {
	_, err := fmt.Fprintf(w, "Approx Amount In Rs: %s\n", response.ApproximateTotal(items).StringFixed(2))
	return err
}

func printProducts(w io.Writer, products []productRes.Product) error {
	if len(products) == 0 {
		_, err := fmt.Fprintln(w, "No products found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tCATEGORY\tPRICE")
	for _, product := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			product.ID, product.Name, product.Brand, product.Category, product.Price.StringFixed(2))
	}
	return tw.Flush()
}

func printUser(w io.Writer, user userRes.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", user.ID)
	fmt.Fprintf(tw, "Name\t%s\n", user.Name)
	fmt.Fprintf(tw, "Username\t%s\n", user.Username)
	fmt.Fprintf(tw, "Mobile\t%s\n", user.Mobile)
	return tw.Flush()
}
