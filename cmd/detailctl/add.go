package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"groupbuy/detailworker/helpers"
	"groupbuy/detailworker/services/store"
)

func newAddCmd(c *cli) *cobra.Command {
	var (
		l        store.Listing
		priceMin float64
		priceMax float64
	)

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Register a listing in the SQLite store and print its id",
		Long: `Register a listing in the SQLite store so fetch, refresh and the
background worker can pick it up.

Examples:
  detailctl --sqlite listings.db add https://www.alibaba.com/product-detail/x_1.html --title "Spatula"
  detailctl --sqlite listings.db add https://www.indiamart.com/proddetail/x.html --price-min 45 --currency INR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if helpers.HostOf(args[0]) == "" {
				return fmt.Errorf("not an absolute URL: %q", args[0])
			}
			a, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.SQLite == nil {
				return errors.New("add needs the sqlite store (set --sqlite or STORE_DRIVER=sqlite)")
			}

			l.URL = args[0]
			if cmd.Flags().Changed("price-min") {
				l.PriceMin = &priceMin
			}
			if cmd.Flags().Changed("price-max") {
				l.PriceMax = &priceMax
			}
			id, err := a.SQLite.PutListing(cmd.Context(), l)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&l.ID, "id", "", "listing id (default: a new UUID)")
	f.StringVar(&l.Title, "title", "", "listing title")
	f.StringVar(&l.PriceRaw, "price", "", "price text as shown on the listing card")
	f.Float64Var(&priceMin, "price-min", 0, "lowest price")
	f.Float64Var(&priceMax, "price-max", 0, "highest price")
	f.StringVar(&l.Currency, "currency", "", "ISO currency code")
	f.StringVar(&l.OrdersRaw, "orders", "", "orders or MOQ text from the listing card")
	f.StringVar(&l.Image, "image", "", "listing image URL")
	return cmd
}
