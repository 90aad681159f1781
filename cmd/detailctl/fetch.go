package main

import (
	"github.com/spf13/cobra"

	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/internal/manager"
)

// fetchOutput is what fetch and refresh print
type fetchOutput struct {
	ListingID string                   `json:"listingId"`
	Source    manager.Source           `json:"source"`
	Grade     detail.Grade             `json:"grade"`
	Raw       *detail.RawProductDetail `json:"raw"`
	Detail    detail.NormalizedDetail  `json:"detail"`
}

// newFetchCmd builds "fetch" or, with force, "refresh"
func newFetchCmd(c *cli, force bool) *cobra.Command {
	use, short := "fetch <listing-id>", "Print a listing's detail through the memory, store and live tiers"
	if force {
		use, short = "refresh <listing-id>", "Re-extract a listing's detail, ignoring cached copies"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.build(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			id := args[0]
			var res manager.Result
			if force {
				res, err = a.Manager.RefreshByID(cmd.Context(), id)
			} else {
				res, err = a.Manager.FetchCachedByID(cmd.Context(), id)
			}
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), fetchOutput{
				ListingID: id,
				Source:    res.Source,
				Grade:     res.Grade,
				Raw:       res.Raw,
				Detail:    res.Detail,
			})
		},
	}
}
