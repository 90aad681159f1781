package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"groupbuy/detailworker/helpers"
	"groupbuy/detailworker/internal/detail"
	"groupbuy/detailworker/internal/extractor"
	"groupbuy/detailworker/services/browser"
)

// extractOutput is what extract prints
type extractOutput struct {
	URL        string                   `json:"url"`
	Extractor  string                   `json:"extractor"`
	Grade      detail.Grade             `json:"grade"`
	Raw        *detail.RawProductDetail `json:"raw"`
	Normalized detail.NormalizedDetail  `json:"normalized"`
}

func newExtractCmd(c *cli) *cobra.Command {
	var placeholders bool

	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Fetch a product page and print the extracted detail",
		Long: `Fetch a product page and run the matching marketplace extractor without
touching any cache or store.

Examples:
  detailctl extract https://www.alibaba.com/product-detail/x_1600000000.html
  detailctl extract --placeholders https://www.indiamart.com/proddetail/x.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageURL := args[0]
			if helpers.HostOf(pageURL) == "" {
				return fmt.Errorf("not an absolute URL: %q", pageURL)
			}

			var automation extractor.BrowserAutomation
			if b := browser.NewFromConfig(c.cfg); b != nil {
				defer b.Close()
				automation = b
			}
			registry := extractor.NewRegistry(automation)
			svc := extractor.NewService(helpers.NewHTTPFetcher(c.cfg.FetchTimeout, nil), registry)

			raw := svc.Extract(cmd.Context(), pageURL)
			n := detail.Normalize(raw, detail.ListingFallback{})
			grade := detail.Classify(n)
			if placeholders && grade == detail.GradeWeak {
				n = detail.WithPlaceholders(n)
			}

			return writeJSON(cmd.OutOrStdout(), extractOutput{
				URL:        pageURL,
				Extractor:  registry.For(pageURL).Name(),
				Grade:      grade,
				Raw:        raw,
				Normalized: n,
			})
		},
	}
	cmd.Flags().BoolVar(&placeholders, "placeholders", false, "fill WEAK details with generic placeholder sections")
	return cmd
}
