package main

import (
	"encoding/json"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"groupbuy/detailworker/config"
	"groupbuy/detailworker/internal/app"
	"groupbuy/detailworker/logger"
)

// cli carries the state shared by every subcommand
type cli struct {
	cfg        *config.Config
	sqlitePath string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "detailctl",
		Short:         "Extract, cache and refresh marketplace product details",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			godotenv.Load()
			logger.Init()

			c.cfg = config.LoadConfig()
			if c.sqlitePath != "" {
				c.cfg.StoreDriver = "sqlite"
				c.cfg.SQLitePath = c.sqlitePath
			}
			return c.cfg.Validate()
		},
	}
	root.PersistentFlags().StringVar(&c.sqlitePath, "sqlite", "", "use this SQLite database as the listing store")

	root.AddCommand(
		newExtractCmd(c),
		newFetchCmd(c, false),
		newFetchCmd(c, true),
		newAddCmd(c),
	)
	return root
}

// build wires the pipeline for commands that need the store
func (c *cli) build(cmd *cobra.Command) (*app.App, error) {
	return app.Build(cmd.Context(), c.cfg)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
