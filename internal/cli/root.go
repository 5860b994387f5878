// Package cli implements the mapsearch command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chaupham1092/lcalbizfinder/app"
	"github.com/chaupham1092/lcalbizfinder/app/config"
)

var version = "dev"

// NewRootCmd creates the root cobra command for mapsearch.
func NewRootCmd(v string) *cobra.Command {
	version = v

	root := &cobra.Command{
		Use:           "mapsearch",
		Short:         "Local business map search",
		Long:          "mapsearch serves the map search API and runs searches, lookups and quota maintenance from the terminal.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newSearchCmd())
	root.AddCommand(newSuggestCmd())
	root.AddCommand(newLocateCmd())
	root.AddCommand(newCheckoutCmd())
	root.AddCommand(newQuotaCmd())

	root.PersistentFlags().String("log-level", "", "override LOG_LEVEL")

	return root
}

// loadEnv reads the environment config and builds the logger for cmd.
func loadEnv(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logs.Level = lvl
	}
	if cfg.Logs.Style == "" {
		cfg.Logs.Style = "text"
	}
	return cfg, app.NewLogger(cfg.Logs), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
