package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metrolist/listing-sync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "listing-sync",
	Short: "Listing sync and enrichment pipeline",
	Long:  "Syncs raw MLS listings into sold and clean projections, backfills coordinates via geocoding, and caches nearby schools and transit.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
