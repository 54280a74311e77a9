package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/metrolist/listing-sync/internal/store"
	"github.com/metrolist/listing-sync/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync stage against the raw listing store",
}

var syncSoldCmd = &cobra.Command{
	Use:   "sold",
	Short: "Sync terminal listings into the sold table",
	Long:  "Pages through the raw store, classifies each listing's lifecycle state, and upserts terminal listings into listings.sold with their status label and close date.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		pool, err := listingPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		dlq, err := openDLQ()
		if err != nil {
			return err
		}

		eng := syncer.NewSoldEngine(
			store.NewPostgresListingStore(pool),
			store.NewPostgresSoldStore(pool),
			syncConfig(dlq),
		)
		res, err := eng.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "sync sold")
		}
		printResult("sold", res)
		return nil
	},
}

var syncCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Backfill the clean projection table",
	Long:  "Pages through the raw store and upserts every listing into listings.clean with null-valued and empty-array keys removed from both payloads.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		pool, err := listingPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		dlq, err := openDLQ()
		if err != nil {
			return err
		}

		eng := syncer.NewCleanEngine(
			store.NewPostgresListingStore(pool),
			store.NewPostgresCleanStore(pool),
			syncConfig(dlq),
		)
		res, err := eng.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "sync clean")
		}
		printResult("clean", res)
		return nil
	},
}

func printResult(stage string, res *syncer.Result) {
	fmt.Printf("%s: read=%d matched=%d succeeded=%d failed=%d\n",
		stage, res.Read, res.Matched, res.Succeeded, res.Failed)
}

func init() {
	syncCmd.AddCommand(syncSoldCmd)
	syncCmd.AddCommand(syncCleanCmd)
	rootCmd.AddCommand(syncCmd)
}
