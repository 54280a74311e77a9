package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/metrolist/listing-sync/internal/pipeline"
	"github.com/metrolist/listing-sync/internal/scheduler"
	"github.com/metrolist/listing-sync/internal/store"
	"github.com/metrolist/listing-sync/internal/syncer"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the full pipeline on a fixed cadence",
	Long:  "Loops forever: sold sync then clean backfill, waiting max(buffer, interval - elapsed) between run starts. An operator status server runs alongside.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("schedule"); err != nil {
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

		listings := store.NewPostgresListingStore(pool)
		runner := pipeline.NewRunner(nil, nil,
			syncer.NewSoldEngine(listings, store.NewPostgresSoldStore(pool), syncConfig(dlq)),
			syncer.NewCleanEngine(listings, store.NewPostgresCleanStore(pool), syncConfig(dlq)),
			store.NewPostgresSyncLog(pool),
		)

		sched := &scheduler.Scheduler{
			Interval: time.Duration(cfg.Scheduler.IntervalMinutes) * time.Minute,
			Buffer:   time.Duration(cfg.Scheduler.BufferSeconds) * time.Second,
			Runner:   runner,
		}
		statusSrv := scheduler.NewStatusServer(fmt.Sprintf(":%d", cfg.Server.Port), sched)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return sched.Start(gctx) })
		g.Go(func() error { return statusSrv.Start(gctx) })

		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
