// Package pipeline sequences one full sync run: feed fetch, sold sync,
// analytics refresh, clean backfill.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/internal/store"
	"github.com/metrolist/listing-sync/internal/syncer"
)

// FeedFetcher pulls fresh rows from the upstream feed into the raw store.
// Implementations live outside this module's scope; NopFetcher stands in when
// the feed is loaded by another process.
type FeedFetcher interface {
	Fetch(ctx context.Context) error
}

// AnalyticsRefresher rebuilds derived analytics tables after the sold sync.
type AnalyticsRefresher interface {
	Refresh(ctx context.Context) error
}

// NopFetcher is the default FeedFetcher: it assumes the raw store is already
// being populated.
type NopFetcher struct{}

func (NopFetcher) Fetch(context.Context) error { return nil }

// NopRefresher is the default AnalyticsRefresher.
type NopRefresher struct{}

func (NopRefresher) Refresh(context.Context) error { return nil }

// RunSummary accounts for one full pipeline run.
type RunSummary struct {
	RunID     uuid.UUID
	Sold      syncer.Result
	Clean     syncer.Result
	StartedAt time.Time
	Elapsed   time.Duration
}

// Runner executes the stages strictly in order; each stage reads what the
// previous one wrote, so this ordering is a correctness requirement.
type Runner struct {
	fetcher   FeedFetcher
	refresher AnalyticsRefresher
	sold      *syncer.Engine[model.SoldListing]
	clean     *syncer.Engine[model.CleanListing]
	syncLog   store.SyncLog // optional
}

// NewRunner wires a pipeline. Nil fetcher/refresher default to no-ops; a nil
// syncLog disables run recording.
func NewRunner(fetcher FeedFetcher, refresher AnalyticsRefresher,
	sold *syncer.Engine[model.SoldListing], clean *syncer.Engine[model.CleanListing],
	syncLog store.SyncLog) *Runner {
	if fetcher == nil {
		fetcher = NopFetcher{}
	}
	if refresher == nil {
		refresher = NopRefresher{}
	}
	return &Runner{fetcher: fetcher, refresher: refresher, sold: sold, clean: clean, syncLog: syncLog}
}

// Run executes one full pass. The summary is returned even on error so every
// attempted row stays accounted for.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	summary := &RunSummary{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	defer func() { summary.Elapsed = time.Since(summary.StartedAt) }()

	log.Info("pipeline run starting", zap.String("run_id", summary.RunID.String()))

	if err := r.fetcher.Fetch(ctx); err != nil {
		return summary, eris.Wrap(err, "pipeline: feed fetch")
	}

	soldRes, err := r.runStage(ctx, "sold", summary, r.sold.Run)
	if soldRes != nil {
		summary.Sold = *soldRes
	}
	if err != nil {
		return summary, eris.Wrap(err, "pipeline: sold sync")
	}

	if err := r.refresher.Refresh(ctx); err != nil {
		return summary, eris.Wrap(err, "pipeline: analytics refresh")
	}

	cleanRes, err := r.runStage(ctx, "clean", summary, r.clean.Run)
	if cleanRes != nil {
		summary.Clean = *cleanRes
	}
	if err != nil {
		return summary, eris.Wrap(err, "pipeline: clean backfill")
	}

	log.Info("pipeline run complete",
		zap.String("run_id", summary.RunID.String()),
		zap.Int("sold_succeeded", summary.Sold.Succeeded),
		zap.Int("sold_failed", summary.Sold.Failed),
		zap.Int("clean_succeeded", summary.Clean.Succeeded),
		zap.Int("clean_failed", summary.Clean.Failed),
	)
	return summary, nil
}

// runStage runs one sync engine and records the outcome in the sync log.
func (r *Runner) runStage(ctx context.Context, stage string, summary *RunSummary,
	run func(ctx context.Context) (*syncer.Result, error)) (*syncer.Result, error) {
	started := time.Now().UTC()
	res, err := run(ctx)
	if res == nil {
		res = &syncer.Result{}
	}

	if r.syncLog != nil {
		rec := &store.SyncRun{
			Stage:      stage,
			Read:       res.Read,
			Matched:    res.Matched,
			Succeeded:  res.Succeeded,
			Failed:     res.Failed,
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if logErr := r.syncLog.Record(ctx, rec); logErr != nil {
			zap.L().Warn("sync log write failed", zap.String("stage", stage), zap.Error(logErr))
		}
	}
	return res, err
}
