package syncer

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/internal/resilience"
)

// maxRowErrorLogs caps how many per-row failures a run logs verbosely; the
// rest are counted only, so a poisoned batch can't flood the log.
const maxRowErrorLogs = 5

// Source yields pages of raw listings, most recently updated first.
type Source interface {
	Page(ctx context.Context, offset, limit int) ([]model.Listing, error)
}

// Sink receives the transformed rows. UpsertOne is the per-row fallback used
// when a whole batch keeps failing after retries.
type Sink[T any] interface {
	UpsertBatch(ctx context.Context, rows []T) error
	UpsertOne(ctx context.Context, row T) error
}

// Transform maps a raw listing to the sink's row type. Returning false skips
// the listing without error.
type Transform[T any] func(l model.Listing) (T, bool)

// Config tunes one sync run.
type Config struct {
	Stage     string
	PageSize  int
	BatchSize int
	Retry     resilience.RetryConfig
	DLQ       *resilience.DLQ // optional; failed rows are parked here
}

// Result summarizes one sync run.
type Result struct {
	Read      int
	Matched   int
	Succeeded int
	Failed    int
}

// Engine drives one source-to-sink sync: paginate, transform, batch, upsert
// with retry, and fall back to per-row writes for batches that never succeed.
type Engine[T any] struct {
	source    Source
	sink      Sink[T]
	transform Transform[T]
	key       func(T) string
	cfg       Config
}

// NewEngine creates a sync engine. key extracts the listing key for a
// transformed row, used in logs and dead-letter entries.
func NewEngine[T any](source Source, sink Sink[T], transform Transform[T], key func(T) string, cfg Config) *Engine[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 250
	}
	if cfg.BatchSize > cfg.PageSize {
		cfg.BatchSize = cfg.PageSize
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.UpsertRetryConfig()
	}
	return &Engine[T]{source: source, sink: sink, transform: transform, key: key, cfg: cfg}
}

// Run executes the sync to completion. Read errors abort the run; write
// errors degrade to per-row fallback and are reflected in the result counts.
func (e *Engine[T]) Run(ctx context.Context) (*Result, error) {
	log := zap.L().With(zap.String("stage", e.cfg.Stage))
	start := time.Now()
	res := &Result{}

	var pending []T
	for offset := 0; ; offset += e.cfg.PageSize {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		page, err := e.source.Page(ctx, offset, e.cfg.PageSize)
		if err != nil {
			return res, eris.Wrapf(err, "syncer: read page at offset %d", offset)
		}
		res.Read += len(page)

		for _, l := range page {
			row, ok := e.transform(l)
			if !ok {
				continue
			}
			res.Matched++
			pending = append(pending, row)
			if len(pending) >= e.cfg.BatchSize {
				e.flush(ctx, log, pending, res)
				pending = pending[:0]
			}
		}

		// A short page means the source is exhausted.
		if len(page) < e.cfg.PageSize {
			break
		}
	}
	if len(pending) > 0 {
		e.flush(ctx, log, pending, res)
	}

	log.Info("sync run complete",
		zap.Int("read", res.Read),
		zap.Int("matched", res.Matched),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

// flush upserts one batch. The batch write is retried as a whole; if it still
// fails, each row is written individually so one bad row can't sink the rest.
func (e *Engine[T]) flush(ctx context.Context, log *zap.Logger, batch []T, res *Result) {
	rows := make([]T, len(batch))
	copy(rows, batch)

	err := resilience.Do(ctx, e.cfg.Retry, func(ctx context.Context) error {
		return e.sink.UpsertBatch(ctx, rows)
	})
	if err == nil {
		res.Succeeded += len(rows)
		return
	}

	log.Warn("batch upsert failed after retries, falling back to per-row writes",
		zap.Int("batch_size", len(rows)),
		zap.Error(err),
	)

	logged, failed := 0, 0
	for _, row := range rows {
		if rowErr := e.sink.UpsertOne(ctx, row); rowErr != nil {
			res.Failed++
			failed++
			if logged < maxRowErrorLogs {
				log.Error("row upsert failed",
					zap.String("listing_key", e.key(row)),
					zap.Error(rowErr),
				)
				logged++
			}
			e.park(row, rowErr)
			continue
		}
		res.Succeeded++
	}
	if failed > logged {
		log.Warn("additional row failures suppressed", zap.Int("suppressed", failed-logged))
	}
}

func (e *Engine[T]) park(row T, err error) {
	if e.cfg.DLQ == nil {
		return
	}
	entry := resilience.DLQEntry{
		ListingKey: e.key(row),
		Stage:      e.cfg.Stage,
		Error:      err.Error(),
		ErrorType:  resilience.ClassifyError(err),
		Row:        row,
	}
	if dlqErr := e.cfg.DLQ.Append(entry); dlqErr != nil {
		zap.L().Warn("dead-letter write failed", zap.Error(dlqErr))
	}
}
