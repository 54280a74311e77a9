package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/metrolist/listing-sync/internal/db"
)

// SyncRun records one stage execution of the pipeline for auditing.
type SyncRun struct {
	ID         uuid.UUID
	Stage      string
	Read       int
	Matched    int
	Succeeded  int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// Duration returns the wall-clock time the run took.
func (r *SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SyncLog persists run records.
type SyncLog interface {
	Record(ctx context.Context, run *SyncRun) error
	Recent(ctx context.Context, stage string, limit int) ([]SyncRun, error)
}

// PostgresSyncLog writes run records to listings.sync_log.
type PostgresSyncLog struct {
	pool db.Pool
}

func NewPostgresSyncLog(pool db.Pool) *PostgresSyncLog {
	return &PostgresSyncLog{pool: pool}
}

func (l *PostgresSyncLog) Record(ctx context.Context, run *SyncRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO listings.sync_log (id, stage, read_count, matched_count, succeeded_count, failed_count, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.Stage, run.Read, run.Matched, run.Succeeded, run.Failed,
		run.StartedAt, run.FinishedAt, run.Error,
	)
	return eris.Wrap(err, "store: record sync run")
}

func (l *PostgresSyncLog) Recent(ctx context.Context, stage string, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id, stage, read_count, matched_count, succeeded_count, failed_count, started_at, finished_at, error
		FROM listings.sync_log
		WHERE stage = $1
		ORDER BY started_at DESC
		LIMIT $2`,
		stage, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: query sync log")
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var r SyncRun
		if err := rows.Scan(&r.ID, &r.Stage, &r.Read, &r.Matched, &r.Succeeded, &r.Failed,
			&r.StartedAt, &r.FinishedAt, &r.Error); err != nil {
			return nil, eris.Wrap(err, "store: scan sync run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "store: iterate sync log")
}
