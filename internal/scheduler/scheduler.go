// Package scheduler triggers full pipeline runs at a configured cadence with
// a minimum inter-run buffer.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/metrolist/listing-sync/internal/pipeline"
)

// Runner is the unit of work the scheduler repeats.
type Runner interface {
	Run(ctx context.Context) (*pipeline.RunSummary, error)
}

// Scheduler loops forever: run, wait, run again. Run failures are logged and
// the schedule continues; only context cancellation stops the loop.
type Scheduler struct {
	Interval time.Duration // target spacing between run starts
	Buffer   time.Duration // minimum gap even when a run overruns the interval
	Runner   Runner

	mu       sync.RWMutex
	last     *pipeline.RunSummary
	lastErr  error
	lastTime time.Time
}

// NextDelay computes the wait after a run that took elapsed. Consecutive run
// starts are never closer together than the buffer, even when a run finishes
// instantly.
func (s *Scheduler) NextDelay(elapsed time.Duration) time.Duration {
	delay := s.Interval - elapsed
	if delay < s.Buffer {
		return s.Buffer
	}
	return delay
}

// Start runs the loop until ctx is cancelled. The first run starts
// immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "scheduler"))
	log.Info("scheduler starting",
		zap.Duration("interval", s.Interval),
		zap.Duration("buffer", s.Buffer),
	)

	for {
		start := time.Now()
		summary, err := s.Runner.Run(ctx)
		elapsed := time.Since(start)

		s.record(summary, err)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("pipeline run failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		}

		delay := s.NextDelay(elapsed)
		log.Info("next run scheduled", zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			log.Info("scheduler stopping")
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (s *Scheduler) record(summary *pipeline.RunSummary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = summary
	s.lastErr = err
	s.lastTime = time.Now().UTC()
}

// RunStatus is a snapshot of the most recent run for the status endpoint.
type RunStatus struct {
	Summary    *pipeline.RunSummary
	Err        error
	FinishedAt time.Time
}

// LastRun returns the most recent run's outcome.
func (s *Scheduler) LastRun() RunStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RunStatus{Summary: s.last, Err: s.lastErr, FinishedAt: s.lastTime}
}
