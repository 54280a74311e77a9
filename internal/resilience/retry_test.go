package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	var retries []int
	cfg := RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		Strategy:       BackoffLinear,
		OnRetry:        func(attempt int, err error) { retries = append(retries, attempt) },
	}
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewTransientError(errors.New("upsert timed out"), 0)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retries, "exactly two retry delays recorded")
}

func TestDo_NonTransientNotRetried(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return errors.New("duplicate key value violates unique constraint")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return NewTransientError(errors.New("i/o timeout"), 0)
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, RetryConfig{MaxAttempts: 5, InitialBackoff: 50 * time.Millisecond}, func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError(errors.New("i/o timeout"), 0)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoVal_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := DoVal(context.Background(), RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, func(ctx context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, NewTransientError(errors.New("connection reset by peer"), 0)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestDoVal_CustomShouldRetry(t *testing.T) {
	sentinel := errors.New("retry me")
	calls := 0
	cfg := RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		ShouldRetry:    func(err error) bool { return errors.Is(err, sentinel) },
	}
	_, err := DoVal(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		return "", sentinel
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestComputeBackoff_Linear(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 500 * time.Millisecond,
		Strategy:       BackoffLinear,
	})
	assert.Equal(t, 500*time.Millisecond, computeBackoff(0, cfg))
	assert.Equal(t, 1000*time.Millisecond, computeBackoff(1, cfg))
	assert.Equal(t, 1500*time.Millisecond, computeBackoff(2, cfg))
}

func TestComputeBackoff_ExponentialCapped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: -1, // clamped to 0
	})
	assert.Equal(t, time.Second, computeBackoff(0, cfg))
	assert.Equal(t, 2*time.Second, computeBackoff(1, cfg))
	assert.Equal(t, 3*time.Second, computeBackoff(2, cfg), "capped at MaxBackoff")
}

func TestUpsertRetryConfig(t *testing.T) {
	cfg := UpsertRetryConfig()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, BackoffLinear, cfg.Strategy)
	assert.Zero(t, cfg.JitterFraction)
}
