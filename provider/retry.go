package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// RetryPolicy bounds retries of provider calls: exponential backoff with
// ±10% jitter, capped delay, bounded attempt count. Non-retryable errors
// surface immediately.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries up to 3 times starting at 1s, capped at 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}
}

// Do runs fn until it succeeds, fails with a non-retryable error, exhausts
// the attempt budget, or ctx is cancelled.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return fmt.Errorf("provider call failed (non-retryable): %w", err)
		}
		if attempt == p.MaxRetries {
			break
		}

		delay := p.backoffDelay(attempt)
		slog.Warn("provider call failed, retrying",
			"attempt", attempt+1,
			"max_attempts", p.MaxRetries+1,
			"delay", delay,
			"error", err.Error())

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("provider call failed after %d attempts: %w", p.MaxRetries+1, lastErr)
}

// backoffDelay doubles the base delay per attempt, caps it, then applies
// ±10% jitter so concurrent callers do not retry in lockstep.
func (p RetryPolicy) backoffDelay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	jitter := 1 + (rand.Float64()*0.2 - 0.1)
	return time.Duration(float64(delay) * jitter)
}
