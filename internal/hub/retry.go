package hub

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// retryPolicy controls exponential backoff with full jitter:
// delay = rand(0, min(maxDelay, baseDelay * 2^attempt)).
type retryPolicy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func (p retryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.maxRetries || !retryable(ctx, lastErr) {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay(attempt)):
		}
	}
	return fmt.Errorf("hub: max retries (%d) exceeded: %w", p.maxRetries, lastErr)
}

func (p retryPolicy) delay(attempt int) time.Duration {
	d := p.baseDelay << attempt
	if d <= 0 || d > p.maxDelay {
		d = p.maxDelay
	}
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// retryable treats hub 5xx/429 and transport failures as transient.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var le *localError
	return !errors.As(err, &le)
}

// localError marks filesystem failures, which are never retried.
type localError struct{ err error }

func (e *localError) Error() string { return e.err.Error() }
func (e *localError) Unwrap() error { return e.err }
