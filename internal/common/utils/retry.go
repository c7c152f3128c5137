package utils

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/SurajPatil2645/VentureFlow/internal/common/errors"
)

// Retrier runs an operation up to a fixed number of attempts with exponential
// backoff between them. The delay before attempt i (counting from 0) is
// baseDelay * 2^(i-1); there is no jitter.
type Retrier struct {
	Clock Clock
}

// NewRetrier creates a retrier sleeping on clock. A nil clock uses the wall clock.
func NewRetrier(clock Clock) *Retrier {
	if clock == nil {
		clock = RealClock{}
	}
	return &Retrier{Clock: clock}
}

// Backoff returns the delay slept before the given 0-based attempt.
func Backoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return baseDelay * time.Duration(1<<uint(attempt-1))
}

// Run calls fn until it succeeds, returns a non-retryable error or
// maxAttempts is exhausted. The last observed error is returned as is.
func (r *Retrier) Run(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	_, err := RetryValue(ctx, r, maxAttempts, baseDelay, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, fn(ctx, attempt)
	})
	return err
}

// RetryValue is Run for operations that produce a value.
func RetryValue[T any](ctx context.Context, r *Retrier, maxAttempts int, baseDelay time.Duration, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	clock := r.Clock
	if clock == nil {
		clock = RealClock{}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := clock.Sleep(ctx, Backoff(baseDelay, attempt)); err != nil {
				return zero, fmt.Errorf("retry cancelled after %d attempts: %w", attempt, err)
			}
		}

		value, err := fn(ctx, attempt)
		if err == nil {
			return value, nil
		}
		lastErr = err

		if !apperrors.IsRetryable(err) {
			return zero, err
		}
	}

	return zero, lastErr
}
