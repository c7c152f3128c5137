package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRetrier() (*Retrier, *FakeClock) {
	clock := NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewRetrier(clock), clock
}

func TestBackoff(t *testing.T) {
	base := time.Second
	assert.Equal(t, time.Duration(0), Backoff(base, 0))
	assert.Equal(t, 1*time.Second, Backoff(base, 1))
	assert.Equal(t, 2*time.Second, Backoff(base, 2))
	assert.Equal(t, 4*time.Second, Backoff(base, 3))
}

func TestRetrier_SucceedsOnSecondAttempt(t *testing.T) {
	r, clock := newTestRetrier()

	attempts := 0
	err := r.Run(context.Background(), 3, time.Second, func(ctx context.Context, attempt int) error {
		attempts++
		if attempts < 2 {
			return errors.New("temporary error")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, []time.Duration{time.Second}, clock.Sleeps())
}

func TestRetrier_AllAttemptsFail(t *testing.T) {
	r, clock := newTestRetrier()

	attempts := 0
	var last error
	err := r.Run(context.Background(), 3, time.Second, func(ctx context.Context, attempt int) error {
		attempts++
		last = apperrors.FetchError("attempt failed", nil).WithContext("attempt", attempt)
		return last
	})

	assert.Equal(t, 3, attempts)
	assert.Same(t, last, err)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, clock.Sleeps())
}

func TestRetrier_NonRetryableErrorStops(t *testing.T) {
	r, clock := newTestRetrier()

	attempts := 0
	err := r.Run(context.Background(), 3, time.Second, func(ctx context.Context, attempt int) error {
		attempts++
		return apperrors.ValidationError("URL is required")
	})

	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
	assert.Equal(t, 1, attempts)
	assert.Empty(t, clock.Sleeps())
}

func TestRetrier_ZeroAttemptsRunsOnce(t *testing.T) {
	r, _ := newTestRetrier()

	attempts := 0
	_ = r.Run(context.Background(), 0, time.Second, func(ctx context.Context, attempt int) error {
		attempts++
		return errors.New("fail")
	})

	assert.Equal(t, 1, attempts)
}

func TestRetrier_ContextCancelledDuringBackoff(t *testing.T) {
	r, _ := newTestRetrier()
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := r.Run(ctx, 3, time.Second, func(ctx context.Context, attempt int) error {
		attempts++
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryValue(t *testing.T) {
	r, clock := newTestRetrier()

	got, err := RetryValue(context.Background(), r, 4, 100*time.Millisecond, func(ctx context.Context, attempt int) (string, error) {
		if attempt < 3 {
			return "", errors.New("not yet")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, clock.Sleeps())
}
