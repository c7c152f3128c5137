package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fail(cb *Breaker, n int, err error) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func() error { return err })
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	for name, cfg := range map[string]Config{
		"zero threshold": {Threshold: 0, OpenFor: time.Second, Probes: 1},
		"zero open_for":  {Threshold: 1, OpenFor: 0, Probes: 1},
		"zero probes":    {Threshold: 1, OpenFor: time.Second, Probes: 0},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestBreaker(t *testing.T) {
	logger := logging.NewNopLogger()
	quick := Config{Threshold: 2, OpenFor: 50 * time.Millisecond, Probes: 1}

	t.Run("success keeps it closed", func(t *testing.T) {
		cb := New("ok", quick, logger)
		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("opens after consecutive failures and rejects", func(t *testing.T) {
		cb := New("trip", Config{Threshold: 3, OpenFor: time.Second, Probes: 1}, logger)
		fail(cb, 3, fmt.Errorf("upstream down"))
		assert.True(t, cb.IsOpen())

		err := cb.Execute(context.Background(), func() error {
			t.Fatal("open breaker must not run fn")
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is open")
		assert.True(t, errors.IsType(err, errors.ErrTypeFetch))
		assert.True(t, errors.IsRetryable(err))
	})

	t.Run("half-open probe closes it again", func(t *testing.T) {
		cb := New("probe", quick, logger)
		fail(cb, 2, fmt.Errorf("boom"))
		assert.Equal(t, StateOpen, cb.State())

		time.Sleep(70 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("extraction and validation errors do not count", func(t *testing.T) {
		cb := New("parse", quick, logger)
		fail(cb, 5, errors.ExtractionError("empty completion", nil))
		fail(cb, 5, errors.ValidationError("bad url"))
		assert.Equal(t, StateClosed, cb.State())

		fail(cb, 2, errors.FetchError("model API returned 502", nil))
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("done context skips fn", func(t *testing.T) {
		cb := New("ctx", DefaultConfig(), logger)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		err := cb.Execute(ctx, func() error { called = true; return nil })
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := New("defaults", Config{}, logger)
		fail(cb, 4, fmt.Errorf("fail"))
		assert.Equal(t, StateClosed, cb.State())
		fail(cb, 1, fmt.Errorf("fail"))
		assert.Equal(t, StateOpen, cb.State())
	})

	t.Run("stats", func(t *testing.T) {
		cb := New("stats", DefaultConfig(), logger)
		_ = cb.Execute(context.Background(), func() error { return nil })
		fail(cb, 1, fmt.Errorf("fail"))

		assert.Equal(t, Stats{Name: "stats", State: "closed", Failures: 1, Successes: 1}, cb.Stats())
	})
}
