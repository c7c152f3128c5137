package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/dedup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMaintainer struct {
	sweeps atomic.Int32
	drains atomic.Int32
}

func (m *fakeMaintainer) ClearExpired(context.Context) int {
	m.sweeps.Add(1)
	return 1
}

func (m *fakeMaintainer) ProcessQueued(context.Context) dedup.DrainReport {
	m.drains.Add(1)
	return dedup.DrainReport{}
}

func TestScheduler_RunsBothJobs(t *testing.T) {
	m := &fakeMaintainer{}
	s, err := NewScheduler("@every 1s", "@every 1s", m, logging.NewNopLogger())
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return m.sweeps.Load() > 0 && m.drains.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestScheduler_InvalidSpecs(t *testing.T) {
	_, err := NewScheduler("whenever", "@every 15s", &fakeMaintainer{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sweep")

	_, err = NewScheduler("@every 10m", "* * *", &fakeMaintainer{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drain")
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	s, err := NewScheduler("@every 10m", "@every 15s", &fakeMaintainer{}, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a scheduler that never started")
	}
}

func TestToFields(t *testing.T) {
	fields := toFields([]interface{}{"entry", 3, 42, "x", "dangling"})

	require.Len(t, fields, 2)
	assert.Equal(t, "entry", fields[0].Key)
	assert.Equal(t, 3, fields[0].Value)
	assert.Equal(t, "42", fields[1].Key)
}

func TestCronLogger_ForwardsErrors(t *testing.T) {
	logger, err := logging.NewZapLogger(logging.LogConfig{Level: logging.DebugLevel, Output: &testBuffer{}})
	require.NoError(t, err)

	// must not panic with odd key/value lists
	l := cronLogger{logger: logger}
	l.Info("tick", "entry")
	l.Error(errors.New("boom"), "job failed", "entry", 1)
}

type testBuffer struct{ n int }

func (b *testBuffer) Write(p []byte) (int, error) {
	b.n += len(p)
	return len(p), nil
}
