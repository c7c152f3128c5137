package locks

import (
	"context"
	"testing"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*RedsyncManager, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	redisClient, err := redis.NewClient(&redis.Config{Address: s.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })

	manager, err := NewRedsyncManager(redisClient)
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager, s
}

func TestRedsyncManager_TryAcquire(t *testing.T) {
	manager, s := newTestManager(t)
	ctx := context.Background()

	lock, err := manager.TryAcquire(ctx, "acme::https://acme.com", 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "acme::https://acme.com", lock.Key())
	assert.True(t, lock.IsHeld())
	assert.True(t, s.Exists(keyPrefix+"acme::https://acme.com"))

	require.NoError(t, lock.Release(ctx))
	assert.False(t, lock.IsHeld())
	assert.False(t, s.Exists(keyPrefix+"acme::https://acme.com"))
}

func TestRedsyncManager_Contention(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.TryAcquire(ctx, "contended", 30*time.Second)
	require.NoError(t, err)

	second, err := manager.TryAcquire(ctx, "contended", 30*time.Second)
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Nil(t, second)

	require.NoError(t, first.Release(ctx))

	third, err := manager.TryAcquire(ctx, "contended", 30*time.Second)
	require.NoError(t, err)
	assert.NoError(t, third.Release(ctx))
}

func TestRedsyncManager_ReleaseIsIdempotent(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	lock, err := manager.TryAcquire(ctx, "twice", 30*time.Second)
	require.NoError(t, err)

	assert.NoError(t, lock.Release(ctx))
	assert.NoError(t, lock.Release(ctx))
}

func TestRedsyncManager_CloseReleasesHeldLocks(t *testing.T) {
	manager, s := newTestManager(t)
	ctx := context.Background()

	a, err := manager.TryAcquire(ctx, "a", 30*time.Second)
	require.NoError(t, err)
	_, err = manager.TryAcquire(ctx, "b", 30*time.Second)
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	assert.False(t, a.IsHeld())
	assert.False(t, s.Exists(keyPrefix+"a"))
	assert.False(t, s.Exists(keyPrefix+"b"))
}

func TestRedsyncManager_BackendDown(t *testing.T) {
	manager, s := newTestManager(t)
	s.Close()

	_, err := manager.TryAcquire(context.Background(), "down", 30*time.Second)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockHeld)
}

func TestNewRedsyncManager_RequiresClient(t *testing.T) {
	_, err := NewRedsyncManager(nil)
	assert.Error(t, err)
}
