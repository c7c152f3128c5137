package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/utils"
	"github.com/SurajPatil2645/VentureFlow/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Summary string `json:"summary"`
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, fmt.Errorf("store offline")
}
func (failingStore) Set(context.Context, string, string) error { return fmt.Errorf("store offline") }
func (failingStore) Remove(context.Context, string) error      { return fmt.Errorf("store offline") }

func newTestCache(store storage.Store) (*TieredCache[payload], *utils.FakeClock) {
	clock := utils.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return New[payload](Config{Enabled: true}, store, clock, nil), clock
}

func readIndex(t *testing.T, store *storage.MemoryStore) []string {
	t.Helper()
	raw, ok, err := store.Get(context.Background(), IndexKey)
	require.NoError(t, err)
	if !ok {
		return nil
	}
	var index []string
	require.NoError(t, json.Unmarshal([]byte(raw), &index))
	return index
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "a::https://x.com", GenerateKey("a", "https://x.com"))
	assert.Equal(t, "a::default", GenerateKey("a", ""))
}

func TestTieredCache_SetGetExpire(t *testing.T) {
	store := storage.NewMemoryStore()
	c, clock := newTestCache(store)
	ctx := context.Background()
	key := GenerateKey("a", "https://x.com")

	c.Set(ctx, key, payload{Summary: "s"}, time.Second)

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, payload{Summary: "s"}, got)
	assert.Equal(t, 1, c.Stats(ctx).TotalEntries)

	clock.Advance(1001 * time.Millisecond)

	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats(ctx).TotalEntries)

	_, found, err := store.Get(ctx, KeyPrefix+key)
	require.NoError(t, err)
	assert.False(t, found, "expired entry is removed from the durable tier")
	assert.Empty(t, readIndex(t, store))
}

func TestTieredCache_DefaultTTL(t *testing.T) {
	c, clock := newTestCache(nil)
	ctx := context.Background()

	c.Set(ctx, "k", payload{Summary: "s"}, 0)

	clock.Advance(DefaultTTL - time.Second)
	assert.True(t, c.Has(ctx, "k"))

	clock.Advance(time.Second)
	assert.False(t, c.Has(ctx, "k"), "an entry is dead exactly at its expiry")
}

func TestTieredCache_PromotesDurableHits(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first, clock := newTestCache(store)
	first.Set(ctx, "k", payload{Summary: "persisted"}, time.Hour)

	// a second cache over the same store simulates a cold start
	second := New[payload](Config{Enabled: true}, store, clock, nil)
	assert.Equal(t, 0, second.Stats(ctx).InProcessEntries)

	got, ok := second.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "persisted", got.Summary)
	assert.Equal(t, 1, second.Stats(ctx).InProcessEntries)
}

func TestTieredCache_TiersAreIndependentSnapshots(t *testing.T) {
	store := storage.NewMemoryStore()
	c, _ := newTestCache(store)
	ctx := context.Background()

	c.Set(ctx, "k", payload{Summary: "v1"}, time.Hour)
	require.NoError(t, store.Remove(ctx, KeyPrefix+"k"))

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v1", got.Summary)
}

func TestTieredCache_HasDoesNotMutate(t *testing.T) {
	store := storage.NewMemoryStore()
	c, clock := newTestCache(store)
	ctx := context.Background()

	assert.False(t, c.Has(ctx, "k"))

	c.Set(ctx, "k", payload{Summary: "s"}, time.Minute)
	assert.True(t, c.Has(ctx, "k"))

	clock.Advance(2 * time.Minute)
	assert.False(t, c.Has(ctx, "k"))

	stats := c.Stats(ctx)
	assert.Equal(t, 1, stats.InProcessEntries)
	assert.Equal(t, 1, stats.DurableEntries)
}

func TestTieredCache_DeleteAndClear(t *testing.T) {
	store := storage.NewMemoryStore()
	c, _ := newTestCache(store)
	ctx := context.Background()

	c.Set(ctx, "a", payload{Summary: "a"}, time.Hour)
	c.Set(ctx, "b", payload{Summary: "b"}, time.Hour)
	assert.ElementsMatch(t, []string{"a", "b"}, readIndex(t, store))

	c.Delete(ctx, "a")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, readIndex(t, store))

	c.Clear(ctx)
	_, ok = c.Get(ctx, "b")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, Stats{Enabled: true}, c.Stats(ctx))
}

func TestTieredCache_ClearExpired(t *testing.T) {
	store := storage.NewMemoryStore()
	c, clock := newTestCache(store)
	ctx := context.Background()

	c.Set(ctx, "short", payload{Summary: "short"}, time.Minute)
	c.Set(ctx, "long", payload{Summary: "long"}, time.Hour)

	clock.Advance(2 * time.Minute)

	// one dead entry in each tier
	assert.Equal(t, 2, c.ClearExpired(ctx))
	assert.Equal(t, 0, c.ClearExpired(ctx), "second sweep without time passing removes nothing")

	assert.Equal(t, []string{"long"}, readIndex(t, store))
	assert.True(t, c.Has(ctx, "long"))
}

func TestTieredCache_ClearExpiredPrunesDanglingIndex(t *testing.T) {
	store := storage.NewMemoryStore()
	c, _ := newTestCache(store)
	ctx := context.Background()

	c.Set(ctx, "a", payload{Summary: "a"}, time.Hour)
	require.NoError(t, store.Set(ctx, IndexKey, `["a","ghost"]`))

	assert.Equal(t, 0, c.ClearExpired(ctx))
	assert.Equal(t, []string{"a"}, readIndex(t, store))
}

func TestTieredCache_Stats(t *testing.T) {
	store := storage.NewMemoryStore()
	c, clock := newTestCache(store)
	ctx := context.Background()

	empty := c.Stats(ctx)
	assert.Nil(t, empty.OldestCreatedAt)
	assert.Nil(t, empty.NewestCreatedAt)

	start := clock.Now()
	c.Set(ctx, "a", payload{Summary: "a"}, time.Hour)
	clock.Advance(time.Minute)
	c.Set(ctx, "b", payload{Summary: "b"}, time.Hour)

	stats := c.Stats(ctx)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 2, stats.InProcessEntries)
	assert.Equal(t, 2, stats.DurableEntries)
	assert.Greater(t, stats.ApproxByteSize, 0)
	require.NotNil(t, stats.OldestCreatedAt)
	require.NotNil(t, stats.NewestCreatedAt)
	assert.True(t, start.Equal(*stats.OldestCreatedAt))
	assert.True(t, start.Add(time.Minute).Equal(*stats.NewestCreatedAt))
}

func TestTieredCache_StorageFailuresAreSwallowed(t *testing.T) {
	c, _ := newTestCache(failingStore{})
	ctx := context.Background()

	c.Set(ctx, "k", payload{Summary: "s"}, time.Hour)

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "s", got.Summary)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Delete(ctx, "k")
	c.Clear(ctx)
	assert.Equal(t, 0, c.ClearExpired(ctx))
	assert.Equal(t, 0, c.Stats(ctx).DurableEntries)
}

func TestTieredCache_CorruptDurableEntryIsAMiss(t *testing.T) {
	store := storage.NewMemoryStore()
	c, _ := newTestCache(store)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, KeyPrefix+"k", "{not json"))

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestTieredCache_Disabled(t *testing.T) {
	store := storage.NewMemoryStore()
	c := New[payload](Config{Enabled: false}, store, nil, nil)
	ctx := context.Background()

	c.Set(ctx, "k", payload{Summary: "s"}, time.Hour)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, c.Has(ctx, "k"))
	assert.Equal(t, 0, store.Len())
}

func TestTieredCache_ConcurrentWritersKeepIndex(t *testing.T) {
	store := storage.NewMemoryStore()
	c, _ := newTestCache(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(ctx, fmt.Sprintf("k%d", i), payload{Summary: "s"}, time.Hour)
		}(i)
	}
	wg.Wait()

	assert.Len(t, readIndex(t, store), 20)
	assert.Equal(t, 20, c.Stats(ctx).TotalEntries)
}
