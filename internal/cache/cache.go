// Package cache implements the two-tier enrichment result cache: a fast
// in-process map in front of a durable key-value store.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/common/utils"
	"github.com/SurajPatil2645/VentureFlow/internal/storage"
)

const (
	// KeyPrefix namespaces entries in the durable store.
	KeyPrefix = "vc_cache_"
	// IndexKey holds the JSON array of logical keys written to the durable store.
	IndexKey = "vc_cache_index"

	DefaultTTL = 7 * 24 * time.Hour
)

// Tier names where an entry was read from.
type Tier string

const (
	TierInProcess Tier = "in_process"
	TierDurable   Tier = "durable"
)

// Entry is a TTL-stamped cached value. An entry is live while now < ExpiresAt.
type Entry[T any] struct {
	Data      T         `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Tier      Tier      `json:"tier"`
}

func (e Entry[T]) liveAt(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Config configures a TieredCache.
type Config struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// GenerateKey builds the cache key for a subject and target URL.
func GenerateKey(subject, url string) string {
	if url == "" {
		url = "default"
	}
	return subject + "::" + url
}

// TieredCache stores values in process and, best effort, in a durable store.
// Durable failures are logged and otherwise treated as a miss.
type TieredCache[T any] struct {
	config Config
	store  storage.Store
	clock  utils.Clock
	logger logging.Logger

	mu      sync.RWMutex
	entries map[string]Entry[T]

	// serialises read-modify-write of the durable index
	indexMu sync.Mutex
}

// New creates a TieredCache. A nil store disables the durable tier.
func New[T any](config Config, store storage.Store, clock utils.Clock, logger logging.Logger) *TieredCache[T] {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultTTL
	}
	if clock == nil {
		clock = utils.RealClock{}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &TieredCache[T]{
		config:  config,
		store:   store,
		clock:   clock,
		logger:  logger.WithFields(logging.Field{Key: "component", Value: "cache"}),
		entries: make(map[string]Entry[T]),
	}
}

// Set writes data under key in both tiers. ttl <= 0 uses the default TTL.
func (c *TieredCache[T]) Set(ctx context.Context, key string, data T, ttl time.Duration) {
	if !c.config.Enabled {
		return
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	now := c.clock.Now()
	entry := Entry[T]{
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		Tier:      TierInProcess,
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.logger.Debug("Cache set", logging.Field{Key: "key", Value: key}, logging.Duration("ttl", ttl))

	if c.store == nil {
		return
	}

	entry.Tier = TierDurable
	raw, err := json.Marshal(entry)
	if err != nil {
		c.storageFailure("encode entry", key, err)
		return
	}
	if err := c.store.Set(ctx, KeyPrefix+key, string(raw)); err != nil {
		c.storageFailure("persist entry", key, err)
		return
	}
	c.addToIndex(ctx, key)
}

// Get returns the live value for key. The in-process tier is consulted first;
// a live durable hit is promoted into it. Expired entries are deleted.
func (c *TieredCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	if !c.config.Enabled {
		return zero, false
	}

	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		if entry.liveAt(now) {
			c.logger.Debug("Cache hit", logging.Field{Key: "key", Value: key}, logging.Field{Key: "tier", Value: TierInProcess})
			return entry.Data, true
		}
		c.mu.Lock()
		// only drop the entry we saw; a concurrent Set may have replaced it
		if current, still := c.entries[key]; still && current.ExpiresAt.Equal(entry.ExpiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	durable, found := c.readDurable(ctx, key)
	if !found {
		c.logger.Debug("Cache miss", logging.Field{Key: "key", Value: key})
		return zero, false
	}
	if !durable.liveAt(now) {
		c.removeDurable(ctx, key)
		c.logger.Debug("Cache expired", logging.Field{Key: "key", Value: key})
		return zero, false
	}

	c.mu.Lock()
	if current, exists := c.entries[key]; !exists || !current.liveAt(now) {
		c.entries[key] = durable
	}
	c.mu.Unlock()

	c.logger.Debug("Cache hit", logging.Field{Key: "key", Value: key}, logging.Field{Key: "tier", Value: TierDurable})
	return durable.Data, true
}

// Has reports whether a live entry exists in either tier without changing either.
func (c *TieredCache[T]) Has(ctx context.Context, key string) bool {
	if !c.config.Enabled {
		return false
	}

	now := c.clock.Now()

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && entry.liveAt(now) {
		return true
	}

	durable, found := c.readDurable(ctx, key)
	return found && durable.liveAt(now)
}

// Delete removes key from both tiers.
func (c *TieredCache[T]) Delete(ctx context.Context, key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	c.removeDurable(ctx, key)
}

// Clear removes every entry from both tiers.
func (c *TieredCache[T]) Clear(ctx context.Context) {
	c.mu.Lock()
	c.entries = make(map[string]Entry[T])
	c.mu.Unlock()

	if c.store != nil {
		c.indexMu.Lock()
		for _, key := range c.readIndex(ctx) {
			if err := c.store.Remove(ctx, KeyPrefix+key); err != nil {
				c.storageFailure("remove entry", key, err)
			}
		}
		if err := c.store.Remove(ctx, IndexKey); err != nil {
			c.storageFailure("remove index", IndexKey, err)
		}
		c.indexMu.Unlock()
	}

	c.logger.Info("Cache cleared")
}

// ClearExpired sweeps both tiers and returns how many dead entries were
// removed. Index entries whose value is gone are pruned as well.
func (c *TieredCache[T]) ClearExpired(ctx context.Context) int {
	now := c.clock.Now()
	removed := 0

	c.mu.Lock()
	for key, entry := range c.entries {
		if !entry.liveAt(now) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if c.store != nil {
		c.indexMu.Lock()
		index := c.readIndex(ctx)
		kept := make([]string, 0, len(index))
		for _, key := range index {
			entry, found := c.readDurableEntry(ctx, key)
			if !found {
				continue
			}
			if !entry.liveAt(now) {
				if err := c.store.Remove(ctx, KeyPrefix+key); err != nil {
					c.storageFailure("remove entry", key, err)
					kept = append(kept, key)
					continue
				}
				removed++
				continue
			}
			kept = append(kept, key)
		}
		if len(kept) != len(index) {
			c.writeIndex(ctx, kept)
		}
		c.indexMu.Unlock()
	}

	if removed > 0 {
		c.logger.Info("Removed expired cache entries", logging.Int("removed", removed))
	}
	return removed
}

func (c *TieredCache[T]) readDurable(ctx context.Context, key string) (Entry[T], bool) {
	if c.store == nil {
		return Entry[T]{}, false
	}
	return c.readDurableEntry(ctx, key)
}

func (c *TieredCache[T]) readDurableEntry(ctx context.Context, key string) (Entry[T], bool) {
	raw, ok, err := c.store.Get(ctx, KeyPrefix+key)
	if err != nil {
		c.storageFailure("read entry", key, err)
		return Entry[T]{}, false
	}
	if !ok {
		return Entry[T]{}, false
	}

	var entry Entry[T]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.storageFailure("decode entry", key, err)
		return Entry[T]{}, false
	}
	entry.Tier = TierDurable
	return entry, true
}

func (c *TieredCache[T]) removeDurable(ctx context.Context, key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Remove(ctx, KeyPrefix+key); err != nil {
		c.storageFailure("remove entry", key, err)
	}
	c.removeFromIndex(ctx, key)
}

func (c *TieredCache[T]) addToIndex(ctx context.Context, key string) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	index := c.readIndex(ctx)
	for _, existing := range index {
		if existing == key {
			return
		}
	}
	c.writeIndex(ctx, append(index, key))
}

func (c *TieredCache[T]) removeFromIndex(ctx context.Context, key string) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()

	index := c.readIndex(ctx)
	kept := index[:0]
	for _, existing := range index {
		if existing != key {
			kept = append(kept, existing)
		}
	}
	if len(kept) != len(index) {
		c.writeIndex(ctx, kept)
	}
}

// readIndex must be called with indexMu held.
func (c *TieredCache[T]) readIndex(ctx context.Context) []string {
	raw, ok, err := c.store.Get(ctx, IndexKey)
	if err != nil {
		c.storageFailure("read index", IndexKey, err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var index []string
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		c.storageFailure("decode index", IndexKey, err)
		return nil
	}
	return index
}

// writeIndex must be called with indexMu held.
func (c *TieredCache[T]) writeIndex(ctx context.Context, index []string) {
	if index == nil {
		index = []string{}
	}
	raw, err := json.Marshal(index)
	if err != nil {
		c.storageFailure("encode index", IndexKey, err)
		return
	}
	if err := c.store.Set(ctx, IndexKey, string(raw)); err != nil {
		c.storageFailure("persist index", IndexKey, err)
	}
}

func (c *TieredCache[T]) storageFailure(op, key string, err error) {
	c.logger.Warn("Durable cache tier failure",
		logging.Field{Key: "key", Value: key},
		logging.Err(errors.StorageError(op, err)),
	)
}
