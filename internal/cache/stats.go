package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Stats is a read-only snapshot for the operator settings view.
type Stats struct {
	Enabled          bool       `json:"enabled"`
	TotalEntries     int        `json:"totalEntries"`
	InProcessEntries int        `json:"inProcessEntries"`
	DurableEntries   int        `json:"durableEntries"`
	ApproxByteSize   int        `json:"approxByteSize"`
	OldestCreatedAt  *time.Time `json:"oldestCreatedAt"`
	NewestCreatedAt  *time.Time `json:"newestCreatedAt"`
}

// Stats counts entries in each tier. TotalEntries counts distinct keys, so a
// value present in both tiers is counted once. ApproxByteSize is the encoded
// size of live in-process entries.
func (c *TieredCache[T]) Stats(ctx context.Context) Stats {
	now := c.clock.Now()
	stats := Stats{Enabled: c.config.Enabled}
	keys := make(map[string]struct{})

	c.mu.RLock()
	stats.InProcessEntries = len(c.entries)
	for key, entry := range c.entries {
		keys[key] = struct{}{}

		if entry.liveAt(now) {
			if raw, err := json.Marshal(entry); err == nil {
				stats.ApproxByteSize += len(raw)
			}
		}

		created := entry.CreatedAt
		if stats.OldestCreatedAt == nil || created.Before(*stats.OldestCreatedAt) {
			stats.OldestCreatedAt = &created
		}
		if stats.NewestCreatedAt == nil || created.After(*stats.NewestCreatedAt) {
			stats.NewestCreatedAt = &created
		}
	}
	c.mu.RUnlock()

	if c.store != nil {
		c.indexMu.Lock()
		index := c.readIndex(ctx)
		c.indexMu.Unlock()

		stats.DurableEntries = len(index)
		for _, key := range index {
			keys[key] = struct{}{}
		}
	}

	stats.TotalEntries = len(keys)
	return stats
}
