package enrich

import (
	"context"

	"github.com/SurajPatil2645/VentureFlow/internal/cache"
	"github.com/SurajPatil2645/VentureFlow/internal/ratelimit"
)

// CacheStats returns the cache snapshot for the operator view
func (s *Service) CacheStats(ctx context.Context) cache.Stats {
	return s.cache.Stats(ctx)
}

// ClearExpired sweeps dead cache entries and returns how many were removed
func (s *Service) ClearExpired(ctx context.Context) int {
	return s.cache.ClearExpired(ctx)
}

// ClearCache drops every cached enrichment
func (s *Service) ClearCache(ctx context.Context) {
	s.cache.Clear(ctx)
	s.logger.Info("Enrichment cache cleared")
}

// RateLimitSettings returns the limiter configuration snapshot
func (s *Service) RateLimitSettings() ratelimit.Settings {
	return s.limiter.Settings()
}

// RateLimitStatus peeks at an identity's bucket without consuming a token
func (s *Service) RateLimitStatus(identity string) ratelimit.Result {
	return s.limiter.Status(identity)
}

// ResetRateLimit refills the bucket of an identity
func (s *Service) ResetRateLimit(identity string) {
	s.limiter.Reset(identity)
}
