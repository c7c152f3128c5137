package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Settings handlers

// GetCacheStats returns the enrichment cache statistics
// @Summary Get cache statistics
// @Tags settings
// @Produce json
// @Success 200 {object} cache.Stats
// @Router /api/settings/cache [get]
func (h *Handlers) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CacheStats(r.Context()))
}

// ClearExpiredCache removes dead cache entries
// @Summary Clear expired cache entries
// @Tags settings
// @Produce json
// @Success 200 {object} map[string]int "Number of removed entries"
// @Router /api/settings/cache/clear-expired [post]
func (h *Handlers) ClearExpiredCache(w http.ResponseWriter, r *http.Request) {
	removed := h.service.ClearExpired(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// ClearCache removes every cache entry
// @Summary Clear the cache
// @Tags settings
// @Success 204
// @Router /api/settings/cache [delete]
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetRateLimitSettings returns the limiter configuration and the caller's allowance
// @Summary Get rate limit settings
// @Tags settings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/settings/ratelimit [get]
func (h *Handlers) GetRateLimitSettings(w http.ResponseWriter, r *http.Request) {
	identity := h.identity(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settings": h.service.RateLimitSettings(),
		"identity": identity,
		"status":   h.service.RateLimitStatus(identity),
	})
}

// ResetRateLimit refills the bucket of an identity
// @Summary Reset a rate limit bucket
// @Tags settings
// @Param identity path string true "Identity, e.g. ip:203.0.113.7 or user:analyst"
// @Success 204
// @Router /api/settings/ratelimit/{identity} [delete]
func (h *Handlers) ResetRateLimit(w http.ResponseWriter, r *http.Request) {
	identity := mux.Vars(r)["identity"]
	h.service.ResetRateLimit(identity)
	w.WriteHeader(http.StatusNoContent)
}
