package app

import (
	"net/http"

	"github.com/SurajPatil2645/VentureFlow/internal/handlers"
	"github.com/SurajPatil2645/VentureFlow/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all HTTP routes for the application. Every request
// gets a request id, a resolved caller identity and a log line.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, identityMiddleware mux.MiddlewareFunc, logMiddleware mux.MiddlewareFunc, gatherer prometheus.Gatherer) {
	router.Use(middleware.RequestID)
	if identityMiddleware != nil {
		router.Use(identityMiddleware)
	}
	router.Use(logMiddleware)

	// Health check and metrics
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// Enrichment endpoints
	api.HandleFunc("/enrich", h.EnrichCompany).Methods("POST")
	api.HandleFunc("/enrich/queue", h.QueueEnrichment).Methods("POST")
	api.HandleFunc("/enrich/queue", h.GetQueueStatus).Methods("GET")

	// Settings endpoints
	api.HandleFunc("/settings/cache", h.GetCacheStats).Methods("GET")
	api.HandleFunc("/settings/cache", h.ClearCache).Methods("DELETE")
	api.HandleFunc("/settings/cache/clear-expired", h.ClearExpiredCache).Methods("POST")
	api.HandleFunc("/settings/ratelimit", h.GetRateLimitSettings).Methods("GET")
	api.HandleFunc("/settings/ratelimit/{identity}", h.ResetRateLimit).Methods("DELETE")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})
}
