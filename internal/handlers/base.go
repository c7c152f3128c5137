// Package handlers exposes the enrichment service over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/SurajPatil2645/VentureFlow/internal/auth"
	"github.com/SurajPatil2645/VentureFlow/internal/cache"
	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/dedup"
	"github.com/SurajPatil2645/VentureFlow/internal/enrich"
	"github.com/SurajPatil2645/VentureFlow/internal/ratelimit"
)

// Service is the part of the enrichment service the handlers use
type Service interface {
	Enrich(ctx context.Context, req enrich.Request) (*enrich.Response, error)
	Enqueue(url, subjectID string) (string, error)
	QueueStatus() dedup.Status
	CacheStats(ctx context.Context) cache.Stats
	ClearExpired(ctx context.Context) int
	ClearCache(ctx context.Context)
	RateLimitSettings() ratelimit.Settings
	RateLimitStatus(identity string) ratelimit.Result
	ResetRateLimit(identity string)
}

// HealthChecker reports the health of a dependency
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Handlers struct {
	service Service
	auth    *auth.Auth
	storage HealthChecker
	logger  logging.Logger
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error      string `json:"error"`
	Suggestion string `json:"suggestion"`
}

func New(service Service, authHandler *auth.Auth, storage HealthChecker, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		service: service,
		auth:    authHandler,
		storage: storage,
		logger:  logger.WithFields(logging.String("component", "handlers")),
	}
}

// identity prefers the value stored by the auth middleware
func (h *Handlers) identity(r *http.Request) string {
	if identity := auth.IdentityFromContext(r.Context()); identity != "" {
		return identity
	}
	if h.auth != nil {
		return h.auth.Identify(r)
	}
	return "ip:" + auth.RemoteIP(r)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps err onto its status code and the {error, suggestion} body.
// Rate limit errors carry a Retry-After header.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if seconds, ok := errors.RetryAfter(err); ok {
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	message := "Failed to enrich company data"
	if appErr, ok := errors.As(err); ok && appErr.Type != errors.ErrTypeInternal {
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithContext(r.Context()).Error("Request failed", err, logging.String("path", r.URL.Path))
	}

	writeJSON(w, status, ErrorResponse{Error: message, Suggestion: errors.Suggestion(err)})
}
