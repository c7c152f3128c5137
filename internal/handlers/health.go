package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck reports service health including the durable cache tier
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}
	code := http.StatusOK

	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.storage.Health(ctx); err != nil {
			status["status"] = "unhealthy"
			status["storage_status"] = "unhealthy"
			status["storage_error"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["storage_status"] = "healthy"
		}
	}

	writeJSON(w, code, status)
}
