package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/SurajPatil2645/VentureFlow/internal/common/errors"
	"github.com/SurajPatil2645/VentureFlow/internal/common/validation"
	"github.com/SurajPatil2645/VentureFlow/internal/enrich"
)

// EnrichRequest is the body of the enrich and queue endpoints
type EnrichRequest struct {
	URL       string `json:"url" validate:"max=2048"`
	CompanyID string `json:"companyId" validate:"omitempty,max=256,printascii"`
	Force     bool   `json:"force"`
}

// QueuedResponse acknowledges a queued enrichment
type QueuedResponse struct {
	RequestID string `json:"requestId"`
}

func decodeEnrichRequest(w http.ResponseWriter, r *http.Request) (EnrichRequest, error) {
	var body EnrichRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		return body, errors.ValidationError("Invalid JSON")
	}
	if err := validation.ValidateStruct(body); err != nil {
		return body, err
	}
	return body, nil
}

// Enrich handlers

// EnrichCompany enriches a company website
// @Summary Enrich a company
// @Description Fetches the company website, extracts a structured profile and caches it
// @Tags enrich
// @Accept json
// @Produce json
// @Param request body EnrichRequest true "Target URL, optional company id and force flag"
// @Success 200 {object} enrich.Response
// @Failure 400 {object} ErrorResponse "Missing or invalid URL"
// @Failure 409 {object} ErrorResponse "Enrichment already in progress"
// @Failure 429 {object} ErrorResponse "Rate limit exceeded"
// @Failure 503 {object} ErrorResponse "Website unreachable"
// @Router /api/enrich [post]
func (h *Handlers) EnrichCompany(w http.ResponseWriter, r *http.Request) {
	body, err := decodeEnrichRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.service.Enrich(r.Context(), enrich.Request{
		URL:       body.URL,
		SubjectID: body.CompanyID,
		Force:     body.Force,
		Identity:  h.identity(r),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// QueueEnrichment queues an enrichment for the background drain
// @Summary Queue an enrichment
// @Tags enrich
// @Accept json
// @Produce json
// @Param request body EnrichRequest true "Target URL and optional company id"
// @Success 202 {object} QueuedResponse
// @Failure 400 {object} ErrorResponse "Missing or invalid URL"
// @Router /api/enrich/queue [post]
func (h *Handlers) QueueEnrichment(w http.ResponseWriter, r *http.Request) {
	body, err := decodeEnrichRequest(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := h.service.Enqueue(body.URL, body.CompanyID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, QueuedResponse{RequestID: id})
}

// GetQueueStatus returns the queued and in-flight enrichments
// @Summary Get queue status
// @Tags enrich
// @Produce json
// @Success 200 {object} dedup.Status
// @Router /api/enrich/queue [get]
func (h *Handlers) GetQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.QueueStatus())
}
