package httpx

import (
	"net/http"

	"github.com/target/mmk-outbound/internal/domain/model"
)

// JobHandlers provides HTTP handlers for outbound jobs.
type JobHandlers struct {
	Svc JobService
}

// Create handles POST /api/outbound/jobs.
func (h *JobHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOutboundJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	job, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// Get handles GET /api/outbound/jobs/{id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ListAttempts handles GET /api/outbound/jobs/{id}/attempts.
func (h *JobHandlers) ListAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.Svc.ListAttempts(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if attempts == nil {
		attempts = []*model.OutboundAttempt{}
	}
	WriteJSON(w, http.StatusOK, attempts)
}

// MarkVerified handles POST /api/outbound/jobs/{id}/verified.
func (h *JobHandlers) MarkVerified(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.MarkVerified(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
