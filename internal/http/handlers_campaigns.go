package httpx

import (
	"net/http"

	"github.com/target/mmk-outbound/internal/domain/model"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// CampaignHandlers provides HTTP handlers for campaigns.
type CampaignHandlers struct {
	Svc  CampaignService
	Jobs JobService
}

// Create handles POST /api/campaigns.
func (h *CampaignHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCampaignRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	c, err := h.Svc.Create(r.Context(), &req)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, c)
}

// Get handles GET /api/campaigns/{id}.
func (h *CampaignHandlers) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

// List handles GET /api/campaigns.
func (h *CampaignHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultPageLimit, maxPageLimit)
	list, err := h.Svc.List(r.Context(), limit, offset)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if list == nil {
		list = []*model.Campaign{}
	}
	WriteJSON(w, http.StatusOK, list)
}

type setStatusBody struct {
	Status model.CampaignStatus `json:"status"`
}

// SetStatus handles PATCH /api/campaigns/{id}/status.
func (h *CampaignHandlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body setStatusBody
	if !DecodeJSON(w, r, &body) {
		return
	}
	c, err := h.Svc.SetStatus(r.Context(), r.PathValue("id"), body.Status)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, c)
}

// ListJobs handles GET /api/campaigns/{id}/jobs?status=&limit=&offset=.
func (h *CampaignHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultPageLimit, maxPageLimit)
	opts := model.JobListOptions{CampaignID: r.PathValue("id"), Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.OutboundJobStatus(s)
		opts.Status = &status
	}
	jobs, err := h.Jobs.ListByCampaign(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.OutboundJob{}
	}
	WriteJSON(w, http.StatusOK, jobs)
}
