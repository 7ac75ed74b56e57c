package httpx

import (
	"net/http"

	"github.com/target/mmk-outbound/internal/domain/model"
)

// AuditHandlers serves GET /api/audit?job_id=&campaign_id=&customer_id=&event_type=&since=&limit=&offset=.
type AuditHandlers struct {
	Repo AuditReader
}

func (h *AuditHandlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since, err := parseTimeQuery(r, "since")
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err, Field: "since"})
		return
	}
	limit, offset := ParseLimitOffset(r, defaultPageLimit, maxPageLimit)
	entries, err := h.Repo.List(r.Context(), model.AuditListOptions{
		JobID:      q.Get("job_id"),
		CampaignID: q.Get("campaign_id"),
		CustomerID: q.Get("customer_id"),
		EventType:  q.Get("event_type"),
		Since:      since,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.AuditLogEntry{}
	}
	WriteJSON(w, http.StatusOK, entries)
}
