package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const maxRunLimit = 1000

// RunHandlers exposes the manual delivery trigger.
type RunHandlers struct {
	Runner Runner
	Logger *slog.Logger
}

type runBody struct {
	Limit int `json:"limit"`
}

// Run handles POST /api/outbound/run. The body is optional. The pass always runs on
// the server clock; backdated evaluation is an operator concern of outbound-admin.
func (h *RunHandlers) Run(w http.ResponseWriter, r *http.Request) {
	var body runBody
	if r.ContentLength != 0 && r.Body != nil && r.Body != http.NoBody {
		if !DecodeJSON(w, r, &body) {
			return
		}
	}
	if body.Limit < 0 || body.Limit > maxRunLimit {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("limit must be between 0 and 1000"),
			Field:   "limit",
		})
		return
	}
	res, err := h.Runner.RunDueJobs(r.Context(), body.Limit, time.Time{})
	if err != nil {
		if h.Logger != nil {
			h.Logger.ErrorContext(r.Context(), "manual run failed", "error", err)
		}
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
