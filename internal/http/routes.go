// Package httpx exposes the outbound pipeline over a JSON API.
package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/service"
)

// CampaignService is the campaign surface used by the router.
type CampaignService interface {
	Create(ctx context.Context, req *model.CreateCampaignRequest) (*model.Campaign, error)
	Get(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, limit, offset int) ([]*model.Campaign, error)
	SetStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error)
}

// JobService is the outbound job surface used by the router.
type JobService interface {
	Create(ctx context.Context, req *model.CreateOutboundJobRequest) (*model.OutboundJob, error)
	Get(ctx context.Context, id string) (*model.OutboundJob, error)
	ListAttempts(ctx context.Context, jobID string) ([]*model.OutboundAttempt, error)
	ListByCampaign(ctx context.Context, opts model.JobListOptions) ([]*model.OutboundJob, error)
	MarkVerified(ctx context.Context, id string) (*model.OutboundJob, error)
}

// Runner processes due jobs on demand.
type Runner interface {
	RunDueJobs(ctx context.Context, limit int, now time.Time) (service.BatchResult, error)
}

// AuditReader queries the audit trail.
type AuditReader interface {
	List(ctx context.Context, opts model.AuditListOptions) ([]*model.AuditLogEntry, error)
}

var (
	_ CampaignService = (*service.CampaignService)(nil)
	_ JobService      = (*service.OutboundJobService)(nil)
	_ Runner          = (*service.OutboundRunner)(nil)
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Campaigns CampaignService
	Jobs      JobService
	Runner    Runner      // Optional: enables POST /api/outbound/run
	Audit     AuditReader // Optional: enables GET /api/audit
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	// Readiness enables GET /readyz when non-empty.
	Readiness []ReadinessCheck
	Logger    *slog.Logger
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	if len(services.Readiness) > 0 {
		mux.Handle("GET /readyz", &ReadinessHandler{Checks: services.Readiness, Logger: services.Logger})
	}
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}

	if services.Campaigns != nil {
		registerCampaignRoutes(mux, &CampaignHandlers{Svc: services.Campaigns, Jobs: services.Jobs})
	}
	if services.Jobs != nil {
		registerJobRoutes(mux, &JobHandlers{Svc: services.Jobs})
	}
	if services.Runner != nil {
		registerRunRoutes(mux, &RunHandlers{Runner: services.Runner, Logger: services.Logger})
	}
	if services.Audit != nil {
		mux.Handle("GET /api/audit", &AuditHandlers{Repo: services.Audit})
	}

	return mux
}

func registerCampaignRoutes(mux *http.ServeMux, h *CampaignHandlers) {
	mux.HandleFunc("POST /api/campaigns", h.Create)
	mux.HandleFunc("GET /api/campaigns", h.List)
	mux.HandleFunc("GET /api/campaigns/{id}", h.Get)
	mux.HandleFunc("PATCH /api/campaigns/{id}/status", h.SetStatus)
	if h.Jobs != nil {
		mux.HandleFunc("GET /api/campaigns/{id}/jobs", h.ListJobs)
	}
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/outbound/jobs", h.Create)
	mux.HandleFunc("GET /api/outbound/jobs/{id}", h.Get)
	mux.HandleFunc("GET /api/outbound/jobs/{id}/attempts", h.ListAttempts)
	mux.HandleFunc("POST /api/outbound/jobs/{id}/verified", h.MarkVerified)
}

func registerRunRoutes(mux *http.ServeMux, h *RunHandlers) {
	mux.HandleFunc("POST /api/outbound/run", h.Run)
}
