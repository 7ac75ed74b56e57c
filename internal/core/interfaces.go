package core

import (
	"context"
	"time"

	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/observability/notify"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not on the data layer.

// ClaimDueParams groups parameters for OutboundJobRepository.ClaimDue.
type ClaimDueParams struct {
	Now   time.Time
	Limit int
	TTL   time.Duration
}

// SetCustomerIDParams groups parameters for OutboundJobRepository.SetCustomerID.
type SetCustomerIDParams struct {
	JobID      string
	ClaimToken string
	CustomerID string
}

// DeleteTerminalJobsParams groups parameters for OutboundJobRepository.DeleteTerminalBefore.
type DeleteTerminalJobsParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// OutboundJobRepository defines the interface for outbound job data operations.
type OutboundJobRepository interface {
	Create(ctx context.Context, req *model.CreateOutboundJobRequest) (*model.OutboundJob, error)
	GetByID(ctx context.Context, id string) (*model.OutboundJob, error)
	ListByCampaign(ctx context.Context, opts model.JobListOptions) ([]*model.OutboundJob, error)

	// ClaimDue atomically claims up to Limit due queued jobs, ordered by next_attempt_at and
	// created_at. Claimed rows carry a fresh claim token that expires after TTL.
	ClaimDue(ctx context.Context, params ClaimDueParams) ([]*model.OutboundJob, error)
	// ApplyTransition performs a compare-and-swap update guarded by status='queued' and the
	// claim token. A lost race returns a conflict error and leaves the row untouched.
	ApplyTransition(ctx context.Context, t *model.JobTransition) (*model.OutboundJob, error)
	// SetCustomerID records a resolved customer only when the job has none.
	SetCustomerID(ctx context.Context, params SetCustomerIDParams) error
	// ReleaseClaim drops the claim so the job is eligible on the next pass.
	ReleaseClaim(ctx context.Context, jobID, claimToken string) error
	// MarkVerified flips an awaiting_verification job back to queued as verified.
	MarkVerified(ctx context.Context, id string) (*model.OutboundJob, error)

	ReleaseExpiredClaims(ctx context.Context, batchSize int) (int64, error)
	DeleteTerminalBefore(ctx context.Context, params DeleteTerminalJobsParams) (int64, error)
}

// ReaperRepository is the maintenance subset of OutboundJobRepository used by the reaper.
type ReaperRepository interface {
	ReleaseExpiredClaims(ctx context.Context, batchSize int) (int64, error)
	DeleteTerminalBefore(ctx context.Context, params DeleteTerminalJobsParams) (int64, error)
}

// AttemptRepository defines the interface for the append-only attempt log.
type AttemptRepository interface {
	Create(ctx context.Context, req *model.CreateAttemptRequest) (*model.OutboundAttempt, error)
	ListByJob(ctx context.Context, jobID string) ([]*model.OutboundAttempt, error)
}

// CampaignRepository defines the interface for campaign data operations.
type CampaignRepository interface {
	Create(ctx context.Context, req *model.CreateCampaignRequest) (*model.Campaign, error)
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, limit, offset int) ([]*model.Campaign, error)
	SetStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error)
}

// PreferencesRepository reads customer contact preferences.
// Get returns nil and no error when the customer has no preferences row.
type PreferencesRepository interface {
	Get(ctx context.Context, customerID string) (*model.CommPreferences, error)
	Upsert(ctx context.Context, prefs *model.CommPreferences) error
}

// IdentityRepository maps channel addresses to customers.
// Lookup returns nil and no error when no link exists.
type IdentityRepository interface {
	Lookup(ctx context.Context, channel model.Channel, address string) (*model.IdentityLink, error)
	Upsert(ctx context.Context, link *model.IdentityLink) error
}

// AuditRepository persists append-only audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *model.AuditLogEntry) error
	List(ctx context.Context, opts model.AuditListOptions) ([]*model.AuditLogEntry, error)
}

// SendRequest is the rendered message handed to a channel adapter.
type SendRequest struct {
	JobID       string
	Destination string
	Text        string
	Subject     string
	HTML        string
}

// SendResult is the provider acknowledgement of an accepted send.
type SendResult struct {
	Provider       string `json:"provider"`
	ProviderID     string `json:"provider_id"`
	ProviderStatus string `json:"provider_status"`
}

// ChannelSender delivers a message over one channel.
type ChannelSender interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}

// ChannelRegistry resolves the sender configured for a channel.
type ChannelRegistry interface {
	Sender(channel model.Channel) (ChannelSender, error)
}

// CodedError is implemented by errors that carry a stable machine-readable code.
type CodedError interface {
	error
	ErrorCode() string
}

// Workflow event types posted after a job transition.
const (
	WorkflowEventJobSent                 = "outbound.job.sent"
	WorkflowEventJobAwaitingVerification = "outbound.job.awaiting_verification"
	WorkflowEventJobFailed               = "outbound.job.failed"
	WorkflowEventJobCancelled            = "outbound.job.cancelled"
)

// WorkflowEvent is the body posted to the external workflow hook.
type WorkflowEvent struct {
	Type        string             `json:"type"`
	JobID       string             `json:"job_id"`
	CampaignID  string             `json:"campaign_id"`
	CustomerID  *string            `json:"customer_id,omitempty"`
	Channel     model.Channel      `json:"channel"`
	Status      string             `json:"status"`
	OutcomeCode *model.OutcomeCode `json:"outcome_code,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// WorkflowNotifier forwards job transitions to the workflow system. Delivery is best effort.
type WorkflowNotifier interface {
	NotifyBestEffort(ctx context.Context, event WorkflowEvent)
}

// DeadLetterPublisher escalates jobs that exhausted their retry budget. Delivery is best effort.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, event notify.DeadLetterEvent)
}
