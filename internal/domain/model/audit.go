package model

import (
	"encoding/json"
	"time"
)

// AuditActorType names the component that produced an audit entry.
type AuditActorType string

const (
	ActorSystem    AuditActorType = "system"
	ActorRunner    AuditActorType = "runner"
	ActorEvaluator AuditActorType = "evaluator"
	ActorAdapter   AuditActorType = "adapter"
	ActorOperator  AuditActorType = "operator"
)

// Valid reports whether a is a known actor type.
func (a AuditActorType) Valid() bool {
	switch a {
	case ActorSystem, ActorRunner, ActorEvaluator, ActorAdapter, ActorOperator:
		return true
	}
	return false
}

// Audit event types written by the pipeline.
const (
	AuditBatchPollStarted        = "outbound_batch_poll_started"
	AuditBatchCompleted          = "outbound_batch_completed"
	AuditJobProcessingStarted    = "outbound_job_processing_started"
	AuditEligibilityEvaluated    = "eligibility_evaluated"
	AuditJobCancelled            = "outbound_job_cancelled"
	AuditJobCustomerResolved     = "outbound_job_customer_resolved"
	AuditJobAwaitingVerification = "outbound_job_awaiting_verification"
	AuditJobSent                 = "outbound_job_sent"
	AuditJobRetryScheduled       = "outbound_job_retry_scheduled"
	AuditJobFailed               = "outbound_job_failed"
	AuditJobDeadLettered         = "outbound_job_dead_lettered"
	AuditJobProcessingError      = "outbound_job_processing_error"
	AuditJobVerified             = "outbound_job_verified"
	AuditJobCreated              = "outbound_job_created"
)

// AuditLogEntry is an append-only, redacted decision record.
type AuditLogEntry struct {
	ID           string          `json:"id"                      db:"id"`
	ActorType    AuditActorType  `json:"actor_type"              db:"actor_type"`
	EventType    string          `json:"event_type"              db:"event_type"`
	Version      int             `json:"version"                 db:"version"`
	Input        json.RawMessage `json:"input"                   db:"input"`
	Output       json.RawMessage `json:"output,omitempty"        db:"output"`
	Success      bool            `json:"success"                 db:"success"`
	ErrorCode    *string         `json:"error_code,omitempty"    db:"error_code"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	JobID        *string         `json:"job_id,omitempty"        db:"job_id"`
	CampaignID   *string         `json:"campaign_id,omitempty"   db:"campaign_id"`
	CustomerID   *string         `json:"customer_id,omitempty"   db:"customer_id"`
	CreatedAt    time.Time       `json:"created_at"              db:"created_at"`
}

// AuditListOptions filters audit queries.
type AuditListOptions struct {
	JobID      string
	CampaignID string
	CustomerID string
	EventType  string
	Since      *time.Time
	Limit      int
	Offset     int
}
