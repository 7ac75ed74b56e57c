package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// OutboundJobStatus is the state machine position of an OutboundJob.
type OutboundJobStatus string

const (
	// JobStatusQueued jobs are waiting for their next attempt.
	JobStatusQueued OutboundJobStatus = "queued"
	// JobStatusAwaitingVerification jobs delivered a verify prompt and wait for step-up verification.
	JobStatusAwaitingVerification OutboundJobStatus = "awaiting_verification"
	// JobStatusSent jobs delivered their real content.
	JobStatusSent OutboundJobStatus = "sent"
	// JobStatusFailed jobs exhausted their retry budget.
	JobStatusFailed OutboundJobStatus = "failed"
	// JobStatusCancelled jobs were blocked by an eligibility rule.
	JobStatusCancelled OutboundJobStatus = "cancelled"
)

// Valid reports whether s is a known job status.
func (s OutboundJobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusAwaitingVerification, JobStatusSent, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether automatic processing never picks the job up again.
func (s OutboundJobStatus) IsTerminal() bool {
	return s != JobStatusQueued
}

// OutcomeCode classifies how a job left the queued state.
type OutcomeCode string

const (
	OutcomeSuccessVerified       OutcomeCode = "success_verified"
	OutcomeSuccessUnverifiedInfo OutcomeCode = "success_unverified_info_only"
	OutcomeFailedDelivery        OutcomeCode = "failed_delivery"
	OutcomeOptOut                OutcomeCode = "opt_out"
	OutcomePolicyBlocked         OutcomeCode = "policy_blocked"
)

// Valid reports whether o is a known outcome code.
func (o OutcomeCode) Valid() bool {
	switch o {
	case OutcomeSuccessVerified, OutcomeSuccessUnverifiedInfo, OutcomeFailedDelivery, OutcomeOptOut,
		OutcomePolicyBlocked:
		return true
	}
	return false
}

// ErrNoDueJobs is returned when a claim finds nothing to process.
var ErrNoDueJobs = errors.New("no due outbound jobs")

// OutboundJob is the unit of delivery work.
type OutboundJob struct {
	ID                  string            `json:"id"                              db:"id"`
	CampaignID          string            `json:"campaign_id"                     db:"campaign_id"`
	CustomerID          *string           `json:"customer_id,omitempty"           db:"customer_id"`
	TargetAddress       string            `json:"target_address"                  db:"target_address"`
	Channel             Channel           `json:"channel"                         db:"channel"`
	Payload             OutboundPayload   `json:"payload"                         db:"payload"`
	Status              OutboundJobStatus `json:"status"                          db:"status"`
	OutcomeCode         *OutcomeCode      `json:"outcome_code,omitempty"          db:"outcome_code"`
	AttemptCount        int               `json:"attempt_count"                   db:"attempt_count"`
	MaxAttempts         int               `json:"max_attempts"                    db:"max_attempts"`
	NextAttemptAt       *time.Time        `json:"next_attempt_at,omitempty"       db:"next_attempt_at"`
	LastErrorCode       *string           `json:"last_error_code,omitempty"       db:"last_error_code"`
	LastErrorMessage    *string           `json:"last_error_message,omitempty"    db:"last_error_message"`
	CancelReasonCode    *ReasonCode       `json:"cancel_reason_code,omitempty"    db:"cancel_reason_code"`
	CancelReasonMessage *string           `json:"cancel_reason_message,omitempty" db:"cancel_reason_message"`
	ClaimToken          *string           `json:"-"                               db:"claim_token"`
	ClaimExpiresAt      *time.Time        `json:"-"                               db:"claim_expires_at"`
	CreatedAt           time.Time         `json:"created_at"                      db:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"                      db:"updated_at"`
}

// HasCustomer reports whether the job already carries a customer identity.
func (j *OutboundJob) HasCustomer() bool {
	return j.CustomerID != nil && *j.CustomerID != ""
}

// CreateOutboundJobRequest represents a producer's request to enqueue a job.
type CreateOutboundJobRequest struct {
	CampaignID    string          `json:"campaign_id"`
	CustomerID    *string         `json:"customer_id,omitempty"`
	TargetAddress string          `json:"target_address"`
	Channel       Channel         `json:"channel"`
	Payload       OutboundPayload `json:"payload"`
	MaxAttempts   int             `json:"max_attempts,omitempty"`
	ScheduledAt   *time.Time      `json:"scheduled_at,omitempty"`
}

// Validate validates the CreateOutboundJobRequest fields.
func (r *CreateOutboundJobRequest) Validate() error {
	if strings.TrimSpace(r.CampaignID) == "" {
		return errors.New("campaign_id is required")
	}
	if strings.TrimSpace(r.TargetAddress) == "" {
		return errors.New("target_address is required")
	}
	if !r.Channel.Valid() {
		return fmt.Errorf("invalid channel: %q", r.Channel)
	}
	if r.MaxAttempts < 0 || r.MaxAttempts > 10 {
		return errors.New("max_attempts must be between 0 and 10")
	}
	if r.Payload.VerificationState != "" && !r.Payload.VerificationState.Valid() {
		return fmt.Errorf("invalid verification_state: %q", r.Payload.VerificationState)
	}
	return nil
}

// JobListOptions filters job listings.
type JobListOptions struct {
	CampaignID string
	Status     *OutboundJobStatus
	Limit      int
	Offset     int
}

// JobTransition describes a compare-and-swap update applied to a claimed job.
// The update only lands while the row is still queued and carries ClaimToken.
type JobTransition struct {
	JobID               string
	ClaimToken          string
	Status              OutboundJobStatus
	OutcomeCode         *OutcomeCode
	AttemptCount        int
	NextAttemptAt       *time.Time
	LastErrorCode       *string
	LastErrorMessage    *string
	CancelReasonCode    *ReasonCode
	CancelReasonMessage *string
}

// Validate checks the transition against the job invariants.
func (t *JobTransition) Validate() error {
	if t.JobID == "" || t.ClaimToken == "" {
		return errors.New("job id and claim token are required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("invalid status: %q", t.Status)
	}
	if t.Status == JobStatusQueued && t.NextAttemptAt == nil {
		return errors.New("queued jobs require next_attempt_at")
	}
	if t.Status.IsTerminal() && t.NextAttemptAt != nil {
		return errors.New("terminal jobs must not carry next_attempt_at")
	}
	if t.AttemptCount < 0 {
		return errors.New("attempt_count must be >= 0")
	}
	return nil
}
