package model

import (
	"errors"
	"fmt"
	"time"
)

// AttemptStatus is the provider-reported result of one delivery attempt.
type AttemptStatus string

const (
	AttemptStatusSent      AttemptStatus = "sent"
	AttemptStatusDelivered AttemptStatus = "delivered"
	AttemptStatusFailed    AttemptStatus = "failed"
	AttemptStatusNoAnswer  AttemptStatus = "no_answer"
	AttemptStatusBusy      AttemptStatus = "busy"
)

// Valid reports whether s is a known attempt status.
func (s AttemptStatus) Valid() bool {
	switch s {
	case AttemptStatusSent, AttemptStatusDelivered, AttemptStatusFailed, AttemptStatusNoAnswer, AttemptStatusBusy:
		return true
	}
	return false
}

// OutboundAttempt is an immutable record of one delivery attempt.
type OutboundAttempt struct {
	ID                string        `json:"id"                            db:"id"`
	JobID             string        `json:"job_id"                        db:"job_id"`
	AttemptNumber     int           `json:"attempt_number"                db:"attempt_number"`
	Provider          string        `json:"provider"                      db:"provider"`
	ProviderMessageID *string       `json:"provider_message_id,omitempty" db:"provider_message_id"`
	Status            AttemptStatus `json:"status"                        db:"status"`
	OutcomeCode       *OutcomeCode  `json:"outcome_code,omitempty"        db:"outcome_code"`
	ErrorCode         *string       `json:"error_code,omitempty"          db:"error_code"`
	ErrorMessage      *string       `json:"error_message,omitempty"       db:"error_message"`
	CreatedAt         time.Time     `json:"created_at"                    db:"created_at"`
}

// CreateAttemptRequest describes an attempt row to append.
type CreateAttemptRequest struct {
	JobID             string
	AttemptNumber     int
	Provider          string
	ProviderMessageID *string
	Status            AttemptStatus
	OutcomeCode       *OutcomeCode
	ErrorCode         *string
	ErrorMessage      *string
}

// Validate validates the CreateAttemptRequest fields.
func (r *CreateAttemptRequest) Validate() error {
	if r.JobID == "" {
		return errors.New("job_id is required")
	}
	if r.AttemptNumber < 1 {
		return errors.New("attempt_number must be >= 1")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid attempt status: %q", r.Status)
	}
	return nil
}
