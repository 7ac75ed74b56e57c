package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
)

// EventTypeDeadLettered is the event type carried by every dead-letter event.
const EventTypeDeadLettered = "outbound_job_dead_lettered"

// DeadLetterEvent describes an outbound job that exhausted its retry budget.
// DestinationHint is always redacted before the event leaves the service.
type DeadLetterEvent struct {
	EventType        string    `json:"event_type"`
	JobID            string    `json:"job_id"`
	CampaignID       string    `json:"campaign_id"`
	Channel          string    `json:"channel"`
	DestinationHint  string    `json:"destination_hint"`
	AttemptCount     int       `json:"attempt_count"`
	LastErrorCode    string    `json:"last_error_code,omitempty"`
	LastErrorMessage string    `json:"last_error_message,omitempty"`
	Severity         string    `json:"severity,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Sink describes a destination capable of consuming dead-letter events.
type Sink interface {
	SendDeadLetter(ctx context.Context, event DeadLetterEvent) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, event DeadLetterEvent) error

// SendDeadLetter implements the Sink interface.
func (f SinkFunc) SendDeadLetter(ctx context.Context, event DeadLetterEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}
