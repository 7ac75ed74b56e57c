package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
	obserrors "github.com/target/mmk-outbound/internal/observability/errors"
	"github.com/target/mmk-outbound/internal/redact"
)

// AuditEventVersion is stamped on every entry so readers can evolve with the payload shape.
const AuditEventVersion = 1

// DefaultAuditWriteTimeout bounds a single audit insert.
const DefaultAuditWriteTimeout = 5 * time.Second

// AuditRefs correlates an audit entry with the pipeline entities it concerns.
type AuditRefs struct {
	JobID      string
	CampaignID string
	CustomerID string
}

// AuditEvent is an unredacted decision record. Input and Output are redacted by the
// logger before anything is persisted.
type AuditEvent struct {
	ActorType model.AuditActorType
	EventType string
	Refs      AuditRefs
	Input     any
	Output    any
	Success   bool
	// Err, when set, fills error_code (via its classification) and a redacted error_message.
	Err error
	// ErrorCode overrides the classified code of Err.
	ErrorCode string
	// AuthContext enables OTP redaction for events emitted during verification flows.
	AuthContext bool
}

// AuditLoggerOptions groups dependencies for AuditLogger.
type AuditLoggerOptions struct {
	Repo    core.AuditRepository // Required
	Logger  *slog.Logger         // Optional
	Timeout time.Duration        // Optional, defaults to DefaultAuditWriteTimeout
}

// AuditLogger persists redacted audit entries. Writes are best effort: a failing audit
// store is logged and never interrupts delivery.
type AuditLogger struct {
	repo    core.AuditRepository
	logger  *slog.Logger
	timeout time.Duration
}

// NewAuditLogger constructs an AuditLogger.
func NewAuditLogger(opts AuditLoggerOptions) *AuditLogger {
	if opts.Repo == nil {
		panic("AuditRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultAuditWriteTimeout
	}
	return &AuditLogger{
		repo:    opts.Repo,
		logger:  logger.With("component", "audit"),
		timeout: timeout,
	}
}

// Write redacts and persists ev. It never returns an error and never panics.
func (a *AuditLogger) Write(ctx context.Context, ev AuditEvent) {
	if a == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "audit write panicked",
				"event_type", ev.EventType,
				"panic", r,
			)
		}
	}()

	entry := a.buildEntry(ev)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if err := a.repo.Create(writeCtx, entry); err != nil {
		a.logger.ErrorContext(ctx, "audit write failed",
			"event_type", ev.EventType,
			"job_id", ev.Refs.JobID,
			"error", err,
		)
	}
}

func (a *AuditLogger) buildEntry(ev AuditEvent) *model.AuditLogEntry {
	opts := redact.Options{AuthContext: ev.AuthContext}

	actor := ev.ActorType
	if !actor.Valid() {
		actor = model.ActorSystem
	}

	entry := &model.AuditLogEntry{
		ActorType:  actor,
		EventType:  ev.EventType,
		Version:    AuditEventVersion,
		Input:      a.marshal(ev.EventType, "input", ev.Input, opts),
		Output:     a.marshal(ev.EventType, "output", ev.Output, opts),
		Success:    ev.Success,
		JobID:      optionalString(ev.Refs.JobID),
		CampaignID: optionalString(ev.Refs.CampaignID),
		CustomerID: optionalString(ev.Refs.CustomerID),
	}
	if len(entry.Input) == 0 {
		entry.Input = json.RawMessage(`{}`)
	}

	code := ev.ErrorCode
	if code == "" && ev.Err != nil {
		code = obserrors.Classify(ev.Err)
	}
	entry.ErrorCode = optionalString(code)
	if ev.Err != nil {
		entry.ErrorMessage = optionalString(redact.String(ev.Err.Error(), opts))
	}
	return entry
}

func (a *AuditLogger) marshal(eventType, field string, v any, opts redact.Options) json.RawMessage {
	raw, err := redact.Marshal(v, opts)
	if err != nil {
		a.logger.Warn("audit payload not encodable",
			"event_type", eventType,
			"field", field,
			"error", err,
		)
		return json.RawMessage(fmt.Sprintf(`{"encode_error":%q}`, redact.Sentinel))
	}
	return raw
}

// ToolCall describes one bracketed call for TrackToolCall.
type ToolCall struct {
	// Name prefixes the emitted event types: <Name>_started, <Name>_succeeded, <Name>_failed.
	Name      string
	ActorType model.AuditActorType
	Refs      AuditRefs
	Input     any
	// AuthContext is carried onto every bracketing event.
	AuthContext bool
}

// ToolCallOutcome is the output recorded on the closing event of a tool call.
type ToolCallOutcome struct {
	LatencyMS int64 `json:"latency_ms"`
	Result    any   `json:"result,omitempty"`
}

// TrackToolCall brackets fn with started and succeeded/failed audit events carrying the
// call latency. Errors from fn are returned unchanged. A nil logger only runs fn.
func TrackToolCall[T any](ctx context.Context, a *AuditLogger, call ToolCall, fn func(context.Context) (T, error)) (T, error) {
	if a == nil {
		return fn(ctx)
	}

	a.Write(ctx, AuditEvent{
		ActorType:   call.ActorType,
		EventType:   call.Name + "_started",
		Refs:        call.Refs,
		Input:       call.Input,
		Success:     true,
		AuthContext: call.AuthContext,
	})

	start := time.Now()
	result, err := fn(ctx)
	outcome := ToolCallOutcome{LatencyMS: time.Since(start).Milliseconds()}

	if err != nil {
		a.Write(ctx, AuditEvent{
			ActorType:   call.ActorType,
			EventType:   call.Name + "_failed",
			Refs:        call.Refs,
			Input:       call.Input,
			Output:      outcome,
			Err:         err,
			AuthContext: call.AuthContext,
		})
		return result, err
	}

	outcome.Result = result
	a.Write(ctx, AuditEvent{
		ActorType:   call.ActorType,
		EventType:   call.Name + "_succeeded",
		Refs:        call.Refs,
		Input:       call.Input,
		Output:      outcome,
		Success:     true,
		AuthContext: call.AuthContext,
	})
	return result, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
