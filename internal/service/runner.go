package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/domain/outbound"
	obserrors "github.com/target/mmk-outbound/internal/observability/errors"
	"github.com/target/mmk-outbound/internal/observability/metrics"
	"github.com/target/mmk-outbound/internal/observability/notify"
	"github.com/target/mmk-outbound/internal/observability/statsd"
	"github.com/target/mmk-outbound/internal/redact"
)

// Runner defaults.
const (
	DefaultRunnerBatchLimit  = 50
	DefaultRunnerConcurrency = 1
	DefaultRunnerJobTimeout  = 60 * time.Second
	DefaultRunnerClaimTTL    = 2 * time.Minute

	// persistTimeout bounds bookkeeping that must land even after the job deadline,
	// such as recording a send that already reached the provider.
	persistTimeout = 10 * time.Second
)

// JobOutcome summarizes what one pass did to a job.
type JobOutcome string

const (
	JobOutcomeSent                 JobOutcome = "sent"
	JobOutcomeAwaitingVerification JobOutcome = "awaiting_verification"
	JobOutcomeRetryScheduled       JobOutcome = "retry_scheduled"
	JobOutcomeFailed               JobOutcome = "failed"
	JobOutcomeCancelled            JobOutcome = "cancelled"
	// JobOutcomeError means processing hit an infrastructure error and the job was
	// released unchanged for a later pass.
	JobOutcomeError JobOutcome = "error"
)

// JobResult is the per-job entry of a BatchResult.
type JobResult struct {
	JobID         string                  `json:"job_id"`
	Channel       model.Channel           `json:"channel"`
	Outcome       JobOutcome              `json:"outcome"`
	Status        model.OutboundJobStatus `json:"status"`
	OutcomeCode   *model.OutcomeCode      `json:"outcome_code,omitempty"`
	AttemptNumber int                     `json:"attempt_number,omitempty"`
	NextAttemptAt *time.Time              `json:"next_attempt_at,omitempty"`
	Reasons       []model.ReasonCode      `json:"reasons,omitempty"`
	ErrorCode     string                  `json:"error_code,omitempty"`
	Error         string                  `json:"error,omitempty"`
}

// BatchResult is the outcome of one RunDueJobs pass, in claim order.
type BatchResult struct {
	Claimed int                `json:"claimed"`
	Results []JobResult        `json:"results"`
	Counts  map[JobOutcome]int `json:"counts"`
}

// RunnerRepositories groups the stores the runner reads and writes.
type RunnerRepositories struct {
	Jobs      core.OutboundJobRepository
	Attempts  core.AttemptRepository
	Campaigns core.CampaignRepository
}

// RunnerConfig tunes batch execution.
type RunnerConfig struct {
	BatchLimit  int
	Concurrency int
	JobTimeout  time.Duration
	ClaimTTL    time.Duration
}

// RunnerPipeline groups the policy stages a job passes through.
type RunnerPipeline struct {
	Evaluator *EligibilityEvaluator
	Gate      *outbound.Gate
	Channels  core.ChannelRegistry
	Backoff   *outbound.BackoffPolicy
	Config    RunnerConfig
}

// RunnerHooks groups the runner's best-effort side outputs. Every field is optional.
type RunnerHooks struct {
	Audit      *AuditLogger
	DeadLetter core.DeadLetterPublisher
	Workflow   core.WorkflowNotifier
	Metrics    statsd.Sink
	Logger     *slog.Logger
}

// OutboundRunnerOptions groups dependencies for OutboundRunner.
type OutboundRunnerOptions struct {
	Repos    RunnerRepositories
	Pipeline RunnerPipeline
	Hooks    RunnerHooks
}

// OutboundRunner drives due jobs through eligibility, the verification gate, the
// channel adapter and retry scheduling. Every state change is a compare-and-swap on
// the job's claim, so overlapping passes never send the same job twice.
type OutboundRunner struct {
	jobs      core.OutboundJobRepository
	attempts  core.AttemptRepository
	campaigns core.CampaignRepository

	evaluator *EligibilityEvaluator
	gate      *outbound.Gate
	channels  core.ChannelRegistry
	backoff   *outbound.BackoffPolicy
	claims    *outbound.ClaimPolicy
	cfg       RunnerConfig

	audit      *AuditLogger
	deadLetter core.DeadLetterPublisher
	workflow   core.WorkflowNotifier
	metrics    statsd.Sink
	logger     *slog.Logger
}

// NewOutboundRunner constructs an OutboundRunner.
func NewOutboundRunner(opts OutboundRunnerOptions) *OutboundRunner {
	if opts.Repos.Jobs == nil {
		panic("OutboundJobRepository is required")
	}
	if opts.Repos.Attempts == nil {
		panic("AttemptRepository is required")
	}
	if opts.Repos.Campaigns == nil {
		panic("CampaignRepository is required")
	}
	if opts.Pipeline.Evaluator == nil {
		panic("EligibilityEvaluator is required")
	}
	if opts.Pipeline.Channels == nil {
		panic("ChannelRegistry is required")
	}

	cfg := opts.Pipeline.Config
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = DefaultRunnerBatchLimit
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultRunnerConcurrency
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultRunnerJobTimeout
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = DefaultRunnerClaimTTL
	}
	claims, err := outbound.NewClaimPolicy(cfg.ClaimTTL)
	if err != nil {
		panic(err)
	}

	gate := opts.Pipeline.Gate
	if gate == nil {
		gate = outbound.NewGate(nil)
	}
	backoff := opts.Pipeline.Backoff
	if backoff == nil {
		backoff = outbound.NewBackoffPolicy(nil)
	}
	sink := opts.Hooks.Metrics
	if sink == nil {
		sink = statsd.Discard
	}
	logger := opts.Hooks.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OutboundRunner{
		jobs:       opts.Repos.Jobs,
		attempts:   opts.Repos.Attempts,
		campaigns:  opts.Repos.Campaigns,
		evaluator:  opts.Pipeline.Evaluator,
		gate:       gate,
		channels:   opts.Pipeline.Channels,
		backoff:    backoff,
		claims:     claims,
		cfg:        cfg,
		audit:      opts.Hooks.Audit,
		deadLetter: opts.Hooks.DeadLetter,
		workflow:   opts.Hooks.Workflow,
		metrics:    sink,
		logger:     logger.With("component", "outbound_runner"),
	}
}

type batchAuditInput struct {
	Limit int       `json:"limit"`
	Now   time.Time `json:"now"`
}

// RunDueJobs claims up to limit due jobs and processes each of them once. A per-job
// failure never aborts the batch; only a failed claim returns an error. A non-positive
// limit uses the configured batch limit and a zero now uses the wall clock.
func (r *OutboundRunner) RunDueJobs(ctx context.Context, limit int, now time.Time) (BatchResult, error) {
	if limit <= 0 {
		limit = r.cfg.BatchLimit
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	start := time.Now()

	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: model.AuditBatchPollStarted,
		Input:     batchAuditInput{Limit: limit, Now: now},
		Success:   true,
	})

	jobs, err := r.jobs.ClaimDue(ctx, core.ClaimDueParams{
		Now:   now,
		Limit: limit,
		TTL:   r.claims.Resolve(r.cfg.ClaimTTL, r.cfg.JobTimeout),
	})
	if err != nil && !errors.Is(err, model.ErrNoDueJobs) {
		r.logger.ErrorContext(ctx, "claim due jobs failed", "limit", limit, "error", err)
		r.audit.Write(ctx, AuditEvent{
			ActorType: model.ActorRunner,
			EventType: model.AuditBatchCompleted,
			Input:     batchAuditInput{Limit: limit, Now: now},
			Err:       err,
		})
		metrics.EmitBatch(r.metrics, metrics.BatchMetric{Duration: time.Since(start), Err: err})
		return BatchResult{}, fmt.Errorf("claim due jobs: %w", err)
	}

	batch := BatchResult{
		Claimed: len(jobs),
		Results: make([]JobResult, len(jobs)),
		Counts:  make(map[JobOutcome]int),
	}
	campaigns := newCampaignLookup(r.campaigns)

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			batch.Results[i] = r.processJob(ctx, job, now, campaigns)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range batch.Results {
		batch.Counts[res.Outcome]++
	}

	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: model.AuditBatchCompleted,
		Input:     batchAuditInput{Limit: limit, Now: now},
		Output: map[string]any{
			"claimed":     batch.Claimed,
			"counts":      batch.Counts,
			"duration_ms": time.Since(start).Milliseconds(),
		},
		Success: true,
	})
	metrics.EmitBatch(r.metrics, metrics.BatchMetric{Claimed: batch.Claimed, Duration: time.Since(start)})

	if batch.Claimed > 0 {
		r.logger.InfoContext(ctx, "outbound batch completed",
			"claimed", batch.Claimed,
			"counts", batch.Counts,
			"duration", time.Since(start),
		)
	}
	return batch, nil
}

// jobRun carries the per-job state through one processing pass.
type jobRun struct {
	job      *model.OutboundJob
	campaign *model.Campaign
	refs     AuditRefs
	now      time.Time
	token    string
}

func (r *OutboundRunner) processJob(ctx context.Context, job *model.OutboundJob, now time.Time, campaigns *campaignLookup) JobResult {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	run := &jobRun{
		job: job,
		now: now,
		refs: AuditRefs{
			JobID:      job.ID,
			CampaignID: job.CampaignID,
			CustomerID: derefString(job.CustomerID),
		},
		token: derefString(job.ClaimToken),
	}

	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: model.AuditJobProcessingStarted,
		Refs:      run.refs,
		Input: map[string]any{
			"channel":       job.Channel,
			"attempt_count": job.AttemptCount,
			"max_attempts":  job.MaxAttempts,
		},
		Success: true,
	})

	campaign, err := campaigns.get(ctx, job.CampaignID)
	if err != nil {
		return r.abandon(ctx, run, fmt.Errorf("load campaign: %w", err))
	}
	run.campaign = campaign

	eligibility, err := TrackToolCall(ctx, r.audit, ToolCall{
		Name:      "eligibility_evaluate",
		ActorType: model.ActorEvaluator,
		Refs:      run.refs,
		Input:     map[string]any{"channel": job.Channel, "purpose": campaign.Purpose},
	}, func(ctx context.Context) (EligibilityResult, error) {
		return r.evaluator.Evaluate(ctx, EligibilityInput{
			Channel:                 job.Channel,
			Destination:             job.TargetAddress,
			CustomerID:              derefString(job.CustomerID),
			Now:                     now,
			Purpose:                 campaign.Purpose,
			AllowQuietHoursOverride: job.Payload.ServiceNoticeOverride,
			TimezoneHint:            job.Payload.TimezoneHint,
			Campaign:                campaign,
			Refs:                    run.refs,
		})
	})
	if err != nil {
		return r.abandon(ctx, run, fmt.Errorf("evaluate eligibility: %w", err))
	}

	if !eligibility.Eligible {
		return r.cancelJob(ctx, run, eligibility)
	}

	if eligibility.ResolvedCustomerID != "" && !job.HasCustomer() {
		if err := r.jobs.SetCustomerID(ctx, core.SetCustomerIDParams{
			JobID:      job.ID,
			ClaimToken: run.token,
			CustomerID: eligibility.ResolvedCustomerID,
		}); err != nil {
			return r.abandon(ctx, run, fmt.Errorf("persist customer id: %w", err))
		}
		run.refs.CustomerID = eligibility.ResolvedCustomerID
		r.audit.Write(ctx, AuditEvent{
			ActorType: model.ActorRunner,
			EventType: model.AuditJobCustomerResolved,
			Refs:      run.refs,
			Output:    map[string]any{"customer_id": eligibility.ResolvedCustomerID},
			Success:   true,
		})
	}

	return r.deliver(ctx, run, eligibility.NormalizedDestination)
}

type sendAuditInput struct {
	Channel           model.Channel `json:"channel"`
	Destination       string        `json:"destination"`
	AttemptNumber     int           `json:"attempt_number"`
	PromptSubstituted bool          `json:"prompt_substituted"`
	Text              string        `json:"text"`
}

func (r *OutboundRunner) deliver(ctx context.Context, run *jobRun, destination string) JobResult {
	job := run.job
	if budget := attemptBudget(job); job.AttemptCount >= budget {
		return r.failExhausted(ctx, run, destination, budget)
	}
	attempt := job.AttemptCount + 1
	content := r.gate.BuildOutboundContent(job, run.campaign.Purpose)

	sendStart := time.Now()
	result, sendErr := TrackToolCall(ctx, r.audit, ToolCall{
		Name:        "channel_send",
		ActorType:   model.ActorAdapter,
		Refs:        run.refs,
		AuthContext: content.PromptSubstituted,
		Input: sendAuditInput{
			Channel:           job.Channel,
			Destination:       destination,
			AttemptNumber:     attempt,
			PromptSubstituted: content.PromptSubstituted,
			Text:              content.Text,
		},
	}, func(ctx context.Context) (*core.SendResult, error) {
		sender, err := r.channels.Sender(job.Channel)
		if err != nil {
			return nil, err
		}
		return sender.Send(ctx, core.SendRequest{
			JobID:       job.ID,
			Destination: destination,
			Text:        content.Text,
			Subject:     content.Subject,
			HTML:        content.HTML,
		})
	})
	sendDuration := time.Since(sendStart)

	// The provider call has been made, so its outcome is recorded even if the job
	// deadline has passed.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if sendErr != nil {
		return r.handleSendFailure(ctx, run, destination, attempt, sendErr, sendDuration)
	}
	if result == nil {
		result = &core.SendResult{}
	}

	status := model.JobStatusSent
	outcome := model.OutcomeSuccessUnverifiedInfo
	auditType := model.AuditJobSent
	hookType := core.WorkflowEventJobSent
	jobOutcome := JobOutcomeSent
	switch {
	case content.PromptSubstituted:
		status = model.JobStatusAwaitingVerification
		auditType = model.AuditJobAwaitingVerification
		hookType = core.WorkflowEventJobAwaitingVerification
		jobOutcome = JobOutcomeAwaitingVerification
	case job.Payload.IsVerified():
		outcome = model.OutcomeSuccessVerified
	}

	updated, err := r.jobs.ApplyTransition(ctx, &model.JobTransition{
		JobID:            job.ID,
		ClaimToken:       run.token,
		Status:           status,
		OutcomeCode:      &outcome,
		AttemptCount:     attempt,
		LastErrorCode:    job.LastErrorCode,
		LastErrorMessage: job.LastErrorMessage,
	})
	if err != nil {
		return r.abandon(ctx, run, fmt.Errorf("record %s: %w", status, err))
	}

	r.recordAttempt(ctx, run, &model.CreateAttemptRequest{
		JobID:             job.ID,
		AttemptNumber:     attempt,
		Provider:          providerName(result, job.Channel),
		ProviderMessageID: optionalString(result.ProviderID),
		Status:            model.AttemptStatusSent,
		OutcomeCode:       &outcome,
	})

	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: auditType,
		Refs:      run.refs,
		Output: map[string]any{
			"status":             status,
			"outcome_code":       outcome,
			"attempt_number":     attempt,
			"provider":           providerName(result, job.Channel),
			"provider_id":        result.ProviderID,
			"prompt_substituted": content.PromptSubstituted,
		},
		Success:     true,
		AuthContext: content.PromptSubstituted,
	})
	metrics.EmitOutboundTransition(r.metrics, metrics.OutboundMetric{
		Channel:    string(job.Channel),
		Transition: string(jobOutcome),
		Result:     metrics.ResultSuccess,
		Duration:   sendDuration,
	})
	r.notifyWorkflow(ctx, hookType, updated)

	return JobResult{
		JobID:         job.ID,
		Channel:       job.Channel,
		Outcome:       jobOutcome,
		Status:        status,
		OutcomeCode:   &outcome,
		AttemptNumber: attempt,
	}
}

func (r *OutboundRunner) handleSendFailure(
	ctx context.Context,
	run *jobRun,
	destination string,
	attempt int,
	sendErr error,
	sendDuration time.Duration,
) JobResult {
	job := run.job
	code := sendErrorCode(sendErr)
	message := sendErr.Error()

	maxAttempts := attemptBudget(job)

	t := &model.JobTransition{
		JobID:            job.ID,
		ClaimToken:       run.token,
		AttemptCount:     attempt,
		LastErrorCode:    &code,
		LastErrorMessage: &message,
	}
	exhausted := attempt >= maxAttempts
	if exhausted {
		outcome := model.OutcomeFailedDelivery
		t.Status = model.JobStatusFailed
		t.OutcomeCode = &outcome
	} else {
		next := r.backoff.NextAttemptAt(job.Channel, attempt, run.now)
		t.Status = model.JobStatusQueued
		t.NextAttemptAt = &next
	}

	updated, err := r.jobs.ApplyTransition(ctx, t)
	if err != nil {
		return r.abandon(ctx, run, fmt.Errorf("record failed attempt: %w", err))
	}

	r.recordAttempt(ctx, run, &model.CreateAttemptRequest{
		JobID:         job.ID,
		AttemptNumber: attempt,
		Provider:      string(job.Channel),
		Status:        model.AttemptStatusFailed,
		OutcomeCode:   t.OutcomeCode,
		ErrorCode:     &code,
		ErrorMessage:  &message,
	})

	res := JobResult{
		JobID:         job.ID,
		Channel:       job.Channel,
		Status:        t.Status,
		OutcomeCode:   t.OutcomeCode,
		AttemptNumber: attempt,
		NextAttemptAt: t.NextAttemptAt,
		ErrorCode:     code,
		Error:         message,
	}

	if !exhausted {
		res.Outcome = JobOutcomeRetryScheduled
		r.audit.Write(ctx, AuditEvent{
			ActorType: model.ActorRunner,
			EventType: model.AuditJobRetryScheduled,
			Refs:      run.refs,
			Output: map[string]any{
				"attempt_number":  attempt,
				"max_attempts":    maxAttempts,
				"next_attempt_at": t.NextAttemptAt,
			},
			Err:       sendErr,
			ErrorCode: code,
		})
		metrics.EmitOutboundTransition(r.metrics, metrics.OutboundMetric{
			Channel:    string(job.Channel),
			Transition: string(JobOutcomeRetryScheduled),
			Result:     metrics.ResultError,
			Duration:   sendDuration,
			Err:        sendErr,
		})
		return res
	}

	res.Outcome = JobOutcomeFailed
	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: model.AuditJobFailed,
		Refs:      run.refs,
		Output: map[string]any{
			"attempt_number": attempt,
			"max_attempts":   maxAttempts,
			"outcome_code":   model.OutcomeFailedDelivery,
		},
		Err:       sendErr,
		ErrorCode: code,
	})
	metrics.EmitOutboundTransition(r.metrics, metrics.OutboundMetric{
		Channel:    string(job.Channel),
		Transition: string(JobOutcomeFailed),
		Result:     metrics.ResultError,
		Duration:   sendDuration,
		Err:        sendErr,
	})
	r.publishDeadLetter(ctx, run, destination, attempt, code, message)
	r.notifyWorkflow(ctx, core.WorkflowEventJobFailed, updated)
	return res
}

// failExhausted fails a job whose budget is already spent without contacting the
// provider. No attempt row is written because no attempt was made.
func (r *OutboundRunner) failExhausted(ctx context.Context, run *jobRun, destination string, budget int) JobResult {
	job := run.job
	code := errCodeAttemptsExhausted
	message := fmt.Sprintf("attempt budget of %d already used", budget)
	outcome := model.OutcomeFailedDelivery

	updated, err := r.jobs.ApplyTransition(ctx, &model.JobTransition{
		JobID:            job.ID,
		ClaimToken:       run.token,
		Status:           model.JobStatusFailed,
		OutcomeCode:      &outcome,
		AttemptCount:     job.AttemptCount,
		LastErrorCode:    &code,
		LastErrorMessage: &message,
	})
	if err != nil {
		return r.abandon(ctx, run, fmt.Errorf("record exhausted budget: %w", err))
	}

	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: model.AuditJobFailed,
		Refs:      run.refs,
		Output: map[string]any{
			"attempt_count": job.AttemptCount,
			"max_attempts":  budget,
			"outcome_code":  outcome,
		},
		Err:       errors.New(message),
		ErrorCode: code,
	})
	metrics.EmitOutboundTransition(r.metrics, metrics.OutboundMetric{
		Channel:    string(job.Channel),
		Transition: string(JobOutcomeFailed),
		Result:     metrics.ResultError,
	})
	r.publishDeadLetter(ctx, run, destination, job.AttemptCount, code, message)
	r.notifyWorkflow(ctx, core.WorkflowEventJobFailed, updated)

	return JobResult{
		JobID:         job.ID,
		Channel:       job.Channel,
		Outcome:       JobOutcomeFailed,
		Status:        model.JobStatusFailed,
		OutcomeCode:   &outcome,
		AttemptNumber: job.AttemptCount,
		ErrorCode:     code,
		Error:         message,
	}
}

func (r *OutboundRunner) cancelJob(ctx context.Context, run *jobRun, eligibility EligibilityResult) JobResult {
	job := run.job
	reason := eligibility.PrimaryReason()
	outcome := model.OutcomePolicyBlocked
	if reason == model.ReasonDNC {
		outcome = model.OutcomeOptOut
	}
	message := reason.Description()

	updated, err := r.jobs.ApplyTransition(ctx, &model.JobTransition{
		JobID:               job.ID,
		ClaimToken:          run.token,
		Status:              model.JobStatusCancelled,
		OutcomeCode:         &outcome,
		AttemptCount:        job.AttemptCount,
		LastErrorCode:       job.LastErrorCode,
		LastErrorMessage:    job.LastErrorMessage,
		CancelReasonCode:    &reason,
		CancelReasonMessage: &message,
	})
	if err != nil {
		return r.abandon(ctx, run, fmt.Errorf("record cancellation: %w", err))
	}

	if eligibility.ResolvedCustomerID != "" && run.refs.CustomerID == "" {
		run.refs.CustomerID = eligibility.ResolvedCustomerID
	}
	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: model.AuditJobCancelled,
		Refs:      run.refs,
		Output: map[string]any{
			"reasons":      eligibility.Reasons,
			"reason_code":  reason,
			"outcome_code": outcome,
		},
		Success: true,
	})
	metrics.EmitOutboundTransition(r.metrics, metrics.OutboundMetric{
		Channel:    string(job.Channel),
		Transition: string(JobOutcomeCancelled),
		Result:     metrics.ResultSuccess,
	})
	r.notifyWorkflow(ctx, core.WorkflowEventJobCancelled, updated)

	return JobResult{
		JobID:       job.ID,
		Channel:     job.Channel,
		Outcome:     JobOutcomeCancelled,
		Status:      model.JobStatusCancelled,
		OutcomeCode: &outcome,
		Reasons:     eligibility.Reasons,
	}
}

// abandon releases the job's claim after an infrastructure error so a later pass can
// retry it without consuming an attempt.
func (r *OutboundRunner) abandon(ctx context.Context, run *jobRun, err error) JobResult {
	job := run.job
	code := obserrors.Classify(err)

	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if relErr := r.jobs.ReleaseClaim(releaseCtx, job.ID, run.token); relErr != nil {
		r.logger.ErrorContext(ctx, "release claim failed", "job_id", job.ID, "error", relErr)
	}

	r.logger.ErrorContext(ctx, "outbound job processing failed",
		"job_id", job.ID,
		"channel", job.Channel,
		"error_code", code,
		"error", err,
	)
	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: model.AuditJobProcessingError,
		Refs:      run.refs,
		Err:       err,
		ErrorCode: code,
	})
	metrics.EmitOutboundTransition(r.metrics, metrics.OutboundMetric{
		Channel:    string(job.Channel),
		Transition: string(JobOutcomeError),
		Result:     metrics.ResultError,
		Err:        err,
	})

	return JobResult{
		JobID:     job.ID,
		Channel:   job.Channel,
		Outcome:   JobOutcomeError,
		Status:    job.Status,
		ErrorCode: code,
		Error:     err.Error(),
	}
}

// recordAttempt appends the attempt row. The job transition already landed, so a failed
// insert is logged and audited rather than undoing the state change.
func (r *OutboundRunner) recordAttempt(ctx context.Context, run *jobRun, req *model.CreateAttemptRequest) {
	if _, err := r.attempts.Create(ctx, req); err != nil {
		r.logger.ErrorContext(ctx, "record attempt failed",
			"job_id", req.JobID,
			"attempt_number", req.AttemptNumber,
			"error", err,
		)
		r.audit.Write(ctx, AuditEvent{
			ActorType: model.ActorRunner,
			EventType: model.AuditJobProcessingError,
			Refs:      run.refs,
			Input:     map[string]any{"attempt_number": req.AttemptNumber},
			Err:       err,
		})
	}
}

func (r *OutboundRunner) publishDeadLetter(ctx context.Context, run *jobRun, destination string, attempt int, code, message string) {
	job := run.job
	event := notify.DeadLetterEvent{
		EventType:        notify.EventTypeDeadLettered,
		JobID:            job.ID,
		CampaignID:       job.CampaignID,
		Channel:          string(job.Channel),
		DestinationHint:  redact.String(destination, redact.Options{}),
		AttemptCount:     attempt,
		LastErrorCode:    code,
		LastErrorMessage: redact.String(message, redact.Options{}),
		Severity:         notify.SeverityCritical,
		OccurredAt:       run.now,
	}

	if r.deadLetter != nil {
		r.deadLetter.Publish(ctx, event)
	}
	r.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorRunner,
		EventType: model.AuditJobDeadLettered,
		Refs:      run.refs,
		Output:    event,
		Success:   r.deadLetter != nil,
		ErrorCode: code,
	})
}

func (r *OutboundRunner) notifyWorkflow(ctx context.Context, eventType string, job *model.OutboundJob) {
	if r.workflow == nil || job == nil {
		return
	}
	r.workflow.NotifyBestEffort(ctx, core.WorkflowEvent{
		Type:        eventType,
		JobID:       job.ID,
		CampaignID:  job.CampaignID,
		CustomerID:  job.CustomerID,
		Channel:     job.Channel,
		Status:      string(job.Status),
		OutcomeCode: job.OutcomeCode,
		OccurredAt:  job.UpdatedAt,
	})
}

const errCodeAttemptsExhausted = "attempts_exhausted"

func attemptBudget(job *model.OutboundJob) int {
	if job.MaxAttempts > 0 {
		return job.MaxAttempts
	}
	return outbound.DefaultMaxAttempts(job.Channel)
}

func sendErrorCode(err error) string {
	var coded core.CodedError
	if errors.As(err, &coded) {
		if code := coded.ErrorCode(); code != "" {
			return code
		}
	}
	return obserrors.Classify(err)
}

func providerName(res *core.SendResult, ch model.Channel) string {
	if res != nil && res.Provider != "" {
		return res.Provider
	}
	return string(ch)
}

// campaignLookup memoizes campaign reads for one batch.
type campaignLookup struct {
	repo  core.CampaignRepository
	mu    sync.Mutex
	cache map[string]*model.Campaign
}

func newCampaignLookup(repo core.CampaignRepository) *campaignLookup {
	return &campaignLookup{repo: repo, cache: make(map[string]*model.Campaign)}
}

func (l *campaignLookup) get(ctx context.Context, id string) (*model.Campaign, error) {
	l.mu.Lock()
	c, ok := l.cache[id]
	l.mu.Unlock()
	if ok {
		return c, nil
	}

	c, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cache[id] = c
	l.mu.Unlock()
	return c, nil
}
