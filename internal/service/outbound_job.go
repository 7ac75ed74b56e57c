package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
	apperrors "github.com/target/mmk-outbound/internal/errors"
)

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 500
)

// OutboundJobServiceOptions groups dependencies for OutboundJobService.
type OutboundJobServiceOptions struct {
	Repos  JobServiceRepositories
	Audit  *AuditLogger
	Logger *slog.Logger
}

// JobServiceRepositories groups the stores behind OutboundJobService.
type JobServiceRepositories struct {
	Jobs      core.OutboundJobRepository // Required
	Attempts  core.AttemptRepository     // Required
	Campaigns core.CampaignRepository    // Required
}

// OutboundJobService is the producer and operator facing entry point for outbound jobs.
type OutboundJobService struct {
	jobs      core.OutboundJobRepository
	attempts  core.AttemptRepository
	campaigns core.CampaignRepository
	audit     *AuditLogger
	logger    *slog.Logger
}

// NewOutboundJobService constructs an OutboundJobService.
func NewOutboundJobService(opts OutboundJobServiceOptions) *OutboundJobService {
	if opts.Repos.Jobs == nil {
		panic("OutboundJobRepository is required")
	}
	if opts.Repos.Attempts == nil {
		panic("AttemptRepository is required")
	}
	if opts.Repos.Campaigns == nil {
		panic("CampaignRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboundJobService{
		jobs:      opts.Repos.Jobs,
		attempts:  opts.Repos.Attempts,
		campaigns: opts.Repos.Campaigns,
		audit:     opts.Audit,
		logger:    logger.With("component", "outbound_job_service"),
	}
}

// Create validates req against its campaign and enqueues the job.
func (s *OutboundJobService) Create(ctx context.Context, req *model.CreateOutboundJobRequest) (*model.OutboundJob, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	req.CampaignID = strings.TrimSpace(req.CampaignID)
	req.TargetAddress = strings.TrimSpace(req.TargetAddress)
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	campaign, err := s.campaigns.GetByID(ctx, req.CampaignID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.ValidationField("campaign_id", "campaign does not exist")
		}
		return nil, fmt.Errorf("load campaign: %w", err)
	}
	if !campaign.IsActive() {
		return nil, apperrors.ValidationField("campaign_id", "campaign is not active")
	}
	if c := req.Payload.Content; c != nil && c.Purpose() != campaign.Purpose {
		return nil, apperrors.ValidationField("payload",
			fmt.Sprintf("payload kind %s does not match campaign purpose %s", c.Purpose(), campaign.Purpose))
	}
	if req.Payload.VerificationState == "" {
		req.Payload.VerificationState = model.VerificationUnset
	}

	job, err := s.jobs.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "outbound job created",
		"job_id", job.ID,
		"campaign_id", job.CampaignID,
		"channel", job.Channel,
	)
	s.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorOperator,
		EventType: model.AuditJobCreated,
		Refs:      AuditRefs{JobID: job.ID, CampaignID: job.CampaignID, CustomerID: derefString(job.CustomerID)},
		Input: map[string]any{
			"channel":        job.Channel,
			"target_address": job.TargetAddress,
			"max_attempts":   job.MaxAttempts,
		},
		Output:  map[string]any{"status": job.Status, "next_attempt_at": job.NextAttemptAt},
		Success: true,
	})
	return job, nil
}

// Get returns a job by id.
func (s *OutboundJobService) Get(ctx context.Context, id string) (*model.OutboundJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// ListAttempts returns the attempt history of a job, oldest first. A missing job is not found.
func (s *OutboundJobService) ListAttempts(ctx context.Context, jobID string) ([]*model.OutboundAttempt, error) {
	if _, err := s.jobs.GetByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.attempts.ListByJob(ctx, jobID)
}

// ListByCampaign pages through a campaign's jobs with an optional status filter.
func (s *OutboundJobService) ListByCampaign(ctx context.Context, opts model.JobListOptions) ([]*model.OutboundJob, error) {
	if strings.TrimSpace(opts.CampaignID) == "" {
		return nil, apperrors.ValidationField("campaign_id", "campaign_id is required")
	}
	if opts.Status != nil && !opts.Status.Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("invalid status: %q", *opts.Status))
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = defaultJobListLimit
	case opts.Limit > maxJobListLimit:
		opts.Limit = maxJobListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.jobs.ListByCampaign(ctx, opts)
}

// MarkVerified records that the recipient completed step-up verification. The job goes
// back to queued and is picked up on the next pass with its real content released.
func (s *OutboundJobService) MarkVerified(ctx context.Context, id string) (*model.OutboundJob, error) {
	job, err := s.jobs.MarkVerified(ctx, id)
	refs := AuditRefs{JobID: id}
	if job != nil {
		refs.CampaignID = job.CampaignID
		refs.CustomerID = derefString(job.CustomerID)
	}
	ev := AuditEvent{
		ActorType:   model.ActorOperator,
		EventType:   model.AuditJobVerified,
		Refs:        refs,
		Success:     err == nil,
		Err:         err,
		AuthContext: true,
	}
	if err == nil {
		ev.Output = map[string]any{"status": job.Status, "verification_state": job.Payload.VerificationState}
	}
	s.audit.Write(ctx, ev)

	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "outbound job verified", "job_id", id)
	return job, nil
}
