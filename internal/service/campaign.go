package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
	apperrors "github.com/target/mmk-outbound/internal/errors"
)

// CampaignServiceOptions groups dependencies for CampaignService.
type CampaignServiceOptions struct {
	Repo  core.CampaignRepository // Required
	Audit *AuditLogger
}

// CampaignService manages campaigns.
type CampaignService struct {
	repo  core.CampaignRepository
	audit *AuditLogger
}

// NewCampaignService constructs a CampaignService.
func NewCampaignService(opts CampaignServiceOptions) *CampaignService {
	if opts.Repo == nil {
		panic("CampaignRepository is required")
	}
	return &CampaignService{repo: opts.Repo, audit: opts.Audit}
}

// Create validates and stores a campaign.
func (s *CampaignService) Create(ctx context.Context, req *model.CreateCampaignRequest) (*model.Campaign, error) {
	if req == nil {
		return nil, apperrors.Validation("request body is required")
	}
	req.Normalize()
	if req.Name == "" {
		return nil, apperrors.ValidationField("name", "name is required")
	}
	if !req.Purpose.Valid() {
		return nil, apperrors.ValidationField("purpose", fmt.Sprintf("invalid purpose: %q", req.Purpose))
	}
	if !req.Status.Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("invalid status: %q", req.Status))
	}
	for _, ch := range req.AllowedChannels {
		if !ch.Valid() {
			return nil, apperrors.ValidationField("allowed_channels", fmt.Sprintf("invalid channel: %q", ch))
		}
	}

	c, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorOperator,
		EventType: "campaign_created",
		Refs:      AuditRefs{CampaignID: c.ID},
		Input:     req,
		Success:   true,
	})
	return c, nil
}

// Get returns a campaign by id.
func (s *CampaignService) Get(ctx context.Context, id string) (*model.Campaign, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

// List returns a page of campaigns.
func (s *CampaignService) List(ctx context.Context, limit, offset int) ([]*model.Campaign, error) {
	if limit <= 0 || limit > maxJobListLimit {
		limit = defaultJobListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// SetStatus activates or deactivates a campaign. Queued jobs of an inactive campaign
// are cancelled by the runner on their next pass.
func (s *CampaignService) SetStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error) {
	if !status.Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("invalid status: %q", status))
	}
	c, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.audit.Write(ctx, AuditEvent{
		ActorType: model.ActorOperator,
		EventType: "campaign_status_changed",
		Refs:      AuditRefs{CampaignID: c.ID},
		Output:    map[string]any{"status": c.Status},
		Success:   true,
	})
	return c, nil
}
