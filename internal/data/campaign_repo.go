package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/data/pgxutil"
	"github.com/target/mmk-outbound/internal/domain/model"
	apperrors "github.com/target/mmk-outbound/internal/errors"
)

const campaignColumns = `id, name, purpose, allowed_channels, status, created_at, updated_at`

// CampaignRepo provides database operations for campaigns.
type CampaignRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCampaignRepo creates a new CampaignRepo with real time provider.
func NewCampaignRepo(db *sql.DB) *CampaignRepo {
	return &CampaignRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewCampaignRepoWithTimeProvider creates a new CampaignRepo with a custom time provider (useful for tests).
func NewCampaignRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *CampaignRepo {
	return &CampaignRepo{DB: db, timeProvider: timeProviderOrReal(tp)}
}

var _ core.CampaignRepository = (*CampaignRepo)(nil)

func campaignNotFound(id string) error {
	return apperrors.WrapTemplate(ErrCampaignNotFound, apperrors.ErrCodeNotFound, apperrors.Messagef("campaign %s not found", id))
}

// Create inserts a new campaign.
func (r *CampaignRepo) Create(ctx context.Context, req *model.CreateCampaignRequest) (*model.Campaign, error) {
	if req == nil {
		return nil, errors.New("create campaign request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	now := r.timeProvider.Now().UTC()
	var out *model.Campaign
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		out, scanErr = scanCampaign(conn.QueryRow(ctx, `
			INSERT INTO campaigns (name, purpose, allowed_channels, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			RETURNING `+campaignColumns,
			req.Name, req.Purpose, channelStrings(req.AllowedChannels), req.Status, now,
		))
		return scanErr
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// GetByID retrieves a campaign by ID.
func (r *CampaignRepo) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, campaignNotFound(id)
	}

	var out *model.Campaign
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		out, scanErr = scanCampaign(conn.QueryRow(ctx,
			`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, campaignNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign by ID: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// List retrieves campaigns with pagination, newest first.
func (r *CampaignRepo) List(ctx context.Context, limit, offset int) ([]*model.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	offset = max(offset, 0)

	var out []*model.Campaign
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+campaignColumns+`
			FROM campaigns
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2`, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			c, scanErr := scanCampaign(rows)
			if scanErr != nil {
				return scanErr
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return out, nil
}

// SetStatus changes a campaign's status. Status is the only field that may change once
// jobs reference the campaign.
func (r *CampaignRepo) SetStatus(ctx context.Context, id string, status model.CampaignStatus) (*model.Campaign, error) {
	if !status.Valid() {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("invalid status: %q", status))
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, campaignNotFound(id)
	}

	var out *model.Campaign
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		out, scanErr = scanCampaign(conn.QueryRow(ctx, `
			UPDATE campaigns SET status = $2, updated_at = $3
			WHERE id = $1
			RETURNING `+campaignColumns,
			id, status, r.timeProvider.Now().UTC(),
		))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, campaignNotFound(id)
	}
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var (
		c        model.Campaign
		channels []string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Purpose, &channels, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.AllowedChannels = toChannels(channels)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func channelStrings(in []model.Channel) []string {
	out := make([]string, len(in))
	for i, ch := range in {
		out[i] = string(ch)
	}
	return out
}

func toChannels(in []string) []model.Channel {
	out := make([]model.Channel, 0, len(in))
	for _, s := range in {
		out = append(out, model.Channel(s))
	}
	return out
}
