package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/data/pgxutil"
	"github.com/target/mmk-outbound/internal/domain/model"
	apperrors "github.com/target/mmk-outbound/internal/errors"
)

// PreferencesRepo reads and seeds customer contact preferences.
type PreferencesRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewPreferencesRepo creates a new PreferencesRepo with real time provider.
func NewPreferencesRepo(db *sql.DB) *PreferencesRepo {
	return &PreferencesRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewPreferencesRepoWithTimeProvider creates a new PreferencesRepo with a custom time provider.
func NewPreferencesRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *PreferencesRepo {
	return &PreferencesRepo{DB: db, timeProvider: timeProviderOrReal(tp)}
}

var _ core.PreferencesRepository = (*PreferencesRepo)(nil)

// Get returns nil, nil when the customer has no preferences row.
func (r *PreferencesRepo) Get(ctx context.Context, customerID string) (*model.CommPreferences, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, nil
	}

	var out *model.CommPreferences
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var (
			p          model.CommPreferences
			channels   []string
			start, end pgtype.Int2
		)
		if err := conn.QueryRow(ctx, `
			SELECT customer_id, do_not_contact, allowed_channels, quiet_hours_start, quiet_hours_end, timezone, updated_at
			FROM comm_preferences
			WHERE customer_id = $1`, customerID,
		).Scan(&p.CustomerID, &p.DoNotContact, &channels, &start, &end, &p.Timezone, &p.UpdatedAt); err != nil {
			return err
		}
		p.AllowedChannels = toChannels(channels)
		p.QuietHoursStart = timeOfDayPtr(start)
		p.QuietHoursEnd = timeOfDayPtr(end)
		p.UpdatedAt = p.UpdatedAt.UTC()
		out = &p
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// Upsert writes prefs, replacing any existing row for the customer.
func (r *PreferencesRepo) Upsert(ctx context.Context, prefs *model.CommPreferences) error {
	if prefs == nil || strings.TrimSpace(prefs.CustomerID) == "" {
		return apperrors.ValidationField("customer_id", "customer_id is required")
	}
	for _, ch := range prefs.AllowedChannels {
		if !ch.Valid() {
			return apperrors.ValidationField("allowed_channels", fmt.Sprintf("invalid channel: %q", ch))
		}
	}
	for _, t := range []*model.TimeOfDay{prefs.QuietHoursStart, prefs.QuietHoursEnd} {
		if t != nil && !t.Valid() {
			return apperrors.ValidationField("quiet_hours", "quiet hours must fall within a day")
		}
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO comm_preferences (
			customer_id, do_not_contact, allowed_channels, quiet_hours_start, quiet_hours_end, timezone, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (customer_id) DO UPDATE
		SET do_not_contact = EXCLUDED.do_not_contact,
		    allowed_channels = EXCLUDED.allowed_channels,
		    quiet_hours_start = EXCLUDED.quiet_hours_start,
		    quiet_hours_end = EXCLUDED.quiet_hours_end,
		    timezone = EXCLUDED.timezone,
		    updated_at = EXCLUDED.updated_at
	`,
		strings.TrimSpace(prefs.CustomerID),
		prefs.DoNotContact,
		channelStrings(prefs.AllowedChannels),
		int2Param(prefs.QuietHoursStart),
		int2Param(prefs.QuietHoursEnd),
		prefs.Timezone,
		r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert preferences: %w", apperrors.MapDBError(err))
	}
	return nil
}

func timeOfDayPtr(v pgtype.Int2) *model.TimeOfDay {
	if !v.Valid {
		return nil
	}
	t := model.TimeOfDay(v.Int16)
	return &t
}

func int2Param(t *model.TimeOfDay) pgtype.Int2 {
	if t == nil {
		return pgtype.Int2{}
	}
	return pgtype.Int2{Int16: int16(*t), Valid: true}
}

// IdentityRepo resolves channel addresses to customers.
type IdentityRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewIdentityRepo creates a new IdentityRepo with real time provider.
func NewIdentityRepo(db *sql.DB) *IdentityRepo {
	return &IdentityRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewIdentityRepoWithTimeProvider creates a new IdentityRepo with a custom time provider.
func NewIdentityRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *IdentityRepo {
	return &IdentityRepo{DB: db, timeProvider: timeProviderOrReal(tp)}
}

var _ core.IdentityRepository = (*IdentityRepo)(nil)

// Lookup returns nil, nil when no link exists for (channel, address).
func (r *IdentityRepo) Lookup(ctx context.Context, channel model.Channel, address string) (*model.IdentityLink, error) {
	if !channel.Valid() || strings.TrimSpace(address) == "" {
		return nil, nil
	}

	var link model.IdentityLink
	err := r.DB.QueryRowContext(ctx, `
		SELECT channel, address, customer_id, verified, created_at
		FROM identity_links
		WHERE channel = $1 AND address = $2`, string(channel), address,
	).Scan(&link.Channel, &link.Address, &link.CustomerID, &link.Verified, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup identity: %w", apperrors.MapDBError(err))
	}
	link.CreatedAt = link.CreatedAt.UTC()
	return &link, nil
}

// Upsert writes link, replacing the customer and verified flag of an existing row.
func (r *IdentityRepo) Upsert(ctx context.Context, link *model.IdentityLink) error {
	if link == nil || !link.Channel.Valid() {
		return apperrors.ValidationField("channel", "a valid channel is required")
	}
	if strings.TrimSpace(link.Address) == "" || strings.TrimSpace(link.CustomerID) == "" {
		return apperrors.Validation("address and customer_id are required")
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO identity_links (channel, address, customer_id, verified, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (channel, address) DO UPDATE
		SET customer_id = EXCLUDED.customer_id,
		    verified = EXCLUDED.verified
	`, string(link.Channel), link.Address, link.CustomerID, link.Verified, r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert identity: %w", apperrors.MapDBError(err))
	}
	return nil
}
