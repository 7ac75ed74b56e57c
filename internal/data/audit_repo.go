package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/data/database"
	"github.com/target/mmk-outbound/internal/data/pgxutil"
	"github.com/target/mmk-outbound/internal/domain/model"
	apperrors "github.com/target/mmk-outbound/internal/errors"
)

const (
	defaultAuditListLimit = 100
	maxAuditListLimit     = 1000
)

var auditColumnList = []string{
	"id",
	"actor_type",
	"event_type",
	"version",
	"input",
	"output",
	"success",
	"error_code",
	"error_message",
	"job_id",
	"campaign_id",
	"customer_id",
	"created_at",
}

// AuditRepo stores audit entries. There is no update or delete path.
type AuditRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAuditRepo creates a new AuditRepo with real time provider.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewAuditRepoWithTimeProvider creates a new AuditRepo with a custom time provider.
func NewAuditRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AuditRepo {
	return &AuditRepo{DB: db, timeProvider: timeProviderOrReal(tp)}
}

var _ core.AuditRepository = (*AuditRepo)(nil)

// Create appends entry and fills its ID and CreatedAt. Input and output must already be redacted.
func (r *AuditRepo) Create(ctx context.Context, entry *model.AuditLogEntry) error {
	if entry == nil {
		return errors.New("audit entry is required")
	}
	if !entry.ActorType.Valid() {
		return apperrors.ValidationField("actor_type", fmt.Sprintf("invalid actor type: %q", entry.ActorType))
	}
	if entry.EventType == "" {
		return apperrors.ValidationField("event_type", "event_type is required")
	}

	input := entry.Input
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	var output any
	if len(entry.Output) > 0 {
		output = []byte(entry.Output)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.timeProvider.Now()
	}

	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO audit_log_entries (
			actor_type, event_type, version, input, output, success,
			error_code, error_message, job_id, campaign_id, customer_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		string(entry.ActorType),
		entry.EventType,
		entry.Version,
		[]byte(input),
		output,
		entry.Success,
		entry.ErrorCode,
		entry.ErrorMessage,
		entry.JobID,
		entry.CampaignID,
		entry.CustomerID,
		createdAt.UTC(),
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", apperrors.MapDBError(err))
	}
	entry.CreatedAt = createdAt.UTC()
	return nil
}

// List returns entries matching opts in chronological order.
func (r *AuditRepo) List(ctx context.Context, opts model.AuditListOptions) ([]*model.AuditLogEntry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultAuditListLimit
	}
	limit = min(limit, maxAuditListLimit)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(auditColumnList...),
		database.WithOrderBy("ASC", "created_at", "id"),
		database.WithLimit(limit),
		database.WithOffset(max(opts.Offset, 0)),
	}
	filters := []struct{ field, value string }{
		{"job_id", opts.JobID},
		{"campaign_id", opts.CampaignID},
		{"customer_id", opts.CustomerID},
		{"event_type", opts.EventType},
	}
	for _, f := range filters {
		if f.value != "" {
			queryOpts = append(queryOpts, database.WithCondition(database.WhereCond(f.field, database.Equal, f.value)))
		}
	}
	if opts.Since != nil {
		queryOpts = append(queryOpts, database.WithCondition(database.WhereCond("created_at", database.GreaterThanOrEqual, opts.Since.UTC())))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("audit_log_entries", queryOpts...))

	var out []*model.AuditLogEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				e             model.AuditLogEntry
				input, output []byte
			)
			if scanErr := rows.Scan(
				&e.ID, &e.ActorType, &e.EventType, &e.Version, &input, &output, &e.Success,
				&e.ErrorCode, &e.ErrorMessage, &e.JobID, &e.CampaignID, &e.CustomerID, &e.CreatedAt,
			); scanErr != nil {
				return scanErr
			}
			e.Input = json.RawMessage(input)
			if len(output) > 0 {
				e.Output = json.RawMessage(output)
			}
			e.CreatedAt = e.CreatedAt.UTC()
			out = append(out, &e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", apperrors.MapDBError(err))
	}
	return out, nil
}
