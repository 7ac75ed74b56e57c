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

const attemptColumns = `id, job_id, attempt_number, provider, provider_message_id, status, outcome_code, error_code, error_message, created_at`

// AttemptRepo appends delivery attempts. Rows are never updated.
type AttemptRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAttemptRepo creates a new AttemptRepo with real time provider.
func NewAttemptRepo(db *sql.DB) *AttemptRepo {
	return &AttemptRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewAttemptRepoWithTimeProvider creates a new AttemptRepo with a custom time provider.
func NewAttemptRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *AttemptRepo {
	return &AttemptRepo{DB: db, timeProvider: timeProviderOrReal(tp)}
}

var _ core.AttemptRepository = (*AttemptRepo)(nil)

// Create appends an attempt. A duplicate (job_id, attempt_number) is a conflict.
func (r *AttemptRepo) Create(ctx context.Context, req *model.CreateAttemptRequest) (*model.OutboundAttempt, error) {
	if req == nil {
		return nil, errors.New("create attempt request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	var out *model.OutboundAttempt
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		out, scanErr = scanAttempt(conn.QueryRow(ctx, `
			INSERT INTO outbound_attempts (
				job_id, attempt_number, provider, provider_message_id, status,
				outcome_code, error_code, error_message, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+attemptColumns,
			req.JobID,
			req.AttemptNumber,
			req.Provider,
			req.ProviderMessageID,
			req.Status,
			req.OutcomeCode,
			req.ErrorCode,
			req.ErrorMessage,
			r.timeProvider.Now().UTC(),
		))
		return scanErr
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return out, nil
}

// ListByJob returns a job's attempts in attempt order.
func (r *AttemptRepo) ListByJob(ctx context.Context, jobID string) ([]*model.OutboundAttempt, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, jobNotFound(jobID)
	}

	var out []*model.OutboundAttempt
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+attemptColumns+`
			FROM outbound_attempts
			WHERE job_id = $1
			ORDER BY attempt_number ASC`, jobID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			a, scanErr := scanAttempt(rows)
			if scanErr != nil {
				return scanErr
			}
			out = append(out, a)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

func scanAttempt(row pgx.Row) (*model.OutboundAttempt, error) {
	var a model.OutboundAttempt
	if err := row.Scan(
		&a.ID,
		&a.JobID,
		&a.AttemptNumber,
		&a.Provider,
		&a.ProviderMessageID,
		&a.Status,
		&a.OutcomeCode,
		&a.ErrorCode,
		&a.ErrorMessage,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}
