package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/data/database"
	"github.com/target/mmk-outbound/internal/data/pgxutil"
	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/domain/outbound"
	apperrors "github.com/target/mmk-outbound/internal/errors"
)

// Advisory lock namespace for reaper operations on outbound jobs.
const (
	advisoryLockReaperMajor         = 2000
	advisoryLockReaperReleaseClaims = 1
	advisoryLockReaperDeleteJobs    = 2
)

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 1000
)

var outboundJobColumnList = []string{
	"id",
	"campaign_id",
	"customer_id",
	"target_address",
	"channel",
	"payload",
	"status",
	"outcome_code",
	"attempt_count",
	"max_attempts",
	"next_attempt_at",
	"last_error_code",
	"last_error_message",
	"cancel_reason_code",
	"cancel_reason_message",
	"claim_token",
	"claim_expires_at",
	"created_at",
	"updated_at",
}

var outboundJobColumns = strings.Join(outboundJobColumnList, ", ")

func qualifiedJobColumns(alias string) string {
	cols := make([]string, len(outboundJobColumnList))
	for i, c := range outboundJobColumnList {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// claimDueSQL claims due jobs in one statement. Rows locked by a concurrent claimer are
// skipped, so two runners never receive the same job. $1 selects due jobs, $4 is the
// wall clock that decides whether an earlier claim has expired.
var claimDueSQL = `
  WITH due AS (
    SELECT id FROM outbound_jobs
    WHERE status = 'queued'
      AND next_attempt_at <= $1
      AND (claim_expires_at IS NULL OR claim_expires_at <= $4)
    ORDER BY next_attempt_at ASC, created_at ASC, id ASC
    LIMIT $2
    FOR UPDATE SKIP LOCKED
  )
  UPDATE outbound_jobs j
  SET claim_token = gen_random_uuid(),
      claim_expires_at = $3
  FROM due
  WHERE j.id = due.id
  RETURNING ` + qualifiedJobColumns("j")

// OutboundJobRepo persists outbound jobs and owns the claim protocol.
type OutboundJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewOutboundJobRepo creates a new OutboundJobRepo with real time provider.
func NewOutboundJobRepo(db *sql.DB) *OutboundJobRepo {
	return &OutboundJobRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewOutboundJobRepoWithTimeProvider creates a new OutboundJobRepo with a custom time provider.
func NewOutboundJobRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *OutboundJobRepo {
	return &OutboundJobRepo{DB: db, timeProvider: timeProviderOrReal(tp)}
}

var _ core.OutboundJobRepository = (*OutboundJobRepo)(nil)

func jobNotFound(id string) error {
	return apperrors.WrapTemplate(ErrJobNotFound, apperrors.ErrCodeNotFound, apperrors.Messagef("outbound job %s not found", id))
}

func claimLost(id string) error {
	return apperrors.WrapTemplate(ErrClaimLost, apperrors.ErrCodeConflict, apperrors.Messagef("outbound job %s is no longer claimed", id))
}

// Create inserts a queued job. Zero MaxAttempts takes the channel default and a missing
// ScheduledAt makes the job due immediately.
func (r *OutboundJobRepo) Create(ctx context.Context, req *model.CreateOutboundJobRequest) (*model.OutboundJob, error) {
	if req == nil {
		return nil, errors.New("create outbound job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}

	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = outbound.DefaultMaxAttempts(req.Channel)
	}

	now := r.timeProvider.Now().UTC()
	nextAttemptAt := now
	if req.ScheduledAt != nil {
		nextAttemptAt = req.ScheduledAt.UTC()
	}

	var job *model.OutboundJob
	err = pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			row := tx.QueryRow(ctx, `
				INSERT INTO outbound_jobs (
					campaign_id, customer_id, target_address, channel, payload,
					status, attempt_count, max_attempts, next_attempt_at, created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, 'queued', 0, $6, $7, $8, $8)
				RETURNING `+outboundJobColumns,
				req.CampaignID,
				req.CustomerID,
				strings.TrimSpace(req.TargetAddress),
				req.Channel,
				payload,
				maxAttempts,
				nextAttemptAt,
				now,
			)
			var scanErr error
			job, scanErr = scanOutboundJob(row)
			return scanErr
		},
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// GetByID returns the job with id.
func (r *OutboundJobRepo) GetByID(ctx context.Context, id string) (*model.OutboundJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, jobNotFound(id)
	}

	var job *model.OutboundJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		job, scanErr = scanOutboundJob(conn.QueryRow(ctx,
			`SELECT `+outboundJobColumns+` FROM outbound_jobs WHERE id = $1`, id))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, jobNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get outbound job: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// ListByCampaign lists a campaign's jobs, newest first.
func (r *OutboundJobRepo) ListByCampaign(ctx context.Context, opts model.JobListOptions) ([]*model.OutboundJob, error) {
	if _, err := uuid.Parse(opts.CampaignID); err != nil {
		return nil, apperrors.ValidationField("campaign_id", "campaign_id must be a UUID")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	limit = min(limit, maxJobListLimit)

	queryOpts := []database.ListQueryOption{
		database.WithColumns(outboundJobColumnList...),
		database.WithCondition(database.WhereCond("campaign_id", database.Equal, opts.CampaignID)),
		database.WithOrderBy("DESC", "created_at", "id"),
		database.WithLimit(limit),
		database.WithOffset(max(opts.Offset, 0)),
	}
	if opts.Status != nil {
		if !opts.Status.Valid() {
			return nil, apperrors.ValidationField("status", fmt.Sprintf("invalid status: %q", *opts.Status))
		}
		queryOpts = append(queryOpts, database.WithCondition(database.WhereCond("status", database.Equal, string(*opts.Status))))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("outbound_jobs", queryOpts...))

	var out []*model.OutboundJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		out, err = collectOutboundJobs(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list outbound jobs: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// ClaimDue atomically claims up to Limit due jobs for TTL and returns them oldest first.
// It returns model.ErrNoDueJobs when nothing is due.
//
// Params.Now may move the due cutoff back in time but never past the repository clock.
// Claim expiry is always measured from the repository clock, so a backdated run cannot
// hand out claims that are already expired.
func (r *OutboundJobRepo) ClaimDue(ctx context.Context, params core.ClaimDueParams) ([]*model.OutboundJob, error) {
	if params.Limit <= 0 {
		return nil, errors.New("claim limit must be positive")
	}
	if params.TTL <= 0 {
		return nil, outbound.ErrInvalidClaimTTL
	}
	wall := r.timeProvider.Now().UTC()
	cutoff := wall
	if !params.Now.IsZero() && params.Now.Before(wall) {
		cutoff = params.Now.UTC()
	}
	expiresAt := wall.Add(params.TTL)

	var jobs []*model.OutboundJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, claimDueSQL, cutoff, params.Limit, expiresAt, wall)
			if err != nil {
				return fmt.Errorf("claim due jobs: %w", err)
			}
			jobs, err = collectOutboundJobs(rows)
			return err
		},
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	if len(jobs) == 0 {
		return nil, model.ErrNoDueJobs
	}

	// RETURNING carries no order.
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		if !a.NextAttemptAt.Equal(*b.NextAttemptAt) {
			return a.NextAttemptAt.Before(*b.NextAttemptAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return jobs, nil
}

// ApplyTransition writes t only while the job is still queued under t.ClaimToken, and
// clears the claim. A lost claim is reported as a conflict.
func (r *OutboundJobRepo) ApplyTransition(ctx context.Context, t *model.JobTransition) (*model.OutboundJob, error) {
	if t == nil {
		return nil, errors.New("job transition is required")
	}
	if err := t.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	if _, err := uuid.Parse(t.ClaimToken); err != nil {
		return nil, claimLost(t.JobID)
	}

	var nextAttemptAt *time.Time
	if t.NextAttemptAt != nil {
		v := t.NextAttemptAt.UTC()
		nextAttemptAt = &v
	}

	var job *model.OutboundJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		job, scanErr = scanOutboundJob(conn.QueryRow(ctx, `
			UPDATE outbound_jobs
			SET status = $3,
			    outcome_code = $4,
			    attempt_count = $5,
			    next_attempt_at = $6,
			    last_error_code = $7,
			    last_error_message = $8,
			    cancel_reason_code = $9,
			    cancel_reason_message = $10,
			    claim_token = NULL,
			    claim_expires_at = NULL,
			    updated_at = $11
			WHERE id = $1 AND status = 'queued' AND claim_token = $2
			RETURNING `+outboundJobColumns,
			t.JobID,
			t.ClaimToken,
			t.Status,
			t.OutcomeCode,
			t.AttemptCount,
			nextAttemptAt,
			t.LastErrorCode,
			t.LastErrorMessage,
			t.CancelReasonCode,
			t.CancelReasonMessage,
			r.timeProvider.Now().UTC(),
		))
		return scanErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, claimLost(t.JobID)
	}
	if err != nil {
		return nil, fmt.Errorf("apply transition: %w", apperrors.MapDBError(err))
	}
	return job, nil
}

// SetCustomerID records the resolved customer on a claimed job. An existing customer id
// is never overwritten.
func (r *OutboundJobRepo) SetCustomerID(ctx context.Context, params core.SetCustomerIDParams) error {
	if strings.TrimSpace(params.CustomerID) == "" {
		return apperrors.ValidationField("customer_id", "customer_id is required")
	}
	if _, err := uuid.Parse(params.ClaimToken); err != nil {
		return claimLost(params.JobID)
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE outbound_jobs
		SET customer_id = COALESCE(customer_id, $3),
		    updated_at = $4
		WHERE id = $1 AND status = 'queued' AND claim_token = $2
	`, params.JobID, params.ClaimToken, params.CustomerID, r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("set customer id: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return claimLost(params.JobID)
	}
	return nil
}

// ReleaseClaim drops a claim without changing the job, making it due again immediately.
func (r *OutboundJobRepo) ReleaseClaim(ctx context.Context, jobID, claimToken string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil
	}
	if _, err := uuid.Parse(claimToken); err != nil {
		return nil
	}
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE outbound_jobs
		SET claim_token = NULL, claim_expires_at = NULL
		WHERE id = $1 AND claim_token = $2
	`, jobID, claimToken); err != nil {
		return fmt.Errorf("release claim: %w", apperrors.MapDBError(err))
	}
	return nil
}

// MarkVerified moves an awaiting_verification job back to queued with a verified payload,
// due immediately. The attempts spent on verification prompts do not count against the
// real content: the budget is extended by the attempts already used.
func (r *OutboundJobRepo) MarkVerified(ctx context.Context, id string) (*model.OutboundJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, jobNotFound(id)
	}

	now := r.timeProvider.Now().UTC()
	var job *model.OutboundJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		job, scanErr = scanOutboundJob(conn.QueryRow(ctx, `
			UPDATE outbound_jobs
			SET status = 'queued',
			    outcome_code = NULL,
			    max_attempts = max_attempts + attempt_count,
			    payload = jsonb_set(payload, '{verification_state}', to_jsonb($3::text), true),
			    next_attempt_at = $2,
			    updated_at = $2
			WHERE id = $1 AND status = 'awaiting_verification'
			RETURNING `+outboundJobColumns,
			id, now, string(model.VerificationVerified),
		))
		return scanErr
	})
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("mark verified: %w", apperrors.MapDBError(err))
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, apperrors.WrapTemplate(ErrJobNotVerifiable, apperrors.ErrCodeConflict,
		apperrors.Messagef("outbound job %s is %s, not awaiting verification", id, current.Status))
}

// ReleaseExpiredClaims clears up to batchSize expired claims. Concurrent reapers skip
// the pass instead of contending.
func (r *OutboundJobRepo) ReleaseExpiredClaims(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	n, err := pgxutil.ExecLocked(ctx, r.DB,
		pgxutil.AdvisoryLockKey{Major: advisoryLockReaperMajor, Minor: advisoryLockReaperReleaseClaims}, `
		UPDATE outbound_jobs
		SET claim_token = NULL, claim_expires_at = NULL
		WHERE id IN (
			SELECT id FROM outbound_jobs
			WHERE claim_expires_at IS NOT NULL
			  AND claim_expires_at < $1
			ORDER BY claim_expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
	`, r.timeProvider.Now().UTC(), batchSize)
	if err != nil {
		return 0, fmt.Errorf("release expired claims: %w", err)
	}
	return n, nil
}

// DeleteTerminalBefore deletes up to BatchSize sent, failed or cancelled jobs last updated
// more than MaxAge ago. Attempts go with them through the foreign key cascade.
func (r *OutboundJobRepo) DeleteTerminalBefore(ctx context.Context, params core.DeleteTerminalJobsParams) (int64, error) {
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if params.MaxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()
	n, err := pgxutil.ExecLocked(ctx, r.DB,
		pgxutil.AdvisoryLockKey{Major: advisoryLockReaperMajor, Minor: advisoryLockReaperDeleteJobs}, `
		DELETE FROM outbound_jobs
		WHERE id IN (
			SELECT id FROM outbound_jobs
			WHERE status IN ('sent', 'failed', 'cancelled')
			  AND updated_at < $1
			ORDER BY updated_at
			LIMIT $2
		)
	`, cutoff, params.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("delete terminal jobs: %w", err)
	}
	return n, nil
}

func collectOutboundJobs(rows pgx.Rows) ([]*model.OutboundJob, error) {
	defer rows.Close()
	var out []*model.OutboundJob
	for rows.Next() {
		job, err := scanOutboundJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanOutboundJob(row pgx.Row) (*model.OutboundJob, error) {
	var (
		job     model.OutboundJob
		payload []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.CampaignID,
		&job.CustomerID,
		&job.TargetAddress,
		&job.Channel,
		&payload,
		&job.Status,
		&job.OutcomeCode,
		&job.AttemptCount,
		&job.MaxAttempts,
		&job.NextAttemptAt,
		&job.LastErrorCode,
		&job.LastErrorMessage,
		&job.CancelReasonCode,
		&job.CancelReasonMessage,
		&job.ClaimToken,
		&job.ClaimExpiresAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for job %s: %w", job.ID, err)
		}
	}
	if job.Payload.VerificationState == "" {
		job.Payload.VerificationState = model.VerificationUnset
	}

	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	job.NextAttemptAt = utcPtr(job.NextAttemptAt)
	job.ClaimExpiresAt = utcPtr(job.ClaimExpiresAt)
	return &job, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
