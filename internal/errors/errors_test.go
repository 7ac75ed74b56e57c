package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrapAndInspect(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("claim due jobs: %w", Wrap(cause, ErrCodeInternal, "claim failed"))

	assert.Equal(t, ErrCodeInternal, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "claim due jobs: claim failed: connection reset", err.Error())
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "unused"))
	assert.Nil(t, WrapTemplate(nil, ErrCodeInternal, Messagef("unused")))

	tmpl := WrapTemplate(cause, ErrCodeConflict, Messagef("job %s lost its claim", "job-1"))
	assert.Equal(t, "job job-1 lost its claim: connection reset", tmpl.Error())
	assert.Equal(t, "conflict", tmpl.ErrorCode())
}

func TestAppError_Predicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFound("campaign not found")))
	assert.True(t, IsConflict(Conflict("claim lost")))
	assert.True(t, IsValidation(Validation("bad body")))
	assert.False(t, IsValidation(errors.New("plain")))
	assert.False(t, Is(errors.New("plain"), ""))

	err := ValidationField("campaign_id", "campaign is not active")
	assert.Equal(t, "campaign_id", GetField(fmt.Errorf("create: %w", err)))
	assert.Empty(t, GetField(errors.New("plain")))
}

func TestMapDBError_Sentinels(t *testing.T) {
	assert.NoError(t, MapDBError(nil))

	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"sql no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"pgx no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), ErrCodeNotFound},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{"unhandled pg error", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapDBError(tt.err)
			assert.Equal(t, tt.want, GetCode(mapped))
			assert.ErrorIs(t, mapped, tt.err)
		})
	}

	plain := errors.New("dial tcp: refused")
	assert.Same(t, plain, MapDBError(plain))
}

func TestMapDBError_ConstraintViolations(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantCode  ErrorCode
		wantField string
		wantMsg   string
	}{
		{
			name:      "campaign name taken",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "campaigns_name_key"},
			wantCode:  ErrCodeConflict,
			wantField: "name",
			wantMsg:   "A campaign with this name already exists.",
		},
		{
			name:      "duplicate attempt number",
			pgErr:     &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "outbound_attempts_job_attempt_key"},
			wantCode:  ErrCodeConflict,
			wantField: "attempt_number",
		},
		{
			name: "unique from detail",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: "Key (address)=(+15551234567) already exists.",
			},
			wantCode:  ErrCodeConflict,
			wantField: "address",
			wantMsg:   "This value already exists.",
		},
		{
			name: "multi column detail has no single field",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: "Key (channel, address)=(sms, +1555) already exists.",
			},
			wantCode: ErrCodeConflict,
		},
		{
			name: "missing campaign",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.ForeignKeyViolation,
				ConstraintName: "outbound_jobs_campaign_id_fkey",
			},
			wantCode:  ErrCodeForeignKey,
			wantField: "campaign_id",
		},
		{
			name: "unknown foreign key uses detail",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (job_id)=(x) is not present in table "outbound_jobs".`,
			},
			wantCode: ErrCodeForeignKey,
			wantMsg:  "The referenced outbound job does not exist.",
		},
		{
			name: "parent still referenced",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (id)=(x) is still referenced from table "outbound_jobs".`,
			},
			wantCode: ErrCodeForeignKey,
			wantMsg:  "This item is still in use by outbound job records.",
		},
		{
			name:      "check violation",
			pgErr:     &pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "max_attempts"},
			wantCode:  ErrCodeValidation,
			wantField: "max_attempts",
		},
		{
			name:      "queued schedule check",
			pgErr:     &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "outbound_jobs_queued_schedule_check"},
			wantCode:  ErrCodeValidation,
			wantField: "next_attempt_at",
		},
		{
			name:      "not null",
			pgErr:     &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "target_address"},
			wantCode:  ErrCodeValidation,
			wantField: "target_address",
			wantMsg:   "This field is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := MapDBError(fmt.Errorf("insert: %w", tt.pgErr))

			var appErr *AppError
			require.ErrorAs(t, mapped, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantField, appErr.Field)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
			assert.ErrorIs(t, mapped, tt.pgErr)
		})
	}
}
