package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// "Key (name)=(x) already exists."
	reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)
	// "... is not present in table "campaigns"."
	reNotPresent = regexp.MustCompile(`is not present in table "?([^"]+)"?`)
	// "... is still referenced from table "outbound_jobs"."
	reReferencedFrom = regexp.MustCompile(`is still referenced from table "?([^"]+)"?`)
)

type constraintInfo struct {
	field   string
	message string
}

// knownConstraints covers the named constraints of the outbound schema.
var knownConstraints = map[string]constraintInfo{
	"campaigns_name_key":                  {"name", "A campaign with this name already exists."},
	"outbound_attempts_job_attempt_key":   {"attempt_number", "This attempt number is already recorded for the job."},
	"outbound_jobs_campaign_id_fkey":      {"campaign_id", "The referenced campaign does not exist or still has jobs."},
	"outbound_attempts_job_id_fkey":       {"job_id", "The referenced outbound job does not exist."},
	"outbound_jobs_queued_schedule_check": {"next_attempt_at", "Queued jobs must carry a next attempt time."},
}

var tableNames = map[string]string{
	"campaigns":         "campaign",
	"outbound_jobs":     "outbound job",
	"outbound_attempts": "outbound attempt",
	"comm_preferences":  "communication preferences",
	"identity_links":    "identity link",
	"audit_log_entries": "audit entry",
}

// MapDBError translates driver errors into AppErrors:
//   - no rows → not_found
//   - unique violation → conflict
//   - foreign key violation → foreign_key
//   - check and NOT NULL violations → validation
//   - context deadline or cancellation → timeout / canceled
//
// Other errors are returned unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return newError(ErrCodeTimeout, "", "Database operation timed out.", err)
	case errors.Is(err, context.Canceled):
		return newError(ErrCodeCanceled, "", "Database operation was canceled.", err)
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return newError(ErrCodeNotFound, "", "Resource not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		field, msg := describe(pgErr, "This value already exists.")
		return newError(ErrCodeConflict, field, msg, pgErr)
	case pgerrcode.ForeignKeyViolation:
		field, msg := describe(pgErr, foreignKeyMessage(pgErr))
		return newError(ErrCodeForeignKey, field, msg, pgErr)
	case pgerrcode.CheckViolation:
		field, msg := describe(pgErr, "This field has an invalid value.")
		return newError(ErrCodeValidation, field, msg, pgErr)
	case pgerrcode.NotNullViolation:
		return newError(ErrCodeValidation, pgErr.ColumnName, "This field is required.", pgErr)
	}
	return newError(ErrCodeInternal, "", "A database error occurred.", pgErr)
}

// describe resolves the field and message for a constraint violation,
// preferring the schema's named constraints over driver metadata.
func describe(pgErr *pgconn.PgError, fallback string) (string, string) {
	if info, ok := knownConstraints[pgErr.ConstraintName]; ok {
		return info.field, info.message
	}
	field := pgErr.ColumnName
	if field == "" {
		if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 && !strings.Contains(m[1], ",") {
			field = m[1]
		}
	}
	return field, fallback
}

func foreignKeyMessage(pgErr *pgconn.PgError) string {
	if m := reNotPresent.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "The referenced " + tableLabel(m[1]) + " does not exist."
	}
	if m := reReferencedFrom.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
		return "This item is still in use by " + tableLabel(m[1]) + " records."
	}
	return "This operation references a missing or in-use item."
}

func tableLabel(table string) string {
	table = strings.ToLower(strings.TrimSpace(table))
	if label, ok := tableNames[table]; ok {
		return label
	}
	return strings.ReplaceAll(table, "_", " ")
}
