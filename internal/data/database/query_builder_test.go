package database

import (
	"reflect"
	"testing"
	"time"
)

func TestBuildListQuery_BasicSelect(t *testing.T) {
	query, args := BuildListQuery(NewListQueryOptions("campaigns"))

	expected := `SELECT * FROM "campaigns"`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestBuildListQuery_WithQualifiedColumns(t *testing.T) {
	opts := NewListQueryOptions("outbound_jobs",
		WithColumns("outbound_jobs.id", "status"),
	)
	query, _ := BuildListQuery(opts)

	expected := `SELECT "outbound_jobs"."id", "status" FROM "outbound_jobs"`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
}

func TestBuildListQuery_CountOnlyIgnoresPaging(t *testing.T) {
	opts := NewListQueryOptions("outbound_jobs",
		WithCountOnly(),
		WithCondition(WhereCond("status", Equal, "queued")),
		WithOrderBy("DESC", "created_at"),
		WithLimit(10),
	)
	query, args := BuildListQuery(opts)

	expected := `SELECT COUNT(*) FROM "outbound_jobs" WHERE "status" = $1`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 1 || args[0] != "queued" {
		t.Errorf("Expected args [queued], got %v", args)
	}
}

func TestBuildListQuery_ConditionsOrderAndPaging(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	opts := NewListQueryOptions("audit_log_entries",
		WithColumns("id", "event_type"),
		WithCondition(WhereCond("job_id", Equal, "job-1")),
		WithCondition(WhereCond("created_at", GreaterThanOrEqual, since)),
		WithOrderBy("asc", "created_at", "id"),
		WithLimit(50),
		WithOffset(0),
	)
	query, args := BuildListQuery(opts)

	expected := `SELECT "id", "event_type" FROM "audit_log_entries" WHERE "job_id" = $1 AND "created_at" >= $2` +
		` ORDER BY "created_at" ASC, "id" ASC LIMIT $3 OFFSET $4`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	want := []any{"job-1", since, 50, 0}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("Expected args %v, got %v", want, args)
	}
}

func TestBuildListQuery_InUsesAny(t *testing.T) {
	opts := NewListQueryOptions("outbound_jobs",
		WithCondition(WhereCond("status", In, []string{"sent", "failed"})),
	)
	query, args := BuildListQuery(opts)

	expected := `SELECT * FROM "outbound_jobs" WHERE "status" = ANY($1)`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if len(args) != 1 {
		t.Fatalf("Expected 1 arg, got %d", len(args))
	}
}

func TestBuildListQuery_RawCondition(t *testing.T) {
	opts := NewListQueryOptions("outbound_jobs",
		WithCondition(WhereCond("campaign_id", Equal, "c1")),
		WithCondition(WhereRawCond("next_attempt_at <= ? OR claim_expires_at <= ?", "a", "b")),
		WithLimit(5),
	)
	query, args := BuildListQuery(opts)

	expected := `SELECT * FROM "outbound_jobs" WHERE "campaign_id" = $1 AND (next_attempt_at <= $2 OR claim_expires_at <= $3) LIMIT $4`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
	if !reflect.DeepEqual(args, []any{"c1", "a", "b", 5}) {
		t.Errorf("unexpected args %v", args)
	}
}

func TestBuildListQuery_EmptyRawConditionSkipped(t *testing.T) {
	opts := NewListQueryOptions("campaigns", WithCondition(WhereRawCond("   ")))
	query, args := BuildListQuery(opts)

	if query != `SELECT * FROM "campaigns"` {
		t.Errorf("unexpected query %q", query)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %v", args)
	}
}

func TestBuildListQuery_DefaultDirectionIsDesc(t *testing.T) {
	opts := NewListQueryOptions("campaigns", WithOrderBy("sideways", "created_at"))
	query, _ := BuildListQuery(opts)

	if query != `SELECT * FROM "campaigns" ORDER BY "created_at" DESC` {
		t.Errorf("unexpected query %q", query)
	}
}

func TestBuildListQuery_IdentifiersAreQuoted(t *testing.T) {
	opts := NewListQueryOptions(`campaigns"; DROP TABLE x; --`)
	query, _ := BuildListQuery(opts)

	expected := `SELECT * FROM "campaigns""; DROP TABLE x; --"`
	if query != expected {
		t.Errorf("Expected query %q, got %q", expected, query)
	}
}

func TestWhereCond_CustomPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for Custom condition type")
		}
	}()
	WhereCond("x", Custom, nil)
}
