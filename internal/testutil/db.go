// Package testutil provides Postgres and Redis fixtures and request builders
// for the outbound integration tests. Fixtures skip the test when the backing
// service is unreachable unless TEST_REQUIRE_INFRA (or the per-service flag) is set.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/target/mmk-outbound/internal/migrate"
)

// TestingTB is the subset of testing.TB the fixtures need.
type TestingTB interface {
	Helper()
	Skip(args ...any)
	Skipf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
}

// requireFlags decide whether a missing service skips or fails the test.
type requireFlags struct {
	Infra bool `env:"TEST_REQUIRE_INFRA"`
	DB    bool `env:"TEST_REQUIRE_DB"`
	Redis bool `env:"TEST_REQUIRE_REDIS"`
}

func loadRequireFlags() requireFlags {
	var f requireFlags
	_ = env.Parse(&f) // malformed flags fall back to skipping
	return f
}

// TestDBConfig locates the integration database. Port 55432 matches the local
// compose test profile; CI sets TEST_DB_PORT=5432.
type TestDBConfig struct {
	Host     string `env:"TEST_DB_HOST"     envDefault:"localhost"`
	Port     string `env:"TEST_DB_PORT"     envDefault:"55432"`
	User     string `env:"TEST_DB_USER"     envDefault:"outbound"`
	Password string `env:"TEST_DB_PASSWORD" envDefault:"outbound"`
	DBName   string `env:"TEST_DB_NAME"     envDefault:"outbound"`
	SSLMode  string `env:"DB_SSL_MODE"      envDefault:"disable"`
}

// DefaultTestDBConfig reads TestDBConfig from the environment.
func DefaultTestDBConfig() TestDBConfig {
	var cfg TestDBConfig
	if err := env.Parse(&cfg); err != nil {
		return TestDBConfig{Host: "localhost", Port: "55432", User: "outbound", Password: "outbound", DBName: "outbound", SSLMode: "disable"}
	}
	return cfg
}

// DSN renders the config as a pgx connection URL, optionally pinned to schema.
func (c TestDBConfig) DSN(schema string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	if schema != "" {
		q.Set("search_path", schema+",public")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// SkipIfNoTestDB skips (or fails, when required) if the database cannot be pinged.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()
	db, err := openAndPing(DefaultTestDBConfig().DSN(""), 2*time.Second)
	if err != nil {
		if f := loadRequireFlags(); f.DB || f.Infra {
			t.Fatal("test database not available:", err)
		}
		t.Skip("test database not available:", err)
	}
	closeAndLog(t, "probe DB", db)
}

// WithAutoDB runs fn against a freshly migrated schema that is dropped when the test ends.
// Every test gets its own schema so claim and retention tests never observe each other's rows.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	fn(SetupEphemeralSchemaDB(t))
}

// SetupEphemeralSchemaDB creates a unique schema, points search_path at it and runs migrations.
func SetupEphemeralSchemaDB(t TestingTB) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	cfg := DefaultTestDBConfig()
	admin, err := openAndPing(cfg.DSN(""), 5*time.Second)
	if err != nil {
		t.Fatal("open admin DB:", err)
	}

	schema := schemaName()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatalf("create schema %s: %v", schema, err)
	}

	db, err := openAndPing(cfg.DSN(schema), 10*time.Second)
	if err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatal("open schema DB:", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	t.Logf("using ephemeral schema %s", schema)
	t.Cleanup(func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		closeAndLog(t, "schema DB", db)
		if _, err := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: drop schema %s: %v", schema, err)
		}
		closeAndLog(t, "admin DB", admin)
	})

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer migrateCancel()
	if err := migrate.Run(migrateCtx, db); err != nil {
		t.Fatal("run migrations in ephemeral schema:", err)
	}
	return db
}

func openAndPing(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func schemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(b)
}

func closeAndLog(t TestingTB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("warning: close %s: %v", name, err)
	}
}

// JobStateInfo is a compact view of an outbound_jobs row.
type JobStateInfo struct {
	ID            string
	Status        string
	OutcomeCode   *string
	AttemptCount  int
	MaxAttempts   int
	LastErrorCode *string
	Claimed       bool
}

// InspectJobStates lists every outbound job in creation order.
func InspectJobStates(t TestingTB, db *sql.DB) []JobStateInfo {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, status, outcome_code, attempt_count, max_attempts, last_error_code, claim_token IS NOT NULL
		FROM outbound_jobs
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		t.Fatalf("query job states: %v", err)
	}
	defer func() { closeAndLog(t, "job state rows", rows) }()

	var jobs []JobStateInfo
	for rows.Next() {
		var j JobStateInfo
		if err := rows.Scan(&j.ID, &j.Status, &j.OutcomeCode, &j.AttemptCount, &j.MaxAttempts, &j.LastErrorCode, &j.Claimed); err != nil {
			t.Fatalf("scan job state: %v", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate job states: %v", err)
	}
	return jobs
}

// RunConcurrent runs fns concurrently and returns their errors in argument order.
func RunConcurrent(fns ...func() error) []error {
	errs := make([]error, len(fns))
	done := make(chan struct{}, len(fns))
	for i, fn := range fns {
		go func() {
			errs[i] = fn()
			done <- struct{}{}
		}()
	}
	for range fns {
		<-done
	}
	return errs
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time { return &t }
