// Package migrate applies the embedded schema migrations. Each version runs
// in its own transaction under a shared advisory lock, so replicas that boot
// together apply every version exactly once.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/target/mmk-outbound/internal/data/pgxutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// lockID is the advisory lock key held while a version is checked and applied.
const lockID int64 = 0x6d6d6b5f6f7574 // "mmk_out"

const createVersionTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Result lists the versions a run applied and the ones already present.
type Result struct {
	Applied []string
	Skipped []string
}

// Run applies pending migrations. It is safe to call repeatedly.
func Run(ctx context.Context, db *sql.DB) error {
	_, err := RunWithResult(ctx, db)
	return err
}

// RunWithResult is Run, reporting what it did.
func RunWithResult(ctx context.Context, db *sql.DB) (Result, error) {
	var res Result
	files, err := Versions()
	if err != nil {
		return res, err
	}
	logger := slog.Default().With("component", "migrations")

	for _, file := range files {
		version := strings.TrimSuffix(file, ".sql")
		applied, err := apply(ctx, db, file, version, logger)
		if err != nil {
			return res, err
		}
		if applied {
			res.Applied = append(res.Applied, version)
		} else {
			res.Skipped = append(res.Skipped, version)
		}
	}
	return res, nil
}

// Versions returns the embedded migration file names in apply order.
func Versions() ([]string, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	for i, n := range names {
		names[i] = path.Base(n)
	}
	slices.Sort(names)
	return names, nil
}

func apply(ctx context.Context, db *sql.DB, file, version string, logger *slog.Logger) (bool, error) {
	body, err := migrationsFS.ReadFile(path.Join("migrations", file))
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", file, err)
	}

	var applied bool
	err = pgxutil.WithSQLTx(ctx, db, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockID); err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, createVersionTable); err != nil {
			return fmt.Errorf("create schema_migrations table: %w", err)
		}

		var present bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
		).Scan(&present); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if present {
			return nil
		}

		logger.InfoContext(ctx, "applying migration", "version", version)
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		applied = true
		return nil
	}})
	return applied, err
}
