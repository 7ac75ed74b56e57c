package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/mmk-outbound/internal/bootstrap"
	"github.com/target/mmk-outbound/internal/data"
	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/service"
)

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultAuditLimit       = 50
	maxAuditLimit           = 1000
)

type migrateOptions struct {
	Timeout time.Duration
}

type auditOptions struct {
	Filter model.AuditListOptions
	JSON   bool
}

type reapOptions struct {
	Timeout time.Duration
	JSON    bool
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func runAudit(cmdCtx *commandContext, args []string) error {
	opts, err := parseAuditFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		entries, listErr := data.NewAuditRepo(db).List(ctx, opts.Filter)
		if listErr != nil {
			return fmt.Errorf("list audit entries: %w", listErr)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, entries)
		}
		return printAuditEntries(cmdCtx.Out, entries)
	})
}

func runReap(cmdCtx *commandContext, args []string) error {
	opts, err := parseReapFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		runner, runnerErr := bootstrap.NewReaperRunner(bootstrap.ReaperConfig{
			DB:     db,
			Logger: cmdCtx.Logger,
			Config: cmdCtx.Config.Reaper,
		})
		if runnerErr != nil {
			return runnerErr
		}
		res, runErr := runner.RunOnce(ctx)
		if runErr != nil {
			return fmt.Errorf("reap: %w", runErr)
		}
		if opts.JSON {
			return printJSON(cmdCtx.Out, res)
		}
		return printCleanupResult(cmdCtx.Out, res)
	})
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{
		Timeout: defaultMigrationTimeout,
	}

	fs.DurationVar(
		&opts.Timeout,
		"timeout",
		defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete",
	)

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}

	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseAuditFlags(args []string) (auditOptions, error) {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts  auditOptions
		since string
	)
	f := &opts.Filter
	fs.StringVar(&f.JobID, "job", "", "Filter by job ID")
	fs.StringVar(&f.CampaignID, "campaign", "", "Filter by campaign ID")
	fs.StringVar(&f.CustomerID, "customer", "", "Filter by customer ID")
	fs.StringVar(&f.EventType, "event", "", "Filter by event type, e.g. outbound_job_sent")
	fs.StringVar(&since, "since", "", "Only entries at or after this RFC3339 time")
	fs.IntVar(&f.Limit, "limit", defaultAuditLimit, "Maximum entries to print")
	fs.IntVar(&f.Offset, "offset", 0, "Entries to skip")
	fs.BoolVar(&opts.JSON, "json", false, "Print entries as JSON")

	if err := fs.Parse(args); err != nil {
		return auditOptions{}, err
	}
	if f.Limit <= 0 || f.Limit > maxAuditLimit {
		return auditOptions{}, fmt.Errorf("--limit must be between 1 and %d", maxAuditLimit)
	}
	if f.Offset < 0 {
		return auditOptions{}, errors.New("--offset must not be negative")
	}
	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return auditOptions{}, fmt.Errorf("--since: %w", err)
		}
		f.Since = &t
	}
	f.JobID = strings.TrimSpace(f.JobID)
	f.CampaignID = strings.TrimSpace(f.CampaignID)
	f.CustomerID = strings.TrimSpace(f.CustomerID)
	f.EventType = strings.TrimSpace(f.EventType)
	return opts, nil
}

func parseReapFlags(args []string) (reapOptions, error) {
	fs := flag.NewFlagSet("reap", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := reapOptions{Timeout: defaultMigrationTimeout}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Maximum duration of the cleanup pass")
	fs.BoolVar(&opts.JSON, "json", false, "Print the cleanup result as JSON")

	if err := fs.Parse(args); err != nil {
		return reapOptions{}, err
	}
	if opts.Timeout <= 0 {
		return reapOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func printAuditEntries(w io.Writer, entries []*model.AuditLogEntry) error {
	if len(entries) == 0 {
		return writef(w, "No audit entries found.\n")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "AT\tACTOR\tEVENT\tOK\tJOB\tERROR"); err != nil {
		return err
	}
	for _, e := range entries {
		ok := "yes"
		if !e.Success {
			ok = "no"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.ActorType,
			e.EventType,
			ok,
			deref(e.JobID),
			joinNonEmpty(deref(e.ErrorCode), deref(e.ErrorMessage)),
		); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printCleanupResult(w io.Writer, res service.CleanupResult) error {
	return writef(w, "Released claims: %d\nDeleted jobs: %d\nElapsed: %s\n",
		res.ReleasedClaims, res.DeletedJobs, res.Elapsed.Round(time.Millisecond))
}
