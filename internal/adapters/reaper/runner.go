// Package reaper hosts the outbound maintenance loop for the service binary
// and the admin CLI.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/data"
	"github.com/target/mmk-outbound/internal/observability/statsd"
	"github.com/target/mmk-outbound/internal/service"
)

// RunnerOptions configures a Runner. Either DB or Repo must be set; Repo wins.
type RunnerOptions struct {
	DB      *sql.DB
	Repo    core.ReaperRepository
	Config  config.ReaperConfig
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Runner drives a ReaperService against the outbound job store.
type Runner struct {
	svc    *service.ReaperService
	logger *slog.Logger
}

// NewRunner builds the reaper service over Repo, or over the Postgres job
// repository when only DB is given.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	repo := opts.Repo
	if repo == nil {
		if opts.DB == nil {
			return nil, errors.New("reaper runner: a database or repository is required")
		}
		repo = data.NewOutboundJobRepo(opts.DB)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo:    repo,
		Config:  opts.Config,
		Logger:  logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Runner{svc: svc, logger: logger}, nil
}

// Run blocks until ctx ends.
func (r *Runner) Run(ctx context.Context) error {
	err := r.svc.Run(ctx)
	r.logger.InfoContext(ctx, "reaper runner exited", "error", err)
	return err
}

// RunOnce performs a single cleanup pass for operator-triggered runs.
func (r *Runner) RunOnce(ctx context.Context) (service.CleanupResult, error) {
	return r.svc.RunOnce(ctx)
}
