package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/observability/metrics"
	"github.com/target/mmk-outbound/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required
	Config  config.ReaperConfig
	Logger  *slog.Logger // Optional
	Metrics statsd.Sink  // Optional
}

// ReaperService clears expired claims and deletes terminal jobs past the
// retention window. Audit entries are never touched.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
}

// CleanupResult reports the rows touched by one cleanup pass.
type CleanupResult struct {
	ReleasedClaims int64         `json:"released_claims"`
	DeletedJobs    int64         `json:"deleted_jobs"`
	Elapsed        time.Duration `json:"elapsed"`
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger.With("component", "reaper_service"),
		metrics: opts.Metrics,
	}, nil
}

// Run cleans up once after a short random delay and then on every interval
// tick until ctx ends. Cancellation returns nil; a deadline returns ctx.Err().
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting reaper service",
		"interval", s.config.Interval,
		"terminal_max_age", s.config.TerminalMaxAge,
		"batch_size", s.config.BatchSize,
	)

	if d := s.startDelay(); d > 0 {
		select {
		case <-ctx.Done():
			return stopReason(ctx)
		case <-time.After(d):
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logPassError(ctx, err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			return stopReason(ctx)
		case <-ticker.C:
		}
	}
}

// startDelay spreads replicas that boot together across the first tenth of the interval.
func (s *ReaperService) startDelay() time.Duration {
	spread := s.config.Interval / 10
	if spread <= 0 {
		return 0
	}
	return rand.N(spread)
}

func stopReason(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// RunOnce performs a single cleanup pass. A failing step does not stop the
// next one; when every failure is a context cancellation the pass reports
// context.Canceled.
func (s *ReaperService) RunOnce(ctx context.Context) (CleanupResult, error) {
	start := time.Now()

	released, releaseErr := s.releaseExpiredClaims(ctx)
	deleted, deleteErr := s.deleteTerminalJobs(ctx)

	res := CleanupResult{
		ReleasedClaims: released,
		DeletedJobs:    deleted,
		Elapsed:        time.Since(start),
	}
	metrics.EmitReaperPass(s.metrics, res.Elapsed,
		metrics.ReaperOperation{Name: "release_claims", Rows: released, Err: ignoreCancellation(releaseErr)},
		metrics.ReaperOperation{Name: "delete_terminal", Rows: deleted, Err: ignoreCancellation(deleteErr)},
	)

	var errs []error
	canceledOnly := true
	for _, step := range []struct {
		label string
		err   error
	}{
		{"release expired claims", releaseErr},
		{"delete terminal jobs", deleteErr},
	} {
		if step.err == nil {
			continue
		}
		errs = append(errs, fmt.Errorf("%s: %w", step.label, step.err))
		canceledOnly = canceledOnly && isCancellation(step.err)
	}

	switch {
	case len(errs) == 0:
		return res, nil
	case canceledOnly:
		return res, context.Canceled
	default:
		return res, fmt.Errorf("cleanup failed: %w", errors.Join(errs...))
	}
}

// drainBatches calls fn until it reports an empty batch, checking ctx between batches.
func drainBatches(ctx context.Context, fn func() (int64, error)) (int64, error) {
	var total int64
	for {
		n, err := fn()
		total += n
		if err != nil || n == 0 {
			return total, err
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (s *ReaperService) releaseExpiredClaims(ctx context.Context) (int64, error) {
	total, err := drainBatches(ctx, func() (int64, error) {
		return s.repo.ReleaseExpiredClaims(ctx, s.config.BatchSize)
	})
	if err == nil && total > 0 {
		s.logger.InfoContext(ctx, "released expired claims", "count", total)
	}
	return total, err
}

// deleteTerminalJobs removes sent, failed and cancelled jobs older than
// TerminalMaxAge. Zero disables retention cleanup.
func (s *ReaperService) deleteTerminalJobs(ctx context.Context) (int64, error) {
	if s.config.TerminalMaxAge <= 0 {
		return 0, nil
	}
	params := core.DeleteTerminalJobsParams{
		MaxAge:    s.config.TerminalMaxAge,
		BatchSize: s.config.BatchSize,
	}
	total, err := drainBatches(ctx, func() (int64, error) {
		return s.repo.DeleteTerminalBefore(ctx, params)
	})
	if err == nil && total > 0 {
		s.logger.InfoContext(ctx, "deleted terminal jobs", "count", total, "max_age", s.config.TerminalMaxAge)
	}
	return total, err
}

func (s *ReaperService) logPassError(ctx context.Context, err error) {
	if isCancellation(err) {
		s.logger.DebugContext(ctx, "cleanup interrupted", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, "cleanup failed", "error", err)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func ignoreCancellation(err error) error {
	if isCancellation(err) {
		return nil
	}
	return err
}
