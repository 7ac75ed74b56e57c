package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/adapters/reaper"
	"github.com/target/mmk-outbound/internal/observability/statsd"
)

// ReaperConfig wires the reaper runner for both the service host and the admin CLI.
type ReaperConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// NewReaperRunner builds the reaper runner from cfg.
func NewReaperRunner(cfg ReaperConfig) (*reaper.Runner, error) {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create reaper runner: %w", err)
	}
	return runner, nil
}
