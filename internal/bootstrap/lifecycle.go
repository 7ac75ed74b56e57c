package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-outbound/config"
)

// backgroundStopTimeout bounds how long non-HTTP modes get to return after shutdown begins.
const backgroundStopTimeout = 15 * time.Second

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	DB       *sql.DB
	Logger   *slog.Logger
}

// serviceUnit is one enabled service mode. run blocks until ctx ends or the unit fails.
type serviceUnit struct {
	name string
	run  func(ctx context.Context) error
}

// RunServicesWithShutdown runs every enabled service mode and blocks until
// SIGINT/SIGTERM arrives or one of them fails. The first failure stops the rest.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	return Serve(context.Background(), cfg)
}

// Serve is RunServicesWithShutdown with a caller-supplied parent context.
func Serve(ctx context.Context, cfg *ServiceOrchestrationConfig) error {
	if cfg == nil || cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	units := cfg.units(enabled, logger)
	if len(units) == 0 {
		return errors.New("no services enabled")
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigCtx)

	for _, u := range units {
		g.Go(func() error {
			logger.InfoContext(gctx, "service started", "service", u.name)
			if err := u.run(gctx); err != nil && !isCancellation(err) {
				return fmt.Errorf("%s failed: %w", u.name, err)
			}
			logger.InfoContext(gctx, "service stopped", "service", u.name)
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return logExit(logger, err)
	case <-gctx.Done():
		logger.Info("shutting down services", "cause", context.Cause(gctx))
	}

	select {
	case err := <-done:
		return logExit(logger, err)
	case <-time.After(cfg.Config.HTTP.ShutdownTimeout + backgroundStopTimeout):
		return errors.New("timed out waiting for services to stop")
	}
}

func (cfg *ServiceOrchestrationConfig) units(enabled map[config.ServiceMode]bool, logger *slog.Logger) []serviceUnit {
	var units []serviceUnit
	if enabled[config.ServiceModeHTTP] {
		units = append(units, serviceUnit{
			name: string(config.ServiceModeHTTP),
			run: func(ctx context.Context) error {
				server := NewHTTPServer(&HTTPServerConfig{
					Config:   cfg.Config,
					Services: cfg.Services,
					Logger:   logger,
				})
				return ServeHTTP(ctx, server, cfg.Config.HTTP.ShutdownTimeout, logger)
			},
		})
	}
	if enabled[config.ServiceModeReaper] {
		units = append(units, serviceUnit{
			name: string(config.ServiceModeReaper),
			run: func(ctx context.Context) error {
				runner, err := NewReaperRunner(ReaperConfig{
					DB:      cfg.DB,
					Logger:  logger,
					Config:  cfg.Config.Reaper,
					Metrics: cfg.Services.Observability.Metrics,
				})
				if err != nil {
					return err
				}
				return runner.Run(ctx)
			},
		})
	}
	return units
}

func logExit(logger *slog.Logger, err error) error {
	if err != nil {
		logger.Error("service error", "error", err)
	}
	return err
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
