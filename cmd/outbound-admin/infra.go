package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/bootstrap"
)

// withDatabase connects to Postgres and runs f under a context that ends after
// timeout or on SIGINT/SIGTERM.
func withDatabase(cmdCtx *commandContext, timeout time.Duration, f func(context.Context, *sql.DB) error) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer closeLogged(cmdCtx, "database", db.Close)

	return f(ctx, db)
}

// withServices adds the service container on top of withDatabase. Redis backs
// the preferences cache only when it is enabled and addressable.
func withServices(
	cmdCtx *commandContext,
	timeout time.Duration,
	f func(context.Context, bootstrap.ServiceContainer) error,
) error {
	return withDatabase(cmdCtx, timeout, func(ctx context.Context, db *sql.DB) error {
		var client redis.UniversalClient
		if hasRedisConfig(&cmdCtx.Config.Redis) {
			c, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
				RedisConfig: cmdCtx.Config.Redis,
				Logger:      cmdCtx.Logger,
			})
			if err != nil {
				return fmt.Errorf("connect redis: %w", err)
			}
			defer closeLogged(cmdCtx, "redis", c.Close)
			client = c
		} else {
			cmdCtx.Logger.Debug("redis disabled; preferences are read from the database")
		}

		services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
			Config:      &cmdCtx.Config,
			DB:          db,
			RedisClient: client,
			Logger:      cmdCtx.Logger,
		})
		if err != nil {
			return fmt.Errorf("build services: %w", err)
		}
		defer services.Close(cmdCtx.Logger)

		return f(ctx, services)
	})
}

func closeLogged(cmdCtx *commandContext, what string, closeFn func() error) {
	if err := closeFn(); err != nil && !errors.Is(err, redis.ErrClosed) {
		cmdCtx.Logger.Warn(what+" close failed", "error", err)
	}
}

// hasRedisConfig reports whether cfg is enabled and names at least one address
// for its topology.
func hasRedisConfig(cfg *config.RedisConfig) bool {
	switch {
	case cfg == nil || !cfg.Enabled:
		return false
	case cfg.UseCluster:
		return len(cfg.ClusterNodes) > 0 || cfg.URI != ""
	case cfg.UseSentinel:
		return len(cfg.SentinelNodes) > 0
	default:
		return cfg.URI != ""
	}
}
