package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-outbound/config"
)

func TestServeHTTP_StopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeHTTP(ctx, server, time.Second, logger) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("ServeHTTP did not return after cancel")
	}
}

func TestServeHTTP_ListenFailure(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{Addr: "256.0.0.1:bad", ReadHeaderTimeout: time.Second}

	err := ServeHTTP(context.Background(), server, time.Second, logger)
	require.Error(t, err)
}

func TestServe_RequiresConfig(t *testing.T) {
	require.Error(t, Serve(context.Background(), nil))
	require.Error(t, Serve(context.Background(), &ServiceOrchestrationConfig{}))

	err := Serve(context.Background(), &ServiceOrchestrationConfig{
		Config: &config.AppConfig{Services: "smtp"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "determine enabled services")
}

func TestServiceUnits(t *testing.T) {
	cfg := &ServiceOrchestrationConfig{Config: &config.AppConfig{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	units := cfg.units(map[config.ServiceMode]bool{
		config.ServiceModeHTTP:   true,
		config.ServiceModeReaper: true,
	}, logger)
	require.Len(t, units, 2)
	assert.Equal(t, "http", units[0].name)
	assert.Equal(t, "reaper", units[1].name)

	assert.Empty(t, cfg.units(map[config.ServiceMode]bool{}, logger))

	// Without a database the reaper unit fails fast instead of looping.
	err := units[1].run(context.Background())
	require.Error(t, err)
}

func TestServe_ReaperFailureStopsHost(t *testing.T) {
	err := Serve(context.Background(), &ServiceOrchestrationConfig{
		Config: &config.AppConfig{Services: "reaper"},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reaper failed")
}
