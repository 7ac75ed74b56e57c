package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/mmk-outbound/config"
	httpx "github.com/target/mmk-outbound/internal/http"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultReadHeaderTimeout   = 10 * time.Second
	defaultHTTPShutdownTimeout = 10 * time.Second
	// A synchronous run request may cover a full batch of sends.
	httpWriteTimeout = 5 * time.Minute
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer builds the API server with its middleware chain. It does not listen.
func NewHTTPServer(cfg *HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var httpCfg config.HTTPConfig
	if cfg.Config != nil {
		httpCfg = cfg.Config.HTTP
	}

	var promMW func(http.Handler) http.Handler
	if prom := cfg.Services.Observability.Prometheus; prom != nil {
		promMW = prom.HTTPMiddleware
	}
	handler := buildHTTPHandler(httpHandlerConfig{
		Logger:     logger,
		Services:   routerServices(cfg.Services, logger),
		HTTP:       httpCfg,
		Prometheus: promMW,
	})

	addr := httpCfg.Addr
	if addr == "" {
		addr = defaultHTTPAddr
	}
	readHeader := httpCfg.ReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = defaultReadHeaderTimeout
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeader,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      httpWriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}
}

// ServeHTTP listens until ctx ends, then drains in-flight requests for up to
// shutdownTimeout. A listen failure is returned immediately.
func ServeHTTP(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()

	select {
	case err := <-listenErr:
		return err
	case <-ctx.Done():
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultHTTPShutdownTimeout
	}
	// ctx is already done; the drain gets its own budget.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("HTTP server stopped")
	return <-listenErr
}

func routerServices(svc ServiceContainer, logger *slog.Logger) httpx.RouterServices {
	services := httpx.RouterServices{
		Logger:    logger,
		Readiness: svc.Readiness,
	}
	// Typed nil pointers must not reach the router's optional interfaces.
	if svc.Campaigns != nil {
		services.Campaigns = svc.Campaigns
	}
	if svc.Jobs != nil {
		services.Jobs = svc.Jobs
	}
	if svc.Runner != nil {
		services.Runner = svc.Runner
	}
	if svc.AuditRepo != nil {
		services.Audit = svc.AuditRepo
	}
	if svc.Observability.Prometheus != nil {
		services.Metrics = svc.Observability.Prometheus.Handler()
	}
	return services
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
	HTTP     config.HTTPConfig
	// Prometheus records request durations when set.
	Prometheus func(http.Handler) http.Handler
}

// buildHTTPHandler wraps the router, outermost first: Recover, RequestID,
// Logging, MaxBody, Prometheus.
func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	h := httpx.NewRouter(cfg.Services)
	if cfg.Prometheus != nil {
		h = cfg.Prometheus(h)
	}
	if cfg.HTTP.MaxBodyBytes > 0 {
		h = httpx.MaxBody(cfg.HTTP.MaxBodyBytes)(h)
	}
	h = httpx.Logging(cfg.Logger)(h)
	return httpx.Recover(cfg.Logger)(httpx.RequestID(h))
}
