package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/mmk-outbound/config"
	"github.com/target/mmk-outbound/internal/adapters/channels"
	"github.com/target/mmk-outbound/internal/adapters/deadletter/amqp"
	"github.com/target/mmk-outbound/internal/adapters/workflowhook"
	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/data"
	"github.com/target/mmk-outbound/internal/domain/outbound"
	httpx "github.com/target/mmk-outbound/internal/http"
	"github.com/target/mmk-outbound/internal/observability/notify/pagerduty"
	"github.com/target/mmk-outbound/internal/observability/notify/slack"
	"github.com/target/mmk-outbound/internal/observability/prometheus"
	"github.com/target/mmk-outbound/internal/observability/statsd"
	"github.com/target/mmk-outbound/internal/service"
	"github.com/target/mmk-outbound/internal/service/deadletter"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Campaigns     *service.CampaignService
	Jobs          *service.OutboundJobService
	Runner        *service.OutboundRunner
	AuditRepo     core.AuditRepository
	Observability ObservabilityContainer
	// Readiness probes the database and, when configured, the preferences cache.
	Readiness []httpx.ReadinessCheck

	closers []namedCloser
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	// Metrics fans out to StatsD and Prometheus; it is statsd.Discard when both are off.
	Metrics    statsd.Sink
	Prometheus *prometheus.Sink // nil when Prometheus is disabled
	DeadLetter *deadletter.Service
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional: enables the preferences cache
	Logger      *slog.Logger
}

type namedCloser struct {
	name  string
	close func() error
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	Jobs        *data.OutboundJobRepo
	Attempts    *data.AttemptRepo
	Campaigns   *data.CampaignRepo
	Audit       *data.AuditRepo
	Preferences core.PreferencesRepository
	Identities  core.IdentityRepository
}

// NewServices wires repositories, policies, adapters and services from configuration.
// The returned container must be closed to release adapter connections.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service config is required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	var container ServiceContainer
	obs, closers, err := buildObservability(logger, cfg)
	if err != nil {
		return ServiceContainer{}, err
	}
	container.Observability = obs
	container.closers = closers

	var cacheRepo core.CacheRepository
	if deps.RedisClient != nil {
		cacheRepo = data.NewRedisCacheRepo(deps.RedisClient)
	}
	container.Readiness = readinessChecks(deps.DB, cacheRepo)

	repos := buildRepositories(deps.DB, cacheRepo, repositoryCache{
		TTL:     cfg.Cache.PreferencesTTL,
		Metrics: obs.Metrics,
		Logger:  logger,
	})
	audit := service.NewAuditLogger(service.AuditLoggerOptions{
		Repo:    repos.Audit,
		Logger:  logger,
		Timeout: cfg.Outbound.AuditWriteTimeout,
	})

	runner, err := newOutboundRunner(runnerDeps{
		cfg:    cfg,
		repos:  repos,
		audit:  audit,
		obs:    obs,
		logger: logger,
	})
	if err != nil {
		container.Close(logger)
		return ServiceContainer{}, err
	}

	container.Runner = runner
	container.AuditRepo = repos.Audit
	container.Campaigns = service.NewCampaignService(service.CampaignServiceOptions{
		Repo:  repos.Campaigns,
		Audit: audit,
	})
	container.Jobs = service.NewOutboundJobService(service.OutboundJobServiceOptions{
		Repos: service.JobServiceRepositories{
			Jobs:      repos.Jobs,
			Attempts:  repos.Attempts,
			Campaigns: repos.Campaigns,
		},
		Audit:  audit,
		Logger: logger,
	})
	return container, nil
}

// Close releases adapter connections in reverse construction order.
func (c *ServiceContainer) Close(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].close(); err != nil {
			logger.Warn("close failed", "component", c.closers[i].name, "error", err)
		}
	}
	c.closers = nil
}

type repositoryCache struct {
	TTL     time.Duration
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, cacheRepo core.CacheRepository, cache repositoryCache) *serviceRepositories {
	repos := &serviceRepositories{
		Jobs:        data.NewOutboundJobRepo(db),
		Attempts:    data.NewAttemptRepo(db),
		Campaigns:   data.NewCampaignRepo(db),
		Audit:       data.NewAuditRepo(db),
		Preferences: data.NewPreferencesRepo(db),
		Identities:  data.NewIdentityRepo(db),
	}
	if cacheRepo == nil {
		return repos
	}

	cached := service.NewCachedPreferences(service.CachedPreferencesOptions{
		Preferences: repos.Preferences,
		Identities:  repos.Identities,
		Cache: service.CacheConfig{
			Repo:    cacheRepo,
			TTL:     cache.TTL,
			Metrics: cache.Metrics,
			Logger:  cache.Logger,
		},
	})
	repos.Preferences = cached
	repos.Identities = cached.Identities()
	return repos
}

func readinessChecks(db *sql.DB, cacheRepo core.CacheRepository) []httpx.ReadinessCheck {
	checks := []httpx.ReadinessCheck{{Name: "database", Probe: db.PingContext}}
	if cacheRepo != nil {
		checks = append(checks, httpx.ReadinessCheck{Name: "cache", Probe: cacheRepo.Health})
	}
	return checks
}

// buildObservability configures metrics and dead-letter escalation adapters.
func buildObservability(logger *slog.Logger, cfg *config.AppConfig) (ObservabilityContainer, []namedCloser, error) {
	var (
		obs     ObservabilityContainer
		closers []namedCloser
		sinks   []statsd.Sink
	)

	metricsCfg := cfg.Observability.Metrics
	if metricsCfg.IsStatsdEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: metricsCfg.StatsdAddress,
			Prefix:  metricsCfg.StatsdPrefix,
			Logger:  logger,
		})
		if err != nil {
			logger.Error("failed to initialise statsd client", "error", err)
		} else {
			sinks = append(sinks, client)
			closers = append(closers, namedCloser{name: "statsd", close: client.Close})
		}
	}
	if metricsCfg.PrometheusEnabled {
		obs.Prometheus = prometheus.NewSink(prometheus.Options{})
		sinks = append(sinks, obs.Prometheus)
	}
	obs.Metrics = statsd.Multi(sinks...)

	registrations, sinkClosers, err := buildDeadLetterSinks(logger, cfg)
	if err != nil {
		closeAll(logger, closers)
		return ObservabilityContainer{}, nil, err
	}
	closers = append(closers, sinkClosers...)
	obs.DeadLetter = deadletter.NewService(deadletter.Options{
		Logger:      logger,
		Sinks:       registrations,
		SinkTimeout: cfg.Outbound.DeadLetter.SinkTimeout,
	})
	if obs.DeadLetter.Enabled() {
		logger.Info("dead-letter sinks configured", "sinks", obs.DeadLetter.SinkNames())
	}

	return obs, closers, nil
}

// buildDeadLetterSinks returns the AMQP, Slack and PagerDuty sinks enabled by configuration.
func buildDeadLetterSinks(logger *slog.Logger, cfg *config.AppConfig) ([]deadletter.SinkRegistration, []namedCloser, error) {
	var (
		sinks   []deadletter.SinkRegistration
		closers []namedCloser
	)

	if dl := cfg.Outbound.DeadLetter; dl.IsAMQPEnabled() {
		pub, err := amqp.NewPublisher(amqp.Options{
			Config: amqp.Config{URL: dl.AMQPURL, Queue: dl.Queue},
			Logger: logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create amqp dead-letter publisher: %w", err)
		}
		sinks = append(sinks, deadletter.SinkRegistration{Name: "amqp", Sink: pub})
		closers = append(closers, namedCloser{name: "amqp", close: pub.Close})
	}

	notifications := cfg.Observability.Notifications
	if !notifications.Enabled {
		return sinks, closers, nil
	}

	if notifications.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:   notifications.Slack.WebhookURL,
			Channel:      notifications.Slack.Channel,
			Username:     notifications.Slack.Username,
			Timeout:      notifications.Timeout,
			RetryLimit:   notifications.RetryLimit,
			JobURLPrefix: notifications.Slack.JobURLPrefix,
		})
		if err != nil {
			logger.Error("failed to configure slack dead-letter sink", "error", err)
		} else {
			sinks = append(sinks, deadletter.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if notifications.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: notifications.PagerDuty.RoutingKey,
			Source:     notifications.PagerDuty.Source,
			Component:  notifications.PagerDuty.Component,
			Timeout:    notifications.Timeout,
			RetryLimit: notifications.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to configure pagerduty dead-letter sink", "error", err)
		} else {
			sinks = append(sinks, deadletter.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return sinks, closers, nil
}

type runnerDeps struct {
	cfg    *config.AppConfig
	repos  *serviceRepositories
	audit  *service.AuditLogger
	obs    ObservabilityContainer
	logger *slog.Logger
}

// newOutboundRunner assembles the eligibility, gate, channel and retry pipeline.
func newOutboundRunner(d runnerDeps) (*service.OutboundRunner, error) {
	out := d.cfg.Outbound

	catalog := outbound.DefaultPromptCatalog()
	if out.PromptCatalogPath != "" {
		loaded, err := outbound.LoadPromptCatalogFile(out.PromptCatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load prompt catalog: %w", err)
		}
		catalog = loaded
	}

	registry, err := channels.NewRegistry(channels.RegistryOptions{
		Config: d.cfg.Providers,
		Logger: d.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build channel registry: %w", err)
	}

	var workflow core.WorkflowNotifier
	if out.WorkflowHook.IsEnabled() {
		client, hookErr := workflowhook.NewClient(workflowhook.Config{
			URL:     out.WorkflowHook.URL,
			Timeout: out.WorkflowHook.Timeout,
		}, d.logger)
		if hookErr != nil {
			return nil, fmt.Errorf("create workflow hook client: %w", hookErr)
		}
		workflow = client
	}

	evaluator := service.NewEligibilityEvaluator(service.EligibilityEvaluatorOptions{
		Preferences: d.repos.Preferences,
		Identities:  d.repos.Identities,
		Config: service.EligibilityConfig{
			Normalizer: outbound.NewNormalizer(out.DefaultCountryCode),
			Audit:      d.audit,
			Logger:     d.logger,
		},
	})

	runner := service.NewOutboundRunner(service.OutboundRunnerOptions{
		Repos: service.RunnerRepositories{
			Jobs:      d.repos.Jobs,
			Attempts:  d.repos.Attempts,
			Campaigns: d.repos.Campaigns,
		},
		Pipeline: service.RunnerPipeline{
			Evaluator: evaluator,
			Gate:      outbound.NewGate(catalog),
			Channels:  registry,
			Backoff:   outbound.NewBackoffPolicy(nil),
			Config: service.RunnerConfig{
				BatchLimit:  out.BatchLimit,
				Concurrency: out.Concurrency,
				JobTimeout:  out.JobTimeout,
				ClaimTTL:    out.ClaimTTL,
			},
		},
		Hooks: service.RunnerHooks{
			Audit:      d.audit,
			DeadLetter: d.obs.DeadLetter,
			Workflow:   workflow,
			Metrics:    d.obs.Metrics,
			Logger:     d.logger,
		},
	})
	return runner, nil
}

func closeAll(logger *slog.Logger, closers []namedCloser) {
	c := ServiceContainer{closers: closers}
	c.Close(logger)
}
