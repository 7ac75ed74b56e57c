package config

import (
	"strings"
	"time"
)

const (
	defaultObservabilityName  = "mmk-outbound"
	defaultPagerDutyComponent = "outbound-runner"
	defaultNotifyTimeout      = 5 * time.Second
)

// ObservabilityConfig holds metric emission and dead-letter alerting settings.
type ObservabilityConfig struct {
	Metrics       ObservabilityMetricsConfig
	Notifications ObservabilityNotificationsConfig
}

// Sanitize applies guardrails to both sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notifications.Sanitize()
}

// ObservabilityMetricsConfig selects the StatsD and Prometheus sinks.
type ObservabilityMetricsConfig struct {
	Enabled           bool   `env:"METRICS_ENABLED"    envDefault:"false"`
	StatsdAddress     string `env:"STATSD_ADDRESS"     envDefault:"127.0.0.1:8125"`
	StatsdPrefix      string `env:"STATSD_PREFIX"      envDefault:"mmk_outbound"`
	PrometheusEnabled bool   `env:"PROMETHEUS_ENABLED" envDefault:"true"`
}

func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.StatsdPrefix = strings.TrimSpace(c.StatsdPrefix)
}

// IsStatsdEnabled reports whether StatsD emission has somewhere to go.
func (c *ObservabilityMetricsConfig) IsStatsdEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// ObservabilityNotificationsConfig controls the Slack and PagerDuty alerts raised
// when a job is dead-lettered. A sink stays off unless the top-level switch is
// on and the sink has its credential.
type ObservabilityNotificationsConfig struct {
	Enabled    bool                        `env:"NOTIFY_ENABLED"     envDefault:"false"`
	Timeout    time.Duration               `env:"NOTIFY_TIMEOUT"     envDefault:"5s"`
	RetryLimit int                         `env:"NOTIFY_RETRY_LIMIT" envDefault:"3"`
	Slack      SlackNotificationConfig     `envPrefix:"NOTIFY_SLACK_"`
	PagerDuty  PagerDutyNotificationConfig `envPrefix:"NOTIFY_PAGERDUTY_"`
}

func (c *ObservabilityNotificationsConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = defaultNotifyTimeout
	}
	c.RetryLimit = max(c.RetryLimit, 0)

	c.Slack.sanitize()
	c.PagerDuty.sanitize()

	c.Slack.Enabled = c.Enabled && c.Slack.Enabled && c.Slack.WebhookURL != ""
	c.PagerDuty.Enabled = c.Enabled && c.PagerDuty.Enabled && c.PagerDuty.RoutingKey != ""
}

// SlackNotificationConfig configures the incoming-webhook sink.
type SlackNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"        envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME"       envDefault:"mmk-outbound"`
	// JobURLPrefix, when set, turns job ids in messages into links.
	JobURLPrefix string `env:"JOB_URL_PREFIX"`
}

func (c *SlackNotificationConfig) sanitize() {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.Channel = strings.TrimSpace(c.Channel)
	c.JobURLPrefix = strings.TrimSpace(c.JobURLPrefix)
	c.Username = orDefault(c.Username, defaultObservabilityName)
}

// PagerDutyNotificationConfig configures the Events API v2 sink.
type PagerDutyNotificationConfig struct {
	Enabled    bool   `env:"ENABLED"     envDefault:"false"`
	RoutingKey string `env:"ROUTING_KEY"`
	Source     string `env:"SOURCE"      envDefault:"mmk-outbound"`
	Component  string `env:"COMPONENT"   envDefault:"outbound-runner"`
}

func (c *PagerDutyNotificationConfig) sanitize() {
	c.RoutingKey = strings.TrimSpace(c.RoutingKey)
	c.Source = orDefault(c.Source, defaultObservabilityName)
	c.Component = orDefault(c.Component, defaultPagerDutyComponent)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
