package config

import (
	"strings"
	"time"
)

// OutboundConfig contains runner and delivery pipeline configuration.
type OutboundConfig struct {
	// BatchLimit is the default number of jobs claimed per pass.
	BatchLimit int `env:"OUTBOUND_BATCH_LIMIT" envDefault:"50"`

	// Concurrency is how many claimed jobs are processed at once.
	Concurrency int `env:"OUTBOUND_CONCURRENCY" envDefault:"1"`

	// ClaimTTL is how long a claim is held before another pass may take the job.
	// It is raised to at least JobTimeout plus a safety margin.
	ClaimTTL time.Duration `env:"OUTBOUND_CLAIM_TTL" envDefault:"2m"`

	// JobTimeout bounds the processing of a single job.
	JobTimeout time.Duration `env:"OUTBOUND_JOB_TIMEOUT" envDefault:"60s"`

	// DefaultCountryCode is prefixed to national phone numbers during normalization.
	DefaultCountryCode string `env:"OUTBOUND_DEFAULT_COUNTRY_CODE" envDefault:"1"`

	// PromptCatalogPath optionally points to a YAML file overriding verify prompts.
	PromptCatalogPath string `env:"OUTBOUND_PROMPT_CATALOG_PATH"`

	// AuditWriteTimeout bounds each audit insert.
	AuditWriteTimeout time.Duration `env:"OUTBOUND_AUDIT_WRITE_TIMEOUT" envDefault:"5s"`

	// WorkflowHook posts job transitions to an external workflow system.
	WorkflowHook WorkflowHookConfig `envPrefix:"OUTBOUND_WORKFLOW_HOOK_"`

	// DeadLetter configures the AMQP dead-letter publisher.
	DeadLetter DeadLetterConfig `envPrefix:"OUTBOUND_DEADLETTER_"`
}

// Sanitize applies guardrails to runner configuration values.
func (o *OutboundConfig) Sanitize() {
	if o.BatchLimit < 1 {
		o.BatchLimit = 1
	}
	if o.BatchLimit > 1000 {
		o.BatchLimit = 1000
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.Concurrency > 64 {
		o.Concurrency = 64
	}
	if o.JobTimeout < time.Second {
		o.JobTimeout = time.Second
	}
	if o.ClaimTTL <= 0 {
		o.ClaimTTL = 2 * time.Minute
	}
	if o.AuditWriteTimeout <= 0 {
		o.AuditWriteTimeout = 5 * time.Second
	}
	o.DefaultCountryCode = strings.TrimPrefix(strings.TrimSpace(o.DefaultCountryCode), "+")
	o.PromptCatalogPath = strings.TrimSpace(o.PromptCatalogPath)
	o.WorkflowHook.Sanitize()
	o.DeadLetter.Sanitize()
}

// WorkflowHookConfig controls the best-effort workflow notification.
type WorkflowHookConfig struct {
	URL     string        `env:"URL"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// Sanitize normalises the hook settings.
func (w *WorkflowHookConfig) Sanitize() {
	w.URL = strings.TrimSpace(w.URL)
	if w.Timeout <= 0 {
		w.Timeout = 5 * time.Second
	}
}

// IsEnabled reports whether a hook URL is configured.
func (w *WorkflowHookConfig) IsEnabled() bool {
	return w.URL != ""
}

// DeadLetterConfig controls the AMQP dead-letter sink.
type DeadLetterConfig struct {
	AMQPURL string `env:"AMQP_URL"`
	Queue   string `env:"QUEUE"    envDefault:"outbound.deadletter"`
	// SinkTimeout bounds each dead-letter sink delivery.
	SinkTimeout time.Duration `env:"SINK_TIMEOUT" envDefault:"10s"`
}

// Sanitize normalises dead-letter settings.
func (d *DeadLetterConfig) Sanitize() {
	d.AMQPURL = strings.TrimSpace(d.AMQPURL)
	if d.Queue = strings.TrimSpace(d.Queue); d.Queue == "" {
		d.Queue = "outbound.deadletter"
	}
	if d.SinkTimeout <= 0 {
		d.SinkTimeout = 10 * time.Second
	}
}

// IsAMQPEnabled reports whether the AMQP sink is configured.
func (d *DeadLetterConfig) IsAMQPEnabled() bool {
	return d.AMQPURL != ""
}
