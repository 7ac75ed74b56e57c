// Package config declares the environment-driven settings of the outbound
// service and admin CLI. Values are parsed with caarlos0/env and then passed
// through Sanitize, which clamps them to safe ranges.
package config

import "strings"

// AppConfig is the root configuration. Sections live in their own files:
// database.go (Postgres, Redis, cache), http.go, outbound.go (runner, workflow
// hook, dead letters), providers.go, services.go (modes, reaper) and
// observability.go.
type AppConfig struct {
	Log LogConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Cache    CacheConfig

	HTTP HTTPConfig

	// Services is the comma separated list of modes to host, see ParseServices.
	Services string `env:"SERVICES" envDefault:"http"`

	Outbound      OutboundConfig
	Providers     ProvidersConfig
	Reaper        ReaperConfig
	Observability ObservabilityConfig
}

// Sanitize applies every section's guardrails. Call it once after parsing.
func (c *AppConfig) Sanitize() {
	c.Log.Sanitize()
	c.HTTP.Sanitize()
	c.Postgres.Pool.Sanitize()
	c.Cache.Sanitize()
	c.Outbound.Sanitize()
	c.Providers.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()
}

// GetEnabledServices parses Services.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	enabled, err := c.GetEnabledServices()
	return err == nil && enabled[mode]
}

// IsHTTPServerEnabled reports whether the API server should run. An invalid
// Services value enables nothing.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.serviceEnabled(ServiceModeHTTP) }

// IsReaperEnabled reports whether the maintenance loop should run.
func (c *AppConfig) IsReaperEnabled() bool { return c.serviceEnabled(ServiceModeReaper) }

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	// Format is json or text.
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Sanitize normalises log settings, falling back to info/json on unknown values.
func (l *LogConfig) Sanitize() {
	l.Level = strings.ToLower(strings.TrimSpace(l.Level))
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		l.Level = "info"
	}
	l.Format = strings.ToLower(strings.TrimSpace(l.Format))
	if l.Format != "text" {
		l.Format = "json"
	}
}
