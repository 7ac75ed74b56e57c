package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"outbound"`
	Password string `env:"PASSWORD"                envDefault:"outbound"`
	Name     string `env:"NAME"                    envDefault:"outbound"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
	Pool                 DBPoolConfig `envPrefix:"POOL_"`
}

// DBPoolConfig sizes the database/sql pool. The runner holds one connection
// per in-flight job transition, so MaxOpen bounds batch concurrency as well.
type DBPoolConfig struct {
	MaxOpen     int           `env:"MAX_OPEN"     envDefault:"25"`
	MaxIdle     int           `env:"MAX_IDLE"     envDefault:"5"`
	MaxLifetime time.Duration `env:"MAX_LIFETIME" envDefault:"5m"`
}

// DSN renders the connection URL for the pgx stdlib driver.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Sanitize keeps the pool usable when env values are zero or inverted.
func (p *DBPoolConfig) Sanitize() {
	if p.MaxOpen <= 0 {
		p.MaxOpen = 25
	}
	if p.MaxIdle < 0 || p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.MaxLifetime < 0 {
		p.MaxLifetime = 0
	}
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	// Enabled turns on the preferences cache. The service runs without Redis when false.
	Enabled            bool     `env:"ENABLED"              envDefault:"false"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// CacheConfig contains cache configuration (Redis-based).
type CacheConfig struct {
	// PreferencesTTL is how long customer preferences stay cached.
	PreferencesTTL time.Duration `env:"CACHE_PREFERENCES_TTL" envDefault:"30s"`
}

// Sanitize applies guardrails to cache configuration values.
func (c *CacheConfig) Sanitize() {
	if c.PreferencesTTL < time.Second {
		c.PreferencesTTL = time.Second
	}
	if c.PreferencesTTL > time.Hour {
		c.PreferencesTTL = time.Hour
	}
}
