package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode names a long-running component the outbound binary can host.
type ServiceMode string

const (
	ServiceModeHTTP   ServiceMode = "http"
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes lists every mode in startup order.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeReaper}
}

// ParseServices reads a comma separated SERVICES value such as "http,reaper".
// Blank entries and repeats are ignored; an unknown name is an error.
func ParseServices(raw string) (map[ServiceMode]bool, error) {
	known := make(map[ServiceMode]bool)
	for _, m := range ValidServiceModes() {
		known[m] = true
	}

	enabled := make(map[ServiceMode]bool)
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !known[ServiceMode(name)] {
			return nil, fmt.Errorf("invalid service name: %q (valid options: %s)", name, validModeList())
		}
		enabled[ServiceMode(name)] = true
	}
	if len(enabled) == 0 {
		return nil, errors.New("at least one service must be specified")
	}
	return enabled, nil
}

func validModeList() string {
	modes := ValidServiceModes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// ReaperConfig controls the maintenance loop.
type ReaperConfig struct {
	Interval time.Duration `env:"OUTBOUND_REAPER_INTERVAL" envDefault:"5m"`
	// TerminalMaxAge is how long sent, failed and cancelled jobs are kept. Zero keeps them forever.
	TerminalMaxAge time.Duration `env:"OUTBOUND_REAPER_TERMINAL_MAX_AGE" envDefault:"720h"`
	// BatchSize caps the rows touched per statement.
	BatchSize int `env:"OUTBOUND_REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize clamps the interval to at least a minute, a non-zero max age to at
// least an hour, and the batch size to 1..10000.
func (r *ReaperConfig) Sanitize() {
	r.Interval = max(r.Interval, time.Minute)
	switch {
	case r.TerminalMaxAge <= 0:
		r.TerminalMaxAge = 0
	case r.TerminalMaxAge < time.Hour:
		r.TerminalMaxAge = time.Hour
	}
	r.BatchSize = min(max(r.BatchSize, 1), 10000)
}
