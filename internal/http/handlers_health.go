package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	healthResponse = `{"status":"ok","service":"mmk-outbound"}`

	defaultReadinessTimeout = 2 * time.Second
)

// healthHandler answers liveness probes. It does not touch the database.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, healthResponse)
}

// ReadinessCheck probes one backing dependency.
type ReadinessCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// ReadinessHandler reports 503 until every check passes. Probe errors are
// logged, never returned to the caller.
type ReadinessHandler struct {
	Checks  []ReadinessCheck
	Timeout time.Duration
	Logger  *slog.Logger
}

type readinessBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *ReadinessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.Checks))
		ready   = true
	)
	var g errgroup.Group
	for _, check := range h.Checks {
		g.Go(func() error {
			err := check.Probe(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				ready = false
				results[check.Name] = "unavailable"
				if h.Logger != nil {
					h.Logger.WarnContext(ctx, "readiness check failed", "check", check.Name, "error", err)
				}
				return nil
			}
			results[check.Name] = "ok"
			return nil
		})
	}
	_ = g.Wait() // probes report through results

	w.Header().Set("Cache-Control", "no-store")
	body := readinessBody{Status: "ready", Checks: results}
	status := http.StatusOK
	if !ready {
		body.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, body)
}
