// Package workflowhook posts outbound job transitions to an external workflow system.
package workflowhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/mmk-outbound/internal/core"
)

// Config configures the hook client.
type Config struct {
	URL     string
	Timeout time.Duration
	Client  *http.Client
}

// Client is a best-effort core.WorkflowNotifier.
type Client struct {
	url     string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

var _ core.WorkflowNotifier = (*Client)(nil)

// NewClient builds a hook client for cfg.URL.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, errors.New("workflow hook url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:     u,
		timeout: timeout,
		client:  hc,
		logger:  logger.With("component", "workflow_hook"),
	}, nil
}

// NotifyBestEffort posts event and logs any failure. It never blocks longer than the
// configured timeout and ignores caller cancellation.
func (c *Client) NotifyBestEffort(ctx context.Context, event core.WorkflowEvent) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.Notify(sendCtx, event); err != nil {
		c.logger.WarnContext(ctx, "workflow hook delivery failed",
			"job_id", event.JobID,
			"event_type", event.Type,
			"error", err,
		)
	}
}

// Notify posts event and returns the delivery error.
func (c *Client) Notify(ctx context.Context, event core.WorkflowEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode workflow event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create workflow hook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", event.Type)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post workflow hook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("workflow hook returned HTTP %d", resp.StatusCode)
	}
	return nil
}
