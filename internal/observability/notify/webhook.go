package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultWebhookTimeout = 5 * time.Second
	webhookBackoffStep    = 200 * time.Millisecond
	maxErrorBody          = 4 << 10
)

// Webhook posts JSON documents to a fixed URL, retrying failed posts with a
// linear backoff. Slack and PagerDuty sinks share it.
type Webhook struct {
	Name       string
	URL        string
	RetryLimit int
	Client     *http.Client
}

// NewHTTPClient returns client when non-nil, otherwise a client bounded by timeout.
func NewHTTPClient(client *http.Client, timeout time.Duration) *http.Client {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &http.Client{Timeout: timeout}
}

// PostJSON encodes v once and delivers it, making up to RetryLimit+1 attempts.
// The error from the final attempt is returned.
func (w *Webhook) PostJSON(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", w.Name, err)
	}

	attempts := max(w.RetryLimit, 0) + 1
	for attempt := 1; ; attempt++ {
		err = w.post(ctx, body)
		if err == nil || attempt == attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * webhookBackoffStep):
		}
	}
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", w.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", w.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s responded %s: %s", w.Name, resp.Status, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
