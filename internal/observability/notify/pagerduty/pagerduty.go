// Package pagerduty raises a PagerDuty incident for each dead-lettered job
// through the Events API v2.
package pagerduty

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/target/mmk-outbound/internal/observability/notify"
)

// APIEndpoint is the Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	// Endpoint overrides APIEndpoint, for tests and proxies.
	Endpoint   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
}

// Client is a notify.Sink backed by PagerDuty.
type Client struct {
	routingKey string
	source     string
	component  string
	hook       notify.Webhook
}

type event struct {
	RoutingKey  string  `json:"routing_key"`
	EventAction string  `json:"event_action"`
	DedupKey    string  `json:"dedup_key"`
	Payload     payload `json:"payload"`
}

type payload struct {
	Summary       string        `json:"summary"`
	Severity      string        `json:"severity"`
	Source        string        `json:"source"`
	Component     string        `json:"component"`
	Timestamp     string        `json:"timestamp"`
	CustomDetails customDetails `json:"custom_details"`
}

type customDetails struct {
	JobID           string `json:"job_id"`
	CampaignID      string `json:"campaign_id"`
	Channel         string `json:"channel"`
	DestinationHint string `json:"destination_hint"`
	AttemptCount    int    `json:"attempt_count"`
	LastErrorCode   string `json:"last_error_code"`
	LastError       string `json:"last_error"`
}

// NewClient requires a routing key; the other fields have defaults.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}
	return &Client{
		routingKey: key,
		source:     or(cfg.Source, "mmk-outbound"),
		component:  or(cfg.Component, "outbound-runner"),
		hook: notify.Webhook{
			Name:       "pagerduty",
			URL:        or(cfg.Endpoint, APIEndpoint),
			RetryLimit: cfg.RetryLimit,
			Client:     notify.NewHTTPClient(cfg.Client, cfg.Timeout),
		},
	}, nil
}

// SendDeadLetter triggers an incident keyed by job, so repeated escalations
// for one job fold into a single incident.
func (c *Client) SendDeadLetter(ctx context.Context, ev notify.DeadLetterEvent) error {
	return c.hook.PostJSON(ctx, c.buildEvent(ev))
}

func (c *Client) buildEvent(ev notify.DeadLetterEvent) event {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return event{
		RoutingKey:  c.routingKey,
		EventAction: "trigger",
		DedupKey:    strings.Trim(notify.EventTypeDeadLettered+":"+ev.JobID, ":"),
		Payload: payload{
			Summary: fmt.Sprintf("Outbound job %s (%s) dead-lettered after %d attempts",
				or(ev.JobID, "unknown"), or(ev.Channel, "unknown"), ev.AttemptCount),
			Severity:  or(strings.ToLower(ev.Severity), notify.SeverityCritical),
			Source:    c.source,
			Component: c.component,
			Timestamp: at.UTC().Format(time.RFC3339),
			CustomDetails: customDetails{
				JobID:           ev.JobID,
				CampaignID:      ev.CampaignID,
				Channel:         ev.Channel,
				DestinationHint: ev.DestinationHint,
				AttemptCount:    ev.AttemptCount,
				LastErrorCode:   ev.LastErrorCode,
				LastError:       ev.LastErrorMessage,
			},
		},
	}
}

func or(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
