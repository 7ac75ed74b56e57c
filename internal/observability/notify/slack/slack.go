// Package slack posts dead-letter alerts to a Slack incoming webhook.
package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/target/mmk-outbound/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// JobURLPrefix turns the job id into a link when it is an absolute URL.
	JobURLPrefix string
}

// Client is a notify.Sink backed by a Slack webhook.
type Client struct {
	channel   string
	username  string
	jobURLFor func(jobID string) string
	hook      notify.Webhook
}

type message struct {
	Text     string `json:"text"`
	Username string `json:"username"`
	Channel  string `json:"channel,omitempty"`
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// NewClient requires a webhook URL.
func NewClient(cfg Config) (*Client, error) {
	webhook := strings.TrimSpace(cfg.WebhookURL)
	if webhook == "" {
		return nil, errors.New("slack webhook url is required")
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = "mmk-outbound"
	}
	return &Client{
		channel:   strings.TrimSpace(cfg.Channel),
		username:  username,
		jobURLFor: jobLinker(strings.TrimSpace(cfg.JobURLPrefix)),
		hook: notify.Webhook{
			Name:       "slack",
			URL:        webhook,
			RetryLimit: cfg.RetryLimit,
			Client:     notify.NewHTTPClient(cfg.Client, cfg.Timeout),
		},
	}, nil
}

// SendDeadLetter posts one message per event.
func (c *Client) SendDeadLetter(ctx context.Context, ev notify.DeadLetterEvent) error {
	return c.hook.PostJSON(ctx, c.formatMessage(ev))
}

func (c *Client) formatMessage(ev notify.DeadLetterEvent) message {
	var b strings.Builder
	b.WriteString("*Outbound job dead-lettered*")
	if ev.JobID != "" {
		fmt.Fprintf(&b, " `%s`", escaper.Replace(ev.JobID))
	}
	if ev.Channel != "" {
		fmt.Fprintf(&b, " (%s)", escaper.Replace(ev.Channel))
	}
	b.WriteByte('\n')

	severity := ev.Severity
	if severity == "" {
		severity = notify.SeverityCritical
	}
	job := ""
	if link := c.jobURLFor(ev.JobID); link != "" {
		job = fmt.Sprintf("<%s|%s>", link, escaper.Replace(ev.JobID))
	}
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	for _, f := range [][2]string{
		{"Severity", severity},
		{"Job", job},
		{"Campaign", escaper.Replace(ev.CampaignID)},
		{"Destination", escaper.Replace(ev.DestinationHint)},
		{"Attempts", strconv.Itoa(ev.AttemptCount)},
		{"Last error code", escaper.Replace(ev.LastErrorCode)},
		{"Last error", escaper.Replace(ev.LastErrorMessage)},
		{"Timestamp", at.UTC().Format(time.RFC3339)},
	} {
		if strings.TrimSpace(f[1]) != "" {
			fmt.Fprintf(&b, "• %s: %s\n", f[0], f[1])
		}
	}

	return message{
		Text:     strings.TrimSuffix(b.String(), "\n"),
		Username: c.username,
		Channel:  c.channel,
	}
}

// jobLinker returns a func that joins a job id onto prefix. An empty or
// relative prefix yields no links.
func jobLinker(prefix string) func(string) string {
	u, err := url.Parse(prefix)
	if prefix == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return func(string) string { return "" }
	}
	return func(jobID string) string {
		if jobID == "" {
			return ""
		}
		link, err := url.JoinPath(u.String(), jobID)
		if err != nil {
			return ""
		}
		return link
	}
}
