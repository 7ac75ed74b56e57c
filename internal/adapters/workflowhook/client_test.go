package workflowhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/domain/model"
)

func testEvent() core.WorkflowEvent {
	outcome := model.OutcomeSuccessVerified
	return core.WorkflowEvent{
		Type:        core.WorkflowEventJobSent,
		JobID:       "job-1",
		CampaignID:  "camp-1",
		Channel:     model.ChannelSMS,
		Status:      string(model.JobStatusSent),
		OutcomeCode: &outcome,
		OccurredAt:  time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{URL: "  "}, nil)
	require.Error(t, err)
}

func TestClient_Notify(t *testing.T) {
	received := make(chan core.WorkflowEvent, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, core.WorkflowEventJobSent, r.Header.Get("X-Event-Type"))
		var ev core.WorkflowEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		received <- ev
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Notify(context.Background(), testEvent()))

	got := <-received
	assert.Equal(t, "job-1", got.JobID)
	require.NotNil(t, got.OutcomeCode)
	assert.Equal(t, model.OutcomeSuccessVerified, *got.OutcomeCode)
}

func TestClient_NotifyBestEffort(t *testing.T) {
	t.Run("logs non-2xx responses", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		c, err := NewClient(Config{URL: srv.URL}, logger)
		require.NoError(t, err)

		c.NotifyBestEffort(context.Background(), testEvent())
		assert.Contains(t, buf.String(), "workflow hook delivery failed")
		assert.Contains(t, buf.String(), "HTTP 502")
	})

	t.Run("ignores caller cancellation", func(t *testing.T) {
		hits := make(chan struct{}, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits <- struct{}{}
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		c, err := NewClient(Config{URL: srv.URL, Timeout: time.Second}, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c.NotifyBestEffort(ctx, testEvent())

		select {
		case <-hits:
		default:
			t.Fatal("hook was not called")
		}
	})

	t.Run("bounded by timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		c, err := NewClient(Config{URL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
		require.NoError(t, err)

		start := time.Now()
		c.NotifyBestEffort(context.Background(), testEvent())
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}
