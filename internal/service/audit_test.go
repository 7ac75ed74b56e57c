package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/mmk-outbound/internal/domain/model"
	"github.com/target/mmk-outbound/internal/mocks"
	"github.com/target/mmk-outbound/internal/redact"
)

// recordingAuditRepo keeps audit entries in memory.
type recordingAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditLogEntry
}

func (r *recordingAuditRepo) Create(_ context.Context, entry *model.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingAuditRepo) List(context.Context, model.AuditListOptions) ([]*model.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.AuditLogEntry(nil), r.entries...), nil
}

func (r *recordingAuditRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.EventType
	}
	return out
}

func (r *recordingAuditRepo) find(eventType string) []*model.AuditLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AuditLogEntry
	for _, e := range r.entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func decodeObject(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestAuditLogger_WriteRedacts(t *testing.T) {
	repo := &recordingAuditRepo{}
	audit := NewAuditLogger(AuditLoggerOptions{Repo: repo})

	audit.Write(context.Background(), AuditEvent{
		ActorType: model.ActorEvaluator,
		EventType: model.AuditEligibilityEvaluated,
		Refs:      AuditRefs{JobID: "job-1", CampaignID: "camp-1"},
		Input: map[string]any{
			"destination": "jane.doe@example.com",
			"api_key":     "abc",
			"note":        "card 4111 1111 1111 1111 on file",
		},
		Output:  map[string]any{"eligible": true},
		Success: true,
	})

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, model.ActorEvaluator, entry.ActorType)
	assert.Equal(t, AuditEventVersion, entry.Version)
	assert.True(t, entry.Success)
	require.NotNil(t, entry.JobID)
	assert.Equal(t, "job-1", *entry.JobID)
	assert.Nil(t, entry.CustomerID)

	input := decodeObject(t, entry.Input)
	assert.Equal(t, redact.Sentinel+"@example.com", input["destination"])
	assert.Equal(t, redact.Sentinel, input["api_key"])
	assert.Contains(t, input["note"], redact.SentinelCard)
	assert.NotContains(t, string(entry.Input), "4111")

	output := decodeObject(t, entry.Output)
	assert.Equal(t, true, output["eligible"])
}

func TestAuditLogger_ErrorFields(t *testing.T) {
	repo := &recordingAuditRepo{}
	audit := NewAuditLogger(AuditLoggerOptions{Repo: repo})

	audit.Write(context.Background(), AuditEvent{
		EventType:   "otp_check_failed",
		Err:         errors.New("code 123456 rejected"),
		ErrorCode:   "otp_mismatch",
		AuthContext: true,
	})

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, model.ActorSystem, entry.ActorType, "unknown actors fall back to system")
	assert.JSONEq(t, `{}`, string(entry.Input))
	assert.Nil(t, entry.Output)
	require.NotNil(t, entry.ErrorCode)
	assert.Equal(t, "otp_mismatch", *entry.ErrorCode)
	require.NotNil(t, entry.ErrorMessage)
	assert.Equal(t, "code "+redact.SentinelOTP+" rejected", *entry.ErrorMessage)
}

func TestAuditLogger_NeverFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	audit := NewAuditLogger(AuditLoggerOptions{Repo: repo})

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("db down"))
	audit.Write(context.Background(), AuditEvent{EventType: "a"})

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *model.AuditLogEntry) error { panic("boom") },
	)
	assert.NotPanics(t, func() {
		audit.Write(context.Background(), AuditEvent{EventType: "b"})
	})

	var nilLogger *AuditLogger
	assert.NotPanics(t, func() {
		nilLogger.Write(context.Background(), AuditEvent{EventType: "c"})
	})
}

func TestAuditLogger_DetachesFromCallerCancellation(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockAuditRepository(ctrl)
	audit := NewAuditLogger(AuditLoggerOptions{Repo: repo})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ *model.AuditLogEntry) error {
			assert.NoError(t, ctx.Err())
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			return nil
		},
	)
	audit.Write(ctx, AuditEvent{EventType: "late"})
}

func TestTrackToolCall(t *testing.T) {
	ctx := context.Background()

	t.Run("success brackets the call", func(t *testing.T) {
		repo := &recordingAuditRepo{}
		audit := NewAuditLogger(AuditLoggerOptions{Repo: repo})

		got, err := TrackToolCall(ctx, audit, ToolCall{
			Name:      "channel_send",
			ActorType: model.ActorAdapter,
			Refs:      AuditRefs{JobID: "job-1"},
			Input:     map[string]any{"channel": "sms"},
		}, func(context.Context) (string, error) {
			return "SM0123456789abcdef0123456789abcdef", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "SM0123456789abcdef0123456789abcdef", got)

		assert.Equal(t, []string{"channel_send_started", "channel_send_succeeded"}, repo.eventTypes())
		done := repo.entries[1]
		assert.True(t, done.Success)
		output := decodeObject(t, done.Output)
		assert.Contains(t, output, "latency_ms")
		assert.Equal(t, "SM0123456789abcdef0123456789abcdef", output["result"])
	})

	t.Run("failure is returned unchanged", func(t *testing.T) {
		repo := &recordingAuditRepo{}
		audit := NewAuditLogger(AuditLoggerOptions{Repo: repo})
		sendErr := errors.New("provider down")

		_, err := TrackToolCall(ctx, audit, ToolCall{Name: "channel_send"}, func(context.Context) (int, error) {
			return 0, sendErr
		})
		require.ErrorIs(t, err, sendErr)

		assert.Equal(t, []string{"channel_send_started", "channel_send_failed"}, repo.eventTypes())
		failed := repo.entries[1]
		assert.False(t, failed.Success)
		require.NotNil(t, failed.ErrorMessage)
		assert.Equal(t, "provider down", *failed.ErrorMessage)
		assert.Contains(t, decodeObject(t, failed.Output), "latency_ms")
	})

	t.Run("auth context reaches every bracketing event", func(t *testing.T) {
		repo := &recordingAuditRepo{}
		audit := NewAuditLogger(AuditLoggerOptions{Repo: repo})

		_, err := TrackToolCall(ctx, audit, ToolCall{
			Name:        "channel_send",
			Input:       map[string]any{"note": "sent code 482913"},
			AuthContext: true,
		}, func(context.Context) (int, error) {
			return 0, errors.New("code 482913 bounced")
		})
		require.Error(t, err)

		require.Len(t, repo.entries, 2)
		for _, e := range repo.entries {
			assert.NotContains(t, string(e.Input), "482913", e.EventType)
			assert.Equal(t, "sent code "+redact.SentinelOTP, decodeObject(t, e.Input)["note"])
		}
		require.NotNil(t, repo.entries[1].ErrorMessage)
		assert.Equal(t, "code "+redact.SentinelOTP+" bounced", *repo.entries[1].ErrorMessage)
	})

	t.Run("digit runs survive outside auth context", func(t *testing.T) {
		repo := &recordingAuditRepo{}
		audit := NewAuditLogger(AuditLoggerOptions{Repo: repo})

		_, err := TrackToolCall(ctx, audit, ToolCall{
			Name:  "eligibility_evaluate",
			Input: map[string]any{"note": "order 482913"},
		}, func(context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
		assert.Equal(t, "order 482913", decodeObject(t, repo.entries[0].Input)["note"])
	})

	t.Run("nil logger only runs the call", func(t *testing.T) {
		calls := 0
		got, err := TrackToolCall(ctx, nil, ToolCall{Name: "x"}, func(context.Context) (int, error) {
			calls++
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, got)
		assert.Equal(t, 1, calls)
	})
}
