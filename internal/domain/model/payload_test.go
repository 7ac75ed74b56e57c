package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboundPayload_MarshalWritesKind(t *testing.T) {
	p := OutboundPayload{
		Sensitive:         true,
		VerificationState: VerificationPending,
		Content: FraudAlertContent{
			Message:  Message{Text: "card ending 1111 was used"},
			AlertRef: "FA-1",
		},
	}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	content, ok := generic["content"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fraud_alert", content["kind"])
	assert.Equal(t, "FA-1", content["alert_ref"])
	assert.Equal(t, "card ending 1111 was used", content["text"])
	assert.Equal(t, "pending", generic["verification_state"])
}

func TestOutboundPayload_UnmarshalSelectsVariant(t *testing.T) {
	raw := `{"sensitive":false,"content":{"kind":"collections","final_text":"pay now","amount_due":"10.00"}}`

	var p OutboundPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	c, ok := p.Content.(CollectionsContent)
	require.True(t, ok, "expected CollectionsContent, got %T", p.Content)
	assert.Equal(t, "10.00", c.AmountDue)
	assert.Equal(t, "pay now", p.Message().FinalText)
	assert.Equal(t, VerificationUnset, p.VerificationState)
}

func TestOutboundPayload_UnmarshalRejectsUnknownKind(t *testing.T) {
	var p OutboundPayload
	err := json.Unmarshal([]byte(`{"content":{"kind":"marketing","text":"hi"}}`), &p)
	require.Error(t, err)
}

func TestOutboundPayload_UnmarshalRequiresKind(t *testing.T) {
	var p OutboundPayload
	err := json.Unmarshal([]byte(`{"content":{"text":"hi"}}`), &p)
	require.Error(t, err)
}

func TestOutboundPayload_NilContent(t *testing.T) {
	raw, err := json.Marshal(OutboundPayload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sensitive":false,"verification_state":"unset"}`, string(raw))

	var p OutboundPayload
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Nil(t, p.Content)
	assert.Equal(t, Message{}, p.Message())
}

func TestNewContent(t *testing.T) {
	for _, purpose := range AllPurposes {
		c, err := NewContent(purpose, Message{Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, purpose, c.Purpose())
		assert.Equal(t, "x", c.Body().Text)
	}

	_, err := NewContent("marketing", Message{})
	require.Error(t, err)
}
