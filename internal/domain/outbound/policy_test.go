package outbound

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/mmk-outbound/internal/domain/model"
)

func TestInQuietHours_WrapsMidnight(t *testing.T) {
	start := model.MustParseTimeOfDay("22:00")
	end := model.MustParseTimeOfDay("08:00")
	at := func(h, m int) time.Time { return time.Date(2024, 1, 1, h, m, 0, 0, time.UTC) }

	assert.True(t, InQuietHours(at(23, 30), start, end))
	assert.True(t, InQuietHours(at(2, 0), start, end))
	assert.True(t, InQuietHours(at(22, 0), start, end))
	assert.False(t, InQuietHours(at(8, 0), start, end))
	assert.False(t, InQuietHours(at(9, 0), start, end))
	assert.False(t, InQuietHours(at(21, 59), start, end))
}

func TestInQuietHours_SameDayWindow(t *testing.T) {
	start := model.MustParseTimeOfDay("12:00")
	end := model.MustParseTimeOfDay("14:00")

	assert.True(t, InQuietHours(time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), start, end))
	assert.False(t, InQuietHours(time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC), start, end))
	assert.False(t, InQuietHours(time.Date(2024, 1, 1, 11, 59, 0, 0, time.UTC), start, end))
}

func TestInQuietHours_EmptyWindow(t *testing.T) {
	same := model.MustParseTimeOfDay("09:00")
	assert.False(t, InQuietHours(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), same, same))
}

func TestResolveLocation(t *testing.T) {
	loc, used := ResolveLocation("", "Not/AZone", "America/New_York")
	assert.Equal(t, "America/New_York", used)
	assert.Equal(t, "America/New_York", loc.String())

	loc, used = ResolveLocation("bogus")
	assert.Equal(t, "", used)
	assert.Equal(t, time.UTC, loc)
}

func TestNormalizer_Phone(t *testing.T) {
	n := NewNormalizer("+1")

	cases := []struct {
		ch   model.Channel
		in   string
		want string
	}{
		{model.ChannelSMS, "+1 (415) 555-1234", "+14155551234"},
		{model.ChannelSMS, "415.555.1234", "+14155551234"},
		{model.ChannelVoice, "0044 20 7946 0958", "+442079460958"},
		{model.ChannelVoice, "tel:+442079460958", "+442079460958"},
		{model.ChannelChat, "whatsapp:+14155551234", "+14155551234"},
		{model.ChannelChat, "WA:+14155551234", "+14155551234"},
	}
	for _, tc := range cases {
		got, err := n.Normalize(tc.ch, tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "12345", "+1 415 555 12x4", "+0123456789"} {
		_, err := n.Normalize(model.ChannelSMS, bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, ErrInvalidDestination), bad)
	}
}

func TestNormalizer_Email(t *testing.T) {
	n := NewNormalizer("")

	got, err := n.Normalize(model.ChannelEmail, " mailto:Jane.Doe@Example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", got)

	for _, bad := range []string{"jane", "jane@localhost", "@example.com", "jane@nosuchtld"} {
		_, err := n.Normalize(model.ChannelEmail, bad)
		assert.ErrorIs(t, err, ErrInvalidDestination, bad)
	}
}

func TestGate_SensitiveUnverifiedGetsPrompt(t *testing.T) {
	g := NewGate(nil)
	job := &model.OutboundJob{
		Payload: model.OutboundPayload{
			VerificationState: model.VerificationUnset,
			Content: model.FraudAlertContent{
				Message: model.Message{FinalText: "Your card 4111 was charged $900"},
			},
		},
	}

	res := g.BuildOutboundContent(job, model.PurposeFraudAlert)
	assert.True(t, res.IsSensitive)
	assert.True(t, res.PromptSubstituted)
	assert.Equal(t, DefaultPromptCatalog().Prompt(model.PurposeFraudAlert).Text, res.Text)
	assert.NotContains(t, res.Text, "4111")
	assert.Empty(t, res.HTML)
}

func TestGate_ExplicitSensitiveServiceNotice(t *testing.T) {
	g := NewGate(nil)
	job := &model.OutboundJob{
		Payload: model.OutboundPayload{
			Sensitive: true,
			Content:   model.ServiceNoticeContent{Message: model.Message{Text: "balance is 10"}},
		},
	}

	res := g.BuildOutboundContent(job, model.PurposeServiceNotice)
	assert.True(t, res.PromptSubstituted)
	assert.NotEqual(t, "balance is 10", res.Text)
}

func TestGate_SensitiveVariantOnServiceNoticeCampaign(t *testing.T) {
	g := NewGate(nil)
	job := &model.OutboundJob{
		Payload: model.OutboundPayload{
			Content: model.CollectionsContent{Message: model.Message{Text: "you owe 10"}},
		},
	}

	res := g.BuildOutboundContent(job, model.PurposeServiceNotice)
	assert.True(t, res.PromptSubstituted)
}

func TestGate_VerifiedReleasesFinalText(t *testing.T) {
	g := NewGate(nil)
	job := &model.OutboundJob{
		Payload: model.OutboundPayload{
			VerificationState: model.VerificationVerified,
			Content: model.FraudAlertContent{
				Message: model.Message{Text: "general", FinalText: "final", HTML: "<p>final</p>"},
			},
		},
	}

	res := g.BuildOutboundContent(job, model.PurposeFraudAlert)
	assert.True(t, res.IsSensitive)
	assert.False(t, res.PromptSubstituted)
	assert.Equal(t, "final", res.Text)
	assert.Equal(t, "<p>final</p>", res.HTML)
}

func TestGate_FallbackChain(t *testing.T) {
	g := NewGate(nil)

	job := &model.OutboundJob{Payload: model.OutboundPayload{
		Content: model.ServiceNoticeContent{Message: model.Message{Text: "maintenance tonight"}},
	}}
	res := g.BuildOutboundContent(job, model.PurposeServiceNotice)
	assert.False(t, res.IsSensitive)
	assert.Equal(t, "maintenance tonight", res.Text)
	assert.Equal(t, "Service notice", res.Subject)

	job = &model.OutboundJob{Payload: model.OutboundPayload{}}
	res = g.BuildOutboundContent(job, model.PurposeServiceNotice)
	assert.Equal(t, GenericFallbackText, res.Text)
}

func TestLoadPromptCatalog(t *testing.T) {
	catalog, err := LoadPromptCatalog(strings.NewReader(`
prompts:
  collections:
    text: "Please call us back."
`))
	require.NoError(t, err)

	p := catalog.Prompt(model.PurposeCollections)
	assert.Equal(t, "Please call us back.", p.Text)
	assert.Equal(t, DefaultPromptCatalog().Prompt(model.PurposeCollections).Subject, p.Subject)
	assert.Equal(t, DefaultPromptCatalog().Prompt(model.PurposeFraudAlert), catalog.Prompt(model.PurposeFraudAlert))
}

func TestLoadPromptCatalog_Errors(t *testing.T) {
	_, err := LoadPromptCatalog(strings.NewReader("prompts:\n  marketing:\n    text: hi\n"))
	require.Error(t, err)

	_, err = LoadPromptCatalog(strings.NewReader("prompts:\n  fraud_alert:\n    text: \"\"\n"))
	require.Error(t, err)

	_, err = LoadPromptCatalog(strings.NewReader("prompt:\n  fraud_alert: {}\n"))
	require.Error(t, err)

	catalog, err := LoadPromptCatalog(strings.NewReader("   "))
	require.NoError(t, err)
	assert.NotNil(t, catalog)
}

func TestClaimPolicy(t *testing.T) {
	_, err := NewClaimPolicy(0)
	require.ErrorIs(t, err, ErrInvalidClaimTTL)

	p, err := NewClaimPolicy(2 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, p.Resolve(0, 0))
	assert.Equal(t, 5*time.Minute, p.Resolve(5*time.Minute, time.Minute))
	assert.Equal(t, 65*time.Second, p.Resolve(10*time.Second, time.Minute))
	assert.Equal(t, MinClaimTTL, p.Resolve(time.Second, 0))
}
