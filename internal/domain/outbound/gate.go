package outbound

import (
	"strings"

	"github.com/target/mmk-outbound/internal/domain/model"
)

// GateResult is the content a job is allowed to send right now.
type GateResult struct {
	Text    string
	Subject string
	// HTML is only populated when the real content is released.
	HTML        string
	IsSensitive bool
	// PromptSubstituted is true when Text is a verify prompt rather than the job's content.
	PromptSubstituted bool
}

// Gate decides whether a job's real content may be released.
type Gate struct {
	prompts *PromptCatalog
}

// NewGate returns a Gate using prompts, or the defaults when nil.
func NewGate(prompts *PromptCatalog) *Gate {
	if prompts == nil {
		prompts = DefaultPromptCatalog()
	}
	return &Gate{prompts: prompts}
}

// IsSensitive reports whether the payload must be withheld until verification.
func IsSensitive(payload model.OutboundPayload, purpose model.CampaignPurpose) bool {
	if payload.Sensitive || purpose.AlwaysSensitive() {
		return true
	}
	return contentSensitive(payload.Content)
}

// contentSensitive looks at the content variant itself, so a sensitive variant
// attached to a service_notice campaign is still withheld.
func contentSensitive(c model.Content) bool {
	switch c.(type) {
	case nil:
		return false
	case model.FraudAlertContent, model.KYCUpdateContent, model.CollectionsContent, model.CaseFollowupContent:
		return true
	case model.ServiceNoticeContent:
		return false
	}
	return true
}

// BuildOutboundContent returns the text to send for job under the campaign purpose.
// Sensitive content is never returned until the payload is verified.
func (g *Gate) BuildOutboundContent(job *model.OutboundJob, purpose model.CampaignPurpose) GateResult {
	payload := job.Payload
	sensitive := IsSensitive(payload, purpose)

	if sensitive && !payload.IsVerified() {
		promptPurpose := purpose
		if !promptPurpose.Valid() && payload.Content != nil {
			promptPurpose = payload.Content.Purpose()
		}
		p := g.prompts.Prompt(promptPurpose)
		return GateResult{
			Text:              p.Text,
			Subject:           p.Subject,
			IsSensitive:       true,
			PromptSubstituted: true,
		}
	}

	msg := payload.Message()
	return GateResult{
		Text:        firstNonBlank(msg.FinalText, msg.Text, GenericFallbackText),
		Subject:     firstNonBlank(msg.Subject, defaultSubjects[purpose], "Message"),
		HTML:        msg.HTML,
		IsSensitive: sensitive,
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
