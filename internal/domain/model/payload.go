package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// VerificationState tracks step-up verification of the recipient.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type VerificationState string

const (
	VerificationUnset    VerificationState = "unset"
	VerificationPending  VerificationState = "pending"
	VerificationVerified VerificationState = "verified"
)

// Valid reports whether v is a known verification state.
func (v VerificationState) Valid() bool {
	return v == VerificationUnset || v == VerificationPending || v == VerificationVerified
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value decodes to unset.
func (v *VerificationState) UnmarshalText(text []byte) error {
	s := VerificationState(strings.ToLower(strings.TrimSpace(string(text))))
	if s == "" {
		*v = VerificationUnset
		return nil
	}
	if !s.Valid() {
		return fmt.Errorf("invalid verification state: %q", string(text))
	}
	*v = s
	return nil
}

// Message is the candidate content shared by every payload variant.
type Message struct {
	Text      string `json:"text,omitempty"`
	FinalText string `json:"final_text,omitempty"`
	Subject   string `json:"subject,omitempty"`
	HTML      string `json:"html,omitempty"`
}

// Content is the purpose-specific body of an outbound payload. The set of
// implementations is closed to this package.
type Content interface {
	Purpose() CampaignPurpose
	Body() Message
	isContent()
}

// FraudAlertContent notifies a customer about suspicious account activity.
type FraudAlertContent struct {
	Message
	AlertRef string `json:"alert_ref,omitempty"`
}

// KYCUpdateContent asks a customer to refresh identity documents.
type KYCUpdateContent struct {
	Message
	DocumentsRequired []string `json:"documents_required,omitempty"`
}

// CollectionsContent reminds a customer about an outstanding balance.
type CollectionsContent struct {
	Message
	AmountDue string `json:"amount_due,omitempty"`
	DueDate   string `json:"due_date,omitempty"`
}

// CaseFollowupContent follows up on an open support case.
type CaseFollowupContent struct {
	Message
	CaseRef string `json:"case_ref,omitempty"`
}

// ServiceNoticeContent carries informational notices such as outages.
type ServiceNoticeContent struct {
	Message
	NoticeType string `json:"notice_type,omitempty"`
}

func (FraudAlertContent) Purpose() CampaignPurpose    { return PurposeFraudAlert }
func (KYCUpdateContent) Purpose() CampaignPurpose     { return PurposeKYCUpdate }
func (CollectionsContent) Purpose() CampaignPurpose   { return PurposeCollections }
func (CaseFollowupContent) Purpose() CampaignPurpose  { return PurposeCaseFollowup }
func (ServiceNoticeContent) Purpose() CampaignPurpose { return PurposeServiceNotice }

func (c FraudAlertContent) Body() Message    { return c.Message }
func (c KYCUpdateContent) Body() Message     { return c.Message }
func (c CollectionsContent) Body() Message   { return c.Message }
func (c CaseFollowupContent) Body() Message  { return c.Message }
func (c ServiceNoticeContent) Body() Message { return c.Message }

func (FraudAlertContent) isContent()    {}
func (KYCUpdateContent) isContent()     {}
func (CollectionsContent) isContent()   {}
func (CaseFollowupContent) isContent()  {}
func (ServiceNoticeContent) isContent() {}

// NewContent builds the variant for purpose around msg.
func NewContent(purpose CampaignPurpose, msg Message) (Content, error) {
	switch purpose {
	case PurposeFraudAlert:
		return FraudAlertContent{Message: msg}, nil
	case PurposeKYCUpdate:
		return KYCUpdateContent{Message: msg}, nil
	case PurposeCollections:
		return CollectionsContent{Message: msg}, nil
	case PurposeCaseFollowup:
		return CaseFollowupContent{Message: msg}, nil
	case PurposeServiceNotice:
		return ServiceNoticeContent{Message: msg}, nil
	}
	return nil, fmt.Errorf("invalid campaign purpose: %q", purpose)
}

// OutboundPayload is the structured content of a job plus its sensitivity and
// verification sub-state.
type OutboundPayload struct {
	Sensitive             bool
	VerificationState     VerificationState
	TimezoneHint          string
	ServiceNoticeOverride bool
	Content               Content
}

// IsVerified reports whether the recipient completed step-up verification.
func (p OutboundPayload) IsVerified() bool {
	return p.VerificationState == VerificationVerified
}

// Message returns the content body, or an empty message when no content is set.
func (p OutboundPayload) Message() Message {
	if p.Content == nil {
		return Message{}
	}
	return p.Content.Body()
}

type payloadJSON struct {
	Sensitive             bool              `json:"sensitive"`
	VerificationState     VerificationState `json:"verification_state"`
	TimezoneHint          string            `json:"timezone_hint,omitempty"`
	ServiceNoticeOverride bool              `json:"service_notice_override,omitempty"`
	Content               json.RawMessage   `json:"content,omitempty"`
}

// MarshalJSON encodes the payload with a "kind" discriminator on the content.
func (p OutboundPayload) MarshalJSON() ([]byte, error) {
	state := p.VerificationState
	if state == "" {
		state = VerificationUnset
	}
	out := payloadJSON{
		Sensitive:             p.Sensitive,
		VerificationState:     state,
		TimezoneHint:          p.TimezoneHint,
		ServiceNoticeOverride: p.ServiceNoticeOverride,
	}
	if p.Content != nil {
		raw, err := marshalContent(p.Content)
		if err != nil {
			return nil, err
		}
		out.Content = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the payload and selects the content variant from "kind".
func (p *OutboundPayload) UnmarshalJSON(data []byte) error {
	var in payloadJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.VerificationState == "" {
		in.VerificationState = VerificationUnset
	}
	content, err := unmarshalContent(in.Content)
	if err != nil {
		return err
	}
	*p = OutboundPayload{
		Sensitive:             in.Sensitive,
		VerificationState:     in.VerificationState,
		TimezoneHint:          in.TimezoneHint,
		ServiceNoticeOverride: in.ServiceNoticeOverride,
		Content:               content,
	}
	return nil
}

func marshalContent(c Content) (json.RawMessage, error) {
	body, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode payload content: %w", err)
	}
	kind, err := json.Marshal(string(c.Purpose()))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	buf.Write(kind)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unmarshalContent(raw json.RawMessage) (Content, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var head struct {
		Kind CampaignPurpose `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode payload content: %w", err)
	}
	if head.Kind == "" {
		return nil, errors.New("payload content requires a kind")
	}

	switch head.Kind {
	case PurposeFraudAlert:
		return decodeVariant[FraudAlertContent](raw)
	case PurposeKYCUpdate:
		return decodeVariant[KYCUpdateContent](raw)
	case PurposeCollections:
		return decodeVariant[CollectionsContent](raw)
	case PurposeCaseFollowup:
		return decodeVariant[CaseFollowupContent](raw)
	case PurposeServiceNotice:
		return decodeVariant[ServiceNoticeContent](raw)
	}
	return nil, fmt.Errorf("unknown payload content kind: %q", head.Kind)
}

func decodeVariant[T Content](raw json.RawMessage) (Content, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode payload content: %w", err)
	}
	return v, nil
}
