// Package model defines the core data types shared by the outbound delivery pipeline.
package model

import (
	"fmt"
	"strings"
)

// Channel identifies the transport used to reach a customer.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type Channel string

const (
	// ChannelChat delivers through a chat-message provider (WhatsApp Cloud API).
	ChannelChat Channel = "chat"
	// ChannelEmail delivers through an email API.
	ChannelEmail Channel = "email"
	// ChannelVoice places an outbound voice call.
	ChannelVoice Channel = "voice"
	// ChannelSMS delivers a text message.
	ChannelSMS Channel = "sms"
)

// AllChannels lists every supported channel in a stable order.
var AllChannels = []Channel{ChannelChat, ChannelEmail, ChannelVoice, ChannelSMS}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelChat, ChannelEmail, ChannelVoice, ChannelSMS:
		return true
	}
	return false
}

// IsPhoneBased reports whether the channel addresses an E.164 phone number.
func (c Channel) IsPhoneBased() bool {
	return c == ChannelChat || c == ChannelVoice || c == ChannelSMS
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown channels.
func (c *Channel) UnmarshalText(text []byte) error {
	v := Channel(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid channel: %q", string(text))
	}
	*c = v
	return nil
}

// ContainsChannel reports whether ch is present in set.
func ContainsChannel(set []Channel, ch Channel) bool {
	for _, c := range set {
		if c == ch {
			return true
		}
	}
	return false
}

// CampaignPurpose is the business reason a campaign contacts customers.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type CampaignPurpose string

const (
	PurposeFraudAlert    CampaignPurpose = "fraud_alert"
	PurposeKYCUpdate     CampaignPurpose = "kyc_update"
	PurposeCollections   CampaignPurpose = "collections"
	PurposeCaseFollowup  CampaignPurpose = "case_followup"
	PurposeServiceNotice CampaignPurpose = "service_notice"
)

// AllPurposes lists every campaign purpose.
var AllPurposes = []CampaignPurpose{
	PurposeFraudAlert,
	PurposeKYCUpdate,
	PurposeCollections,
	PurposeCaseFollowup,
	PurposeServiceNotice,
}

// Valid reports whether p is a known purpose.
func (p CampaignPurpose) Valid() bool {
	switch p {
	case PurposeFraudAlert, PurposeKYCUpdate, PurposeCollections, PurposeCaseFollowup, PurposeServiceNotice:
		return true
	}
	return false
}

// AlwaysSensitive reports whether content sent for this purpose must be treated as
// account-specific regardless of the payload's own flag.
func (p CampaignPurpose) AlwaysSensitive() bool {
	switch p {
	case PurposeFraudAlert, PurposeCollections, PurposeKYCUpdate, PurposeCaseFollowup:
		return true
	case PurposeServiceNotice:
		return false
	}
	// Unknown purposes are treated as sensitive.
	return true
}

// UnmarshalText implements encoding.TextUnmarshaler and rejects unknown purposes.
func (p *CampaignPurpose) UnmarshalText(text []byte) error {
	v := CampaignPurpose(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid campaign purpose: %q", string(text))
	}
	*p = v
	return nil
}
