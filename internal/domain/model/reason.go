package model

import "sort"

// ReasonCode explains why an eligibility check blocked a send.
type ReasonCode string

const (
	ReasonDNC                ReasonCode = "DNC"
	ReasonMissingConsent     ReasonCode = "missing_consent"
	ReasonChannelNotAllowed  ReasonCode = "channel_not_allowed"
	ReasonQuietHours         ReasonCode = "quiet_hours"
	ReasonUnknownParty       ReasonCode = "unknown_party"
	ReasonInvalidDestination ReasonCode = "invalid_destination"
	ReasonCampaignInactive   ReasonCode = "campaign_inactive"
)

// reasonPrecedence orders reasons so the first one reported is the most significant.
var reasonPrecedence = map[ReasonCode]int{
	ReasonDNC:                0,
	ReasonMissingConsent:     1,
	ReasonChannelNotAllowed:  2,
	ReasonQuietHours:         3,
	ReasonUnknownParty:       4,
	ReasonInvalidDestination: 5,
	ReasonCampaignInactive:   6,
}

// Valid reports whether r is a known reason code.
func (r ReasonCode) Valid() bool {
	_, ok := reasonPrecedence[r]
	return ok
}

// Description returns a short operator-facing explanation.
func (r ReasonCode) Description() string {
	switch r {
	case ReasonDNC:
		return "customer opted out of all contact"
	case ReasonMissingConsent:
		return "no channel consent on record"
	case ReasonChannelNotAllowed:
		return "channel not permitted for this customer or campaign"
	case ReasonQuietHours:
		return "inside the customer's quiet hours"
	case ReasonUnknownParty:
		return "destination is not linked to a verified customer"
	case ReasonInvalidDestination:
		return "destination could not be normalized"
	case ReasonCampaignInactive:
		return "campaign is not active"
	}
	return string(r)
}

// SortReasons deduplicates reasons and orders them by precedence.
func SortReasons(in []ReasonCode) []ReasonCode {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[ReasonCode]struct{}, len(in))
	out := make([]ReasonCode, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return precedenceOf(out[i]) < precedenceOf(out[j])
	})
	return out
}

func precedenceOf(r ReasonCode) int {
	if p, ok := reasonPrecedence[r]; ok {
		return p
	}
	return len(reasonPrecedence)
}
