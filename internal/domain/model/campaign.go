package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CampaignStatus is the administrative state of a campaign.
type CampaignStatus string

const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusInactive CampaignStatus = "inactive"
)

// Valid reports whether s is a known campaign status.
func (s CampaignStatus) Valid() bool {
	return s == CampaignStatusActive || s == CampaignStatusInactive
}

// Campaign groups outbound jobs under a business purpose.
type Campaign struct {
	ID              string          `json:"id"               db:"id"`
	Name            string          `json:"name"             db:"name"`
	Purpose         CampaignPurpose `json:"purpose"          db:"purpose"`
	AllowedChannels []Channel       `json:"allowed_channels" db:"allowed_channels"`
	Status          CampaignStatus  `json:"status"           db:"status"`
	CreatedAt       time.Time       `json:"created_at"       db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"       db:"updated_at"`
}

// Allows reports whether the campaign permits sending on ch. A campaign with no channel
// list allows every channel.
func (c *Campaign) Allows(ch Channel) bool {
	if c == nil {
		return false
	}
	if len(c.AllowedChannels) == 0 {
		return true
	}
	return ContainsChannel(c.AllowedChannels, ch)
}

// IsActive reports whether the campaign accepts new sends.
func (c *Campaign) IsActive() bool {
	return c != nil && c.Status == CampaignStatusActive
}

// CreateCampaignRequest represents a request to create a campaign.
type CreateCampaignRequest struct {
	Name            string          `json:"name"`
	Purpose         CampaignPurpose `json:"purpose"`
	AllowedChannels []Channel       `json:"allowed_channels"`
	Status          CampaignStatus  `json:"status,omitempty"`
}

// Normalize trims the name, applies the default status and drops duplicate channels.
func (r *CreateCampaignRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	if r.Status == "" {
		r.Status = CampaignStatusActive
	}
	seen := make(map[Channel]struct{}, len(r.AllowedChannels))
	out := r.AllowedChannels[:0]
	for _, ch := range r.AllowedChannels {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	r.AllowedChannels = out
}

// Validate validates the CreateCampaignRequest fields.
func (r *CreateCampaignRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if len(r.Name) > 255 {
		return errors.New("name must be 255 characters or fewer")
	}
	if !r.Purpose.Valid() {
		return fmt.Errorf("invalid purpose: %q", r.Purpose)
	}
	if r.Status != "" && !r.Status.Valid() {
		return fmt.Errorf("invalid status: %q", r.Status)
	}
	for _, ch := range r.AllowedChannels {
		if !ch.Valid() {
			return fmt.Errorf("invalid channel: %q", ch)
		}
	}
	return nil
}
