package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a local wall-clock time stored as minutes after midnight.
type TimeOfDay int

// MinutesPerDay bounds TimeOfDay values.
const MinutesPerDay = 24 * 60

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for constants and tests.
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayOf returns the wall-clock time of t in its own location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Valid reports whether t falls inside a day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes the value as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes "HH:MM".
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// CommPreferences holds a customer's contact consent.
type CommPreferences struct {
	CustomerID      string     `json:"customer_id"                 db:"customer_id"`
	DoNotContact    bool       `json:"do_not_contact"              db:"do_not_contact"`
	AllowedChannels []Channel  `json:"allowed_channels"            db:"allowed_channels"`
	QuietHoursStart *TimeOfDay `json:"quiet_hours_start,omitempty" db:"quiet_hours_start"`
	QuietHoursEnd   *TimeOfDay `json:"quiet_hours_end,omitempty"   db:"quiet_hours_end"`
	Timezone        string     `json:"timezone,omitempty"          db:"timezone"`
	UpdatedAt       time.Time  `json:"updated_at"                  db:"updated_at"`
}

// HasQuietHours reports whether both ends of the quiet window are set.
func (p *CommPreferences) HasQuietHours() bool {
	return p != nil && p.QuietHoursStart != nil && p.QuietHoursEnd != nil
}

// IdentityLink maps a (channel, normalized address) pair to a customer.
type IdentityLink struct {
	Channel    Channel   `json:"channel"     db:"channel"`
	Address    string    `json:"address"     db:"address"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	Verified   bool      `json:"verified"    db:"verified"`
	CreatedAt  time.Time `json:"created_at"  db:"created_at"`
}
