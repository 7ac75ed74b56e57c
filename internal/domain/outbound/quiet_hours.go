package outbound

import (
	"strings"
	"time"

	"github.com/target/mmk-outbound/internal/domain/model"
)

// InQuietHours reports whether local falls inside [start, end). The window wraps
// past midnight when start > end. An empty window (start == end) never matches.
func InQuietHours(local time.Time, start, end model.TimeOfDay) bool {
	if start == end {
		return false
	}
	now := model.TimeOfDayOf(local)
	if start < end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

// ResolveLocation picks the first loadable zone from the candidates and falls back
// to UTC. It also reports which candidate was used ("" for the UTC fallback).
func ResolveLocation(candidates ...string) (*time.Location, string) {
	for _, name := range candidates {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		loc, err := time.LoadLocation(name)
		if err != nil {
			continue
		}
		return loc, name
	}
	return time.UTC, ""
}
