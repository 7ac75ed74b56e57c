// Package statsd provides the metric sink abstraction used across the outbound service
// together with a UDP StatsD client and a fan-out helper.
package statsd

import "time"

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Discard is a Sink that drops every metric.
var Discard Sink = discard{}

type discard struct{}

func (discard) Count(string, int64, map[string]string) {}
func (discard) Gauge(string, float64, map[string]string) {}
func (discard) Timing(string, time.Duration, map[string]string) {}

// Multi fans each metric out to every non-nil sink. It returns Discard when no sink
// remains and the sink itself when only one does.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if nested, ok := s.(multi); ok {
			out = append(out, nested...)
			continue
		}
		out = append(out, s)
	}
	switch len(out) {
	case 0:
		return Discard
	case 1:
		return out[0]
	}
	return out
}

type multi []Sink

func (m multi) Count(name string, value int64, tags map[string]string) {
	for _, s := range m {
		s.Count(name, value, tags)
	}
}

func (m multi) Gauge(name string, value float64, tags map[string]string) {
	for _, s := range m {
		s.Gauge(name, value, tags)
	}
}

func (m multi) Timing(name string, value time.Duration, tags map[string]string) {
	for _, s := range m {
		s.Timing(name, value, tags)
	}
}
