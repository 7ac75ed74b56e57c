package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type captureSink struct {
	events []captured
}

func (c *captureSink) Count(name string, value int64, tags map[string]string) {
	c.events = append(c.events, captured{"count", name, float64(value), tags})
}

func (c *captureSink) Gauge(name string, value float64, tags map[string]string) {
	c.events = append(c.events, captured{"gauge", name, value, tags})
}

func (c *captureSink) Timing(name string, value time.Duration, tags map[string]string) {
	c.events = append(c.events, captured{"timing", name, float64(value), tags})
}

func TestEmitOutboundTransition(t *testing.T) {
	sink := &captureSink{}
	EmitOutboundTransition(sink, OutboundMetric{
		Channel:    "sms",
		Transition: "retry_scheduled",
		Result:     ResultError,
		Duration:   250 * time.Millisecond,
		Err:        errors.New("boom"),
	})

	require.Len(t, sink.events, 2)
	assert.Equal(t, NameTransition, sink.events[0].name)
	assert.Equal(t, "sms", sink.events[0].tags["channel"])
	assert.Equal(t, "errors_errorstring", sink.events[0].tags["error_class"])
	assert.Equal(t, NameSendDuration, sink.events[1].name)

	// The timing tags are a copy.
	sink.events[1].tags["channel"] = "voice"
	assert.Equal(t, "sms", sink.events[0].tags["channel"])
}

func TestEmitOutboundTransition_NoDuration(t *testing.T) {
	sink := &captureSink{}
	EmitOutboundTransition(sink, OutboundMetric{Channel: "email", Transition: "cancelled", Result: ResultSuccess})
	require.Len(t, sink.events, 1)
	assert.NotContains(t, sink.events[0].tags, "error_class")

	EmitOutboundTransition(nil, OutboundMetric{})
}

func TestEmitBatch(t *testing.T) {
	sink := &captureSink{}
	EmitBatch(sink, BatchMetric{Claimed: 0, Duration: time.Second})
	require.Len(t, sink.events, 2)
	assert.Equal(t, "gauge", sink.events[0].kind)
	assert.Equal(t, ResultNoop, sink.events[0].tags["result"])

	sink = &captureSink{}
	EmitBatch(sink, BatchMetric{Claimed: 3, Err: errors.New("claim failed")})
	assert.Equal(t, ResultError, sink.events[0].tags["result"])
	assert.InDelta(t, 3.0, sink.events[0].value, 0)
}

func TestEmitCacheEvent(t *testing.T) {
	sink := &captureSink{}
	EmitCacheEvent(sink, "preferences", "miss", true)
	EmitCacheEvent(sink, "preferences", "write", false)
	EmitCacheEvent(nil, "preferences", "hit", true)

	require.Len(t, sink.events, 2)
	assert.Equal(t, NameCache, sink.events[0].name)
	assert.Equal(t, map[string]string{"cache": "preferences", "op": "miss", "result": ResultSuccess}, sink.events[0].tags)
	assert.Equal(t, ResultError, sink.events[1].tags["result"])
}

func TestResultFor(t *testing.T) {
	assert.Equal(t, ResultError, ResultFor(errors.New("x"), 5))
	assert.Equal(t, ResultNoop, ResultFor(nil, 0))
	assert.Equal(t, ResultSuccess, ResultFor(nil, 2))
}

func TestEmitReaperPass(t *testing.T) {
	sink := &captureSink{}
	EmitReaperPass(sink, 40*time.Millisecond,
		ReaperOperation{Name: "release_claims", Rows: 2},
		ReaperOperation{Name: "delete_terminal"},
	)

	names := make([]string, 0, len(sink.events))
	for _, ev := range sink.events {
		names = append(names, ev.name)
	}
	assert.Equal(t, []string{
		NameReaperOperation, NameReaperRows, NameReaperOperation,
		NameReaperPass, NameReaperDuration, NameReaperLastSuccess,
	}, names)
	assert.Equal(t, ResultNoop, sink.events[2].tags["result"])
	assert.Equal(t, ResultSuccess, sink.events[3].tags["result"])

	sink = &captureSink{}
	EmitReaperPass(sink, 0,
		ReaperOperation{Name: "release_claims", Err: errors.New("boom")},
		ReaperOperation{Name: "delete_terminal", Rows: 7},
	)
	require.Len(t, sink.events, 4)
	assert.Equal(t, "errors_errorstring", sink.events[0].tags["error_class"])
	pass := sink.events[3]
	assert.Equal(t, NameReaperPass, pass.name)
	assert.Equal(t, ResultError, pass.tags["result"])
}
