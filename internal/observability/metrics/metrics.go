// Package metrics emits the standard outbound pipeline metrics through a statsd.Sink.
package metrics

import (
	"time"

	obserrors "github.com/target/mmk-outbound/internal/observability/errors"
	"github.com/target/mmk-outbound/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Metric names.
const (
	NameTransition    = "outbound.transition"
	NameSendDuration  = "outbound.send.duration"
	NameBatchClaimed  = "outbound.batch.claimed"
	NameBatchDuration = "outbound.batch.duration"
	NameCache         = "outbound.cache"

	NameReaperPass        = "reaper.cleanup"
	NameReaperDuration    = "reaper.cleanup_duration"
	NameReaperOperation   = "reaper.cleanup_operation"
	NameReaperRows        = "reaper.rows_processed"
	NameReaperLastSuccess = "reaper.last_success_epoch"
)

// ResultFor maps an error and the amount of work done to a result tag.
func ResultFor(err error, n int64) string {
	switch {
	case err != nil:
		return ResultError
	case n == 0:
		return ResultNoop
	default:
		return ResultSuccess
	}
}

func withErrorClass(tags map[string]string, err error) map[string]string {
	if err == nil {
		return tags
	}
	if class := obserrors.Classify(err); class != "" {
		tags["error_class"] = class
	}
	return tags
}

// OutboundMetric captures one job transition (or send attempt) for metric emission.
type OutboundMetric struct {
	Channel    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitOutboundTransition emits the transition counter and, when a duration is present,
// the send timing.
func EmitOutboundTransition(sink statsd.Sink, in OutboundMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"channel":    in.Channel,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Result == ResultError {
		withErrorClass(tags, in.Err)
	}

	sink.Count(NameTransition, 1, tags)

	if in.Duration > 0 {
		sink.Timing(NameSendDuration, in.Duration, CloneTags(tags))
	}
}

// BatchMetric summarizes one RunDueJobs pass.
type BatchMetric struct {
	Claimed  int
	Duration time.Duration
	Err      error
}

// EmitBatch emits the claimed gauge and batch duration.
func EmitBatch(sink statsd.Sink, in BatchMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{"result": ResultFor(in.Err, int64(in.Claimed))}

	sink.Gauge(NameBatchClaimed, float64(in.Claimed), tags)
	sink.Timing(NameBatchDuration, in.Duration, CloneTags(tags))
}

// ReaperOperation is the outcome of one reaper step.
type ReaperOperation struct {
	Name string
	Rows int64
	Err  error
}

// EmitReaperPass emits the pass counter and timing plus one counter per step.
// Cancellation errors should be filtered out by the caller.
func EmitReaperPass(sink statsd.Sink, elapsed time.Duration, ops ...ReaperOperation) {
	if sink == nil {
		return
	}

	var (
		total int64
		first error
	)
	for _, op := range ops {
		total += op.Rows
		if first == nil {
			first = op.Err
		}

		tags := withErrorClass(map[string]string{
			"operation": op.Name,
			"result":    ResultFor(op.Err, op.Rows),
		}, op.Err)
		sink.Count(NameReaperOperation, 1, tags)
		if op.Err == nil && op.Rows > 0 {
			sink.Count(NameReaperRows, op.Rows, CloneTags(tags))
		}
	}

	tags := withErrorClass(map[string]string{"result": ResultFor(first, total)}, first)
	sink.Count(NameReaperPass, 1, tags)
	if elapsed > 0 {
		sink.Timing(NameReaperDuration, elapsed, CloneTags(tags))
	}
	if first == nil {
		sink.Gauge(NameReaperLastSuccess, float64(time.Now().Unix()), nil)
	}
}

// EmitCacheEvent counts one cache lookup or write. op is "hit", "miss", "write" or "invalidate".
func EmitCacheEvent(sink statsd.Sink, cache, op string, ok bool) {
	if sink == nil {
		return
	}
	result := ResultSuccess
	if !ok {
		result = ResultError
	}
	sink.Count(NameCache, 1, map[string]string{"cache": cache, "op": op, "result": result})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
