// Package deadletter fans dead-letter events out to every configured escalation sink.
package deadletter

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/target/mmk-outbound/internal/core"
	"github.com/target/mmk-outbound/internal/observability/notify"
)

// DefaultSinkTimeout bounds each sink delivery.
const DefaultSinkTimeout = 10 * time.Second

// SinkRegistration names a sink for logs.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the dead-letter service.
type Options struct {
	Logger      *slog.Logger
	Sinks       []SinkRegistration
	SinkTimeout time.Duration
}

// Service dispatches dead-letter events to all registered sinks.
type Service struct {
	log     *slog.Logger
	targets []SinkRegistration
	timeout time.Duration
}

var _ core.DeadLetterPublisher = (*Service)(nil)

// NewService constructs a dead-letter service. Nil sinks are dropped and
// unnamed ones are called "sink".
func NewService(opts Options) *Service {
	s := &Service{
		log:     cmp.Or(opts.Logger, slog.Default()).With("component", "deadletter"),
		timeout: opts.SinkTimeout,
	}
	if s.timeout <= 0 {
		s.timeout = DefaultSinkTimeout
	}
	for _, reg := range opts.Sinks {
		if reg.Sink != nil {
			s.targets = append(s.targets, SinkRegistration{Name: cmp.Or(reg.Name, "sink"), Sink: reg.Sink})
		}
	}
	return s
}

// Publish delivers event to every sink concurrently and returns once all have
// finished. Failures are logged, never returned.
func (s *Service) Publish(ctx context.Context, event notify.DeadLetterEvent) {
	if !s.Enabled() {
		return
	}
	event.EventType = cmp.Or(event.EventType, notify.EventTypeDeadLettered)
	event.Severity = cmp.Or(event.Severity, notify.SeverityCritical)
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	// A finished batch must not cancel escalation.
	detached := context.WithoutCancel(ctx)

	var g errgroup.Group
	for _, target := range s.targets {
		g.Go(func() error {
			if err := s.deliver(detached, target, event); err != nil {
				s.log.ErrorContext(ctx, "dead-letter delivery error",
					"sink", target.Name,
					"job_id", event.JobID,
					"channel", event.Channel,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) deliver(ctx context.Context, target SinkRegistration, event notify.DeadLetterEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return target.Sink.SendDeadLetter(ctx, event)
}

// Enabled reports whether any sink is registered.
func (s *Service) Enabled() bool { return len(s.targets) > 0 }

// SinkNames lists the registered sinks in registration order.
func (s *Service) SinkNames() []string {
	out := make([]string, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, t.Name)
	}
	return out
}
