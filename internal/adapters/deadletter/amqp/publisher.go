// Package amqp publishes dead-letter events to a durable RabbitMQ queue.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/target/mmk-outbound/internal/observability/notify"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "outbound.deadletter"

// Channel is the subset of *amqp.Channel used by the publisher.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Connection is the subset of *amqp.Connection used by the publisher.
type Connection interface {
	Channel() (Channel, error)
	Close() error
}

// Dialer opens a broker connection.
type Dialer func(url string) (Connection, error)

// Config configures a Publisher.
type Config struct {
	URL   string
	Queue string
}

// Options groups dependencies for NewPublisher.
type Options struct {
	Config Config
	Dialer Dialer // Optional, defaults to amqp.Dial
	Logger *slog.Logger
}

// Publisher is a notify.Sink that writes each event as a persistent JSON message.
// The connection is opened on first use and re-established after a failed publish.
type Publisher struct {
	cfg    Config
	dial   Dialer
	logger *slog.Logger

	mu       sync.Mutex
	conn     Connection
	ch       Channel
	declared bool
}

var _ notify.Sink = (*Publisher)(nil)

// NewPublisher constructs a Publisher. No connection is made until the first event.
func NewPublisher(opts Options) (*Publisher, error) {
	cfg := opts.Config
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil, errors.New("amqp url is required")
	}
	cfg.Queue = strings.TrimSpace(cfg.Queue)
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueue
	}
	dial := opts.Dialer
	if dial == nil {
		dial = dialAMQP
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:    cfg,
		dial:   dial,
		logger: logger.With("component", "deadletter_amqp", "queue", cfg.Queue),
	}, nil
}

// SendDeadLetter implements notify.Sink.
func (p *Publisher) SendDeadLetter(ctx context.Context, event notify.DeadLetterEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal dead-letter event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.JobID,
		Type:         event.EventType,
		Timestamp:    event.OccurredAt.UTC(),
		Body:         body,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publishLocked(msg)
	if err == nil {
		return nil
	}
	// A broken channel surfaces on publish; reconnect once and retry.
	p.logger.WarnContext(ctx, "amqp publish failed, reconnecting", "job_id", event.JobID, "error", err)
	p.resetLocked()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(err, ctxErr)
	}
	if err := p.publishLocked(msg); err != nil {
		p.resetLocked()
		return fmt.Errorf("publish dead-letter event: %w", err)
	}
	return nil
}

func (p *Publisher) publishLocked(msg amqp.Publishing) error {
	if err := p.ensureLocked(); err != nil {
		return err
	}
	return p.ch.Publish("", p.cfg.Queue, false, false, msg)
}

func (p *Publisher) ensureLocked() error {
	if p.conn == nil {
		conn, err := p.dial(p.cfg.URL)
		if err != nil {
			return fmt.Errorf("dial amqp: %w", err)
		}
		p.conn = conn
	}
	if p.ch == nil {
		ch, err := p.conn.Channel()
		if err != nil {
			return fmt.Errorf("open amqp channel: %w", err)
		}
		p.ch = ch
		p.declared = false
	}
	if !p.declared {
		if _, err := p.ch.QueueDeclare(p.cfg.Queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", p.cfg.Queue, err)
		}
		p.declared = true
	}
	return nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	p.declared = false
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
	return nil
}

type amqpConnection struct {
	conn *amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c amqpConnection) Close() error { return c.conn.Close() }

func dialAMQP(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn: conn}, nil
}
