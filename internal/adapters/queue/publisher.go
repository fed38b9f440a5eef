// Package queue publishes ticket lifecycle events to RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"eventticketing/internal/domain"
)

// Config holds the broker connection and breaker settings.
type Config struct {
	URL             string
	Queue           string
	BreakerTimeout  time.Duration
	BreakerFailures uint32
}

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type rabbitPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     channel
	queue  string
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
	now    func() time.Time
}

// NewPublisher dials the broker and declares a durable queue. An empty URL yields a
// publisher that only logs.
func NewPublisher(cfg Config, logger *slog.Logger) (domain.TicketEventPublisher, func() error, error) {
	if cfg.URL == "" {
		logger.Info("queue url not set, ticket events will not be published")
		return &noopPublisher{logger: logger}, func() error { return nil }, nil
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq queue declare %q: %w", cfg.Queue, err)
	}
	p := newRabbitPublisher(ch, cfg, logger)
	p.conn = conn
	return p, p.Close, nil
}

func newRabbitPublisher(ch channel, cfg Config, logger *slog.Logger) *rabbitPublisher {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	settings := gobreaker.Settings{
		Name:        "rabbitmq-publisher",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &rabbitPublisher{
		ch:     ch,
		queue:  cfg.Queue,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
		now:    time.Now,
	}
}

func (p *rabbitPublisher) Publish(ctx context.Context, event domain.TicketEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ticket event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Type:         string(event.Type),
		MessageId:    event.TicketID + ":" + string(event.Type),
		Body:         body,
	}
	_, err = executeWithBreaker(p.cb, func() (struct{}, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return struct{}{}, p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close closes the channel and connection.
func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func executeWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return *new(T), err
	}
	return res.(T), nil
}

type noopPublisher struct {
	logger *slog.Logger
}

func (n *noopPublisher) Publish(ctx context.Context, event domain.TicketEvent) error {
	n.logger.DebugContext(ctx, "ticket event dropped (noop publisher)", "type", event.Type, "ticket_id", event.TicketID)
	return nil
}
