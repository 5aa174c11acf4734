// Package events publishes workshop domain events to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Routing keys of the published events.
const (
	WorkshopCreated       = "workshop.created"
	VoteCast              = "vote.cast"
	WorkshopStatusChanged = "workshop.status_changed"
)

// Event is the JSON body of every published message.
type Event struct {
	Type       string      `json:"type"`
	WorkshopID int64       `json:"workshopId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

// NewEvent stamps an event about a workshop with the current UTC time.
func NewEvent(eventType string, workshopID int64, payload interface{}) Event {
	return Event{Type: eventType, WorkshopID: workshopID, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher delivers domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// AMQPPublisher publishes to a durable topic exchange with the event type as routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	mu       sync.Mutex
	logger   zerolog.Logger
}

// Dial connects to the broker, retrying a few times before giving up.
func Dial(url string, attempts int, backoff time.Duration, logger zerolog.Logger) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < attempts; i++ {
		if conn, err = amqp.Dial(url); err == nil {
			logger.Info().Msg("Successfully connected to RabbitMQ")
			return conn, nil
		}
		logger.Warn().Err(err).Int("attempt", i+1).Dur("retryIn", backoff).Msg("Failed to connect to RabbitMQ")
		time.Sleep(backoff)
	}
	return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", attempts, err)
}

// NewAMQPPublisher opens a channel on conn and declares the exchange.
func NewAMQPPublisher(conn *amqp.Connection, exchange string, logger zerolog.Logger) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
	}
	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger.With().Str("component", "event_publisher").Logger(),
	}, nil
}

// Publish sends the event as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, event.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	p.logger.Debug().Str("type", event.Type).Msg("Event published")
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.Close(); err != nil && !p.conn.IsClosed() {
		p.logger.Warn().Err(err).Msg("Error closing AMQP channel")
	}
	return p.conn.Close()
}

// Fanout delivers every event to each publisher in order. All publishers are
// tried; their errors are joined.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

func (f Fanout) Close() error {
	var errs error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// RecordingPublisher keeps published events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (r *RecordingPublisher) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }

// Events returns a snapshot of everything published so far.
func (r *RecordingPublisher) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the routing keys of the recorded events in publish order.
func (r *RecordingPublisher) Types() []string {
	events := r.Events()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}
