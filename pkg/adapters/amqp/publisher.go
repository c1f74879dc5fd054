// Package amqp publishes session completion events to a RabbitMQ exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageTypeSessionCompleted tags completion messages.
const MessageTypeSessionCompleted = "session.completed"

// Message is the envelope written to the broker.
type Message struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher implements ports.EventPublisher over a single AMQP channel.
type Publisher struct {
	exchange   string
	routingKey string
	logger     *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

type Option func(*Publisher)

// WithLogger sets the logger used for publish diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithRoutingKey overrides the routing key (default "session.completed").
func WithRoutingKey(key string) Option {
	return func(p *Publisher) {
		p.routingKey = key
	}
}

// Dial connects to the broker and declares exchange as a durable topic exchange.
func Dial(url, exchange string, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		exchange:   exchange,
		routingKey: MessageTypeSessionCompleted,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	p.conn = conn
	p.channel = ch
	p.logger.Info("connected to RabbitMQ", "exchange", exchange)
	return p, nil
}

// NewMessage wraps a completion event in the broker envelope.
func NewMessage(event *domain.CompletionEvent) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      MessageTypeSessionCompleted,
		Payload:   event,
		Timestamp: event.Timestamp,
	}
}

// Publish sends the event as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, event *domain.CompletionEvent) error {
	msg := NewMessage(event)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return errors.New("publisher is closed")
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", p.exchange, p.routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", p.exchange,
		"routing_key", p.routingKey,
		"message_id", msg.ID,
		"session_id", event.SessionID,
	)
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil {
		return nil
	}
	chErr := p.channel.Close()
	connErr := p.conn.Close()
	p.channel, p.conn = nil, nil
	return errors.Join(chErr, connErr)
}
