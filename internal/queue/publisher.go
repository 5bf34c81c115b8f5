package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/unclebandit/crowdfund-backend/internal/logging"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

// Publisher delivers an outbox event to external observers.
type Publisher interface {
	Publish(ctx context.Context, e *model.Event) error
}

// Envelope is the message body seen by broker consumers.
type Envelope struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	Kind      model.EventKind `json:"kind"`
	Campaign  string          `json:"campaign"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

func NewEnvelope(e *model.Event) Envelope {
	return Envelope{
		ID:        e.ID,
		Seq:       e.Seq,
		Kind:      e.Kind,
		Campaign:  e.Campaign,
		Payload:   e.Payload,
		CreatedAt: e.CreatedAt,
	}
}

// RoutingKey is campaign.<kind>, so consumers can bind to a subset of events.
func RoutingKey(kind model.EventKind) string {
	return "campaign." + string(kind)
}

// AMQPPublisher publishes events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e *model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(NewEnvelope(e))
	if err != nil {
		return err
	}

	// channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.Publish(
		p.exchange,
		RoutingKey(e.Kind),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    time.Unix(e.CreatedAt, 0),
			Type:         string(e.Kind),
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	Logger *logging.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, e *model.Event) error {
	p.Logger.Info("📣 event", logging.EventID(e.ID), "kind", e.Kind, logging.Campaign(e.Campaign),
		"payload", string(e.Payload))
	return nil
}

var (
	_ Publisher = (*AMQPPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
