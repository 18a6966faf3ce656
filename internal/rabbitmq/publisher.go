package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"roomchat-service/internal/telemetry"
)

// Publisher publishes room and audit events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// NewPublisher builds a RabbitMQ publisher, or a noop publisher when AMQP is
// disabled or unreachable. The service never fails to start because the
// broker is down.
func NewPublisher(amqpURL, exchange string) Publisher {
	if amqpURL == "" {
		log.Printf("rabbitmq disabled, using noop: no amqp url configured")
		return noopPublisher{}
	}

	pub, err := dial(amqpURL, exchange)
	if err != nil {
		log.Printf("rabbitmq unavailable, using noop: %v", err)
		return noopPublisher{}
	}

	log.Printf("rabbitmq connected exchange=%s", exchange)
	return pub
}

func dial(amqpURL, exchange string) (*amqpPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		log.Printf("rabbitmq publish failed routing_key=%s: %v", routingKey, err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// noopPublisher logs instead of publishing so room and audit flows stay
// observable in environments without a broker.
type noopPublisher struct{}

func (noopPublisher) Publish(_ context.Context, routingKey string, event any) error {
	if envelope, ok := auditEnvelope(event); ok {
		log.Printf("event (noop) routing_key=%s event_type=%s service=%s request_id=%s", routingKey, envelope.EventType, envelope.Service, envelope.RequestID)
		return nil
	}
	log.Printf("event (noop) routing_key=%s", routingKey)
	return nil
}

func (noopPublisher) Close() error { return nil }

func auditEnvelope(event any) (telemetry.AuditEnvelope, bool) {
	switch envelope := event.(type) {
	case telemetry.AuditEnvelope:
		return envelope, true
	case *telemetry.AuditEnvelope:
		return *envelope, true
	default:
		return telemetry.AuditEnvelope{}, false
	}
}

// PublisherMode reports which publisher flavor is active, for startup logs.
func PublisherMode(p Publisher) string {
	if _, ok := p.(*amqpPublisher); ok {
		return "amqp"
	}
	return "noop"
}
