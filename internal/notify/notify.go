// Package notify announces finished runs on a RabbitMQ fanout exchange.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RunEvent is the message published when a run ends.
type RunEvent struct {
	RunID       string         `json:"run_id"`
	Status      string         `json:"status"`
	Validation  string         `json:"validation,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
	Clean       map[string]int `json:"clean,omitempty"`
	Orphaned    map[string]int `json:"orphaned,omitempty"`
	ArtifactURI string         `json:"artifact_uri,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// Publisher sends run events.
type Publisher interface {
	Publish(ctx context.Context, ev RunEvent) error
	Close() error
}

// AMQPPublisher publishes JSON events to a fanout exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// Dial connects to the broker and declares a durable fanout exchange.
func Dial(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends ev as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev RunEvent) error {
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, "", false, false, msg); err != nil {
		return fmt.Errorf("publishing run %s: %w", ev.RunID, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}

// Message builds the AMQP publishing for ev.
func Message(ev RunEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encoding run event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.RunID,
		Timestamp:    ev.CompletedAt,
		Type:         "run_completed",
		Body:         body,
	}, nil
}
