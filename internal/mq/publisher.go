// Package mq forwards ticket lifecycle events to RabbitMQ so other campus
// systems can react to them.
package mq

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher defines a minimal interface for publishing events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// RabbitPublisher publishes JSON events to a RabbitMQ topic exchange.
type RabbitPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	logger   *zap.Logger
}

// NewRabbitPublisher dials RabbitMQ and declares the exchange.
func NewRabbitPublisher(url, exchange string, logger *zap.Logger) (*RabbitPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}
	logger.Info("connected to rabbitmq", zap.String("exchange", exchange))
	return &RabbitPublisher{conn: conn, channel: ch, exchange: exchange, logger: logger}, nil
}

// Publish serializes the payload to JSON and sends it to the exchange.
// amqp channels are not safe for concurrent publishing, hence the lock.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Body:         body,
	})
	return errors.Wrapf(err, "publish %s", routingKey)
}

// Close terminates the connection.
func (p *RabbitPublisher) Close() error {
	if p == nil {
		return nil
	}
	if err := p.channel.Close(); err != nil {
		p.logger.Warn("close channel", zap.Error(err))
	}
	return p.conn.Close()
}

// NopPublisher discards events. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, string, any) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }

// RecordingPublisher keeps published messages in memory.
type RecordingPublisher struct {
	mu       sync.Mutex
	Messages []Message
}

// Message is one recorded publication.
type Message struct {
	RoutingKey string
	Body       []byte
}

// Publish implements Publisher.
func (r *RecordingPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{RoutingKey: routingKey, Body: body})
	return nil
}

// Close implements Publisher.
func (r *RecordingPublisher) Close() error { return nil }

// Snapshot returns a copy of the recorded messages.
func (r *RecordingPublisher) Snapshot() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.Messages...)
}
