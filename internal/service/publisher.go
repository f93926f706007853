// Package service holds side-effect helpers used by the HTTP handlers:
// event publishing and ticket rendering.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/movietix/cinema-booking-api/internal/queue"
)

// EventPublisher pushes booking confirmation events to RabbitMQ.  A nil
// *EventPublisher is a valid no-op publisher, which keeps the booking
// path working when no broker is configured.
type EventPublisher struct {
	url       string
	queueName string
	log       *logrus.Logger
}

// NewEventPublisher returns a publisher for the given broker URL, or nil
// when the URL is empty.
func NewEventPublisher(url, queueName string, log *logrus.Logger) *EventPublisher {
	if url == "" {
		return nil
	}
	return &EventPublisher{url: url, queueName: queueName, log: log}
}

// PublishBookingConfirmed marshals the event and publishes it as a
// persistent message on the booking queue.  Errors are logged and
// returned; callers treat publishing as best effort since the booking has
// already committed.
func (p *EventPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	if p == nil {
		return nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare, durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queueName, true, false, false, false, nil); err != nil {
		p.log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, pub); err != nil {
		p.log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}
