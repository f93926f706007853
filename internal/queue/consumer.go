package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// StartBookingConsumer connects to the broker, declares the durable
// booking queue and consumes confirmation events, writing an audit line
// per booking through the logger.  It runs a reconnect loop with capped
// backoff and never returns under normal operation; failed messages are
// rejected without requeue to avoid tight redelivery loops.
func StartBookingConsumer(url, queueName string, log *logrus.Logger) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("booking-consumer: dial failed, retrying in %s", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, queueName, log); err != nil {
			log.WithError(err).Warn("booking-consumer: consume loop ended, reconnecting")
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, queueName string, log *logrus.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("booking-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := handleMessage(d.Body, log); err != nil {
			log.WithError(err).Warn("booking-consumer: handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(body []byte, log *logrus.Logger) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	log.WithFields(logrus.Fields{
		"event_id":    ev.EventID,
		"booking_id":  ev.BookingID,
		"reference":   ev.Reference,
		"user_id":     ev.UserID,
		"showtime_id": ev.ShowtimeID,
		"movie":       ev.MovieTitle,
		"hall":        ev.HallName,
		"starts_at":   ev.StartsAt,
		"seats":       ev.SeatLabels,
		"total_cents": ev.TotalPriceCents,
	}).Info("booking confirmed")
	return nil
}
