// Package payment applies payment collaborator events to the booking ledger.
package payment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/pkg/apperror"
)

// Routing keys published by the payment collaborator.
const (
	KeyPaid     = "payment.paid"
	KeyFailed   = "payment.failed"
	KeyRefunded = "payment.refunded"
)

var keyStatus = map[string]booking.PaymentStatus{
	KeyPaid:     booking.PaymentPaid,
	KeyFailed:   booking.PaymentFailed,
	KeyRefunded: booking.PaymentRefunded,
}

// Keys lists the routing keys the consumer binds.
func Keys() []string {
	return []string{KeyPaid, KeyFailed, KeyRefunded}
}

// Event is the envelope the payment collaborator publishes.
type Event struct {
	Event   string `json:"event"`
	Version int    `json:"version"`
	Data    struct {
		PaymentID string `json:"payment_id"`
		BookingID string `json:"booking_id"`
		Amount    int64  `json:"amount"`
	} `json:"data"`
}

// Outcome is what to do with a delivery after handling it.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	Drop
)

type Source interface {
	Deliveries(ctx context.Context) (<-chan amqp.Delivery, error)
}

type Ledger interface {
	UpdatePaymentStatus(ctx context.Context, id string, next booking.PaymentStatus) (*booking.Booking, error)
}

type Consumer struct {
	src    Source
	ledger Ledger
	log    *logrus.Logger
}

func NewConsumer(src Source, ledger Ledger, log *logrus.Logger) *Consumer {
	return &Consumer{src: src, ledger: ledger, log: log}
}

// Run consumes deliveries until ctx is cancelled or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.src.Deliveries(ctx)
	if err != nil {
		return err
	}
	for d := range msgs {
		var ackErr error
		switch c.Handle(ctx, d.RoutingKey, d.Body) {
		case Ack:
			ackErr = d.Ack(false)
		case Requeue:
			ackErr = d.Nack(false, true)
		case Drop:
			ackErr = d.Nack(false, false)
		}
		if ackErr != nil {
			c.log.WithError(ackErr).Warn("payment delivery ack failed")
		}
	}
	return ctx.Err()
}

// Handle applies one event. Ledger contention and infrastructure failures are
// requeued; events that can never apply are acknowledged and logged.
func (c *Consumer) Handle(ctx context.Context, key string, body []byte) Outcome {
	next, ok := keyStatus[key]
	if !ok {
		return Ack
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("payment event unreadable")
		return Drop
	}
	entry := c.log.WithFields(logrus.Fields{
		"key":        key,
		"booking_id": evt.Data.BookingID,
		"payment_id": evt.Data.PaymentID,
	})
	if evt.Data.BookingID == "" {
		entry.Warn("payment event without booking id")
		return Ack
	}
	if _, err := uuid.Parse(evt.Data.BookingID); err != nil {
		entry.WithError(err).Warn("payment event with malformed booking id")
		return Drop
	}

	_, err := c.ledger.UpdatePaymentStatus(ctx, evt.Data.BookingID, next)
	switch {
	case err == nil:
		entry.Info("payment status applied")
		return Ack
	case errors.Is(err, booking.ErrStatusChanged):
		return Requeue
	case apperror.KindOf(err) == apperror.KindInternal:
		entry.WithError(err).Error("payment status update failed")
		return Requeue
	default:
		entry.WithError(err).Warn("payment event rejected")
		return Ack
	}
}
