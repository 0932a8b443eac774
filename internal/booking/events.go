package booking

import (
	"context"
	"time"
)

const (
	EventCreated       = "booking.created"
	EventCancelled     = "booking.cancelled"
	EventStatusChanged = "booking.status_changed"
	EventPaymentStatus = "booking.payment_status_changed"
)

// EventPublisher is the outbound side of the message broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type noopPublisher struct{}

func (noopPublisher) PublishJSON(context.Context, string, any) error { return nil }

// Event is the payload published for booking lifecycle changes.
type Event struct {
	BookingID     string    `json:"booking_id"`
	CourtID       string    `json:"court_id"`
	TimeSlotID    string    `json:"time_slot_id"`
	BookingDate   string    `json:"booking_date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   int64     `json:"total_amount"`
	UserID        string    `json:"user_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func newEvent(b *Booking, at time.Time) Event {
	return Event{
		BookingID:     b.ID,
		CourtID:       b.CourtID,
		TimeSlotID:    b.TimeSlotID,
		BookingDate:   b.BookingDate.String(),
		StartTime:     b.StartTime.String(),
		EndTime:       b.EndTime.String(),
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TotalAmount:   b.TotalAmount,
		UserID:        b.UserID,
		OccurredAt:    at,
	}
}
