package http

import (
	"errors"
	"time"

	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/request"
)

var errInvalidDateRange = errors.New("date_from must not be after date_to")

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	CourtID  string `form:"court_id" binding:"omitempty,uuid"`
	Status   string `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	UserID   string `form:"user_id"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// Dates parses the optional date bounds.
func (r *ListBookingsRequest) Dates() (from, to *interval.Date, err error) {
	if r.DateFrom != "" {
		d, err := interval.ParseDate(r.DateFrom)
		if err != nil {
			return nil, nil, err
		}
		from = &d
	}
	if r.DateTo != "" {
		d, err := interval.ParseDate(r.DateTo)
		if err != nil {
			return nil, nil, err
		}
		to = &d
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, errInvalidDateRange
	}
	return from, to, nil
}

type BookingResponse struct {
	ID            string          `json:"id"`
	CourtID       string          `json:"court_id"`
	TimeSlotID    string          `json:"time_slot_id,omitempty"`
	BookingDate   interval.Date   `json:"booking_date"`
	StartTime     interval.Minute `json:"start_time"`
	EndTime       interval.Minute `json:"end_time"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	TotalAmount   int64           `json:"total_amount"`
	UserID        string          `json:"user_id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:            b.ID,
		CourtID:       b.CourtID,
		TimeSlotID:    b.TimeSlotID,
		BookingDate:   b.BookingDate,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TotalAmount:   b.TotalAmount,
		UserID:        b.UserID,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func NewBookingResponses(bs []*booking.Booking) []BookingResponse {
	items := make([]BookingResponse, len(bs))
	for i, b := range bs {
		items[i] = NewBookingResponse(b)
	}
	return items
}

type CreateBookingRequest struct {
	CourtID     string        `json:"court_id" binding:"required,uuid"`
	TimeSlotID  string        `json:"time_slot_id" binding:"required,uuid"`
	BookingDate interval.Date `json:"booking_date"`
	// UserID books on behalf of another user; admins only.
	UserID string `json:"user_id" binding:"omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed cancelled completed"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=pending paid failed refunded"`
}
