package booking

import (
	"fmt"
	"net/http"
	"time"

	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, apperror.KindNotFound, "booking not found")
	ErrSlotAlreadyBooked = apperror.New(http.StatusConflict, apperror.KindSlotAlreadyBooked, "time slot already booked for this date")
	ErrBatchConflict     = apperror.New(http.StatusConflict, apperror.KindBatchConflict, "batch aborted: a slot was booked concurrently")
	ErrInvalidTransition = apperror.New(http.StatusConflict, apperror.KindInvalidTransition, "invalid status transition")
	ErrStatusChanged     = apperror.New(http.StatusConflict, apperror.KindInvalidTransition, "booking status changed concurrently")
	ErrInvalidStatus     = apperror.New(http.StatusBadRequest, apperror.KindValidation, "invalid booking status")
	ErrInvalidPayment    = apperror.New(http.StatusBadRequest, apperror.KindValidation, "invalid payment status")
	ErrInvalidInput      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "court_id, time_slot_id, booking_date and user_id are required")
	ErrDateInPast        = apperror.New(http.StatusBadRequest, apperror.KindValidation, "cannot book a date in the past")
	ErrWeekdayMismatch   = apperror.New(http.StatusBadRequest, apperror.KindValidation, "booking date does not fall on the time slot's weekday")
	ErrCourtMismatch     = apperror.New(http.StatusBadRequest, apperror.KindValidation, "time slot does not belong to the court")
	ErrSlotInactive      = apperror.New(http.StatusUnprocessableEntity, apperror.KindSlotNotConfigured, "time slot is not active")
	ErrPermissionDenied  = apperror.New(http.StatusForbidden, apperror.KindForbidden, "permission denied")
	ErrPaidCancellation  = apperror.New(http.StatusForbidden, apperror.KindForbidden, "paid bookings can only be cancelled by an admin")
)

// Booking is a concrete reservation of one catalog slot on one calendar date.
// StartTime and EndTime are copied from the slot at creation so later catalog
// edits do not rewrite history.
type Booking struct {
	ID            string
	CourtID       string
	TimeSlotID    string
	BookingDate   interval.Date
	StartTime     interval.Minute
	EndTime       interval.Minute
	Status        Status
	PaymentStatus PaymentStatus
	TotalAmount   int64
	UserID        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b *Booking) Key() SlotKey {
	return SlotKey{CourtID: b.CourtID, TimeSlotID: b.TimeSlotID, Date: b.BookingDate}
}

// SlotKey identifies the unit of exclusivity: at most one active booking per key.
type SlotKey struct {
	CourtID    string
	TimeSlotID string
	Date       interval.Date
}

// KeySet is a set of keys that currently hold an active booking.
type KeySet map[SlotKey]struct{}

func NewKeySet(keys []SlotKey) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func (s KeySet) Has(k SlotKey) bool {
	_, ok := s[k]
	return ok
}

// Actor is the caller performing a ledger operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Draft is an unsaved booking handed to CreateMany.
type Draft struct {
	CourtID      string
	TimeSlotID   string
	Date         interval.Date
	Window       interval.Interval
	PricePerHour int64
	UserID       string
	Status       Status
}

// BatchMode selects how CreateMany reacts to a lost uniqueness race.
type BatchMode int

const (
	// BatchAllOrNothing rolls back the whole batch on the first lost race.
	BatchAllOrNothing BatchMode = iota
	// BatchSkipConflicts drops rows that lost their race or whose slot was
	// deactivated, and commits the rest.
	BatchSkipConflicts
)

// BatchResult lists the committed bookings, the input indexes that lost their
// race and those whose slot was deactivated before commit.
type BatchResult struct {
	Created  []*Booking
	Lost     []int
	Inactive []int
}

// BatchConflictError aborts an all-or-nothing batch.
type BatchConflictError struct {
	FailedIndex int
}

func (e *BatchConflictError) Error() string {
	return fmt.Sprintf("batch aborted: candidate %d was booked concurrently", e.FailedIndex)
}

func (e *BatchConflictError) Unwrap() error {
	return ErrBatchConflict
}

func (e *BatchConflictError) ErrorDetails() any {
	return map[string]int{"failed_index": e.FailedIndex}
}

// Filter defines parameters for listing bookings.
type Filter struct {
	UserID    string
	CourtID   string
	Status    string
	From      *interval.Date
	To        *interval.Date
	Page      int
	PageSize  int
	SortOrder string
}

// Amount prices a slot as pricePerHour x minutes / 60, rounded half up to the
// nearest minor unit.
func Amount(pricePerHour int64, window interval.Interval) (int64, error) {
	minutes, err := window.Duration()
	if err != nil {
		return 0, err
	}
	return (pricePerHour*int64(minutes) + 30) / 60, nil
}
