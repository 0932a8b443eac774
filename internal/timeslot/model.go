package timeslot

import (
	"fmt"
	"net/http"
	"time"

	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound          = apperror.New(http.StatusNotFound, apperror.KindNotFound, "time slot not found")
	ErrInvalidDay        = apperror.New(http.StatusBadRequest, apperror.KindValidation, "day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	ErrInvalidInterval   = apperror.New(http.StatusBadRequest, apperror.KindValidation, "start_time must be before end_time")
	ErrSlotConflict      = apperror.New(http.StatusConflict, apperror.KindSlotConflict, "time slot overlaps an existing active slot")
	ErrSlotNotConfigured = apperror.New(http.StatusUnprocessableEntity, apperror.KindSlotNotConfigured, "no active time slot matches the requested window")
	ErrCourtRequired     = apperror.New(http.StatusBadRequest, apperror.KindValidation, "court_id is required")
)

// TimeSlot is a recurring weekly availability window for one court on one weekday.
type TimeSlot struct {
	ID        string
	CourtID   string
	DayOfWeek time.Weekday
	StartTime interval.Minute
	EndTime   interval.Minute
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *TimeSlot) Interval() interval.Interval {
	return interval.Interval{Start: s.StartTime, End: s.EndTime}
}

// Filter defines parameters for listing time slots.
type Filter struct {
	CourtIDs   []string
	DayOfWeek  *time.Weekday
	ActiveOnly bool
}

// Removal reports how DeactivateSlot disposed of a slot.
type Removal string

const (
	// RemovalDeactivated: active bookings still reference the slot, so the row was kept.
	RemovalDeactivated Removal = "deactivated"
	RemovalDeleted     Removal = "deleted"
)

// OverlapError is returned when a new slot would overlap an active slot of the
// same court and weekday. It names the existing slot so the admin can correct input.
type OverlapError struct {
	Existing  *TimeSlot
	Requested interval.Interval
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("time slot %s overlaps existing slot %s on %s",
		e.Requested, e.Existing.Interval(), e.Existing.DayOfWeek)
}

func (e *OverlapError) Unwrap() error {
	return ErrSlotConflict
}

func (e *OverlapError) ErrorDetails() any {
	return map[string]any{
		"existing_slot_id": e.Existing.ID,
		"day_of_week":      int(e.Existing.DayOfWeek),
		"start_time":       e.Existing.StartTime.String(),
		"end_time":         e.Existing.EndTime.String(),
	}
}
