package availability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/apperror"
)

var (
	ErrRequestTooLarge = apperror.New(http.StatusRequestEntityTooLarge, apperror.KindRequestTooLarge, "request too large")
	ErrInvalidRange    = apperror.New(http.StatusBadRequest, apperror.KindValidation, "from_date must not be after to_date")
	ErrDatesRequired   = apperror.New(http.StatusBadRequest, apperror.KindValidation, "from_date and to_date are required")
	ErrNoDays          = apperror.New(http.StatusBadRequest, apperror.KindValidation, "at least one weekday is required")
	ErrInvalidDay      = apperror.New(http.StatusBadRequest, apperror.KindValidation, "days must be between 0 (Sunday) and 6 (Saturday)")
	ErrNoSlots         = apperror.New(http.StatusBadRequest, apperror.KindValidation, "at least one time slot pattern is required")
	ErrInvalidSlot     = apperror.New(http.StatusBadRequest, apperror.KindValidation, "time slot pattern start must be before end")
	ErrNoCourts        = apperror.New(http.StatusBadRequest, apperror.KindValidation, "court_ids or venue_id with sport_type is required")
)

// Classification is the outcome of checking one candidate.
type Classification string

const (
	Available         Classification = "available"
	SlotNotConfigured Classification = "slot_not_configured"
	Conflict          Classification = "conflict"
)

// Request describes the cross product to expand: every date in
// [FromDate, ToDate] whose weekday is in Days, for every court, for every
// slot pattern. Courts come from CourtIDs, or from VenueID+SportType when
// CourtIDs is empty.
type Request struct {
	CourtIDs  []string
	VenueID   string
	SportType string
	FromDate  interval.Date
	ToDate    interval.Date
	Days      []time.Weekday
	Slots     []interval.Interval
}

// Limits bound the work a single request may cause.
type Limits struct {
	MaxSpanDays     int
	MaxSlotPatterns int
}

func DefaultLimits() Limits {
	return Limits{MaxSpanDays: 90, MaxSlotPatterns: 20}
}

// Candidate is one (court, date, pattern) combination and its classification.
type Candidate struct {
	CourtID        string
	Date           interval.Date
	Weekday        time.Weekday
	Requested      interval.Interval
	TimeSlotID     string // set unless SlotNotConfigured
	PricePerHour   int64
	Classification Classification
}

// TooLargeError names the cap a request exceeded.
type TooLargeError struct {
	Field string
	Limit int
	Got   int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("request too large: %s is %d, limit is %d", e.Field, e.Got, e.Limit)
}

func (e *TooLargeError) Unwrap() error {
	return ErrRequestTooLarge
}

func (e *TooLargeError) ErrorDetails() any {
	return map[string]any{"field": e.Field, "limit": e.Limit, "got": e.Got}
}
