package bulk

import (
	"fmt"
	"net/http"

	"github.com/courtly/scheduler/internal/availability"
	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/pkg/apperror"
)

var (
	ErrUnavailable  = apperror.New(http.StatusConflict, apperror.KindUnavailable, "some requested slots are unavailable")
	ErrUserRequired = apperror.New(http.StatusBadRequest, apperror.KindValidation, "user_id is required")
)

// Request is an availability request plus the booking policy to apply.
type Request struct {
	availability.Request
	UserID string
	// IgnoreUnavailable selects best-effort mode.
	IgnoreUnavailable bool
	// Status is the initial status of created bookings; empty means pending.
	Status booking.Status
}

// Skipped is a candidate that was not booked, with the reason.
type Skipped struct {
	Candidate availability.Candidate
	Reason    availability.Classification
}

// Report is the outcome of a bulk booking.
type Report struct {
	Created        []*booking.Booking
	Skipped        []Skipped
	TotalRequested int
	TotalCreated   int
}

// UnavailableError aborts a strict request and lists every blocking candidate.
type UnavailableError struct {
	Problems []availability.Candidate
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%d of the requested slots are unavailable", len(e.Problems))
}

func (e *UnavailableError) Unwrap() error {
	return ErrUnavailable
}

type problemDetail struct {
	CourtID    string `json:"court_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	TimeSlotID string `json:"time_slot_id,omitempty"`
	Reason     string `json:"reason"`
}

func (e *UnavailableError) ErrorDetails() any {
	out := make([]problemDetail, len(e.Problems))
	for i, c := range e.Problems {
		out[i] = problemDetail{
			CourtID:    c.CourtID,
			Date:       c.Date.String(),
			StartTime:  c.Requested.Start.String(),
			EndTime:    c.Requested.End.String(),
			TimeSlotID: c.TimeSlotID,
			Reason:     string(c.Classification),
		}
	}
	return map[string]any{"problems": out}
}
