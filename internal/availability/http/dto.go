package http

import (
	"time"

	"github.com/courtly/scheduler/internal/availability"
	"github.com/courtly/scheduler/internal/interval"
)

// ResolveRequest is the JSON form of an availability request. Courts are
// either listed explicitly or selected by venue and sport.
type ResolveRequest struct {
	CourtIDs  []string            `json:"court_ids" binding:"omitempty,dive,uuid"`
	VenueID   string              `json:"venue_id"`
	SportType string              `json:"sport_type"`
	FromDate  interval.Date       `json:"from_date"`
	ToDate    interval.Date       `json:"to_date"`
	Days      []int               `json:"days"`
	TimeSlots []interval.Interval `json:"time_slots"`
}

func (r *ResolveRequest) ToDomain() availability.Request {
	days := make([]time.Weekday, len(r.Days))
	for i, d := range r.Days {
		days[i] = time.Weekday(d)
	}
	return availability.Request{
		CourtIDs:  r.CourtIDs,
		VenueID:   r.VenueID,
		SportType: r.SportType,
		FromDate:  r.FromDate,
		ToDate:    r.ToDate,
		Days:      days,
		Slots:     r.TimeSlots,
	}
}

type CandidateResponse struct {
	CourtID        string          `json:"court_id"`
	Date           interval.Date   `json:"date"`
	DayOfWeek      int             `json:"day_of_week"`
	StartTime      interval.Minute `json:"start_time"`
	EndTime        interval.Minute `json:"end_time"`
	TimeSlotID     string          `json:"time_slot_id,omitempty"`
	PricePerHour   int64           `json:"price_per_hour"`
	Classification string          `json:"classification"`
}

func NewCandidateResponse(c availability.Candidate) CandidateResponse {
	return CandidateResponse{
		CourtID:        c.CourtID,
		Date:           c.Date,
		DayOfWeek:      int(c.Weekday),
		StartTime:      c.Requested.Start,
		EndTime:        c.Requested.End,
		TimeSlotID:     c.TimeSlotID,
		PricePerHour:   c.PricePerHour,
		Classification: string(c.Classification),
	}
}

type ResolveResponse struct {
	Candidates []CandidateResponse `json:"candidates"`
	Available  int                 `json:"available"`
	Total      int                 `json:"total"`
}
