package http

import (
	"time"

	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/timeslot"
)

type CreateTimeSlotRequest struct {
	CourtID   string           `json:"court_id" binding:"required,uuid"`
	DayOfWeek *int             `json:"day_of_week" binding:"required,min=0,max=6"`
	StartTime *interval.Minute `json:"start_time" binding:"required"`
	EndTime   *interval.Minute `json:"end_time" binding:"required"`
}

// ListTimeSlotsRequest defines query parameters for listing slots.
type ListTimeSlotsRequest struct {
	CourtID    string `form:"court_id" binding:"omitempty,uuid"`
	DayOfWeek  *int   `form:"day_of_week" binding:"omitempty,min=0,max=6"`
	ActiveOnly bool   `form:"active_only"`
}

// MatchTimeSlotRequest identifies a window to look up exactly.
type MatchTimeSlotRequest struct {
	CourtID   string `form:"court_id" binding:"required,uuid"`
	DayOfWeek *int   `form:"day_of_week" binding:"required,min=0,max=6"`
	StartTime string `form:"start_time" binding:"required"`
	EndTime   string `form:"end_time" binding:"required"`
}

type TimeSlotResponse struct {
	ID        string          `json:"id"`
	CourtID   string          `json:"court_id"`
	DayOfWeek int             `json:"day_of_week"`
	StartTime interval.Minute `json:"start_time"`
	EndTime   interval.Minute `json:"end_time"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func NewTimeSlotResponse(s *timeslot.TimeSlot) TimeSlotResponse {
	return TimeSlotResponse{
		ID:        s.ID,
		CourtID:   s.CourtID,
		DayOfWeek: int(s.DayOfWeek),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type RemoveTimeSlotResponse struct {
	ID      string           `json:"id"`
	Removal timeslot.Removal `json:"removal"`
}
