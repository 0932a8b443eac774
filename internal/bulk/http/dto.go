package http

import (
	availabilityHttp "github.com/courtly/scheduler/internal/availability/http"
	bookingHttp "github.com/courtly/scheduler/internal/booking/http"
	"github.com/courtly/scheduler/internal/bulk"
)

type BulkBookingRequest struct {
	availabilityHttp.ResolveRequest
	IgnoreUnavailable bool `json:"ignore_unavailable"`
	// UserID books on behalf of another user; admins only.
	UserID string `json:"user_id"`
}

type SkippedResponse struct {
	Candidate availabilityHttp.CandidateResponse `json:"candidate"`
	Reason    string                             `json:"reason"`
}

type BulkBookingResponse struct {
	Created        []bookingHttp.BookingResponse `json:"created"`
	Skipped        []SkippedResponse             `json:"skipped"`
	TotalRequested int                           `json:"total_requested"`
	TotalCreated   int                           `json:"total_created"`
}

func NewBulkBookingResponse(r *bulk.Report) BulkBookingResponse {
	skipped := make([]SkippedResponse, len(r.Skipped))
	for i, s := range r.Skipped {
		skipped[i] = SkippedResponse{
			Candidate: availabilityHttp.NewCandidateResponse(s.Candidate),
			Reason:    string(s.Reason),
		}
	}
	return BulkBookingResponse{
		Created:        bookingHttp.NewBookingResponses(r.Created),
		Skipped:        skipped,
		TotalRequested: r.TotalRequested,
		TotalCreated:   r.TotalCreated,
	}
}
