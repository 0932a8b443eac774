package court

import (
	"net/http"
	"time"

	"github.com/courtly/scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound = apperror.New(http.StatusNotFound, apperror.KindNotFound, "court not found")
	ErrInactive = apperror.New(http.StatusUnprocessableEntity, apperror.KindValidation, "court is not active")
)

// Court is a bookable physical resource at a venue. Courts are owned by venue
// management; the scheduler only reads them.
type Court struct {
	ID           string    `json:"id"`
	VenueID      string    `json:"venue_id"`
	Name         string    `json:"name"`
	SportType    string    `json:"sport_type"`
	PricePerHour int64     `json:"price_per_hour"` // minor currency units
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
