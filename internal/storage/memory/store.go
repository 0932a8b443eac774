// Package memory implements the court directory, slot catalog and booking
// ledger repositories in process memory. Every operation runs under one
// mutex, so each call is serializable.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/court"
	"github.com/courtly/scheduler/internal/timeslot"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	courts   map[string]*court.Court
	slots    map[string]*timeslot.TimeSlot
	bookings map[string]*booking.Booking
	// order keeps booking insertion order for stable listing.
	order []string
}

func New() *Store {
	return &Store{
		now:      time.Now,
		courts:   make(map[string]*court.Court),
		slots:    make(map[string]*timeslot.TimeSlot),
		bookings: make(map[string]*booking.Booking),
	}
}

func (s *Store) Courts() court.Repository {
	return &courtRepo{s: s}
}

func (s *Store) Slots() timeslot.Repository {
	return &slotRepo{s: s}
}

func (s *Store) Bookings() booking.Repository {
	return &bookingRepo{s: s}
}

func newID() string {
	return uuid.NewString()
}
