// Package testkit wires the scheduling services over the in-memory store for
// tests.
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/courtly/scheduler/internal/availability"
	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/bulk"
	"github.com/courtly/scheduler/internal/court"
	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/logger"
	"github.com/courtly/scheduler/internal/pkg/metrics"
	"github.com/courtly/scheduler/internal/storage/memory"
	"github.com/courtly/scheduler/internal/timeslot"
)

// Now is the fixed clock every fixture runs on: Monday 2026-10-19 09:00 UTC.
var Now = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

type Fixture struct {
	Store    *memory.Store
	Courts   court.Repository
	Slots    timeslot.Service
	Bookings booking.Service
	Resolver *availability.Resolver
	Bulk     *bulk.Orchestrator
	Metrics  *metrics.Metrics
	Clock    *Clock
}

// Clock is a settable time source.
type Clock struct {
	t time.Time
}

func (c *Clock) Now() time.Time { return c.t }

func (c *Clock) Set(t time.Time) { c.t = t }

func New(t *testing.T) *Fixture {
	t.Helper()

	store := memory.New()
	clock := &Clock{t: Now}
	log := logger.Discard()
	m := metrics.New(prometheus.NewRegistry())

	courts := store.Courts()
	slots := timeslot.NewService(store.Slots(), courts, log)
	bookings := booking.NewService(store.Bookings(), slots, courts,
		booking.WithLogger(log),
		booking.WithMetrics(m),
		booking.WithClock(clock.Now),
	)
	resolver := availability.NewResolver(courts, slots, bookings, availability.DefaultLimits(), m)

	return &Fixture{
		Store:    store,
		Courts:   courts,
		Slots:    slots,
		Bookings: bookings,
		Resolver: resolver,
		Bulk:     bulk.NewOrchestrator(resolver, bookings, log, m),
		Metrics:  m,
		Clock:    clock,
	}
}

func (f *Fixture) AddCourt(t *testing.T, venueID, name string, pricePerHour int64) *court.Court {
	t.Helper()
	c := &court.Court{
		VenueID:      venueID,
		Name:         name,
		SportType:    "badminton",
		PricePerHour: pricePerHour,
		IsActive:     true,
	}
	require.NoError(t, f.Courts.Create(context.Background(), c))
	return c
}

func (f *Fixture) AddSlot(t *testing.T, courtID string, day time.Weekday, start, end string) *timeslot.TimeSlot {
	t.Helper()
	slot, err := f.Slots.AddSlot(context.Background(), timeslot.AddRequest{
		CourtID:   courtID,
		DayOfWeek: day,
		Window:    Window(t, start, end),
	})
	require.NoError(t, err)
	return slot
}

func (f *Fixture) Book(t *testing.T, slot *timeslot.TimeSlot, date interval.Date, userID string) *booking.Booking {
	t.Helper()
	b, err := f.Bookings.CreateSingle(context.Background(), booking.CreateRequest{
		CourtID:     slot.CourtID,
		TimeSlotID:  slot.ID,
		BookingDate: date,
		UserID:      userID,
	})
	require.NoError(t, err)
	return b
}

func Window(t *testing.T, start, end string) interval.Interval {
	t.Helper()
	iv, err := interval.Parse(start, end)
	require.NoError(t, err)
	return iv
}

func Date(t *testing.T, s string) interval.Date {
	t.Helper()
	d, err := interval.ParseDate(s)
	require.NoError(t, err)
	return d
}

// NextMonday is the first Monday after Now.
func NextMonday(t *testing.T) interval.Date {
	t.Helper()
	d := Date(t, "2026-10-26")
	require.Equal(t, time.Monday, d.Weekday())
	return d
}
