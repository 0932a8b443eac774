package bulk_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtly/scheduler/internal/availability"
	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/bulk"
	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/apperror"
	"github.com/courtly/scheduler/internal/pkg/testkit"
)

func countActive(t *testing.T, f *testkit.Fixture) int {
	t.Helper()
	bs, _, err := f.Bookings.List(context.Background(), booking.Filter{PageSize: 1000})
	require.NoError(t, err)
	n := 0
	for _, b := range bs {
		if b.Status.Active() {
			n++
		}
	}
	return n
}

// threeMondays sets up [Available, Conflict, Available] on one court.
func threeMondays(t *testing.T, f *testkit.Fixture) bulk.Request {
	t.Helper()
	monday := testkit.NextMonday(t)
	c := f.AddCourt(t, "venue-1", "A", 20)
	slot := f.AddSlot(t, c.ID, time.Monday, "18:00", "19:00")
	f.Book(t, slot, monday.AddDays(7), "someone-else")

	return bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{c.ID},
			FromDate: monday,
			ToDate:   monday.AddDays(14),
			Days:     []time.Weekday{time.Monday},
			Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:00")},
		},
		UserID: "user-1",
	}
}

func TestBookStrictAbortsOnAnyProblem(t *testing.T) {
	f := testkit.New(t)
	req := threeMondays(t, f)

	report, err := f.Bulk.Book(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, bulk.ErrUnavailable)
	assert.Equal(t, apperror.KindUnavailable, apperror.KindOf(err))

	var unavailable *bulk.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Len(t, unavailable.Problems, 1)
	assert.Equal(t, availability.Conflict, unavailable.Problems[0].Classification)
	assert.Equal(t, req.FromDate.AddDays(7), unavailable.Problems[0].Date)

	assert.Equal(t, 1, countActive(t, f), "strict abort must not write")
}

func TestBookBestEffortSkipsProblems(t *testing.T) {
	f := testkit.New(t)
	req := threeMondays(t, f)
	req.IgnoreUnavailable = true

	report, err := f.Bulk.Book(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalRequested)
	assert.Equal(t, 2, report.TotalCreated)
	require.Len(t, report.Created, 2)
	assert.Equal(t, req.FromDate, report.Created[0].BookingDate)
	assert.Equal(t, req.FromDate.AddDays(14), report.Created[1].BookingDate)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, availability.Conflict, report.Skipped[0].Reason)
	assert.Equal(t, req.FromDate.AddDays(7), report.Skipped[0].Candidate.Date)

	assert.Equal(t, 3, countActive(t, f))
}

func TestBookBestEffortReportsUnconfiguredSlotsDistinctly(t *testing.T) {
	f := testkit.New(t)
	monday := testkit.NextMonday(t)
	c := f.AddCourt(t, "venue-1", "A", 20)
	f.AddSlot(t, c.ID, time.Monday, "18:00", "19:00")

	report, err := f.Bulk.Book(context.Background(), bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{c.ID},
			FromDate: monday,
			ToDate:   monday,
			Days:     []time.Weekday{time.Monday},
			Slots: []interval.Interval{
				testkit.Window(t, "18:00", "19:00"),
				testkit.Window(t, "19:00", "20:00"),
			},
		},
		UserID:            "user-1",
		IgnoreUnavailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalCreated)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, availability.SlotNotConfigured, report.Skipped[0].Reason)
}

func TestBookBestEffortWithNothingAvailableSucceeds(t *testing.T) {
	f := testkit.New(t)
	monday := testkit.NextMonday(t)
	c := f.AddCourt(t, "venue-1", "A", 20)

	report, err := f.Bulk.Book(context.Background(), bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{c.ID},
			FromDate: monday,
			ToDate:   monday.AddDays(7),
			Days:     []time.Weekday{time.Monday},
			Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:00")},
		},
		UserID:            "user-1",
		IgnoreUnavailable: true,
	})
	require.NoError(t, err)
	assert.NotNil(t, report.Created)
	assert.Empty(t, report.Created)
	assert.Equal(t, 2, report.TotalRequested)
	assert.Equal(t, 0, report.TotalCreated)
	assert.Len(t, report.Skipped, 2)
}

func TestBookTwoMondaysPricesEachBooking(t *testing.T) {
	f := testkit.New(t)
	monday := testkit.NextMonday(t)
	c := f.AddCourt(t, "venue-1", "C", 20)
	slot := f.AddSlot(t, c.ID, time.Monday, "18:00", "19:00")

	report, err := f.Bulk.Book(context.Background(), bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{c.ID},
			FromDate: monday,
			ToDate:   monday.AddDays(7),
			Days:     []time.Weekday{time.Monday},
			Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:00")},
		},
		UserID: "user-1",
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.TotalCreated)
	for _, b := range report.Created {
		assert.Equal(t, int64(20), b.TotalAmount)
		assert.Equal(t, slot.ID, b.TimeSlotID)
		assert.Equal(t, booking.StatusPending, b.Status)
		assert.Equal(t, booking.PaymentPending, b.PaymentStatus)
		assert.Equal(t, "user-1", b.UserID)
		assert.Equal(t, slot.StartTime, b.StartTime)
		assert.Equal(t, slot.EndTime, b.EndTime)
	}
}

func TestBookConcurrentStrictSubmissions(t *testing.T) {
	f := testkit.New(t)
	monday := testkit.NextMonday(t)
	c := f.AddCourt(t, "venue-1", "C", 20)
	f.AddSlot(t, c.ID, time.Monday, "18:00", "19:00")

	req := bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{c.ID},
			FromDate: monday,
			ToDate:   monday.AddDays(7),
			Days:     []time.Weekday{time.Monday},
			Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:00")},
		},
		UserID: "user-1",
	}

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		losers  []error
	)
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.Bulk.Book(context.Background(), req)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			losers = append(losers, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, success)
	require.Len(t, losers, workers-1)
	for _, err := range losers {
		// A loser either saw the winner's rows while resolving or lost the
		// race at commit time. Both leave the ledger untouched.
		assert.True(t,
			errors.Is(err, booking.ErrBatchConflict) || errors.Is(err, bulk.ErrUnavailable),
			"unexpected error: %v", err)
		assert.True(t, apperror.IsRetryable(err) || apperror.KindOf(err) == apperror.KindUnavailable)
	}
	assert.Equal(t, 2, countActive(t, f), "no partial writes from losers")
}

func TestBookRejectsPastStartAndMissingUser(t *testing.T) {
	f := testkit.New(t)
	c := f.AddCourt(t, "venue-1", "C", 20)
	f.AddSlot(t, c.ID, time.Monday, "18:00", "19:00")

	req := bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{c.ID},
			FromDate: testkit.Date(t, "2026-10-12"),
			ToDate:   testkit.Date(t, "2026-10-26"),
			Days:     []time.Weekday{time.Monday},
			Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:00")},
		},
		UserID: "user-1",
	}
	_, err := f.Bulk.Book(context.Background(), req)
	assert.ErrorIs(t, err, booking.ErrDateInPast)

	req.FromDate = testkit.NextMonday(t)
	req.UserID = ""
	_, err = f.Bulk.Book(context.Background(), req)
	assert.ErrorIs(t, err, bulk.ErrUserRequired)
}

func TestBookPropagatesRequestTooLarge(t *testing.T) {
	f := testkit.New(t)
	monday := testkit.NextMonday(t)

	_, err := f.Bulk.Book(context.Background(), bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{"court-1"},
			FromDate: monday,
			ToDate:   monday.AddDays(120),
			Days:     []time.Weekday{time.Monday},
			Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:00")},
		},
		UserID: "user-1",
	})
	assert.ErrorIs(t, err, availability.ErrRequestTooLarge)
}

func TestBookAdminCreatesConfirmed(t *testing.T) {
	f := testkit.New(t)
	monday := testkit.NextMonday(t)
	c := f.AddCourt(t, "venue-1", "C", 30)
	f.AddSlot(t, c.ID, time.Monday, "18:00", "19:30")

	report, err := f.Bulk.Book(context.Background(), bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{c.ID},
			FromDate: monday,
			ToDate:   monday,
			Days:     []time.Weekday{time.Monday},
			Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:30")},
		},
		UserID: "admin-1",
		Status: booking.StatusConfirmed,
	})
	require.NoError(t, err)
	require.Len(t, report.Created, 1)
	assert.Equal(t, booking.StatusConfirmed, report.Created[0].Status)
	assert.Equal(t, int64(45), report.Created[0].TotalAmount)
}

func TestBookStrictWithRepeatedPatternBooksOnce(t *testing.T) {
	f := testkit.New(t)
	monday := testkit.NextMonday(t)
	c := f.AddCourt(t, "venue-1", "C", 20)
	f.AddSlot(t, c.ID, time.Monday, "18:00", "19:00")

	req := bulk.Request{
		Request: availability.Request{
			CourtIDs: []string{c.ID},
			FromDate: monday,
			ToDate:   monday,
			Days:     []time.Weekday{time.Monday},
			Slots: []interval.Interval{
				testkit.Window(t, "18:00", "19:00"),
				testkit.Window(t, "18:00", "19:00"),
			},
		},
		UserID: "user-1",
	}

	report, err := f.Bulk.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalRequested)
	assert.Equal(t, 1, report.TotalCreated)
	assert.Empty(t, report.Skipped)
	assert.Equal(t, 1, countActive(t, f))
}

// staleResolver returns a snapshot and then lets another writer act before
// the orchestrator commits.
type staleResolver struct {
	inner bulk.Resolver
	after func()
}

func (r *staleResolver) Resolve(ctx context.Context, req availability.Request) ([]availability.Candidate, error) {
	cands, err := r.inner.Resolve(ctx, req)
	if err == nil {
		r.after()
	}
	return cands, err
}

func TestBookCommitTimeRaceLosers(t *testing.T) {
	setup := func(t *testing.T) (*testkit.Fixture, *bulk.Orchestrator, bulk.Request, interval.Date) {
		f := testkit.New(t)
		monday := testkit.NextMonday(t)
		c := f.AddCourt(t, "venue-1", "C", 20)
		slot := f.AddSlot(t, c.ID, time.Monday, "18:00", "19:00")
		taken := monday.AddDays(7)

		resolver := &staleResolver{
			inner: f.Resolver,
			after: func() { f.Book(t, slot, taken, "someone-else") },
		}
		req := bulk.Request{
			Request: availability.Request{
				CourtIDs: []string{c.ID},
				FromDate: monday,
				ToDate:   monday.AddDays(14),
				Days:     []time.Weekday{time.Monday},
				Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:00")},
			},
			UserID: "user-1",
		}
		return f, bulk.NewOrchestrator(resolver, f.Bookings, nil, nil), req, taken
	}

	t.Run("Best-effort moves the loser to skipped", func(t *testing.T) {
		f, o, req, taken := setup(t)
		req.IgnoreUnavailable = true

		report, err := o.Book(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, 3, report.TotalRequested)
		assert.Equal(t, 2, report.TotalCreated)
		require.Len(t, report.Skipped, 1)
		assert.Equal(t, taken, report.Skipped[0].Candidate.Date)
		assert.Equal(t, availability.Conflict, report.Skipped[0].Reason)
		assert.Equal(t, availability.Conflict, report.Skipped[0].Candidate.Classification)
		for _, b := range report.Created {
			assert.NotEqual(t, taken, b.BookingDate)
		}
		assert.Equal(t, 3, countActive(t, f))
	})

	t.Run("Strict aborts the whole batch", func(t *testing.T) {
		f, o, req, _ := setup(t)

		report, err := o.Book(context.Background(), req)
		require.Error(t, err)
		assert.Nil(t, report)

		var conflict *booking.BatchConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, 1, conflict.FailedIndex)
		assert.Equal(t, 1, countActive(t, f))
	})
}

func TestBookSlotDeactivatedBeforeCommit(t *testing.T) {
	setup := func(t *testing.T) (*testkit.Fixture, *bulk.Orchestrator, bulk.Request) {
		f := testkit.New(t)
		monday := testkit.NextMonday(t)
		c := f.AddCourt(t, "venue-1", "C", 20)
		slot := f.AddSlot(t, c.ID, time.Monday, "18:00", "19:00")
		// A booking outside the range keeps the slot row alive on removal.
		f.Book(t, slot, monday.AddDays(21), "holder")

		resolver := &staleResolver{
			inner: f.Resolver,
			after: func() {
				_, err := f.Slots.DeactivateSlot(context.Background(), slot.ID)
				require.NoError(t, err)
			},
		}
		req := bulk.Request{
			Request: availability.Request{
				CourtIDs: []string{c.ID},
				FromDate: monday,
				ToDate:   monday.AddDays(14),
				Days:     []time.Weekday{time.Monday},
				Slots:    []interval.Interval{testkit.Window(t, "18:00", "19:00")},
			},
			UserID: "user-1",
		}
		return f, bulk.NewOrchestrator(resolver, f.Bookings, nil, nil), req
	}

	t.Run("Best-effort skips every row as not configured", func(t *testing.T) {
		f, o, req := setup(t)
		req.IgnoreUnavailable = true

		report, err := o.Book(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, 3, report.TotalRequested)
		assert.Equal(t, 0, report.TotalCreated)
		assert.Empty(t, report.Created)
		require.Len(t, report.Skipped, 3)
		for _, s := range report.Skipped {
			assert.Equal(t, availability.SlotNotConfigured, s.Reason)
		}
		assert.Equal(t, 1, countActive(t, f))
	})

	t.Run("Strict fails without writing", func(t *testing.T) {
		f, o, req := setup(t)

		report, err := o.Book(context.Background(), req)
		assert.Nil(t, report)
		assert.ErrorIs(t, err, booking.ErrSlotInactive)
		assert.False(t, apperror.IsRetryable(err))
		assert.Equal(t, 1, countActive(t, f))
	})
}
