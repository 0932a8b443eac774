package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/interval"
)

type bookingRepo struct {
	s *Store
}

// checkLocked enforces the same constraints as the Postgres insert: the slot
// must be active on the court and the active key must be free.
func (r *bookingRepo) checkLocked(b *booking.Booking, pending map[booking.SlotKey]bool) error {
	slot, ok := r.s.slots[b.TimeSlotID]
	if !ok || !slot.IsActive || slot.CourtID != b.CourtID {
		return booking.ErrSlotInactive
	}
	if !b.Status.Active() {
		return nil
	}
	if pending[b.Key()] {
		return booking.ErrSlotAlreadyBooked
	}
	for _, existing := range r.s.bookings {
		if existing.Status.Active() && existing.Key() == b.Key() {
			return booking.ErrSlotAlreadyBooked
		}
	}
	return nil
}

func (r *bookingRepo) insertLocked(b *booking.Booking) {
	now := r.s.now().UTC()
	b.ID = newID()
	b.CreatedAt = now
	b.UpdatedAt = now
	cp := *b
	r.s.bookings[b.ID] = &cp
	r.s.order = append(r.s.order, b.ID)
}

func (r *bookingRepo) Insert(_ context.Context, b *booking.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkLocked(b, nil); err != nil {
		return err
	}
	r.insertLocked(b)
	return nil
}

func (r *bookingRepo) InsertMany(_ context.Context, bs []*booking.Booking, mode booking.BatchMode) (booking.BatchResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var (
		res     booking.BatchResult
		winners []*booking.Booking
		claimed = make(map[booking.SlotKey]bool, len(bs))
	)
	for i, b := range bs {
		err := r.checkLocked(b, claimed)
		switch {
		case err == nil:
			claimed[b.Key()] = true
			winners = append(winners, b)
		case err == booking.ErrSlotAlreadyBooked && mode == booking.BatchAllOrNothing:
			return booking.BatchResult{}, &booking.BatchConflictError{FailedIndex: i}
		case err == booking.ErrSlotAlreadyBooked:
			res.Lost = append(res.Lost, i)
		case err == booking.ErrSlotInactive && mode == booking.BatchSkipConflicts:
			res.Inactive = append(res.Inactive, i)
		default:
			return booking.BatchResult{}, err
		}
	}

	for _, b := range winners {
		r.insertLocked(b)
	}
	res.Created = winners
	return res, nil
}

func (r *bookingRepo) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *bookingRepo) List(_ context.Context, filter booking.Filter) ([]*booking.Booking, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*booking.Booking
	for _, id := range r.s.order {
		b := r.s.bookings[id]
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.CourtID != "" && b.CourtID != filter.CourtID {
			continue
		}
		if filter.Status != "" && string(b.Status) != filter.Status {
			continue
		}
		if filter.From != nil && b.BookingDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && b.BookingDate.After(*filter.To) {
			continue
		}
		cp := *b
		matched = append(matched, &cp)
	}

	asc := strings.EqualFold(filter.SortOrder, "asc")
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.BookingDate != b.BookingDate {
			return a.BookingDate.Before(b.BookingDate) == asc
		}
		if a.StartTime != b.StartTime {
			return (a.StartTime < b.StartTime) == asc
		}
		return false
	})

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	total := len(matched)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return nil, total, nil
	}
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (r *bookingRepo) ActiveKeys(_ context.Context, courtIDs []string, from, to interval.Date) ([]booking.SlotKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	courts := make(map[string]bool, len(courtIDs))
	for _, id := range courtIDs {
		courts[id] = true
	}

	var keys []booking.SlotKey
	for _, b := range r.s.bookings {
		if !b.Status.Active() || !courts[b.CourtID] {
			continue
		}
		if b.BookingDate.Before(from) || b.BookingDate.After(to) {
			continue
		}
		keys = append(keys, b.Key())
	}
	return keys, nil
}

func (r *bookingRepo) UpdateStatus(_ context.Context, id string, from, to booking.Status) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.Status != from {
		return nil, booking.ErrStatusChanged
	}
	b.Status = to
	b.UpdatedAt = r.s.now().UTC()
	cp := *b
	return &cp, nil
}

func (r *bookingRepo) UpdatePaymentStatus(_ context.Context, id string, from, to booking.PaymentStatus) (*booking.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok || b.PaymentStatus != from {
		return nil, booking.ErrStatusChanged
	}
	b.PaymentStatus = to
	b.UpdatedAt = r.s.now().UTC()
	cp := *b
	return &cp, nil
}

func (r *bookingRepo) CompleteBefore(_ context.Context, day interval.Date) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, b := range r.s.bookings {
		if b.Status == booking.StatusConfirmed && b.BookingDate.Before(day) {
			b.Status = booking.StatusCompleted
			b.UpdatedAt = r.s.now().UTC()
			n++
		}
	}
	return n, nil
}
