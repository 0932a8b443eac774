package memory

import (
	"context"
	"sort"
	"time"

	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/timeslot"
)

type slotRepo struct {
	s *Store
}

func (r *slotRepo) InsertNonOverlapping(_ context.Context, slot *timeslot.TimeSlot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	day := slot.DayOfWeek
	existing := r.listLocked(timeslot.Filter{CourtIDs: []string{slot.CourtID}, DayOfWeek: &day, ActiveOnly: true})
	if o := timeslot.FirstOverlap(existing, slot.Interval()); o != nil {
		return &timeslot.OverlapError{Existing: o, Requested: slot.Interval()}
	}

	now := r.s.now().UTC()
	slot.ID = newID()
	slot.IsActive = true
	slot.CreatedAt = now
	slot.UpdatedAt = now
	cp := *slot
	r.s.slots[slot.ID] = &cp
	return nil
}

func (r *slotRepo) GetByID(_ context.Context, id string) (*timeslot.TimeSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return nil, timeslot.ErrNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *slotRepo) List(_ context.Context, filter timeslot.Filter) ([]*timeslot.TimeSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.listLocked(filter), nil
}

func (r *slotRepo) listLocked(filter timeslot.Filter) []*timeslot.TimeSlot {
	courts := make(map[string]bool, len(filter.CourtIDs))
	for _, id := range filter.CourtIDs {
		courts[id] = true
	}

	var out []*timeslot.TimeSlot
	for _, slot := range r.s.slots {
		if len(courts) > 0 && !courts[slot.CourtID] {
			continue
		}
		if filter.DayOfWeek != nil && slot.DayOfWeek != *filter.DayOfWeek {
			continue
		}
		if filter.ActiveOnly && !slot.IsActive {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CourtID != b.CourtID {
			return a.CourtID < b.CourtID
		}
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
	return out
}

func (r *slotRepo) FindExact(_ context.Context, courtID string, day time.Weekday, iv interval.Interval) (*timeslot.TimeSlot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, slot := range r.s.slots {
		if slot.IsActive && slot.CourtID == courtID && slot.DayOfWeek == day && slot.Interval() == iv {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, timeslot.ErrNotFound
}

func (r *slotRepo) Remove(_ context.Context, id string) (timeslot.Removal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	slot, ok := r.s.slots[id]
	if !ok {
		return "", timeslot.ErrNotFound
	}

	for _, b := range r.s.bookings {
		if b.TimeSlotID == id && b.Status.Active() {
			slot.IsActive = false
			slot.UpdatedAt = r.s.now().UTC()
			return timeslot.RemovalDeactivated, nil
		}
	}

	delete(r.s.slots, id)
	// Historical bookings keep their copied window; the reference is cleared
	// the way ON DELETE SET NULL does in Postgres.
	for _, b := range r.s.bookings {
		if b.TimeSlotID == id {
			b.TimeSlotID = ""
		}
	}
	return timeslot.RemovalDeleted, nil
}
