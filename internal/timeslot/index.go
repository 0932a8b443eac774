package timeslot

import (
	"time"

	"github.com/courtly/scheduler/internal/interval"
)

// FirstOverlap returns the first active slot in slots that overlaps iv, or nil.
func FirstOverlap(slots []*TimeSlot, iv interval.Interval) *TimeSlot {
	for _, s := range slots {
		if s.IsActive && interval.Overlaps(s.Interval(), iv) {
			return s
		}
	}
	return nil
}

type indexKey struct {
	courtID string
	day     time.Weekday
	window  interval.Interval
}

// Index answers exact-match slot lookups from an in-memory snapshot of the
// catalog. Only active slots are indexed.
type Index struct {
	slots map[indexKey]*TimeSlot
}

func NewIndex(slots []*TimeSlot) *Index {
	idx := &Index{slots: make(map[indexKey]*TimeSlot, len(slots))}
	for _, s := range slots {
		if !s.IsActive {
			continue
		}
		idx.slots[indexKey{courtID: s.CourtID, day: s.DayOfWeek, window: s.Interval()}] = s
	}
	return idx
}

// Match returns the active slot whose window equals iv exactly. Partial
// overlaps never match.
func (idx *Index) Match(courtID string, day time.Weekday, iv interval.Interval) (*TimeSlot, bool) {
	s, ok := idx.slots[indexKey{courtID: courtID, day: day, window: iv}]
	return s, ok
}

func (idx *Index) Len() int {
	return len(idx.slots)
}
