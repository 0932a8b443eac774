package availability

import (
	"context"
	"iter"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/court"
	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/metrics"
	"github.com/courtly/scheduler/internal/timeslot"
)

var tracer = otel.Tracer("github.com/courtly/scheduler/internal/availability")

// SlotCatalog is the part of the slot catalog the resolver reads.
type SlotCatalog interface {
	Snapshot(ctx context.Context, courtIDs []string) (*timeslot.Index, error)
}

// Ledger is the part of the booking ledger the resolver reads.
type Ledger interface {
	ActiveKeys(ctx context.Context, courtIDs []string, from, to interval.Date) (booking.KeySet, error)
}

// Resolver expands availability requests into classified candidates. It
// never writes and is safe for concurrent use.
type Resolver struct {
	courts  court.Directory
	slots   SlotCatalog
	ledger  Ledger
	limits  Limits
	metrics *metrics.Metrics
}

func NewResolver(courts court.Directory, slots SlotCatalog, ledger Ledger, limits Limits, m *metrics.Metrics) *Resolver {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Resolver{courts: courts, slots: slots, ledger: ledger, limits: limits, metrics: m}
}

func (r *Resolver) Limits() Limits {
	return r.limits
}

// Validate checks a request without touching any store.
func (r *Resolver) Validate(req Request) error {
	if req.FromDate.IsZero() || req.ToDate.IsZero() {
		return ErrDatesRequired
	}
	if req.FromDate.After(req.ToDate) {
		return ErrInvalidRange
	}
	if span := req.ToDate.DaysSince(req.FromDate); span > r.limits.MaxSpanDays {
		return &TooLargeError{Field: "date_range_days", Limit: r.limits.MaxSpanDays, Got: span}
	}
	if len(req.Slots) > r.limits.MaxSlotPatterns {
		return &TooLargeError{Field: "time_slots", Limit: r.limits.MaxSlotPatterns, Got: len(req.Slots)}
	}

	if len(req.Days) == 0 {
		return ErrNoDays
	}
	for _, d := range req.Days {
		if !interval.ValidWeekday(d) {
			return ErrInvalidDay
		}
	}
	if len(req.Slots) == 0 {
		return ErrNoSlots
	}
	for _, s := range req.Slots {
		if err := s.Validate(); err != nil {
			return ErrInvalidSlot
		}
	}
	if len(req.CourtIDs) == 0 && (req.VenueID == "" || req.SportType == "") {
		return ErrNoCourts
	}
	return nil
}

// Plan is a snapshot of everything needed to classify a request's candidates.
type Plan struct {
	req    Request
	days   [7]bool
	courts []*court.Court
	index  *timeslot.Index
	taken  booking.KeySet
}

// Prepare validates req and loads the courts, the catalog snapshot and the
// active bookings of the range, in that order.
func (r *Resolver) Prepare(ctx context.Context, req Request) (*Plan, error) {
	ctx, span := tracer.Start(ctx, "availability.Prepare")
	defer span.End()

	if err := r.Validate(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	req.Slots = uniqueSlots(req.Slots)

	courts, err := r.loadCourts(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	ids := make([]string, len(courts))
	for i, c := range courts {
		ids[i] = c.ID
	}

	index, err := r.slots.Snapshot(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	taken, err := r.ledger.ActiveKeys(ctx, ids, req.FromDate, req.ToDate)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p := &Plan{req: req, courts: courts, index: index, taken: taken}
	for _, d := range req.Days {
		p.days[d] = true
	}
	span.SetAttributes(
		attribute.Int("courts", len(courts)),
		attribute.Int("slot_patterns", len(req.Slots)),
		attribute.String("from", req.FromDate.String()),
		attribute.String("to", req.ToDate.String()),
	)
	return p, nil
}

// uniqueSlots drops repeated patterns, keeping first-seen order. A repeated
// pattern would yield the same key twice and collide with itself on commit.
func uniqueSlots(slots []interval.Interval) []interval.Interval {
	out := make([]interval.Interval, 0, len(slots))
	seen := make(map[interval.Interval]bool, len(slots))
	for _, s := range slots {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// loadCourts resolves the court set once per request.
func (r *Resolver) loadCourts(ctx context.Context, req Request) ([]*court.Court, error) {
	if len(req.CourtIDs) == 0 {
		return r.courts.ListActive(ctx, req.VenueID, req.SportType)
	}

	courts := make([]*court.Court, 0, len(req.CourtIDs))
	seen := make(map[string]bool, len(req.CourtIDs))
	for _, id := range req.CourtIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, err := r.courts.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !c.IsActive {
			return nil, court.ErrInactive
		}
		courts = append(courts, c)
	}
	return courts, nil
}

// Candidates yields candidates lazily in date, court, pattern order.
func (p *Plan) Candidates() iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		for d := p.req.FromDate; !d.After(p.req.ToDate); d = d.AddDays(1) {
			wd := d.Weekday()
			if !p.days[wd] {
				continue
			}
			for _, c := range p.courts {
				for _, pattern := range p.req.Slots {
					if !yield(p.classify(c, d, wd, pattern)) {
						return
					}
				}
			}
		}
	}
}

func (p *Plan) classify(c *court.Court, d interval.Date, wd time.Weekday, pattern interval.Interval) Candidate {
	cand := Candidate{
		CourtID:      c.ID,
		Date:         d,
		Weekday:      wd,
		Requested:    pattern,
		PricePerHour: c.PricePerHour,
	}

	slot, ok := p.index.Match(c.ID, wd, pattern)
	if !ok {
		cand.Classification = SlotNotConfigured
		return cand
	}
	cand.TimeSlotID = slot.ID
	if p.taken.Has(booking.SlotKey{CourtID: c.ID, TimeSlotID: slot.ID, Date: d}) {
		cand.Classification = Conflict
		return cand
	}
	cand.Classification = Available
	return cand
}

// Resolve validates req and returns every candidate in deterministic order.
func (r *Resolver) Resolve(ctx context.Context, req Request) ([]Candidate, error) {
	start := time.Now()
	plan, err := r.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	out := slices.Collect(plan.Candidates())

	r.metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	r.metrics.ResolveCandidates.Observe(float64(len(out)))
	return out, nil
}
