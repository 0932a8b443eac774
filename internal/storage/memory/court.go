package memory

import (
	"context"
	"sort"

	"github.com/courtly/scheduler/internal/court"
)

type courtRepo struct {
	s *Store
}

func (r *courtRepo) Create(_ context.Context, c *court.Court) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == "" {
		c.ID = newID()
	}
	c.CreatedAt = r.s.now().UTC()
	cp := *c
	r.s.courts[c.ID] = &cp
	return nil
}

func (r *courtRepo) GetByID(_ context.Context, id string) (*court.Court, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.courts[id]
	if !ok {
		return nil, court.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *courtRepo) ListActive(_ context.Context, venueID, sportType string) ([]*court.Court, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*court.Court
	for _, c := range r.s.courts {
		if c.VenueID == venueID && c.SportType == sportType && c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
