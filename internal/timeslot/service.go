package timeslot

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/courtly/scheduler/internal/court"
	"github.com/courtly/scheduler/internal/interval"
)

type AddRequest struct {
	CourtID   string
	DayOfWeek time.Weekday
	Window    interval.Interval
}

type Service interface {
	AddSlot(ctx context.Context, req AddRequest) (*TimeSlot, error)
	DeactivateSlot(ctx context.Context, id string) (Removal, error)
	// FindMatchingSlot returns the active slot whose window equals iv exactly,
	// or ErrSlotNotConfigured.
	FindMatchingSlot(ctx context.Context, courtID string, day time.Weekday, iv interval.Interval) (*TimeSlot, error)
	GetByID(ctx context.Context, id string) (*TimeSlot, error)
	List(ctx context.Context, filter Filter) ([]*TimeSlot, error)
	// Snapshot loads every active slot of the given courts into an Index.
	Snapshot(ctx context.Context, courtIDs []string) (*Index, error)
}

type service struct {
	repo   Repository
	courts court.Directory
	log    *logrus.Logger
}

func NewService(repo Repository, courts court.Directory, log *logrus.Logger) Service {
	return &service{repo: repo, courts: courts, log: log}
}

func (s *service) AddSlot(ctx context.Context, req AddRequest) (*TimeSlot, error) {
	if req.CourtID == "" {
		return nil, ErrCourtRequired
	}
	if !interval.ValidWeekday(req.DayOfWeek) {
		return nil, ErrInvalidDay
	}
	if err := req.Window.Validate(); err != nil {
		return nil, ErrInvalidInterval
	}

	if _, err := s.courts.GetByID(ctx, req.CourtID); err != nil {
		return nil, err
	}

	slot := &TimeSlot{
		CourtID:   req.CourtID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.Window.Start,
		EndTime:   req.Window.End,
		IsActive:  true,
	}
	if err := s.repo.InsertNonOverlapping(ctx, slot); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"slot_id":     slot.ID,
		"court_id":    slot.CourtID,
		"day_of_week": int(slot.DayOfWeek),
		"window":      slot.Interval().String(),
	}).Info("time slot added")
	return slot, nil
}

func (s *service) DeactivateSlot(ctx context.Context, id string) (Removal, error) {
	removal, err := s.repo.Remove(ctx, id)
	if err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"slot_id": id, "removal": removal}).Info("time slot removed")
	return removal, nil
}

func (s *service) FindMatchingSlot(ctx context.Context, courtID string, day time.Weekday, iv interval.Interval) (*TimeSlot, error) {
	if !interval.ValidWeekday(day) {
		return nil, ErrInvalidDay
	}
	if err := iv.Validate(); err != nil {
		return nil, ErrInvalidInterval
	}

	slot, err := s.repo.FindExact(ctx, courtID, day, iv)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSlotNotConfigured
		}
		return nil, err
	}
	return slot, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*TimeSlot, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*TimeSlot, error) {
	if filter.DayOfWeek != nil && !interval.ValidWeekday(*filter.DayOfWeek) {
		return nil, ErrInvalidDay
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Snapshot(ctx context.Context, courtIDs []string) (*Index, error) {
	if len(courtIDs) == 0 {
		return NewIndex(nil), nil
	}
	slots, err := s.repo.List(ctx, Filter{CourtIDs: courtIDs, ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return NewIndex(slots), nil
}
