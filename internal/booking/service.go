package booking

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/courtly/scheduler/internal/court"
	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/logger"
	"github.com/courtly/scheduler/internal/pkg/metrics"
	"github.com/courtly/scheduler/internal/timeslot"
)

type CreateRequest struct {
	CourtID     string
	TimeSlotID  string
	BookingDate interval.Date
	UserID      string
	// Status is the initial status; empty means StatusPending.
	Status Status
}

type Service interface {
	CreateSingle(ctx context.Context, req CreateRequest) (*Booking, error)
	CreateMany(ctx context.Context, drafts []Draft, mode BatchMode) (BatchResult, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	ActiveKeys(ctx context.Context, courtIDs []string, from, to interval.Date) (KeySet, error)
	UpdateStatus(ctx context.Context, id string, next Status) (*Booking, error)
	UpdatePaymentStatus(ctx context.Context, id string, next PaymentStatus) (*Booking, error)
	Cancel(ctx context.Context, id string, actor Actor) (*Booking, error)
	// CompletePast moves confirmed bookings dated before today to completed.
	CompletePast(ctx context.Context) (int64, error)
	// Today is the current date according to the service clock.
	Today() interval.Date
}

type Option func(*service)

func WithLogger(l *logrus.Logger) Option {
	return func(s *service) { s.log = l }
}

func WithEvents(p EventPublisher) Option {
	return func(s *service) { s.events = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo    Repository
	slots   timeslot.Service
	courts  court.Directory
	events  EventPublisher
	log     *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, slots timeslot.Service, courts court.Directory, opts ...Option) Service {
	s := &service{
		repo:   repo,
		slots:  slots,
		courts: courts,
		events: noopPublisher{},
		log:    logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	return s
}

func (s *service) Today() interval.Date {
	return interval.DateOf(s.now().UTC())
}

func (s *service) CreateSingle(ctx context.Context, req CreateRequest) (*Booking, error) {
	// 1. Validate input
	if req.CourtID == "" || req.TimeSlotID == "" || req.UserID == "" || req.BookingDate.IsZero() {
		return nil, ErrInvalidInput
	}
	if req.Status == "" {
		req.Status = StatusPending
	}
	if !req.Status.Active() {
		return nil, ErrInvalidStatus
	}
	if req.BookingDate.Before(s.Today()) {
		return nil, ErrDateInPast
	}

	// 2. Validate the slot belongs to the court, is active and falls on the date's weekday
	slot, err := s.slots.GetByID(ctx, req.TimeSlotID)
	if err != nil {
		return nil, err
	}
	if slot.CourtID != req.CourtID {
		return nil, ErrCourtMismatch
	}
	if !slot.IsActive {
		return nil, ErrSlotInactive
	}
	if req.BookingDate.Weekday() != slot.DayOfWeek {
		return nil, ErrWeekdayMismatch
	}

	c, err := s.courts.GetByID(ctx, req.CourtID)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, court.ErrInactive
	}

	// 3. Insert; the store enforces uniqueness of the active key
	b, err := s.build(Draft{
		CourtID:      req.CourtID,
		TimeSlotID:   slot.ID,
		Date:         req.BookingDate,
		Window:       slot.Interval(),
		PricePerHour: c.PricePerHour,
		UserID:       req.UserID,
		Status:       req.Status,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, b); err != nil {
		if errors.Is(err, ErrSlotAlreadyBooked) {
			s.metrics.LedgerConflicts.WithLabelValues("single").Inc()
		}
		return nil, err
	}

	s.metrics.BookingsCreated.WithLabelValues("single").Inc()
	s.log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"court_id":   b.CourtID,
		"slot_id":    b.TimeSlotID,
		"date":       b.BookingDate.String(),
		"user_id":    b.UserID,
	}).Info("booking created")
	s.publish(ctx, EventCreated, b)
	return b, nil
}

func (s *service) build(d Draft) (*Booking, error) {
	amount, err := Amount(d.PricePerHour, d.Window)
	if err != nil {
		return nil, err
	}
	status := d.Status
	if status == "" {
		status = StatusPending
	}
	return &Booking{
		CourtID:       d.CourtID,
		TimeSlotID:    d.TimeSlotID,
		BookingDate:   d.Date,
		StartTime:     d.Window.Start,
		EndTime:       d.Window.End,
		Status:        status,
		PaymentStatus: PaymentPending,
		TotalAmount:   amount,
		UserID:        d.UserID,
	}, nil
}

func (s *service) CreateMany(ctx context.Context, drafts []Draft, mode BatchMode) (BatchResult, error) {
	if len(drafts) == 0 {
		return BatchResult{}, nil
	}

	bs := make([]*Booking, len(drafts))
	for i, d := range drafts {
		if !d.Status.Active() && d.Status != "" {
			return BatchResult{}, ErrInvalidStatus
		}
		b, err := s.build(d)
		if err != nil {
			return BatchResult{}, err
		}
		bs[i] = b
	}

	res, err := s.repo.InsertMany(ctx, bs, mode)
	if err != nil {
		if errors.Is(err, ErrBatchConflict) {
			s.metrics.LedgerConflicts.WithLabelValues("bulk").Inc()
		}
		return BatchResult{}, err
	}

	if len(res.Lost) > 0 {
		s.metrics.LedgerConflicts.WithLabelValues("bulk").Add(float64(len(res.Lost)))
	}
	s.metrics.BookingsCreated.WithLabelValues("bulk").Add(float64(len(res.Created)))
	for _, b := range res.Created {
		s.publish(ctx, EventCreated, b)
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	if filter.Status != "" && !Status(filter.Status).Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *service) ActiveKeys(ctx context.Context, courtIDs []string, from, to interval.Date) (KeySet, error) {
	keys, err := s.repo.ActiveKeys(ctx, courtIDs, from, to)
	if err != nil {
		return nil, err
	}
	return NewKeySet(keys), nil
}

func (s *service) UpdateStatus(ctx context.Context, id string, next Status) (*Booking, error) {
	if !next.Valid() {
		return nil, ErrInvalidStatus
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.CanTransitionTo(next) {
		return nil, &TransitionError{From: string(b.Status), To: string(next)}
	}
	if next == StatusCompleted && !b.BookingDate.Before(s.Today()) {
		return nil, &TransitionError{From: string(b.Status), To: string(next), Reason: "booking date has not passed"}
	}

	updated, err := s.repo.UpdateStatus(ctx, id, b.Status, next)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": id,
		"from":       b.Status,
		"to":         next,
	}).Info("booking status changed")
	key := EventStatusChanged
	if next == StatusCancelled {
		key = EventCancelled
	}
	s.publish(ctx, key, updated)
	return updated, nil
}

func (s *service) UpdatePaymentStatus(ctx context.Context, id string, next PaymentStatus) (*Booking, error) {
	if !next.Valid() {
		return nil, ErrInvalidPayment
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Redelivered payment events must not fail.
	if b.PaymentStatus == next {
		return b, nil
	}
	if !b.PaymentStatus.CanTransitionTo(next) {
		return nil, &TransitionError{From: "payment " + string(b.PaymentStatus), To: "payment " + string(next)}
	}

	updated, err := s.repo.UpdatePaymentStatus(ctx, id, b.PaymentStatus, next)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": id,
		"from":       b.PaymentStatus,
		"to":         next,
	}).Info("booking payment status changed")
	s.publish(ctx, EventPaymentStatus, updated)
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, id string, actor Actor) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Permission: booking owner or admin
	if !actor.IsAdmin && b.UserID != actor.UserID {
		return nil, ErrPermissionDenied
	}
	if !b.Status.CanTransitionTo(StatusCancelled) {
		return nil, &TransitionError{From: string(b.Status), To: string(StatusCancelled)}
	}
	// A paid booking needs a refund, which only an admin can arrange.
	if b.PaymentStatus == PaymentPaid && !actor.IsAdmin {
		return nil, ErrPaidCancellation
	}

	updated, err := s.repo.UpdateStatus(ctx, id, b.Status, StatusCancelled)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"booking_id": id,
		"actor":      actor.UserID,
		"admin":      actor.IsAdmin,
	}).Info("booking cancelled")
	s.publish(ctx, EventCancelled, updated)
	return updated, nil
}

func (s *service) CompletePast(ctx context.Context) (int64, error) {
	n, err := s.repo.CompleteBefore(ctx, s.Today())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithField("count", n).Info("bookings completed")
	}
	return n, nil
}

func (s *service) publish(ctx context.Context, key string, b *Booking) {
	if err := s.events.PublishJSON(ctx, key, newEvent(b, s.now().UTC())); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":      key,
			"booking_id": b.ID,
		}).Warn("publish booking event failed")
	}
}
