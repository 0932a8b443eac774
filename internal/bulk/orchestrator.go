package bulk

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/courtly/scheduler/internal/availability"
	"github.com/courtly/scheduler/internal/booking"
	"github.com/courtly/scheduler/internal/pkg/apperror"
	"github.com/courtly/scheduler/internal/pkg/logger"
	"github.com/courtly/scheduler/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/courtly/scheduler/internal/bulk")

// Resolver expands a request into classified candidates.
type Resolver interface {
	Resolve(ctx context.Context, req availability.Request) ([]availability.Candidate, error)
}

// Orchestrator turns a bulk request into committed bookings.
type Orchestrator struct {
	resolver Resolver
	ledger   booking.Service
	log      *logrus.Logger
	metrics  *metrics.Metrics
}

func NewOrchestrator(resolver Resolver, ledger booking.Service, log *logrus.Logger, m *metrics.Metrics) *Orchestrator {
	if log == nil {
		log = logger.Discard()
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Orchestrator{resolver: resolver, ledger: ledger, log: log, metrics: m}
}

func mode(req Request) string {
	if req.IgnoreUnavailable {
		return "best_effort"
	}
	return "strict"
}

// Book resolves req, decides which candidates to write and commits them in
// one batch. Strict requests either create every candidate or nothing.
func (o *Orchestrator) Book(ctx context.Context, req Request) (*Report, error) {
	ctx, span := tracer.Start(ctx, "bulk.Book")
	defer span.End()
	span.SetAttributes(attribute.Bool("ignore_unavailable", req.IgnoreUnavailable))

	report, err := o.book(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = string(apperror.KindOf(err))
		span.RecordError(err)
	}
	o.metrics.BulkRequests.WithLabelValues(mode(req), outcome).Inc()
	return report, err
}

func (o *Orchestrator) book(ctx context.Context, req Request) (*Report, error) {
	if req.UserID == "" {
		return nil, ErrUserRequired
	}
	if !req.FromDate.IsZero() && req.FromDate.Before(o.ledger.Today()) {
		return nil, booking.ErrDateInPast
	}

	// 1. Resolve
	candidates, err := o.resolver.Resolve(ctx, req.Request)
	if err != nil {
		return nil, err
	}

	// 2. Decide
	report := &Report{TotalRequested: len(candidates)}
	toCreate := make([]availability.Candidate, 0, len(candidates))
	var problems []availability.Candidate
	for _, c := range candidates {
		if c.Classification == availability.Available {
			toCreate = append(toCreate, c)
			continue
		}
		problems = append(problems, c)
		report.Skipped = append(report.Skipped, Skipped{Candidate: c, Reason: c.Classification})
	}
	if len(problems) > 0 && !req.IgnoreUnavailable {
		return nil, &UnavailableError{Problems: problems}
	}

	// 3. Commit
	batchMode := booking.BatchAllOrNothing
	if req.IgnoreUnavailable {
		batchMode = booking.BatchSkipConflicts
	}
	drafts := make([]booking.Draft, len(toCreate))
	for i, c := range toCreate {
		drafts[i] = booking.Draft{
			CourtID:      c.CourtID,
			TimeSlotID:   c.TimeSlotID,
			Date:         c.Date,
			Window:       c.Requested,
			PricePerHour: c.PricePerHour,
			UserID:       req.UserID,
			Status:       req.Status,
		}
	}
	res, err := o.ledger.CreateMany(ctx, drafts, batchMode)
	if err != nil {
		return nil, err
	}

	for _, i := range res.Lost {
		c := toCreate[i]
		c.Classification = availability.Conflict
		report.Skipped = append(report.Skipped, Skipped{Candidate: c, Reason: availability.Conflict})
	}
	for _, i := range res.Inactive {
		c := toCreate[i]
		c.Classification = availability.SlotNotConfigured
		report.Skipped = append(report.Skipped, Skipped{Candidate: c, Reason: availability.SlotNotConfigured})
	}
	for _, s := range report.Skipped {
		o.metrics.CandidatesSkipped.WithLabelValues(string(s.Reason)).Inc()
	}

	// 4. Report
	report.Created = res.Created
	if report.Created == nil {
		report.Created = []*booking.Booking{}
	}
	report.TotalCreated = len(res.Created)

	o.log.WithFields(logrus.Fields{
		"user_id":         req.UserID,
		"mode":            mode(req),
		"from":            req.FromDate.String(),
		"to":              req.ToDate.String(),
		"total_requested": report.TotalRequested,
		"total_created":   report.TotalCreated,
		"skipped":         len(report.Skipped),
	}).Info("bulk booking committed")
	return report, nil
}
