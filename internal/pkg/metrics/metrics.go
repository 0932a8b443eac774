package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the scheduling engine's Prometheus collectors.
type Metrics struct {
	BookingsCreated   *prometheus.CounterVec
	CandidatesSkipped *prometheus.CounterVec
	LedgerConflicts   *prometheus.CounterVec
	BulkRequests      *prometheus.CounterVec
	ResolveDuration   prometheus.Histogram
	ResolveCandidates prometheus.Histogram
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests
// to avoid duplicate registration on the default registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BookingsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_bookings_created_total",
			Help: "Bookings committed to the ledger, by path (single, bulk)",
		}, []string{"path"}),

		CandidatesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_bulk_candidates_skipped_total",
			Help: "Bulk candidates skipped in best-effort mode, by reason",
		}, []string{"reason"}),

		LedgerConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_ledger_conflicts_total",
			Help: "Writes that lost the uniqueness race, by path",
		}, []string{"path"}),

		BulkRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_bulk_requests_total",
			Help: "Bulk booking requests, by mode and outcome",
		}, []string{"mode", "outcome"}),

		ResolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_resolve_duration_seconds",
			Help:    "Time spent resolving availability",
			Buckets: prometheus.DefBuckets,
		}),

		ResolveCandidates: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scheduler_resolve_candidates",
			Help:    "Number of candidates produced per resolution",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}
