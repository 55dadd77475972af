package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the archival subsystem. All record
// helpers are nil-safe so wiring metrics stays optional in tests.
type Metrics struct {
	Archived            *prometheus.CounterVec
	Restored            *prometheus.CounterVec
	StatusCheckDuration prometheus.Histogram
	StatusCheckFailures prometheus.Counter
	SweepRuns           prometheus.Counter
	SweepArchived       prometheus.Counter
	SweepErrors         prometheus.Counter
}

// New creates a Metrics instance with all archival metrics registered.
func New() *Metrics {
	return &Metrics{
		Archived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_archives_created_total",
			Help: "Total archive records created, by entity kind and trigger",
		}, []string{"kind", "trigger"}),
		Restored: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "civicdesk_archives_restored_total",
			Help: "Total archive records removed via restore, by entity kind",
		}, []string{"kind"}),
		StatusCheckDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "civicdesk_archive_status_check_duration_seconds",
			Help:    "Duration of archive status checks (guard hot path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		StatusCheckFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_archive_status_check_failures_total",
			Help: "Status check failures swallowed into archived=false",
		}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_retention_sweeps_total",
			Help: "Total retention sweep executions",
		}),
		SweepArchived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_retention_sweep_archived_total",
			Help: "Total entities archived by retention sweeps",
		}),
		SweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "civicdesk_retention_sweep_errors_total",
			Help: "Per-candidate failures isolated during retention sweeps",
		}),
	}
}

// RecordArchived counts one created archive record.
func (m *Metrics) RecordArchived(kind, trigger string) {
	if m == nil {
		return
	}
	m.Archived.WithLabelValues(kind, trigger).Inc()
}

// RecordRestored counts one restore.
func (m *Metrics) RecordRestored(kind string) {
	if m == nil {
		return
	}
	m.Restored.WithLabelValues(kind).Inc()
}

// ObserveStatusCheck records the duration of a status check.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStatusCheck(start time.Time) {
	if m == nil {
		return
	}
	m.StatusCheckDuration.Observe(time.Since(start).Seconds())
}

// RecordStatusCheckFailure counts a swallowed status check failure.
func (m *Metrics) RecordStatusCheckFailure() {
	if m == nil {
		return
	}
	m.StatusCheckFailures.Inc()
}

// RecordSweep records the aggregate outcome of one sweep.
func (m *Metrics) RecordSweep(archived, errors int) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweepArchived.Add(float64(archived))
	m.SweepErrors.Add(float64(errors))
}
