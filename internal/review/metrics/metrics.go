package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the review workflow.
type Metrics struct {
	// Decisions reaching a state: opened, applied, failed, rejected, retried
	Decisions *prometheus.CounterVec

	// Directory write latency by outcome
	WriteLatency *prometheus.HistogramVec

	// Time callers spent waiting for another write to the same person
	LockWait prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "locus_review_decisions_total",
			Help: "Review decisions by resulting state",
		}, []string{"state"}),
		WriteLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "locus_review_write_duration_seconds",
			Help:    "Latency of correction writes to the directory",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
		}, []string{"outcome"}),
		LockWait: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "locus_review_person_lock_wait_seconds",
			Help:    "Time spent waiting for the per-person write lock",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

func (m *Metrics) IncrementDecision(state string) {
	if m != nil {
		m.Decisions.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) ObserveWrite(outcome string, d time.Duration) {
	if m != nil {
		m.WriteLatency.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

func (m *Metrics) ObserveLockWait(d time.Duration) {
	if m != nil {
		m.LockWait.Observe(d.Seconds())
	}
}
