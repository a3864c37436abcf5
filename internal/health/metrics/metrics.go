package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for audit runs.
type Metrics struct {
	// Runs by outcome: complete, partial, cancelled, fetch_failed
	Runs *prometheus.CounterVec

	// Per-analyzer latency, including failed runs
	AnalyzerLatency *prometheus.HistogramVec

	// Findings emitted per analyzer
	Findings *prometheus.CounterVec

	// Analyzer failures, panics included
	AnalyzerErrors *prometheus.CounterVec

	// Ghost confirmations by outcome: confirmed, failed
	Confirmations *prometheus.CounterVec

	// Full audit latency including the roster fetch
	AuditLatency prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "locus_audit_runs_total",
			Help: "Audit runs by outcome",
		}, []string{"outcome"}),

		AnalyzerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "locus_audit_analyzer_duration_seconds",
			Help:    "Duration of a single analyzer over one roster snapshot",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"analyzer"}),

		Findings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "locus_audit_findings_total",
			Help: "Findings emitted by analyzer",
		}, []string{"analyzer"}),

		AnalyzerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "locus_audit_analyzer_errors_total",
			Help: "Analyzer runs that failed or panicked",
		}, []string{"analyzer"}),

		Confirmations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "locus_audit_ghost_confirmations_total",
			Help: "Ghost check-in confirmations by outcome",
		}, []string{"outcome"}),

		AuditLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "locus_audit_duration_seconds",
			Help:    "Duration of a full audit including the roster fetch",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

func (m *Metrics) IncrementRun(outcome string) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
	}
}

// ObserveAnalyzer records one analyzer execution.
func (m *Metrics) ObserveAnalyzer(analyzer string, d time.Duration, findings int, failed bool) {
	if m == nil {
		return
	}
	m.AnalyzerLatency.WithLabelValues(analyzer).Observe(d.Seconds())
	m.Findings.WithLabelValues(analyzer).Add(float64(findings))
	if failed {
		m.AnalyzerErrors.WithLabelValues(analyzer).Inc()
	}
}

func (m *Metrics) IncrementConfirmation(outcome string) {
	if m != nil {
		m.Confirmations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveAudit(d time.Duration) {
	if m != nil {
		m.AuditLatency.Observe(d.Seconds())
	}
}
