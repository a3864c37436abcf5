package client

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics observes directory traffic.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
	Retries  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "locus_directory_requests_total",
			Help: "Directory API calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "locus_directory_request_duration_seconds",
			Help:    "Directory API latency including rate-limit waits",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		Retries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "locus_directory_rate_limit_retries_total",
			Help: "Requests retried after HTTP 429",
		}),
	}
}

func (m *Metrics) observe(op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
	m.Latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) incRetry() {
	if m != nil {
		m.Retries.Inc()
	}
}
