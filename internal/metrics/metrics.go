// Package metrics exposes Prometheus instrumentation for request execution.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements invoke.Observer with Prometheus collectors.
type Recorder struct {
	attempts  *prometheus.CounterVec
	exhausted *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewRecorder creates a recorder registered against reg. Passing nil uses the
// default registry.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redcap_request_attempts_total",
				Help: "Transport attempts by content selector and outcome",
			},
			[]string{"content", "status", "outcome"},
		),
		exhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redcap_requests_exhausted_total",
				Help: "Invocations that exhausted their retry policy",
			},
			[]string{"content"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "redcap_request_duration_seconds",
				Help:    "Duration of individual transport attempts",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"content"},
		),
	}
}

// Attempt records one transport attempt.
func (r *Recorder) Attempt(content string, attempt, status int, elapsed time.Duration, err error) {
	outcome := "completed"
	statusLabel := strconv.Itoa(status)
	if err != nil {
		outcome = "transient_failure"
		statusLabel = "none"
	}
	r.attempts.WithLabelValues(content, statusLabel, outcome).Inc()
	r.duration.WithLabelValues(content).Observe(elapsed.Seconds())
}

// Exhausted records a terminal failure after retry policy exhaustion.
func (r *Recorder) Exhausted(content string, attempts int) {
	r.exhausted.WithLabelValues(content).Inc()
}
