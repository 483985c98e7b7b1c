// Package metrics provides the Prometheus instrumentation emitted by the
// client orchestrator after each request attempt (spec.md §4.8 step 8):
// aws_requests_total, aws_request_duration, and aws_request_errors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters and histogram the orchestrator updates on
// every attempt. Unlike a process-wide singleton, it is built against a
// caller-supplied prometheus.Registerer so multiple client instances (and
// tests constructing more than one) never collide on the default registry.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	requestErrors  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

// New registers the orchestrator's metrics against reg. Pass
// prometheus.NewRegistry() in tests; production callers typically pass
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aws_requests_total",
				Help: "Total number of AWS service requests attempted.",
			},
			[]string{"service", "operation"},
		),
		requestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aws_request_errors_total",
				Help: "Total number of AWS service requests that ultimately failed.",
			},
			[]string{"service", "operation", "kind"},
		),
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aws_request_duration_seconds",
				Help:    "Latency of AWS service requests, end to end including retries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),
	}
}

// RecordAttempt increments the requests counter and observes duration for
// one completed exchange (success or final failure).
func (m *Metrics) RecordAttempt(service, operation string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(service, operation).Inc()
	m.requestLatency.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordError increments the error counter, tagged with a coarse error kind
// (e.g. "client", "server", "transport", "protocol") for dashboarding.
func (m *Metrics) RecordError(service, operation, kind string) {
	m.requestErrors.WithLabelValues(service, operation, kind).Inc()
}
