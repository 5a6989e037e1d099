// Package metrics exposes Prometheus collectors for the relay pipeline and
// serves them over HTTP.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "textrelay"

// Metrics groups the relay collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	dispatchErrors  *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	chunksSent      prometheus.Counter
	sendFallbacks   *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go runtime and
// process collectors, on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Inbound user messages dispatched to the upstream API, by service tag.",
		}, []string{"service"}),
		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Failed upstream dispatches, by error kind.",
		}, []string{"kind"}),
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Upstream API round-trip time.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"service"}),
		chunksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_sent_total",
			Help:      "Reply chunks delivered to users.",
		}),
		sendFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_fallbacks_total",
			Help:      "Formatted sends retried as plain text, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.dispatchErrors,
		m.dispatchLatency,
		m.chunksSent,
		m.sendFallbacks,
	)

	return m
}

// Registry returns the registry backing these collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveDispatch records one upstream call. errKind is empty on success.
func (m *Metrics) ObserveDispatch(service string, d time.Duration, errKind string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(service).Inc()
	m.dispatchLatency.WithLabelValues(service).Observe(d.Seconds())
	if errKind != "" {
		m.dispatchErrors.WithLabelValues(errKind).Inc()
	}
}

// ChunkSent records a delivered reply chunk.
func (m *Metrics) ChunkSent() {
	if m == nil {
		return
	}
	m.chunksSent.Inc()
}

// SendFallback records a plain-text retry; delivered reports whether the retry succeeded.
func (m *Metrics) SendFallback(delivered bool) {
	if m == nil {
		return
	}
	outcome := "dropped"
	if delivered {
		outcome = "delivered"
	}
	m.sendFallbacks.WithLabelValues(outcome).Inc()
}
