package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters the auth core reports. A nil *Metrics is valid
// and records nothing, so tests and tools can skip registration.
type Metrics struct {
	registry    *prometheus.Registry
	operations  *prometheus.CounterVec
	storeErrors *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

// NewMetrics registers the auth counters on a fresh registry together with
// the standard Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aloha",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Session operations by outcome.",
		}, []string{"op", "result"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aloha",
			Subsystem: "revocation",
			Name:      "store_errors_total",
			Help:      "Revocation store failures, by operation and applied policy.",
		}, []string{"op", "policy"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aloha",
			Subsystem: "http",
			Name:      "auth_rejections_total",
			Help:      "Protected requests rejected by the authenticator.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.operations,
		m.storeErrors,
		m.rejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Operation(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) StoreError(op, policy string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op, policy).Inc()
}

func (m *Metrics) Rejection(kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
