package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records outbound request counts and latencies. Registering is
// optional; a nil *Metrics on the client disables collection.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates request metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "padosi_client_requests_total",
			Help: "Outbound API requests by method and result.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "padosi_client_request_duration_seconds",
			Help:    "Outbound API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// observe records one completed request. Transport failures (no response)
// are recorded with status "error".
func (m *Metrics) observe(method string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, label).Inc()
	m.duration.WithLabelValues(method).Observe(seconds)
}
