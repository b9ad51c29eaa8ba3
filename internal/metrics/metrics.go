// Package metrics exposes Prometheus collectors for lifecycle operations,
// bed occupancy and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/smartcity-intake/internal/model"
)

const namespace = "smartcity"

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg        *prometheus.Registry
	operations *prometheus.CounterVec
	beds       *prometheus.GaugeVec
	requests   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_operations_total",
			Help:      "Booking and admission operations by outcome.",
		}, []string{"operation", "outcome"}),
		beds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "beds",
			Help:      "Beds by current status.",
		}, []string{"status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.reg.MustRegister(
		m.operations, m.beds, m.requests, m.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOperation counts one service call.
func (m *Metrics) ObserveOperation(op, outcome string) {
	m.operations.WithLabelValues(op, outcome).Inc()
}

// SetBedCounts replaces the occupancy gauge.  Statuses missing from counts
// are reported as zero.
func (m *Metrics) SetBedCounts(counts map[model.BedStatus]int) {
	for _, s := range []model.BedStatus{model.BedFree, model.BedReserved, model.BedOccupied} {
		m.beds.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// ObserveHTTP records one finished request.  route is the registered path
// pattern, not the raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
