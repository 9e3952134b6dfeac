package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gitlab.com/heartbeat-intel/edge-router/pkg/route"
	"gitlab.com/heartbeat-intel/edge-router/pkg/upstream"
)

const namespace = "edge_router"

type Metrics struct {
	registry        *prometheus.Registry
	decisions       *prometheus.CounterVec
	upstreamErrors  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Routing decisions by action, origin and reason.",
			},
			[]string{"action", "origin", "reason"},
		),
		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Round trips to an origin that failed without a response.",
			},
			[]string{"origin"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from receiving a request to relaying the last byte of the response.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"code", "method"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "in_flight_requests",
				Help:      "Requests currently being relayed.",
			},
		),
	}

	m.registry.MustRegister(
		m.decisions,
		m.upstreamErrors,
		m.requestDuration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveDecision(d route.Decision) {
	origin := d.Origin
	if d.Action == route.ActionPassThrough {
		origin = upstream.PassThroughName
	}
	m.decisions.WithLabelValues(string(d.Action), origin, string(d.Reason)).Inc()
}

func (m *Metrics) ObserveUpstreamError(origin string) {
	m.upstreamErrors.WithLabelValues(origin).Inc()
}

// Middleware instruments the wrapped handler with latency and in-flight metrics.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(m.inFlight,
		promhttp.InstrumentHandlerDuration(m.requestDuration, next),
	)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
