// Copyright 2025 Joseph Cumines
//
// Prometheus metrics for requests and script executions

package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default histogram buckets for script latencies (in seconds). The top
// bucket sits at the default script timeout.
var scriptLatencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

// Metrics holds the agent's Prometheus collectors on a private registry.
type Metrics struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	scriptTotal     *prometheus.CounterVec
	scriptDuration  *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewMetrics creates a Metrics instance with its own registry, so multiple
// instances (e.g., in tests) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thea_agent_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "thea_agent_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		scriptTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thea_agent_scripts_total",
				Help: "Total number of osascript executions by outcome",
			},
			[]string{"outcome"},
		),
		scriptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "thea_agent_script_duration_seconds",
				Help:    "Duration of osascript executions in seconds",
				Buckets: scriptLatencyBuckets,
			},
			[]string{"outcome"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "thea_agent_http_requests_in_flight",
				Help: "Number of HTTP requests currently being served",
			},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveScript records one script execution. It satisfies osascript.Observer.
func (m *Metrics) ObserveScript(outcome string, duration time.Duration) {
	m.scriptTotal.WithLabelValues(outcome).Inc()
	m.scriptDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Middleware records request count, latency and in-flight gauge. label maps
// a request to a bounded route name.
func (m *Metrics) Middleware(label func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		m.inFlight.Inc()
		defer m.inFlight.Dec()

		next.ServeHTTP(rec, r)

		route := label(r)
		m.requestTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the /metrics exposition handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// NewServer returns an http.Server exposing /metrics on addr. Metrics live on
// their own listener so the agent's route table stays fixed.
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
