package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusHook is a TelemetryHook exporting the transport's request
// lifecycle as Prometheus metrics. It is safe for concurrent use.
type PrometheusHook struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retriesTotal    *prometheus.CounterVec
	rateLimitsTotal *prometheus.CounterVec
}

// NewPrometheusHook creates a hook on the default registerer.
func NewPrometheusHook() *PrometheusHook {
	return NewPrometheusHookWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusHookWithRegistry creates a hook using the supplied registerer.
func NewPrometheusHookWithRegistry(registry prometheus.Registerer) *PrometheusHook {
	return &PrometheusHook{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "venice_requests_total",
				Help: "Total number of API calls made",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "venice_request_duration_seconds",
				Help:    "API call duration across all attempts",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "venice_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "path"},
		),
		rateLimitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "venice_rate_limit_events_total",
				Help: "Total number of 429 responses observed",
			},
			[]string{"method", "path"},
		),
	}
}

// OnRequestStart implements TelemetryHook.
func (h *PrometheusHook) OnRequestStart(RequestStartEvent) {}

// OnRequestEnd implements TelemetryHook.
func (h *PrometheusHook) OnRequestEnd(e RequestEndEvent) {
	h.requestsTotal.WithLabelValues(e.Method, e.Path, strconv.Itoa(e.Status)).Inc()
	h.requestDuration.WithLabelValues(e.Method, e.Path).Observe(e.Duration().Seconds())
}

// OnRetry implements TelemetryHook.
func (h *PrometheusHook) OnRetry(e RetryEvent) {
	h.retriesTotal.WithLabelValues(e.Method, e.Path).Inc()
}

// OnRateLimit implements TelemetryHook.
func (h *PrometheusHook) OnRateLimit(e RateLimitEvent) {
	h.rateLimitsTotal.WithLabelValues(e.Method, e.Endpoint).Inc()
}

var _ TelemetryHook = (*PrometheusHook)(nil)
