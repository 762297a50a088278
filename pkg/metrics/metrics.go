// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ProviderCallDuration tracks upstream provider call duration.
	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_call_duration_seconds",
			Help:    "Upstream provider call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "operation", "status"},
	)

	// ProviderTokensTotal tracks total provider tokens processed.
	ProviderTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_tokens_total",
			Help: "Total provider tokens processed",
		},
		[]string{"model", "direction"},
	)

	// ProviderErrorsTotal tracks classified provider failures.
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_errors_total",
			Help: "Total classified provider failures",
		},
		[]string{"provider", "kind"},
	)

	// SessionsActive tracks the number of sessions in the store.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of sessions currently in the store",
		},
	)

	// MessagesTotal tracks total messages appended.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"role", "type"},
	)

	// TurnsBuffered tracks completions buffered for in-order delivery.
	TurnsBuffered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "turns_buffered_total",
			Help: "Completions that resolved out of order and were buffered",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordProviderCall records metrics for one provider call.
func RecordProviderCall(provider, operation, status string, duration float64, tokensIn, tokensOut int, model string) {
	ProviderCallDuration.WithLabelValues(provider, operation, status).Observe(duration)
	if model != "" {
		ProviderTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
		ProviderTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	}
}
