// Package metrics provides Prometheus metrics collection for the portal.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Package-level collectors, nil until Init runs. Record functions are
	// no-ops before that, which keeps tests free of registration.
	requestsTotal      atomic.Pointer[prometheus.CounterVec]
	requestDuration    atomic.Pointer[prometheus.HistogramVec]
	upstreamTotal      atomic.Pointer[prometheus.CounterVec]
	upstreamDuration   atomic.Pointer[prometheus.HistogramVec]
	authFailuresTotal  atomic.Pointer[prometheus.CounterVec]
	loginAttemptsTotal atomic.Pointer[prometheus.CounterVec]
)

// Init registers all collectors with reg. Call once at startup.
func Init(reg prometheus.Registerer, version string) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served by the portal",
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestsTotalVec); err != nil {
		return fmt.Errorf("failed to register requestsTotal: %w", err)
	}

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Portal request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestDurationVec); err != nil {
		return fmt.Errorf("failed to register requestDuration: %w", err)
	}

	upstreamTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "api",
			Name:      "calls_total",
			Help:      "Calls made to the freight API, by outcome",
		},
		[]string{"method", "path", "outcome"},
	)
	if err := reg.Register(upstreamTotalVec); err != nil {
		return fmt.Errorf("failed to register upstreamTotal: %w", err)
	}

	upstreamDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "api",
			Name:      "call_duration_seconds",
			Help:      "Freight API call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	if err := reg.Register(upstreamDurationVec); err != nil {
		return fmt.Errorf("failed to register upstreamDuration: %w", err)
	}

	authFailuresTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "guard_redirects_total",
			Help:      "Protected route visits redirected to a login page",
		},
		[]string{"kind"},
	)
	if err := reg.Register(authFailuresTotalVec); err != nil {
		return fmt.Errorf("failed to register authFailuresTotal: %w", err)
	}

	loginAttemptsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Login attempts by session kind and result",
		},
		[]string{"kind", "result"},
	)
	if err := reg.Register(loginAttemptsTotalVec); err != nil {
		return fmt.Errorf("failed to register loginAttemptsTotal: %w", err)
	}

	infoGaugeVec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "portal",
			Name:      "info",
			Help:      "Portal version information",
		},
		[]string{"version"},
	)
	if err := reg.Register(infoGaugeVec); err != nil {
		return fmt.Errorf("failed to register infoGauge: %w", err)
	}
	infoGaugeVec.WithLabelValues(version).Set(1)

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	upstreamTotal.Store(upstreamTotalVec)
	upstreamDuration.Store(upstreamDurationVec)
	authFailuresTotal.Store(authFailuresTotalVec)
	loginAttemptsTotal.Store(loginAttemptsTotalVec)

	return nil
}

// RecordRequest increments the portal request counter.
// The path is a route pattern, never a raw URL.
func RecordRequest(method, path, statusCode string) {
	if counter := requestsTotal.Load(); counter != nil {
		counter.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordRequestDuration records the latency of a portal request in seconds.
func RecordRequestDuration(method, path, statusCode string, durationSeconds float64) {
	if histogram := requestDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
	}
}

// RecordUpstreamCall records one call to the freight API. Route is the
// endpoint template (/api/rastreio/{numero}), not the concrete path.
// Outcome is "ok", "network" or the HTTP status code.
func RecordUpstreamCall(method, route, outcome string, durationSeconds float64) {
	if counter := upstreamTotal.Load(); counter != nil {
		counter.WithLabelValues(method, route, outcome).Inc()
	}
	if histogram := upstreamDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, route).Observe(durationSeconds)
	}
}

// RecordGuardRedirect counts a protected route visit without a token.
func RecordGuardRedirect(kind string) {
	if counter := authFailuresTotal.Load(); counter != nil {
		counter.WithLabelValues(kind).Inc()
	}
}

// RecordLogin counts a login attempt. Result is "success" or "failure".
func RecordLogin(kind, result string) {
	if counter := loginAttemptsTotal.Load(); counter != nil {
		counter.WithLabelValues(kind, result).Inc()
	}
}

// HandlerFor returns a handler serving the given registry.
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// GetMetricsText returns the Prometheus text-format output from a registry.
// Useful in tests.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	HandlerFor(reg).ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}
	return string(body), nil
}
