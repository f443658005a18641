// Package metrics provides Prometheus metrics for the backend API
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kinesite",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kinesite",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks current in-flight requests
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kinesite",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

var (
	// AuthLoginAttempts counts admin login attempts by result
	AuthLoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kinesite",
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total number of admin login attempts by result",
		},
		[]string{"result"},
	)

	// AuthLockouts counts login attempts rejected by the lockout check
	AuthLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kinesite",
			Subsystem: "auth",
			Name:      "lockouts_total",
			Help:      "Total number of logins rejected because the source address was locked out",
		},
	)

	// AuthCodeRotations counts successful access code rotations
	AuthCodeRotations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kinesite",
			Subsystem: "auth",
			Name:      "code_rotations_total",
			Help:      "Total number of admin access code rotations",
		},
	)

	// AuthActiveSessions tracks the number of unexpired admin sessions
	AuthActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kinesite",
			Subsystem: "auth",
			Name:      "active_sessions",
			Help:      "Number of unexpired admin sessions in the store",
		},
	)
)

var (
	// SiteConfigSaves counts site configuration writes
	SiteConfigSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kinesite",
			Subsystem: "sitecfg",
			Name:      "saves_total",
			Help:      "Total number of site configuration saves",
		},
	)

	// SiteConfigCacheHits counts site configuration reads served from cache
	SiteConfigCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kinesite",
			Subsystem: "sitecfg",
			Name:      "cache_reads_total",
			Help:      "Total number of site configuration cache reads by outcome",
		},
		[]string{"outcome"},
	)
)

var (
	// DBConnectionsOpen tracks open database connections
	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kinesite",
			Subsystem: "db",
			Name:      "connections_open",
			Help:      "Number of open database connections",
		},
	)

	// DBConnectionsInUse tracks database connections currently in use
	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kinesite",
			Subsystem: "db",
			Name:      "connections_in_use",
			Help:      "Number of database connections currently in use",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kinesite",
			Subsystem: "db",
			Name:      "connections_idle",
			Help:      "Number of idle database connections",
		},
	)
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns a chi middleware that records HTTP metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		path := getRoutePattern(r)

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// getRoutePattern returns the route pattern from chi context.
// Falls back to URL path if pattern not available.
func getRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
