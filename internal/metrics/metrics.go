// Package metrics exposes Prometheus collectors for the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "h2overflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	authAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2overflow_auth_attempts_total",
			Help: "Register and login attempts by outcome",
		},
		[]string{"event", "success"},
	)
	activitiesLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2overflow_activities_logged_total",
			Help: "Activity records written, by catalog slug",
		},
		[]string{"activity"},
	)
	litersSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "h2overflow_liters_saved_total",
			Help: "Liters saved across all logged activities",
		},
	)
	integrityFaults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "h2overflow_integrity_faults_total",
			Help: "Monthly aggregations that met a record outside the month",
		},
	)
)

// Middleware records request duration per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(ww.Status())
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}

// RecordAuthAttempt counts a register or login outcome.
func RecordAuthAttempt(event string, success bool) {
	authAttempts.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}

// RecordActivity counts a logged activity and its savings.
func RecordActivity(slug string, liters float64) {
	activitiesLogged.WithLabelValues(slug).Inc()
	litersSaved.Add(liters)
}

// RecordIntegrityFault counts an aggregation integrity fault.
func RecordIntegrityFault() {
	integrityFaults.Inc()
}
