package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordActivity(t *testing.T) {
	before := testutil.ToFloat64(litersSaved)
	beforeShower := testutil.ToFloat64(activitiesLogged.WithLabelValues("shower"))

	RecordActivity("shower", 5)
	RecordActivity("shower", 5)

	assert.Equal(t, before+10, testutil.ToFloat64(litersSaved))
	assert.Equal(t, beforeShower+2, testutil.ToFloat64(activitiesLogged.WithLabelValues("shower")))
}

func TestRecordCounters(t *testing.T) {
	faults := testutil.ToFloat64(integrityFaults)
	RecordIntegrityFault()
	assert.Equal(t, faults+1, testutil.ToFloat64(integrityFaults))

	failed := testutil.ToFloat64(authAttempts.WithLabelValues("login", "false"))
	RecordAuthAttempt("login", false)
	assert.Equal(t, failed+1, testutil.ToFloat64(authAttempts.WithLabelValues("login", "false")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(httpRequestDuration, "h2overflow_http_request_duration_seconds"))
}
