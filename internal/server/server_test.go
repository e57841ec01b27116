package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/h2overflow/apiserver/internal/auth"
	"github.com/h2overflow/apiserver/internal/catalog"
	"github.com/h2overflow/apiserver/internal/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps() Deps {
	log := zerolog.Nop()
	authService := services.NewAuthService(nil, auth.NewTokens("server-secret", time.Hour))
	return Deps{
		Auth:            authService,
		Profile:         services.NewProfileService(authService, nil, nil, log),
		Activities:      services.NewActivityService(nil, catalog.MustDefault(), time.UTC, log),
		Log:             log,
		CORSOrigins:     []string{"*"},
		AuthRateLimit:   "30-M",
		MaxPictureBytes: 1 << 20,
	}
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetrics(t *testing.T) {
	router, err := NewRouter(testDeps())
	require.NoError(t, err)

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "h2overflow_http_request_duration_seconds")
}

func TestRouterCatalogAndAuthGate(t *testing.T) {
	router, err := NewRouter(testDeps())
	require.NoError(t, err)

	rec := serve(t, router, httptest.NewRequest(http.MethodGet, "/api/activities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success    bool `json:"success"`
		Activities []struct {
			ID int `json:"activity_id"`
		} `json:"activities"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Activities, 6)

	for _, path := range []string{"/api/users/me", "/api/activities/month", "/api/activities/month/summary"} {
		rec = serve(t, router, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	router, err := NewRouter(testDeps())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/activities/create", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(t, router, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterRejectsBadRateLimit(t *testing.T) {
	deps := testDeps()
	deps.AuthRateLimit = "often"

	_, err := NewRouter(deps)
	assert.ErrorContains(t, err, "AUTH_RATE_LIMIT")
}
