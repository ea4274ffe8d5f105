package app_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/procureflow/procureflow/internal/adapter/httpserver"
	"github.com/procureflow/procureflow/internal/app"
	"github.com/procureflow/procureflow/internal/config"
)

func TestParseOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, app.ParseOrigins(""))
	assert.Equal(t, []string{"*"}, app.ParseOrigins("*"))
	assert.Equal(t, []string{"https://a.test"}, app.ParseOrigins("https://a.test"))
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, app.ParseOrigins(" https://a.test , https://b.test "))
	assert.Equal(t, []string{"*"}, app.ParseOrigins(" , , "))
}

func TestRouterHealthEndpoints(t *testing.T) {
	cfg := config.Config{CORSAllowOrigins: "*", RateLimitPerMin: 60, HTTPWriteTimeout: 30_000_000_000}
	h := app.BuildRouter(cfg, &httpserver.Server{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
