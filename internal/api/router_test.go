package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{JwtSecret: "router-test-secret", RateLimitBucketSize: 100, RateLimitRefillRate: 100}
}

func TestSetupRouter_PublicAndProtectedRoutes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := SetupRouter(ctx, testConfig(), &services.Services{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/users/email-template-data"},
		{http.MethodPost, "/api/email-templates/preview"},
		{http.MethodGet, "/api/invoices/overview"},
		{http.MethodPost, "/api/attachments/upload-url"},
		{http.MethodGet, "/api/analytics/revenue"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func servicePost(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestServiceRouter(t *testing.T) {
	shutdown := make(chan struct{}, 1)
	r := SetupServiceRouter(testConfig(), nil, shutdown)

	w := servicePost(r, `{"method":"shutdown"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case <-shutdown:
	default:
		t.Fatal("shutdown was not signalled")
	}

	w = servicePost(r, `{"method":"getTestEmail","arguments":["welcome"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = servicePost(r, `{"method":"getTestEmail","arguments":["welcome","ada@example.com"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = servicePost(r, `{"method":"reboot"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "go_goroutines"))
}
