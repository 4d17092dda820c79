package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/circle/internal/profile"
	teststore "github.com/hrygo/circle/store/test"
)

func TestServerRoutes(t *testing.T) {
	ctx := context.Background()
	p := &profile.Profile{WriteRateLimit: 1}
	s, err := NewServer(ctx, p, teststore.NewTestingStore(ctx, t))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	// Exercise a search so the histogram has a sample.
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "circle_search_total")
}

func TestServerWriteRateLimit(t *testing.T) {
	ctx := context.Background()
	p := &profile.Profile{WriteRateLimit: 1}
	s, err := NewServer(ctx, p, teststore.NewTestingStore(ctx, t))
	require.NoError(t, err)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tags", strings.NewReader(`{"name":"Go"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	// Burst is twice the rate.
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}
