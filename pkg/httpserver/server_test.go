package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dzakarias/orderbook-replayer/internal/replay"
	"github.com/dzakarias/orderbook-replayer/pkg/healthprobe"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	checker := healthprobe.New()
	checker.SetReady(true)

	service := replay.New(replay.Config{
		DataDir:               t.TempDir(),
		Depth:                 20,
		CacheFrequencySeconds: 10,
		ListingCacheTTL:       time.Minute,
		Logger:                zap.NewNop(),
	})

	return New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: checker,
		ReplayService: service,
	})
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/markets", http.StatusOK},
		{http.MethodGet, "/step", http.StatusBadRequest},
		{http.MethodGet, "/orderbook", http.StatusBadRequest},
		{http.MethodGet, "/nope", http.StatusNotFound},
	} {
		rec := httptest.NewRecorder()
		s.server.Handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestReadyReflectsReadiness(t *testing.T) {
	checker := healthprobe.New()
	s := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: checker,
	})

	rec := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	checker.SetReady(true)
	rec = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
