package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/config"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/controller"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/observability"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/repository"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/service"
)

type mockChecker struct {
	err error
}

func (m mockChecker) CheckReadiness(context.Context) error { return m.err }

type rejectAll struct{}

func (rejectAll) Authenticate(context.Context, string) (*model.User, error) {
	return nil, service.ErrUnauthenticated
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHandlers(ready ReadinessChecker) Handlers {
	logger := testLogger()
	return Handlers{
		Analytics:     controller.NewAnalyticsController(nil, nil, logger),
		Data:          controller.NewDataController(nil, nil, logger),
		Ingest:        controller.NewIngestController(nil, nil, "", 1, logger),
		Auth:          controller.NewAuthController(nil, logger),
		Locations:     controller.NewLocationController(nil, logger),
		Weather:       controller.NewWeatherController(nil, logger),
		Authenticator: rejectAll{},
		Metrics:       observability.NewMetricsForTesting(),
		Ready:         ready,
	}
}

func newTestServer(ready ReadinessChecker) *Server {
	gin.SetMode(gin.TestMode)
	return NewServer(":0", NewRouter(testHandlers(ready), testLogger()), testLogger())
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthz(t *testing.T) {
	w := get(newTestServer(mockChecker{}), "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestReadyz(t *testing.T) {
	w := get(newTestServer(mockChecker{}), "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(newTestServer(mockChecker{err: errors.New("database is locked")}), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not ready")
}

func TestReadyz_Store(t *testing.T) {
	db, err := repository.Open(config.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "ready.db")})
	require.NoError(t, err)
	defer repository.Close(db)

	w := get(newTestServer(StoreChecker{DB: db}), "/readyz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := get(newTestServer(mockChecker{}), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestProtectedRoutes(t *testing.T) {
	s := newTestServer(mockChecker{})

	for _, path := range []string{
		"/api/data/statistics",
		"/api/data/export",
		"/api/weather/current",
		"/api/admin/users",
		"/api/auth/me",
	} {
		w := get(s, path)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestNoRoute(t *testing.T) {
	w := get(newTestServer(mockChecker{}), "/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"not found"}`, w.Body.String())
}
