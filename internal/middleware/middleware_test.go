package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/model"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/observability"
	"github.com/wtttwrwdcsdasd/Smart-marine-ranch/internal/service"
)

// mockAuthenticator knows a fixed set of tokens
type mockAuthenticator struct {
	users map[string]*model.User
	err   error
}

func (m *mockAuthenticator) Authenticate(_ context.Context, token string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if u, ok := m.users[token]; ok {
		return u, nil
	}
	return nil, service.ErrUnauthenticated
}

func newAuthRouter(auth Authenticator, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(StructuredLoggingMiddleware(logger))
	api := r.Group("/api", RequireAuth(auth, logger))
	api.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Username)
	})
	api.GET("/admin", RequireRole(model.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	auth := &mockAuthenticator{users: map[string]*model.User{
		"admin-token": {ID: 1, Username: "admin", Role: model.RoleAdmin},
		"user-token":  {ID: 2, Username: "user", Role: model.RoleUser},
	}}
	var logs bytes.Buffer
	router := newAuthRouter(auth, slog.New(slog.NewTextHandler(&logs, nil)))

	tests := []struct {
		name   string
		path   string
		header string
		cookie string
		status int
		body   string
	}{
		{"bearer token", "/api/me", "Bearer user-token", "", http.StatusOK, "user"},
		{"session cookie", "/api/me", "", "admin-token", http.StatusOK, "admin"},
		{"no token", "/api/me", "", "", http.StatusUnauthorized, ""},
		{"unknown token", "/api/me", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"non-bearer scheme", "/api/me", "Basic dXNlcg==", "", http.StatusUnauthorized, ""},
		{"admin route as admin", "/api/admin", "Bearer admin-token", "", http.StatusOK, "ok"},
		{"admin route as user", "/api/admin", "Bearer user-token", "", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}

	assert.Contains(t, logs.String(), "user=admin")
}

func TestRequireAuth_StoreFailure(t *testing.T) {
	var logs bytes.Buffer
	router := newAuthRouter(&mockAuthenticator{err: errors.New("db down")}, slog.New(slog.NewTextHandler(&logs, nil)))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer x")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, logs.String(), "session lookup failed")
}

func TestRequestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := observability.NewMetricsForTesting()
	r := gin.New()
	r.Use(RequestMetrics(m))
	r.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/api/items/1", "/api/items/2", "/missing"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/items/:id", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", unmatchedRoute, "404")))
}
