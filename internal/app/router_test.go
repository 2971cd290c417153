package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow/internal/auth"
	"github.com/cashflow-ai/cashflow/internal/dashboard"
	dashboardhttp "github.com/cashflow-ai/cashflow/internal/dashboard/http"
	"github.com/cashflow-ai/cashflow/internal/observability"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

type noUsers struct{}

func (noUsers) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return nil, shared.ErrNotFound
}

func (noUsers) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return nil, shared.ErrNotFound
}

func (noUsers) Create(ctx context.Context, user auth.User) (*auth.User, error) {
	return &user, nil
}

func (noUsers) ListActive(ctx context.Context) ([]auth.User, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	authService := auth.NewService(noUsers{}, auth.NewTokenStore(client, time.Hour))
	return NewRouter(RouterParams{
		Logger:           logger,
		Config:           &Config{AppEnv: "development", AppRequestTimeout: 5 * time.Second},
		AuthHandler:      auth.NewHandler(logger, authService),
		DashboardHandler: dashboardhttp.NewHandler(logger, dashboard.NewService(nil, logger), 0, 0),
		Metrics:          observability.NewMetrics(),
		DB:               db,
		Now:              func() time.Time { return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC) },
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, pinger{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "connected", body["database"])
	require.Equal(t, "2024-03-15T09:30:00Z", body["timestamp"])
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rr.Header().Get("X-Frame-Options"))
}

func TestHealthReportsDatabaseFailure(t *testing.T) {
	router := newTestRouter(t, pinger{err: errors.New("dial tcp: connection refused")})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "unhealthy", body["status"])
	require.Equal(t, "disconnected", body["database"])
	require.Contains(t, body["error"], "connection refused")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, pinger{})

	for _, path := range []string{"/api/dashboard/summary", "/api/dashboard/alerts", "/api/users/me"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUnknownRouteIsProblem(t *testing.T) {
	router := newTestRouter(t, pinger{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestMetricsEndpointExposed(t *testing.T) {
	router := newTestRouter(t, pinger{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "cashflow_http_requests_total")
}
