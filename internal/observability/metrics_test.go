package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesCustomCollectors(t *testing.T) {
	metrics := NewMetrics()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cashflow_test_events_total",
		Help: "Test counter.",
	})
	metrics.Registerer().MustRegister(counter)
	counter.Inc()

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "cashflow_test_events_total 1")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/api/dashboard/summary")

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := metricsRR.Body.String()
	require.True(t, strings.Contains(body, `cashflow_http_requests_total{code="418",route="/api/dashboard/summary",surface="dashboard"} 1`), body)
	require.Contains(t, body, `cashflow_http_request_duration_seconds_bucket{route="/api/dashboard/summary"`)
}

func TestSurface(t *testing.T) {
	for route, want := range map[string]string{
		"/api/dashboard/forecast.csv": "dashboard",
		"/api/invoices/{id}/pay":      "invoices",
		"/api/payment-history/":       "invoices",
		"/api/clients/{id}":           "clients",
		"/api/users/login":            "auth",
		"/api/activity/export.csv":    "activity",
		"/api/health":                 "ops",
		"/healthz":                    "ops",
		"/jobs/health":                "ops",
		"/api/unknown":                "other",
		"unknown":                     "other",
	} {
		require.Equal(t, want, Surface(route), route)
	}
}

func TestNilMetricsHandlerIsUnavailable(t *testing.T) {
	var metrics *Metrics
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
