package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/cashflow-ai/cashflow/internal/audit/http"
	"github.com/cashflow-ai/cashflow/internal/auth"
	"github.com/cashflow-ai/cashflow/internal/clients"
	dashboardhttp "github.com/cashflow-ai/cashflow/internal/dashboard/http"
	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/observability"
	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/jobs"
)

// Pinger reports record store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AuthHandler      *auth.Handler
	ClientsHandler   *clients.Handler
	InvoicesHandler  *invoices.Handler
	DashboardHandler *dashboardhttp.Handler
	ActivityHandler  *audithttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	DB               Pinger
	Now              func() time.Time
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(RequestLogger(params.Logger))

	now := params.Now
	if now == nil {
		now = time.Now
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/health", healthHandler(params.DB, params.Logger, now))

	r.Route("/api/users", params.AuthHandler.MountRoutes)
	r.Group(func(r chi.Router) {
		r.Use(params.AuthHandler.RequireUser())
		if params.ClientsHandler != nil {
			r.Route("/api/clients", params.ClientsHandler.MountRoutes)
		}
		if params.InvoicesHandler != nil {
			r.Route("/api/invoices", params.InvoicesHandler.MountRoutes)
			r.Route("/api/payment-history", params.InvoicesHandler.MountPaymentRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/api/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.ActivityHandler != nil {
			r.Route("/api/activity", params.ActivityHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "route not found")
	})
	return r
}

type healthStatus struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

func healthHandler(db Pinger, logger *slog.Logger, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			httpx.JSON(w, http.StatusInternalServerError, healthStatus{Status: "unhealthy", Database: "disconnected", Timestamp: now().UTC(), Error: "database not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.Error("health check", slog.Any("error", err))
			httpx.JSON(w, http.StatusInternalServerError, healthStatus{Status: "unhealthy", Database: "disconnected", Timestamp: now().UTC(), Error: err.Error()})
			return
		}
		httpx.JSON(w, http.StatusOK, healthStatus{Status: "healthy", Database: "connected", Timestamp: now().UTC()})
	}
}
