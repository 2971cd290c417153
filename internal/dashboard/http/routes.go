package dashboardhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

const rateLimit = 10
const rateWindow = time.Minute

// MountRoutes registers the dashboard endpoints. Callers mount it behind authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "export rate limit exceeded")
		}),
	)
	r.Get("/summary", h.handleSummary)
	r.Get("/forecast", h.handleForecast)
	r.Get("/alerts", h.handleAlerts)
	r.Get("/recent-invoices", h.handleRecentInvoices)
	r.Get("/top-clients", h.handleTopClients)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/forecast.csv", h.handleForecastCSV)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if userID, ok := shared.UserIDFromContext(r.Context()); ok {
		return "user:" + userID.String(), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
