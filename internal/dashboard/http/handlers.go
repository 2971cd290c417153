package dashboardhttp

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cashflow-ai/cashflow/internal/dashboard"
	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

const maxForecastDays = 730

// Handler serves the dashboard endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *dashboard.Service
	forecastDays int
	limit        int
	now          func() time.Time
	csvPool      sync.Pool
}

// NewHandler builds the dashboard handler. Non-positive defaults fall back to the package defaults.
func NewHandler(logger *slog.Logger, service *dashboard.Service, forecastDays, limit int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if forecastDays <= 0 {
		forecastDays = dashboard.DefaultForecastDays
	}
	if limit <= 0 {
		limit = dashboard.DefaultLimit
	}
	h := &Handler{logger: logger, service: service, forecastDays: forecastDays, limit: limit, now: time.Now}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the clock (useful for tests).
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	summary, err := h.service.GetSummary(r.Context(), userID, h.now())
	if err != nil {
		h.fail(w, "dashboard summary", err)
		return
	}
	httpx.OK(w, http.StatusOK, newSummaryView(summary))
}

func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	points, ok := h.forecast(w, r, userID)
	if !ok {
		return
	}
	views := newForecastViews(points)
	httpx.List(w, views, len(views))
}

func (h *Handler) handleForecastCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	points, ok := h.forecast(w, r, userID)
	if !ok {
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := writeForecastCSV(buf, points); err != nil {
		h.fail(w, "write forecast csv", err)
		return
	}

	filename := fmt.Sprintf("cashflow-forecast-%s.csv", shared.FormatDate(h.now()))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("stream forecast csv", slog.Any("error", err))
	}
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	alerts, err := h.service.GetAlerts(r.Context(), userID, h.now())
	if err != nil {
		h.fail(w, "dashboard alerts", err)
		return
	}
	views := newAlertViews(alerts)
	httpx.List(w, views, len(views))
}

func (h *Handler) handleRecentInvoices(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	limit, ok := h.queryLimit(w, r)
	if !ok {
		return
	}
	list, err := h.service.GetRecentInvoices(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, "recent invoices", err)
		return
	}
	httpx.List(w, invoices.NewViews(list), len(list))
}

func (h *Handler) handleTopClients(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	limit, ok := h.queryLimit(w, r)
	if !ok {
		return
	}
	list, err := h.service.GetTopClients(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, "top clients", err)
		return
	}
	httpx.List(w, newTopClientViews(list), len(list))
}

func (h *Handler) forecast(w http.ResponseWriter, r *http.Request, userID uuid.UUID) ([]dashboard.ForecastPoint, bool) {
	days, err := httpx.QueryInt(r, "days", h.forecastDays)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "days must be an integer")
		return nil, false
	}
	if days > maxForecastDays {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", fmt.Sprintf("days must not exceed %d", maxForecastDays))
		return nil, false
	}
	points, err := h.service.GetForecast(r.Context(), userID, h.now(), days)
	if err != nil {
		h.fail(w, "dashboard forecast", err)
		return nil, false
	}
	return points, true
}

func (h *Handler) queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit, err := httpx.QueryInt(r, "limit", h.limit)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "limit must be an integer")
		return 0, false
	}
	return limit, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrDependency) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func userFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
	}
	return userID, ok
}

func writeForecastCSV(buf *bytes.Buffer, points []dashboard.ForecastPoint) error {
	cw := csv.NewWriter(buf)
	if err := cw.Write([]string{"date", "expected_income", "expected_expenses", "net_cash_flow", "projected_balance"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			shared.FormatDate(p.Date),
			p.ExpectedIncome.StringFixed(shared.MoneyPlaces),
			p.ExpectedExpenses.StringFixed(shared.MoneyPlaces),
			p.NetCashFlow.StringFixed(shared.MoneyPlaces),
			p.ProjectedBalance.StringFixed(shared.MoneyPlaces),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
