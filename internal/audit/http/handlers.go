package audithttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cashflow-ai/cashflow/internal/audit"
	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

const maxRangeDays = 366

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler serves the activity timeline of the signed-in user.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	now     func() time.Time
}

// NewHandler builds the activity handler.
func NewHandler(logger *slog.Logger, service TimelineService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, now: time.Now}
}

// WithNow overrides the clock (useful for tests).
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// EventView is the JSON shape of one timeline row.
type EventView struct {
	At       time.Time      `json:"at"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingView is the JSON shape of paging metadata.
type PagingView struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasNext  bool `json:"hasNext"`
	PrevPage int  `json:"prevPage,omitempty"`
	NextPage int  `json:"nextPage,omitempty"`
}

// TimelineView wraps one page of events.
type TimelineView struct {
	Events []EventView `json:"events"`
	Paging PagingView  `json:"paging"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.fail(w, "load activity timeline", err)
		return
	}
	events := make([]EventView, 0, len(result.Rows))
	for _, row := range result.Rows {
		events = append(events, EventView{At: row.At, Action: row.Action, Entity: row.Entity, EntityID: row.EntityID, Meta: row.Meta})
	}
	httpx.OK(w, http.StatusOK, TimelineView{
		Events: events,
		Paging: PagingView{
			Page:     result.Paging.Page,
			PageSize: result.Paging.PageSize,
			HasNext:  result.Paging.HasNext,
			PrevPage: result.Paging.PrevPage,
			NextPage: result.Paging.NextPage,
		},
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.parseFilters(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.fail(w, "export activity timeline", err)
		return
	}
	payload, err := audit.WriteCSV(rows)
	if err != nil {
		h.fail(w, "write activity csv", err)
		return
	}
	filename := fmt.Sprintf("cashflow-activity-%s.csv", shared.FormatDate(h.now()))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(payload); err != nil {
		h.logger.Warn("stream activity csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(w http.ResponseWriter, r *http.Request) (audit.TimelineFilters, bool) {
	userID, ok := shared.UserIDFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return audit.TimelineFilters{}, false
	}
	q := r.URL.Query()
	filters := audit.TimelineFilters{
		ActorID:  userID,
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entityId")),
		Action:   strings.TrimSpace(q.Get("action")),
	}

	var err error
	if filters.From, err = parseDate(q.Get("from")); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "from must be YYYY-MM-DD")
		return audit.TimelineFilters{}, false
	}
	if filters.To, err = parseDate(q.Get("to")); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "to must be YYYY-MM-DD")
		return audit.TimelineFilters{}, false
	}
	if !filters.To.IsZero() {
		// "to" is inclusive for callers; the store compares with an exclusive bound.
		filters.To = filters.To.AddDate(0, 0, 1)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Sub(filters.From) > maxRangeDays*24*time.Hour {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", fmt.Sprintf("date range must not exceed %d days", maxRangeDays))
		return audit.TimelineFilters{}, false
	}
	if filters.Page, err = positiveInt(q.Get("page")); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "page must be a positive integer")
		return audit.TimelineFilters{}, false
	}
	if filters.PageSize, err = positiveInt(q.Get("pageSize")); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "pageSize must be a positive integer")
		return audit.TimelineFilters{}, false
	}
	return filters, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrDependency) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(time.DateOnly, raw, time.UTC)
}

func positiveInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return v, nil
}
