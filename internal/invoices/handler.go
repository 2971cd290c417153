package invoices

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
)

// Handler exposes invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	now       func() time.Time
}

// NewHandler constructs the invoice handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), now: time.Now}
}

// WithNow overrides the clock used by the handler (useful for tests).
func (h *Handler) WithNow(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}

// MountRoutes registers the invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/overdue", h.Overdue)
	r.Get("/reminders", h.Reminders)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/pay", h.MarkPaid)
	r.Patch("/{id}/pay", h.MarkPaid)
	r.Post("/{id}/remind", h.Remind)
	r.Post("/{id}/reminder", h.Remind)
}

// MountPaymentRoutes registers the read-only payment history routes.
func (h *Handler) MountPaymentRoutes(r chi.Router) {
	r.Get("/", h.Payments)
	r.Get("/{id}", h.ShowPayment)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	page, err := httpx.QueryInt(r, "page", 1)
	if err != nil || page < 1 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "page must be a positive integer")
		return
	}
	perPage, err := httpx.QueryInt(r, "perPage", defaultPerPage)
	if err != nil || perPage < 1 || perPage > maxPerPage {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", fmt.Sprintf("perPage must be between 1 and %d", maxPerPage))
		return
	}
	list, pagination, err := h.service.List(r.Context(), userID, shared.NewPagination(page, perPage, 0))
	if err != nil {
		h.fail(w, "list invoices", err)
		return
	}
	count := len(list)
	httpx.JSON(w, http.StatusOK, struct {
		httpx.Envelope
		Pagination shared.Pagination `json:"pagination"`
	}{
		Envelope:   httpx.Envelope{Success: true, Count: &count, Data: NewViews(list)},
		Pagination: pagination,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	var req CreateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.Create(r.Context(), userID, req, h.now())
	if err != nil {
		h.fail(w, "create invoice", err)
		return
	}
	httpx.OK(w, http.StatusCreated, NewView(*inv))
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := scope(w, r)
	if !ok {
		return
	}
	detail, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	httpx.OK(w, http.StatusOK, NewDetailView(*detail))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := scope(w, r)
	if !ok {
		return
	}
	var req UpdateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	inv, err := h.service.Update(r.Context(), userID, id, req, h.now())
	if err != nil {
		h.fail(w, "update invoice", err)
		return
	}
	httpx.OK(w, http.StatusOK, NewView(*inv))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := scope(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), userID, id, h.now()); err != nil {
		h.fail(w, "delete invoice", err)
		return
	}
	httpx.Message(w, "Invoice deleted successfully")
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := scope(w, r)
	if !ok {
		return
	}
	var req MarkPaidRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	payment, err := h.service.MarkPaid(r.Context(), userID, id, req, h.now())
	if err != nil {
		h.fail(w, "mark invoice paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Invoice marked as paid", Data: NewPaymentView(*payment)})
}

func (h *Handler) Overdue(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	list, err := h.service.Overdue(r.Context(), userID, h.now())
	if err != nil {
		h.fail(w, "list overdue invoices", err)
		return
	}
	httpx.List(w, NewViews(list), len(list))
}

func (h *Handler) Reminders(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	list, err := h.service.NeedingReminders(r.Context(), userID, h.now())
	if err != nil {
		h.fail(w, "list invoices needing reminders", err)
		return
	}
	httpx.List(w, NewViews(list), len(list))
}

func (h *Handler) Remind(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := scope(w, r)
	if !ok {
		return
	}
	inv, err := h.service.SendReminder(r.Context(), userID, id, h.now())
	if err != nil {
		h.fail(w, "send reminder", err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "Reminder sent successfully", Data: NewView(*inv)})
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	var invoiceID *uuid.UUID
	if raw := r.URL.Query().Get("invoiceId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid invoiceId")
			return
		}
		invoiceID = &id
	}
	list, err := h.service.PaymentHistory(r.Context(), userID, invoiceID)
	if err != nil {
		h.fail(w, "list payment history", err)
		return
	}
	views := make([]PaymentView, 0, len(list))
	for _, p := range list {
		views = append(views, NewPaymentView(p))
	}
	httpx.List(w, views, len(views))
}

func (h *Handler) ShowPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := userFrom(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid payment id")
		return
	}
	payment, err := h.service.Payment(r.Context(), userID, id)
	if err != nil {
		h.fail(w, "get payment history", err)
		return
	}
	httpx.OK(w, http.StatusOK, NewPaymentView(*payment))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil && errors.Is(err, shared.ErrDependency) {
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

func scope(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := userFrom(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "invalid invoice id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
