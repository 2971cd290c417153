package invoices

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// CreateInvoiceRequest is the payload accepted by POST /api/invoices.
type CreateInvoiceRequest struct {
	ClientID             *uuid.UUID       `json:"clientId,omitempty"`
	InvoiceNumber        *string          `json:"invoiceNumber,omitempty" validate:"omitempty,max=100"`
	Amount               *decimal.Decimal `json:"amount" validate:"required"`
	IssueDate            string           `json:"issueDate" validate:"required,datetime=2006-01-02"`
	DueDate              string           `json:"dueDate" validate:"required,datetime=2006-01-02"`
	PredictedPaymentDate *string          `json:"predictedPaymentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Confidence           *float64         `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Description          *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Notes                *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
	FileName             *string          `json:"fileName,omitempty" validate:"omitempty,max=255"`
	FileURL              *string          `json:"fileUrl,omitempty" validate:"omitempty,url"`
}

// UpdateInvoiceRequest is a partial update; absent fields are left untouched.
// Payment is recorded through MarkPaidRequest only.
type UpdateInvoiceRequest struct {
	ClientID             *uuid.UUID       `json:"clientId,omitempty"`
	InvoiceNumber        *string          `json:"invoiceNumber,omitempty" validate:"omitempty,max=100"`
	Amount               *decimal.Decimal `json:"amount,omitempty"`
	IssueDate            *string          `json:"issueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DueDate              *string          `json:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PredictedPaymentDate *string          `json:"predictedPaymentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status               *string          `json:"status,omitempty" validate:"omitempty,oneof=draft pending overdue cancelled"`
	Confidence           *float64         `json:"confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	Description          *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Notes                *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// MarkPaidRequest is the payload accepted by POST /api/invoices/{id}/pay.
type MarkPaidRequest struct {
	ActualPaymentDate *string          `json:"actualPaymentDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentAmount     *decimal.Decimal `json:"paymentAmount,omitempty"`
	PaymentMethod     *string          `json:"paymentMethod,omitempty" validate:"omitempty,max=50"`
	Notes             *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Detail bundles an invoice with its payment records.
type Detail struct {
	Invoice  Invoice
	Payments []PaymentHistory
}

// ClientRef is the client summary embedded in invoice JSON.
type ClientRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
}

// View is the JSON shape of an invoice.
type View struct {
	ID                   uuid.UUID     `json:"id"`
	UserID               uuid.UUID     `json:"userId"`
	ClientID             *uuid.UUID    `json:"clientId"`
	Client               *ClientRef    `json:"client"`
	InvoiceNumber        *string       `json:"invoiceNumber"`
	Amount               json.Number   `json:"amount"`
	IssueDate            string        `json:"issueDate"`
	DueDate              string        `json:"dueDate"`
	PredictedPaymentDate *string       `json:"predictedPaymentDate"`
	ActualPaymentDate    *string       `json:"actualPaymentDate"`
	Status               Status        `json:"status"`
	Confidence           *float64      `json:"confidence"`
	Description          *string       `json:"description"`
	Notes                *string       `json:"notes"`
	FileName             *string       `json:"fileName"`
	FileURL              *string       `json:"fileUrl"`
	ReminderSent         bool          `json:"reminderSent"`
	ReminderCount        int           `json:"reminderCount"`
	LastReminderDate     *time.Time    `json:"lastReminderDate"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            time.Time     `json:"updatedAt"`
	PaymentHistory       []PaymentView `json:"paymentHistory,omitempty"`
}

// PaymentView is the JSON shape of a payment record.
type PaymentView struct {
	ID                uuid.UUID   `json:"id"`
	InvoiceID         uuid.UUID   `json:"invoiceId"`
	DaysToPayment     *int        `json:"daysToPayment"`
	WasReminderSent   bool        `json:"wasReminderSent"`
	NumberOfReminders int         `json:"numberOfReminders"`
	PaymentAmount     json.Number `json:"paymentAmount"`
	PaymentMethod     *string     `json:"paymentMethod"`
	Notes             *string     `json:"notes"`
	CreatedAt         time.Time   `json:"createdAt"`
}

// NewView renders an invoice for JSON output.
func NewView(inv Invoice) View {
	v := View{
		ID:                   inv.ID,
		UserID:               inv.UserID,
		ClientID:             inv.ClientID,
		InvoiceNumber:        inv.InvoiceNumber,
		Amount:               httpx.Amount(inv.Amount),
		IssueDate:            shared.FormatDate(inv.IssueDate),
		DueDate:              shared.FormatDate(inv.DueDate),
		PredictedPaymentDate: formatDatePtr(inv.PredictedPaymentDate),
		ActualPaymentDate:    formatDatePtr(inv.ActualPaymentDate),
		Status:               inv.Status,
		Confidence:           inv.Confidence,
		Description:          inv.Description,
		Notes:                inv.Notes,
		FileName:             inv.FileName,
		FileURL:              inv.FileURL,
		ReminderSent:         inv.ReminderSent,
		ReminderCount:        inv.ReminderCount,
		LastReminderDate:     inv.LastReminderDate,
		CreatedAt:            inv.CreatedAt,
		UpdatedAt:            inv.UpdatedAt,
	}
	if inv.ClientID != nil {
		v.Client = &ClientRef{ID: *inv.ClientID, Name: inv.ClientName, Email: inv.ClientEmail}
	}
	return v
}

// NewViews renders a list of invoices.
func NewViews(list []Invoice) []View {
	out := make([]View, 0, len(list))
	for _, inv := range list {
		out = append(out, NewView(inv))
	}
	return out
}

// NewDetailView renders an invoice with its payment history.
func NewDetailView(d Detail) View {
	v := NewView(d.Invoice)
	for _, p := range d.Payments {
		v.PaymentHistory = append(v.PaymentHistory, NewPaymentView(p))
	}
	return v
}

// NewPaymentView renders a payment record.
func NewPaymentView(p PaymentHistory) PaymentView {
	return PaymentView{
		ID:                p.ID,
		InvoiceID:         p.InvoiceID,
		DaysToPayment:     p.DaysToPayment,
		WasReminderSent:   p.WasReminderSent,
		NumberOfReminders: p.NumberOfReminders,
		PaymentAmount:     httpx.Amount(p.PaymentAmount),
		PaymentMethod:     p.PaymentMethod,
		Notes:             p.Notes,
		CreatedAt:         p.CreatedAt,
	}
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := shared.FormatDate(*t)
	return &s
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be YYYY-MM-DD: %w", field, shared.ErrValidation)
	}
	return t, nil
}

func parseDatePtr(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
