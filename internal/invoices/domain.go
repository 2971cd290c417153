package invoices

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Status enumerates invoice lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// DefaultReminderIntervalDays is the minimum gap between two reminders for one invoice.
const DefaultReminderIntervalDays = 7

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Outstanding reports whether the invoice still expects payment.
func (s Status) Outstanding() bool {
	return s == StatusPending || s == StatusOverdue
}

// Invoice is a receivable issued by a user to one of their clients.
// Dates are calendar dates held as UTC midnight.
type Invoice struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	ClientID             *uuid.UUID
	ClientName           string
	ClientEmail          *string
	InvoiceNumber        *string
	Amount               decimal.Decimal
	IssueDate            time.Time
	DueDate              time.Time
	PredictedPaymentDate *time.Time
	ActualPaymentDate    *time.Time
	Status               Status
	Confidence           *float64
	Description          *string
	Notes                *string
	FileName             *string
	FileURL              *string
	ReminderSent         bool
	ReminderCount        int
	LastReminderDate     *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// DaysOverdue counts whole calendar days past the due date as of now. Paid invoices are never overdue.
func (inv Invoice) DaysOverdue(now time.Time) int {
	if inv.Status == StatusPaid {
		return 0
	}
	days := daysBetween(inv.DueDate, now)
	if days < 0 {
		return 0
	}
	return days
}

// ShouldSendReminder reports whether an overdue invoice is due another reminder:
// no reminder yet, or the last one is at least intervalDays old.
func (inv Invoice) ShouldSendReminder(now time.Time, intervalDays int) bool {
	if inv.Status == StatusPaid || inv.Status == StatusCancelled {
		return false
	}
	if inv.DaysOverdue(now) <= 0 {
		return false
	}
	if inv.LastReminderDate == nil {
		return true
	}
	return daysBetween(*inv.LastReminderDate, now) >= intervalDays
}

// Label returns the invoice number, or a short id when the invoice has none.
func (inv Invoice) Label() string {
	if inv.InvoiceNumber != nil && *inv.InvoiceNumber != "" {
		return *inv.InvoiceNumber
	}
	return inv.ID.String()[:8]
}

// PaymentHistory records how a paid invoice was settled.
type PaymentHistory struct {
	ID                uuid.UUID
	InvoiceID         uuid.UUID
	DaysToPayment     *int
	WasReminderSent   bool
	NumberOfReminders int
	PaymentAmount     decimal.Decimal
	PaymentMethod     *string
	Notes             *string
	CreatedAt         time.Time
}

// DaysToPayment is the whole number of days between issue and payment, rounded up.
func DaysToPayment(issueDate, paidOn time.Time) int {
	return shared.CeilDays(paidOn.Sub(shared.DateOf(issueDate)))
}

func daysBetween(from, to time.Time) int {
	return int(shared.DateOf(to).Sub(shared.DateOf(from)) / (24 * time.Hour))
}
