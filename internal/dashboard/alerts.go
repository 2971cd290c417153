package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cashflow-ai/cashflow/internal/clients"
	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// AlertType classifies alert severity.
type AlertType string

const (
	AlertUrgent  AlertType = "urgent"
	AlertWarning AlertType = "warning"
	AlertInfo    AlertType = "info"
)

// Priority orders alerts for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// AlertAction names the follow-up a client UI offers for an alert.
type AlertAction string

const (
	ActionSendReminders AlertAction = "send_reminders"
	ActionViewForecast  AlertAction = "view_forecast"
	ActionViewClients   AlertAction = "view_clients"
)

// Label is the button text for the action.
func (a AlertAction) Label() string {
	switch a {
	case ActionSendReminders:
		return "Send Payment Reminders"
	case ActionViewForecast:
		return "View Cash Flow Forecast"
	case ActionViewClients:
		return "Review Client Payment Terms"
	}
	return ""
}

// ParseAlertAction resolves a wire value into an AlertAction.
func ParseAlertAction(s string) (AlertAction, error) {
	a := AlertAction(strings.TrimSpace(s))
	if a.Label() == "" {
		return "", fmt.Errorf("%w: unknown alert action %q", shared.ErrValidation, s)
	}
	return a, nil
}

const (
	// SlowPayerThresholdDays is the average payment delay above which a client is slow.
	SlowPayerThresholdDays = 45
	maxRelatedInvoices     = 3
	maxSlowPayers          = 3
)

// RelatedInvoice is the compact invoice reference attached to an alert.
type RelatedInvoice struct {
	ID      uuid.UUID
	Client  string
	Amount  decimal.Decimal
	DueDate time.Time
}

// Alert is one prioritized notice for the dashboard.
type Alert struct {
	Type            AlertType
	Priority        Priority
	Title           string
	Message         string
	Action          AlertAction
	ActionLabel     string
	RelatedInvoices []RelatedInvoice
}

// AlertInput is everything the alert engine inspects.
type AlertInput struct {
	Now      time.Time
	Invoices []invoices.Invoice
	Forecast []ForecastPoint
	Clients  []clients.Client
}

var printer = message.NewPrinter(language.AmericanEnglish)

// EvaluateAlerts runs the three rules in fixed order: overdue receivables, cash
// shortfall within the forecast, slow-paying clients. Each rule yields at most one alert.
func EvaluateAlerts(in AlertInput) []Alert {
	alerts := make([]Alert, 0, 3)
	if a, ok := overdueAlert(in); ok {
		alerts = append(alerts, a)
	}
	if a, ok := shortfallAlert(in); ok {
		alerts = append(alerts, a)
	}
	if a, ok := slowPayerAlert(in); ok {
		alerts = append(alerts, a)
	}
	for i := range alerts {
		alerts[i].ActionLabel = alerts[i].Action.Label()
	}
	return alerts
}

func overdueAlert(in AlertInput) (Alert, bool) {
	today := shared.DateOf(in.Now)
	var overdue []invoices.Invoice
	total := decimal.Zero
	for _, inv := range in.Invoices {
		if !inv.Status.Outstanding() || !shared.DateOf(inv.DueDate).Before(today) {
			continue
		}
		overdue = append(overdue, inv)
		total = total.Add(inv.Amount)
	}
	if len(overdue) == 0 {
		return Alert{}, false
	}
	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].DueDate.Before(overdue[j].DueDate)
	})
	related := make([]RelatedInvoice, 0, maxRelatedInvoices)
	for _, inv := range overdue[:min(len(overdue), maxRelatedInvoices)] {
		related = append(related, RelatedInvoice{
			ID:      inv.ID,
			Client:  inv.ClientName,
			Amount:  shared.RoundMoney(inv.Amount),
			DueDate: inv.DueDate,
		})
	}
	return Alert{
		Type:            AlertUrgent,
		Priority:        PriorityHigh,
		Title:           printer.Sprintf("%d overdue invoices", len(overdue)),
		Message:         printer.Sprintf("Total of $%.2f is overdue", shared.RoundMoney(total).InexactFloat64()),
		Action:          ActionSendReminders,
		RelatedInvoices: related,
	}, true
}

func shortfallAlert(in AlertInput) (Alert, bool) {
	negative := 0
	for _, p := range in.Forecast {
		if p.ProjectedBalance.IsNegative() {
			negative++
		}
	}
	if negative == 0 {
		return Alert{}, false
	}
	return Alert{
		Type:     AlertWarning,
		Priority: PriorityHigh,
		Title:    "Cash flow warning",
		Message:  printer.Sprintf("Potential cash shortfall detected in %d days", negative),
		Action:   ActionViewForecast,
	}, true
}

func slowPayerAlert(in AlertInput) (Alert, bool) {
	var slow []clients.Client
	for _, c := range in.Clients {
		if c.AveragePaymentDays > SlowPayerThresholdDays {
			slow = append(slow, c)
		}
	}
	if len(slow) == 0 {
		return Alert{}, false
	}
	sort.SliceStable(slow, func(i, j int) bool {
		return slow[i].AveragePaymentDays > slow[j].AveragePaymentDays
	})
	top := slow[:min(len(slow), maxSlowPayers)]
	return Alert{
		Type:     AlertInfo,
		Priority: PriorityMedium,
		Title:    "Slow-paying clients detected",
		Message:  printer.Sprintf("%d clients averaging %d+ days to pay", len(top), top[0].AveragePaymentDays),
		Action:   ActionViewClients,
	}, true
}
