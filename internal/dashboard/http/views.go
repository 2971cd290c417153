package dashboardhttp

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/cashflow-ai/cashflow/internal/dashboard"
	"github.com/cashflow-ai/cashflow/internal/platform/httpx"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// AggregateView is the JSON shape of a money total with its invoice count.
type AggregateView struct {
	Amount json.Number `json:"amount"`
	Count  int         `json:"count"`
}

// SummaryView is the JSON shape of the KPI bundle.
type SummaryView struct {
	Outstanding       AggregateView `json:"outstanding"`
	ExpectedThisWeek  AggregateView `json:"expectedThisWeek"`
	Overdue           AggregateView `json:"overdue"`
	ThisMonthRevenue  AggregateView `json:"thisMonthRevenue"`
	NextMonthForecast AggregateView `json:"nextMonthForecast"`
	AvgPaymentDays    int           `json:"avgPaymentDays"`
}

// ForecastPointView is one emitted forecast day.
type ForecastPointView struct {
	Date             string      `json:"date"`
	ExpectedIncome   json.Number `json:"expectedIncome"`
	ExpectedExpenses json.Number `json:"expectedExpenses"`
	NetCashFlow      json.Number `json:"netCashFlow"`
	ProjectedBalance json.Number `json:"projectedBalance"`
}

// RelatedInvoiceView references an invoice behind an alert.
type RelatedInvoiceView struct {
	ID      uuid.UUID   `json:"id"`
	Client  string      `json:"client"`
	Amount  json.Number `json:"amount"`
	DueDate string      `json:"dueDate"`
}

// AlertView is the JSON shape of an alert.
type AlertView struct {
	Type            dashboard.AlertType   `json:"type"`
	Priority        dashboard.Priority    `json:"priority"`
	Title           string                `json:"title"`
	Message         string                `json:"message"`
	Action          dashboard.AlertAction `json:"action"`
	ActionLabel     string                `json:"actionLabel"`
	RelatedInvoices []RelatedInvoiceView  `json:"relatedInvoices,omitempty"`
}

// TopClientView is a ranked client with its live outstanding balance.
type TopClientView struct {
	ID                 uuid.UUID   `json:"id"`
	Name               string      `json:"name"`
	AveragePaymentDays int         `json:"averagePaymentDays"`
	PaymentReliability float64     `json:"paymentReliability"`
	TotalInvoiced      json.Number `json:"totalInvoiced"`
	TotalPaid          json.Number `json:"totalPaid"`
	InvoiceCount       int         `json:"invoiceCount"`
	Outstanding        json.Number `json:"outstanding"`
}

func newAggregateView(a dashboard.Aggregate) AggregateView {
	return AggregateView{Amount: httpx.Amount(a.Amount), Count: a.Count}
}

func newSummaryView(s dashboard.Summary) SummaryView {
	return SummaryView{
		Outstanding:       newAggregateView(s.Outstanding),
		ExpectedThisWeek:  newAggregateView(s.ExpectedThisWeek),
		Overdue:           newAggregateView(s.Overdue),
		ThisMonthRevenue:  newAggregateView(s.ThisMonthRevenue),
		NextMonthForecast: newAggregateView(s.NextMonthForecast),
		AvgPaymentDays:    s.AvgPaymentDays,
	}
}

func newForecastViews(points []dashboard.ForecastPoint) []ForecastPointView {
	out := make([]ForecastPointView, 0, len(points))
	for _, p := range points {
		out = append(out, ForecastPointView{
			Date:             shared.FormatDate(p.Date),
			ExpectedIncome:   httpx.Amount(p.ExpectedIncome),
			ExpectedExpenses: httpx.Amount(p.ExpectedExpenses),
			NetCashFlow:      httpx.Amount(p.NetCashFlow),
			ProjectedBalance: httpx.Amount(p.ProjectedBalance),
		})
	}
	return out
}

func newAlertViews(alerts []dashboard.Alert) []AlertView {
	out := make([]AlertView, 0, len(alerts))
	for _, a := range alerts {
		v := AlertView{
			Type:        a.Type,
			Priority:    a.Priority,
			Title:       a.Title,
			Message:     a.Message,
			Action:      a.Action,
			ActionLabel: a.ActionLabel,
		}
		for _, rel := range a.RelatedInvoices {
			v.RelatedInvoices = append(v.RelatedInvoices, RelatedInvoiceView{
				ID:      rel.ID,
				Client:  rel.Client,
				Amount:  httpx.Amount(rel.Amount),
				DueDate: shared.FormatDate(rel.DueDate),
			})
		}
		out = append(out, v)
	}
	return out
}

func newTopClientViews(list []dashboard.RankedClient) []TopClientView {
	out := make([]TopClientView, 0, len(list))
	for _, c := range list {
		out = append(out, TopClientView{
			ID:                 c.ID,
			Name:               c.Name,
			AveragePaymentDays: c.AveragePaymentDays,
			PaymentReliability: c.PaymentReliability,
			TotalInvoiced:      httpx.Amount(c.TotalInvoiced),
			TotalPaid:          httpx.Amount(c.TotalPaid),
			InvoiceCount:       c.InvoiceCount,
			Outstanding:        httpx.Amount(c.Outstanding),
		})
	}
	return out
}
