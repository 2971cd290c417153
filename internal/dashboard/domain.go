// Package dashboard turns a user's invoice and client records into KPIs, a sparse
// cash-flow forecast, prioritized alerts and client rankings. Every calculation takes
// the reference instant explicitly and never mutates its input.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/clients"
	"github.com/cashflow-ai/cashflow/internal/invoices"
)

const (
	// DefaultForecastDays is the public forecast horizon when the caller supplies none.
	DefaultForecastDays = 60
	// AlertLookaheadDays is the forecast horizon the alert engine inspects.
	AlertLookaheadDays = 30
	// DefaultLimit bounds recent-invoice and top-client listings.
	DefaultLimit = 5
	// DefaultAveragePaymentDays is reported when no payment history exists.
	DefaultAveragePaymentDays = 30
)

// Snapshot is the per-user record set the calculators reduce.
type Snapshot struct {
	Invoices []invoices.Invoice
	// PaymentDays holds days-to-payment of every payment record on a paid invoice.
	// A nil entry is a record without a value.
	PaymentDays []*int
}

// Aggregate is a money total with the number of invoices behind it.
type Aggregate struct {
	Amount decimal.Decimal
	Count  int
}

// Summary bundles the dashboard KPIs.
type Summary struct {
	Outstanding       Aggregate
	Overdue           Aggregate
	ExpectedThisWeek  Aggregate
	ThisMonthRevenue  Aggregate
	NextMonthForecast Aggregate
	AvgPaymentDays    int
}

// ForecastPoint is one emitted day of the projected cash-flow curve.
type ForecastPoint struct {
	Date             time.Time
	ExpectedIncome   decimal.Decimal
	ExpectedExpenses decimal.Decimal
	NetCashFlow      decimal.Decimal
	ProjectedBalance decimal.Decimal
}

// RankedClient is a client annotated with its live outstanding balance.
type RankedClient struct {
	clients.Client
	Outstanding decimal.Decimal
}
