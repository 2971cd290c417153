package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Forecast projects expected income for days 0..horizon from today. Only outstanding
// invoices with a predicted payment date contribute. Day 0 is always emitted; later days
// only when they carry income or expenses. The projected balance is the running sum of
// net cash flow over emitted points, starting at zero. A negative horizon yields nil.
func Forecast(list []invoices.Invoice, now time.Time, horizon int) []ForecastPoint {
	if horizon < 0 {
		return nil
	}
	today := shared.DateOf(now)
	last := today.AddDate(0, 0, horizon)

	income := make(map[time.Time]decimal.Decimal)
	for _, inv := range list {
		if !inv.Status.Outstanding() || inv.PredictedPaymentDate == nil {
			continue
		}
		day := shared.DateOf(*inv.PredictedPaymentDate)
		if day.Before(today) || day.After(last) {
			continue
		}
		income[day] = income[day].Add(inv.Amount)
	}

	points := make([]ForecastPoint, 0, len(income)+1)
	balance := decimal.Zero
	for i := 0; i <= horizon; i++ {
		day := today.AddDate(0, 0, i)
		in := shared.RoundMoney(income[day])
		// Expenses are not modelled.
		out := decimal.Zero
		if i > 0 && !in.IsPositive() && !out.IsPositive() {
			continue
		}
		net := in.Sub(out)
		balance = balance.Add(net)
		points = append(points, ForecastPoint{
			Date:             day,
			ExpectedIncome:   in,
			ExpectedExpenses: out,
			NetCashFlow:      net,
			ProjectedBalance: balance,
		})
	}
	return points
}
