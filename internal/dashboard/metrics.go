package dashboard

import (
	"math"
	"time"

	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

const expectedWindowDays = 7

// Summarize computes the KPI bundle as of now. Date comparisons use the calendar date of now.
func Summarize(snap Snapshot, now time.Time) Summary {
	today := shared.DateOf(now)
	weekEnd := today.AddDate(0, 0, expectedWindowDays)
	monthStart, monthEnd := shared.MonthBounds(today)
	nextStart, nextEnd := shared.MonthBounds(monthStart.AddDate(0, 1, 0))

	var s Summary
	for _, inv := range snap.Invoices {
		if inv.Status == invoices.StatusPaid {
			if inv.ActualPaymentDate != nil && within(shared.DateOf(*inv.ActualPaymentDate), monthStart, monthEnd) {
				add(&s.ThisMonthRevenue, inv)
			}
			continue
		}
		if !inv.Status.Outstanding() {
			continue
		}
		add(&s.Outstanding, inv)
		if shared.DateOf(inv.DueDate).Before(today) {
			add(&s.Overdue, inv)
		}
		if inv.PredictedPaymentDate == nil {
			continue
		}
		predicted := shared.DateOf(*inv.PredictedPaymentDate)
		if within(predicted, today, weekEnd) {
			add(&s.ExpectedThisWeek, inv)
		}
		if within(predicted, nextStart, nextEnd) {
			add(&s.NextMonthForecast, inv)
		}
	}

	for _, agg := range []*Aggregate{&s.Outstanding, &s.Overdue, &s.ExpectedThisWeek, &s.ThisMonthRevenue, &s.NextMonthForecast} {
		agg.Amount = shared.RoundMoney(agg.Amount)
	}
	s.AvgPaymentDays = averagePaymentDays(snap)
	return s
}

func averagePaymentDays(snap Snapshot) int {
	if len(snap.PaymentDays) == 0 || !hasPaid(snap.Invoices) {
		return DefaultAveragePaymentDays
	}
	total := 0
	for _, d := range snap.PaymentDays {
		if d != nil {
			total += *d
		}
	}
	mean := float64(total) / float64(len(snap.PaymentDays))
	return int(math.Floor(mean + 0.5))
}

func hasPaid(list []invoices.Invoice) bool {
	for _, inv := range list {
		if inv.Status == invoices.StatusPaid {
			return true
		}
	}
	return false
}

func add(agg *Aggregate, inv invoices.Invoice) {
	agg.Amount = agg.Amount.Add(inv.Amount)
	agg.Count++
}

// within reports from <= d <= to on calendar dates.
func within(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}
