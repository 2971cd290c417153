package perf

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/clients"
	"github.com/cashflow-ai/cashflow/internal/dashboard"
	"github.com/cashflow-ai/cashflow/internal/invoices"
)

var clock = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

type snapshotRepo struct {
	invoices []invoices.Invoice
	clients  []clients.Client
}

func (s snapshotRepo) Invoices(ctx context.Context, userID uuid.UUID) ([]invoices.Invoice, error) {
	return s.invoices, nil
}

func (s snapshotRepo) PaymentDays(ctx context.Context, userID uuid.UUID) ([]*int, error) {
	return nil, nil
}

func (s snapshotRepo) Clients(ctx context.Context, userID uuid.UUID) ([]clients.Client, error) {
	return s.clients, nil
}

func (s snapshotRepo) RecentInvoices(ctx context.Context, userID uuid.UUID, limit int) ([]invoices.Invoice, error) {
	return s.invoices[:min(limit, len(s.invoices))], nil
}

func (s snapshotRepo) ClientOutstanding(ctx context.Context, userID, clientID uuid.UUID) (decimal.Decimal, error) {
	time.Sleep(time.Millisecond)
	return decimal.NewFromInt(100), nil
}

func syntheticSnapshot(invoiceCount, clientCount int) snapshotRepo {
	statuses := []invoices.Status{invoices.StatusPending, invoices.StatusOverdue, invoices.StatusPaid, invoices.StatusDraft}
	cls := make([]clients.Client, 0, clientCount)
	for i := 0; i < clientCount; i++ {
		cls = append(cls, clients.Client{
			ID:                 uuid.New(),
			Name:               fmt.Sprintf("Client %03d", i),
			AveragePaymentDays: 20 + i%40,
			TotalInvoiced:      decimal.NewFromInt(int64(1000 * (i + 1))),
		})
	}
	list := make([]invoices.Invoice, 0, invoiceCount)
	for i := 0; i < invoiceCount; i++ {
		due := clock.AddDate(0, 0, i%90-30)
		predicted := due.AddDate(0, 0, i%15)
		inv := invoices.Invoice{
			ID:                   uuid.New(),
			Amount:               decimal.New(int64(10000+i), -2),
			IssueDate:            due.AddDate(0, 0, -30),
			DueDate:              due,
			PredictedPaymentDate: &predicted,
			Status:               statuses[i%len(statuses)],
		}
		if inv.Status == invoices.StatusPaid {
			paid := due
			inv.ActualPaymentDate = &paid
		}
		list = append(list, inv)
	}
	return snapshotRepo{invoices: list, clients: cls}
}

func TestDashboardLatencyTargets(t *testing.T) {
	repo := syntheticSnapshot(5000, 200)
	svc := dashboard.NewService(repo, nil)
	userID := uuid.New()
	ctx := context.Background()

	scenarios := []struct {
		name      string
		run       func() error
		threshold time.Duration
	}{
		{"summary", func() error { _, err := svc.GetSummary(ctx, userID, clock); return err }, 250 * time.Millisecond},
		{"forecast", func() error { _, err := svc.GetForecast(ctx, userID, clock, 365); return err }, 250 * time.Millisecond},
		{"alerts", func() error { _, err := svc.GetAlerts(ctx, userID, clock); return err }, 250 * time.Millisecond},
		{"top clients", func() error { _, err := svc.GetTopClients(ctx, userID, 20); return err }, 500 * time.Millisecond},
	}

	for _, scenario := range scenarios {
		samples := make([]time.Duration, 0, 10)
		for i := 0; i < 10; i++ {
			start := time.Now()
			if err := scenario.run(); err != nil {
				t.Fatalf("%s: %v", scenario.name, err)
			}
			samples = append(samples, time.Since(start))
		}
		p95 := percentile95(samples)
		if p95 > scenario.threshold {
			t.Fatalf("%s latency regression: p95=%s threshold=%s", scenario.name, p95, scenario.threshold)
		}
	}
}

func BenchmarkSummarize(b *testing.B) {
	repo := syntheticSnapshot(10000, 0)
	snap := dashboard.Snapshot{Invoices: repo.invoices}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dashboard.Summarize(snap, clock)
	}
}

func BenchmarkForecast(b *testing.B) {
	repo := syntheticSnapshot(10000, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dashboard.Forecast(repo.invoices, clock, dashboard.DefaultForecastDays)
	}
}

func BenchmarkEvaluateAlerts(b *testing.B) {
	repo := syntheticSnapshot(10000, 500)
	in := dashboard.AlertInput{
		Now:      clock,
		Invoices: repo.invoices,
		Forecast: dashboard.Forecast(repo.invoices, clock, dashboard.AlertLookaheadDays),
		Clients:  repo.clients,
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dashboard.EvaluateAlerts(in)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	return sorted[index]
}
