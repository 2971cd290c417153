package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/clients"
	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

var clock = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return shared.DateOf(clock).AddDate(0, 0, offset)
}

func dayPtr(offset int) *time.Time {
	d := day(offset)
	return &d
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func invoice(status invoices.Status, amount string, due int) invoices.Invoice {
	return invoices.Invoice{
		ID:         uuid.New(),
		ClientName: "Acme",
		Amount:     money(amount),
		IssueDate:  day(due - 30),
		DueDate:    day(due),
		Status:     status,
		CreatedAt:  clock,
	}
}

func predicted(inv invoices.Invoice, offset int) invoices.Invoice {
	inv.PredictedPaymentDate = dayPtr(offset)
	return inv
}

func client(name string, avgDays int, invoiced string) clients.Client {
	return clients.Client{
		ID:                 uuid.New(),
		Name:               name,
		AveragePaymentDays: avgDays,
		PaymentReliability: clients.DefaultPaymentReliability,
		TotalInvoiced:      money(invoiced),
	}
}

type memoryRepo struct {
	mu          sync.Mutex
	invoices    []invoices.Invoice
	paymentDays []*int
	clients     []clients.Client
	outstanding map[uuid.UUID]decimal.Decimal
	err         error
	lookups     []uuid.UUID
}

func (m *memoryRepo) Invoices(ctx context.Context, userID uuid.UUID) ([]invoices.Invoice, error) {
	return m.invoices, m.err
}

func (m *memoryRepo) PaymentDays(ctx context.Context, userID uuid.UUID) ([]*int, error) {
	return m.paymentDays, m.err
}

func (m *memoryRepo) Clients(ctx context.Context, userID uuid.UUID) ([]clients.Client, error) {
	return m.clients, m.err
}

func (m *memoryRepo) RecentInvoices(ctx context.Context, userID uuid.UUID, limit int) ([]invoices.Invoice, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.invoices[:min(limit, len(m.invoices))], nil
}

func (m *memoryRepo) ClientOutstanding(ctx context.Context, userID, clientID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, clientID)
	if m.err != nil {
		return decimal.Zero, m.err
	}
	return m.outstanding[clientID], nil
}
