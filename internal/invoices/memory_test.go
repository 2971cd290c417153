package invoices

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

type clientTotals struct {
	invoiced decimal.Decimal
	paid     decimal.Decimal
	count    int
}

type memoryRepo struct {
	mu        sync.Mutex
	invoices  map[uuid.UUID]Invoice
	payments  map[uuid.UUID][]PaymentHistory
	owners    map[uuid.UUID]uuid.UUID
	totals    map[uuid.UUID]*clientTotals
	reminders int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices: make(map[uuid.UUID]Invoice),
		payments: make(map[uuid.UUID][]PaymentHistory),
		owners:   make(map[uuid.UUID]uuid.UUID),
		totals:   make(map[uuid.UUID]*clientTotals),
	}
}

func (m *memoryRepo) addClient(userID uuid.UUID) uuid.UUID {
	id := uuid.New()
	m.owners[id] = userID
	m.totals[id] = &clientTotals{}
	return id
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) ClientOwned(ctx context.Context, userID, clientID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owners[clientID] == userID, nil
}

func (m *memoryRepo) Create(ctx context.Context, inv Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, userID, id uuid.UUID) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return nil, fmt.Errorf("get invoice: %w", shared.ErrNotFound)
	}
	return &inv, nil
}

func (m *memoryRepo) List(ctx context.Context, userID uuid.UUID, page shared.Pagination) ([]Invoice, int, error) {
	all := m.filter(userID, func(Invoice) bool { return true })
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.PerPage
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (m *memoryRepo) ListOverdue(ctx context.Context, userID uuid.UUID, today time.Time) ([]Invoice, error) {
	out := m.filter(userID, func(inv Invoice) bool { return inv.Status.Outstanding() && inv.DueDate.Before(today) })
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *memoryRepo) ListOpen(ctx context.Context, userID uuid.UUID) ([]Invoice, error) {
	return m.filter(userID, func(inv Invoice) bool { return inv.Status != StatusPaid && inv.Status != StatusCancelled }), nil
}

func (m *memoryRepo) Update(ctx context.Context, inv Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ID]; !ok {
		return shared.ErrNotFound
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return shared.ErrNotFound
	}
	delete(m.invoices, id)
	delete(m.payments, id)
	return nil
}

func (m *memoryRepo) RecordReminder(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return shared.ErrNotFound
	}
	inv.ReminderSent = true
	inv.ReminderCount++
	inv.LastReminderDate = &at
	m.invoices[id] = inv
	m.reminders++
	return nil
}

func (m *memoryRepo) CreatePayment(ctx context.Context, p PaymentHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.InvoiceID] = append(m.payments[p.InvoiceID], p)
	return nil
}

func (m *memoryRepo) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]PaymentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PaymentHistory(nil), m.payments[invoiceID]...), nil
}

func (m *memoryRepo) ListUserPayments(ctx context.Context, userID uuid.UUID, invoiceID *uuid.UUID) ([]PaymentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PaymentHistory
	for id, list := range m.payments {
		if m.invoices[id].UserID != userID || (invoiceID != nil && *invoiceID != id) {
			continue
		}
		out = append(out, list...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryRepo) GetPayment(ctx context.Context, userID, id uuid.UUID) (*PaymentHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for invoiceID, list := range m.payments {
		for _, p := range list {
			if p.ID == id && m.invoices[invoiceID].UserID == userID {
				return &p, nil
			}
		}
	}
	return nil, fmt.Errorf("get payment history: %w", shared.ErrNotFound)
}

func (m *memoryRepo) AdjustClientTotals(ctx context.Context, clientID uuid.UUID, invoiced, paid decimal.Decimal, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.totals[clientID]
	if !ok {
		return nil
	}
	t.invoiced = t.invoiced.Add(invoiced)
	t.paid = t.paid.Add(paid)
	t.count += count
	return nil
}

func (m *memoryRepo) filter(userID uuid.UUID, keep func(Invoice) bool) []Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID && keep(inv) {
			out = append(out, inv)
		}
	}
	return out
}
