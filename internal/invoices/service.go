package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Service implements invoice lifecycle operations and keeps client totals in step.
type Service struct {
	repo             Repository
	audit            shared.AuditRecorder
	logger           *slog.Logger
	reminderInterval int
}

// NewService builds a Service. audit may be nil.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, reminderInterval: DefaultReminderIntervalDays}
}

// WithReminderInterval overrides the minimum number of days between reminders.
func (s *Service) WithReminderInterval(days int) *Service {
	if days > 0 {
		s.reminderInterval = days
	}
	return s
}

// Create stores a pending invoice. A client reference must belong to the user.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req CreateInvoiceRequest, now time.Time) (*Invoice, error) {
	if req.Amount == nil || req.Amount.IsNegative() {
		return nil, fmt.Errorf("amount must be a non-negative number: %w", shared.ErrValidation)
	}
	issue, err := parseDate("issueDate", req.IssueDate)
	if err != nil {
		return nil, err
	}
	due, err := parseDate("dueDate", req.DueDate)
	if err != nil {
		return nil, err
	}
	if due.Before(issue) {
		return nil, fmt.Errorf("dueDate precedes issueDate: %w", shared.ErrValidation)
	}
	predicted, err := parseDatePtr("predictedPaymentDate", req.PredictedPaymentDate)
	if err != nil {
		return nil, err
	}

	inv := Invoice{
		ID:                   uuid.New(),
		UserID:               userID,
		ClientID:             req.ClientID,
		InvoiceNumber:        req.InvoiceNumber,
		Amount:               shared.RoundMoney(*req.Amount),
		IssueDate:            issue,
		DueDate:              due,
		PredictedPaymentDate: predicted,
		Status:               StatusPending,
		Confidence:           req.Confidence,
		Description:          req.Description,
		Notes:                req.Notes,
		FileName:             req.FileName,
		FileURL:              req.FileURL,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	var created *Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if inv.ClientID != nil {
			owned, err := repo.ClientOwned(ctx, userID, *inv.ClientID)
			if err != nil {
				return err
			}
			if !owned {
				return fmt.Errorf("client not found or does not belong to you: %w", shared.ErrNotFound)
			}
			if err := repo.AdjustClientTotals(ctx, *inv.ClientID, inv.Amount, decimal.Zero, 1); err != nil {
				return err
			}
		}
		if err := repo.Create(ctx, inv); err != nil {
			return err
		}
		var err error
		created, err = repo.Get(ctx, userID, inv.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	s.record(ctx, userID, shared.AuditInvoiceCreated, inv.ID, map[string]any{"amount": inv.Amount.StringFixed(shared.MoneyPlaces)}, now)
	return created, nil
}

// List returns one page of the user's invoices, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, page shared.Pagination) ([]Invoice, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, userID, page)
	if err != nil {
		return nil, page, err
	}
	return list, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Get returns an invoice with its payment history.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Detail, error) {
	inv, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Invoice: *inv, Payments: payments}, nil
}

// PaymentHistory lists the user's payment records, newest first. A non-nil
// invoiceID narrows the list to one invoice the user owns.
func (s *Service) PaymentHistory(ctx context.Context, userID uuid.UUID, invoiceID *uuid.UUID) ([]PaymentHistory, error) {
	if invoiceID != nil {
		if _, err := s.repo.Get(ctx, userID, *invoiceID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListUserPayments(ctx, userID, invoiceID)
}

// Payment returns one payment record owned by the user.
func (s *Service) Payment(ctx context.Context, userID, id uuid.UUID) (*PaymentHistory, error) {
	return s.repo.GetPayment(ctx, userID, id)
}

// Update applies a partial update, moving amounts between client totals when needed.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req UpdateInvoiceRequest, now time.Time) (*Invoice, error) {
	var updated *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		next := *current
		if err := applyUpdate(&next, req); err != nil {
			return err
		}
		if next.ClientID != nil && !sameClient(current.ClientID, next.ClientID) {
			owned, err := repo.ClientOwned(ctx, userID, *next.ClientID)
			if err != nil {
				return err
			}
			if !owned {
				return fmt.Errorf("client not found or does not belong to you: %w", shared.ErrNotFound)
			}
		}
		if err := moveClientTotals(ctx, repo, *current, next); err != nil {
			return err
		}
		next.UpdatedAt = now
		if err := repo.Update(ctx, next); err != nil {
			return err
		}
		updated, err = repo.Get(ctx, userID, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	return updated, nil
}

// Delete removes an invoice and withdraws it from its client's totals.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID, now time.Time) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if inv.ClientID != nil {
			paid := decimal.Zero
			if inv.Status == StatusPaid {
				payments, err := repo.ListPayments(ctx, id)
				if err != nil {
					return err
				}
				paid = sumPayments(payments)
			}
			if err := repo.AdjustClientTotals(ctx, *inv.ClientID, inv.Amount.Neg(), paid.Neg(), -1); err != nil {
				return err
			}
		}
		return repo.Delete(ctx, userID, id)
	})
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	s.record(ctx, userID, shared.AuditInvoiceDeleted, id, nil, now)
	return nil
}

// MarkPaid settles an invoice and writes its payment record.
// The payment date defaults to today and the amount to the invoice amount.
func (s *Service) MarkPaid(ctx context.Context, userID, id uuid.UUID, req MarkPaidRequest, now time.Time) (*PaymentHistory, error) {
	paidOn := shared.DateOf(now)
	if req.ActualPaymentDate != nil {
		d, err := parseDate("actualPaymentDate", *req.ActualPaymentDate)
		if err != nil {
			return nil, err
		}
		paidOn = d
	}
	if req.PaymentAmount != nil && req.PaymentAmount.IsNegative() {
		return nil, fmt.Errorf("paymentAmount must not be negative: %w", shared.ErrValidation)
	}

	var payment PaymentHistory
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		inv, err := repo.Get(ctx, userID, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusPaid || inv.Status == StatusCancelled {
			return fmt.Errorf("invoice is %s: %w", inv.Status, shared.ErrValidation)
		}
		amount := inv.Amount
		if req.PaymentAmount != nil {
			amount = shared.RoundMoney(*req.PaymentAmount)
		}
		days := DaysToPayment(inv.IssueDate, paidOn)
		payment = PaymentHistory{
			ID:                uuid.New(),
			InvoiceID:         inv.ID,
			DaysToPayment:     &days,
			WasReminderSent:   inv.ReminderSent,
			NumberOfReminders: inv.ReminderCount,
			PaymentAmount:     amount,
			PaymentMethod:     req.PaymentMethod,
			Notes:             req.Notes,
			CreatedAt:         now,
		}

		inv.Status = StatusPaid
		inv.ActualPaymentDate = &paidOn
		inv.UpdatedAt = now
		if err := repo.Update(ctx, *inv); err != nil {
			return err
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if inv.ClientID != nil {
			return repo.AdjustClientTotals(ctx, *inv.ClientID, decimal.Zero, amount, 0)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark invoice paid: %w", err)
	}
	s.record(ctx, userID, shared.AuditInvoicePaid, id, map[string]any{
		"amount":        payment.PaymentAmount.StringFixed(shared.MoneyPlaces),
		"daysToPayment": *payment.DaysToPayment,
	}, now)
	return &payment, nil
}

// Overdue lists outstanding invoices whose due date has passed, earliest due first.
func (s *Service) Overdue(ctx context.Context, userID uuid.UUID, now time.Time) ([]Invoice, error) {
	return s.repo.ListOverdue(ctx, userID, shared.DateOf(now))
}

// NeedingReminders lists invoices for which ShouldSendReminder holds.
func (s *Service) NeedingReminders(ctx context.Context, userID uuid.UUID, now time.Time) ([]Invoice, error) {
	open, err := s.repo.ListOpen(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Invoice, 0, len(open))
	for _, inv := range open {
		if inv.ShouldSendReminder(now, s.reminderInterval) {
			out = append(out, inv)
		}
	}
	return out, nil
}

// SendReminder records that a payment reminder went out for the invoice.
func (s *Service) SendReminder(ctx context.Context, userID, id uuid.UUID, now time.Time) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == StatusPaid || inv.Status == StatusCancelled {
		return nil, fmt.Errorf("invoice is %s: %w", inv.Status, shared.ErrValidation)
	}
	if err := s.repo.RecordReminder(ctx, userID, id, now); err != nil {
		return nil, err
	}
	inv.ReminderSent = true
	inv.ReminderCount++
	inv.LastReminderDate = &now
	s.record(ctx, userID, shared.AuditInvoiceReminded, id, map[string]any{"count": inv.ReminderCount}, now)
	return inv, nil
}

func (s *Service) record(ctx context.Context, userID uuid.UUID, action string, id uuid.UUID, meta map[string]any, at time.Time) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   action,
		Entity:   "invoice",
		EntityID: id.String(),
		Meta:     meta,
		At:       at,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func applyUpdate(inv *Invoice, req UpdateInvoiceRequest) error {
	if req.ClientID != nil {
		if inv.Status == StatusPaid && !sameClient(inv.ClientID, req.ClientID) {
			return fmt.Errorf("paid invoices cannot move between clients: %w", shared.ErrValidation)
		}
		inv.ClientID = req.ClientID
	}
	if req.InvoiceNumber != nil {
		inv.InvoiceNumber = req.InvoiceNumber
	}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return fmt.Errorf("amount must not be negative: %w", shared.ErrValidation)
		}
		inv.Amount = shared.RoundMoney(*req.Amount)
	}
	if req.IssueDate != nil {
		d, err := parseDate("issueDate", *req.IssueDate)
		if err != nil {
			return err
		}
		inv.IssueDate = d
	}
	if req.DueDate != nil {
		d, err := parseDate("dueDate", *req.DueDate)
		if err != nil {
			return err
		}
		inv.DueDate = d
	}
	if inv.DueDate.Before(inv.IssueDate) {
		return fmt.Errorf("dueDate precedes issueDate: %w", shared.ErrValidation)
	}
	if req.PredictedPaymentDate != nil {
		d, err := parseDatePtr("predictedPaymentDate", req.PredictedPaymentDate)
		if err != nil {
			return err
		}
		inv.PredictedPaymentDate = d
	}
	if req.Status != nil {
		status := Status(*req.Status)
		if !status.Valid() || status == StatusPaid {
			return fmt.Errorf("status %q cannot be set directly: %w", *req.Status, shared.ErrValidation)
		}
		if inv.Status == StatusPaid {
			return fmt.Errorf("paid invoices cannot change status: %w", shared.ErrValidation)
		}
		inv.Status = status
	}
	if req.Confidence != nil {
		inv.Confidence = req.Confidence
	}
	if req.Description != nil {
		inv.Description = req.Description
	}
	if req.Notes != nil {
		inv.Notes = req.Notes
	}
	return nil
}

// moveClientTotals keeps total_invoiced consistent when an update changes the amount or the client.
func moveClientTotals(ctx context.Context, repo Repository, before, after Invoice) error {
	if sameClient(before.ClientID, after.ClientID) {
		if after.ClientID == nil || before.Amount.Equal(after.Amount) {
			return nil
		}
		return repo.AdjustClientTotals(ctx, *after.ClientID, after.Amount.Sub(before.Amount), decimal.Zero, 0)
	}
	if before.ClientID != nil {
		if err := repo.AdjustClientTotals(ctx, *before.ClientID, before.Amount.Neg(), decimal.Zero, -1); err != nil {
			return err
		}
	}
	if after.ClientID != nil {
		return repo.AdjustClientTotals(ctx, *after.ClientID, after.Amount, decimal.Zero, 1)
	}
	return nil
}

func sameClient(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sumPayments(payments []PaymentHistory) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.PaymentAmount)
	}
	return total
}
