package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/platform/db"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Repository persists invoices, their payment records and the derived client totals.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	ClientOwned(ctx context.Context, userID, clientID uuid.UUID) (bool, error)
	Create(ctx context.Context, inv Invoice) error
	Get(ctx context.Context, userID, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, userID uuid.UUID, page shared.Pagination) ([]Invoice, int, error)
	ListOverdue(ctx context.Context, userID uuid.UUID, today time.Time) ([]Invoice, error)
	ListOpen(ctx context.Context, userID uuid.UUID) ([]Invoice, error)
	Update(ctx context.Context, inv Invoice) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	RecordReminder(ctx context.Context, userID, id uuid.UUID, at time.Time) error
	CreatePayment(ctx context.Context, p PaymentHistory) error
	ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]PaymentHistory, error)
	ListUserPayments(ctx context.Context, userID uuid.UUID, invoiceID *uuid.UUID) ([]PaymentHistory, error)
	GetPayment(ctx context.Context, userID, id uuid.UUID) (*PaymentHistory, error)
	AdjustClientTotals(ctx context.Context, clientID uuid.UUID, invoiced, paid decimal.Decimal, count int) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

// SelectColumns lists invoice columns joined with the owning client, in Scan order.
const SelectColumns = `i.id, i.user_id, i.client_id, COALESCE(c.name, ''), c.email, i.invoice_number, i.amount,
       i.issue_date, i.due_date, i.predicted_payment_date, i.actual_payment_date, i.status, i.confidence,
       i.description, i.notes, i.file_name, i.file_url, i.reminder_sent, i.reminder_count,
       i.last_reminder_date, i.created_at, i.updated_at`

// FromClause joins invoices with their optional client.
const FromClause = ` FROM invoices i LEFT JOIN clients c ON c.id = i.client_id`

func (r *repository) ClientOwned(ctx context.Context, userID, clientID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1 AND user_id = $2)`, clientID, userID).Scan(&exists)
	if err != nil {
		return false, db.Classify("check client owner", err)
	}
	return exists, nil
}

func (r *repository) Create(ctx context.Context, inv Invoice) error {
	_, err := r.db.Exec(ctx, `INSERT INTO invoices (
    id, user_id, client_id, invoice_number, amount, issue_date, due_date, predicted_payment_date,
    actual_payment_date, status, confidence, description, notes, file_name, file_url,
    reminder_sent, reminder_count, last_reminder_date, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $19)`,
		inv.ID, inv.UserID, inv.ClientID, inv.InvoiceNumber, inv.Amount, inv.IssueDate, inv.DueDate,
		inv.PredictedPaymentDate, inv.ActualPaymentDate, string(inv.Status), inv.Confidence,
		inv.Description, inv.Notes, inv.FileName, inv.FileURL,
		inv.ReminderSent, inv.ReminderCount, inv.LastReminderDate, inv.CreatedAt,
	)
	return db.Classify("create invoice", err)
}

func (r *repository) Get(ctx context.Context, userID, id uuid.UUID) (*Invoice, error) {
	row := r.db.QueryRow(ctx, `SELECT `+SelectColumns+FromClause+` WHERE i.id = $1 AND i.user_id = $2`, id, userID)
	inv, err := ScanInvoice(row)
	if err != nil {
		return nil, db.Classify("get invoice", err)
	}
	return inv, nil
}

func (r *repository) List(ctx context.Context, userID uuid.UUID, page shared.Pagination) ([]Invoice, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, db.Classify("count invoices", err)
	}
	list, err := r.query(ctx, "list invoices",
		`SELECT `+SelectColumns+FromClause+` WHERE i.user_id = $1 ORDER BY i.created_at DESC, i.id LIMIT $2 OFFSET $3`,
		userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *repository) ListOverdue(ctx context.Context, userID uuid.UUID, today time.Time) ([]Invoice, error) {
	return r.query(ctx, "list overdue invoices",
		`SELECT `+SelectColumns+FromClause+`
WHERE i.user_id = $1 AND i.status IN ('pending', 'overdue') AND i.due_date < $2
ORDER BY i.due_date ASC, i.id`, userID, today)
}

func (r *repository) ListOpen(ctx context.Context, userID uuid.UUID) ([]Invoice, error) {
	return r.query(ctx, "list open invoices",
		`SELECT `+SelectColumns+FromClause+`
WHERE i.user_id = $1 AND i.status NOT IN ('paid', 'cancelled')
ORDER BY i.due_date ASC, i.id`, userID)
}

func (r *repository) Update(ctx context.Context, inv Invoice) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices SET
    client_id = $3, invoice_number = $4, amount = $5, issue_date = $6, due_date = $7,
    predicted_payment_date = $8, actual_payment_date = $9, status = $10, confidence = $11,
    description = $12, notes = $13, updated_at = $14
WHERE id = $1 AND user_id = $2`,
		inv.ID, inv.UserID, inv.ClientID, inv.InvoiceNumber, inv.Amount, inv.IssueDate, inv.DueDate,
		inv.PredictedPaymentDate, inv.ActualPaymentDate, string(inv.Status), inv.Confidence,
		inv.Description, inv.Notes, inv.UpdatedAt,
	)
	if err != nil {
		return db.Classify("update invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update invoice: %w", shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return db.Classify("delete invoice", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete invoice: %w", shared.ErrNotFound)
	}
	return nil
}

func (r *repository) RecordReminder(ctx context.Context, userID, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices
SET reminder_sent = TRUE, reminder_count = reminder_count + 1, last_reminder_date = $3, updated_at = $3
WHERE id = $1 AND user_id = $2`, id, userID, at)
	if err != nil {
		return db.Classify("record reminder", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record reminder: %w", shared.ErrNotFound)
	}
	return nil
}

func (r *repository) CreatePayment(ctx context.Context, p PaymentHistory) error {
	var days pgtype.Int4
	if p.DaysToPayment != nil {
		days = pgtype.Int4{Int32: int32(*p.DaysToPayment), Valid: true}
	}
	_, err := r.db.Exec(ctx, `INSERT INTO payment_history (
    id, invoice_id, days_to_payment, was_reminder_sent, number_of_reminders, payment_amount,
    payment_method, notes, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.InvoiceID, days, p.WasReminderSent, p.NumberOfReminders, p.PaymentAmount,
		p.PaymentMethod, p.Notes, p.CreatedAt,
	)
	return db.Classify("create payment history", err)
}

const paymentColumns = `ph.id, ph.invoice_id, ph.days_to_payment, ph.was_reminder_sent, ph.number_of_reminders,
       ph.payment_amount, ph.payment_method, ph.notes, ph.created_at`

func (r *repository) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]PaymentHistory, error) {
	return r.queryPayments(ctx, "list payment history",
		`SELECT `+paymentColumns+` FROM payment_history ph WHERE ph.invoice_id = $1 ORDER BY ph.created_at`, invoiceID)
}

func (r *repository) ListUserPayments(ctx context.Context, userID uuid.UUID, invoiceID *uuid.UUID) ([]PaymentHistory, error) {
	return r.queryPayments(ctx, "list user payment history",
		`SELECT `+paymentColumns+`
FROM payment_history ph
JOIN invoices i ON i.id = ph.invoice_id
WHERE i.user_id = $1 AND ($2::uuid IS NULL OR ph.invoice_id = $2)
ORDER BY ph.created_at DESC, ph.id`, userID, invoiceID)
}

func (r *repository) GetPayment(ctx context.Context, userID, id uuid.UUID) (*PaymentHistory, error) {
	list, err := r.queryPayments(ctx, "get payment history",
		`SELECT `+paymentColumns+`
FROM payment_history ph
JOIN invoices i ON i.id = ph.invoice_id
WHERE ph.id = $1 AND i.user_id = $2`, id, userID)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("get payment history: %w", shared.ErrNotFound)
	}
	return &list[0], nil
}

func (r *repository) queryPayments(ctx context.Context, op, sql string, args ...any) ([]PaymentHistory, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(op, err)
	}
	defer rows.Close()

	var out []PaymentHistory
	for rows.Next() {
		var p PaymentHistory
		var days pgtype.Int4
		var amount pgtype.Numeric
		var method, notes pgtype.Text
		if err := rows.Scan(&p.ID, &p.InvoiceID, &days, &p.WasReminderSent, &p.NumberOfReminders,
			&amount, &method, &notes, &p.CreatedAt); err != nil {
			return nil, db.Classify(op, err)
		}
		if days.Valid {
			d := int(days.Int32)
			p.DaysToPayment = &d
		}
		p.PaymentAmount = db.Decimal(amount)
		p.PaymentMethod = textPtr(method)
		p.Notes = textPtr(notes)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(op, err)
	}
	return out, nil
}

func (r *repository) AdjustClientTotals(ctx context.Context, clientID uuid.UUID, invoiced, paid decimal.Decimal, count int) error {
	_, err := r.db.Exec(ctx, `UPDATE clients
SET total_invoiced = total_invoiced + $2, total_paid = total_paid + $3, invoice_count = invoice_count + $4, updated_at = NOW()
WHERE id = $1`, clientID, invoiced, paid, count)
	return db.Classify("adjust client totals", err)
}

func (r *repository) query(ctx context.Context, op, sql string, args ...any) ([]Invoice, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(op, err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := ScanInvoice(rows)
		if err != nil {
			return nil, db.Classify(op, err)
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(op, err)
	}
	return out, nil
}

// ScanInvoice reads one row produced by SelectColumns.
func ScanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var clientID pgtype.UUID
	var clientEmail, number, description, notes, fileName, fileURL pgtype.Text
	var amount pgtype.Numeric
	var predicted, actual pgtype.Date
	var status string
	var confidence pgtype.Float8
	var lastReminder pgtype.Timestamptz
	err := row.Scan(&inv.ID, &inv.UserID, &clientID, &inv.ClientName, &clientEmail, &number, &amount,
		&inv.IssueDate, &inv.DueDate, &predicted, &actual, &status, &confidence,
		&description, &notes, &fileName, &fileURL, &inv.ReminderSent, &inv.ReminderCount,
		&lastReminder, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if clientID.Valid {
		id := uuid.UUID(clientID.Bytes)
		inv.ClientID = &id
	}
	inv.ClientEmail = textPtr(clientEmail)
	inv.InvoiceNumber = textPtr(number)
	inv.Amount = db.Decimal(amount)
	inv.IssueDate = shared.DateOf(inv.IssueDate)
	inv.DueDate = shared.DateOf(inv.DueDate)
	inv.PredictedPaymentDate = db.DatePtr(predicted)
	inv.ActualPaymentDate = db.DatePtr(actual)
	inv.Status = Status(status)
	if confidence.Valid {
		c := confidence.Float64
		inv.Confidence = &c
	}
	inv.Description = textPtr(description)
	inv.Notes = textPtr(notes)
	inv.FileName = textPtr(fileName)
	inv.FileURL = textPtr(fileURL)
	inv.LastReminderDate = db.TimePtr(lastReminder)
	return &inv, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
