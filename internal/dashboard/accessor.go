package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cashflow-ai/cashflow/internal/clients"
	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/platform/db"
)

// Repository fetches the read-only record snapshots the dashboard reduces.
// Every call is scoped to one user.
type Repository interface {
	Invoices(ctx context.Context, userID uuid.UUID) ([]invoices.Invoice, error)
	PaymentDays(ctx context.Context, userID uuid.UUID) ([]*int, error)
	Clients(ctx context.Context, userID uuid.UUID) ([]clients.Client, error)
	RecentInvoices(ctx context.Context, userID uuid.UUID, limit int) ([]invoices.Invoice, error)
	ClientOutstanding(ctx context.Context, userID, clientID uuid.UUID) (decimal.Decimal, error)
}

type pgRepository struct {
	pool    *pgxpool.Pool
	clients clients.Repository
}

// NewRepository constructs the PostgreSQL snapshot accessor.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool, clients: clients.NewRepository(pool)}
}

func (r *pgRepository) Invoices(ctx context.Context, userID uuid.UUID) ([]invoices.Invoice, error) {
	return r.queryInvoices(ctx, "dashboard invoices",
		`SELECT `+invoices.SelectColumns+invoices.FromClause+` WHERE i.user_id = $1 ORDER BY i.due_date ASC, i.id`, userID)
}

func (r *pgRepository) RecentInvoices(ctx context.Context, userID uuid.UUID, limit int) ([]invoices.Invoice, error) {
	return r.queryInvoices(ctx, "recent invoices",
		`SELECT `+invoices.SelectColumns+invoices.FromClause+` WHERE i.user_id = $1 ORDER BY i.created_at DESC, i.id LIMIT $2`,
		userID, limit)
}

func (r *pgRepository) PaymentDays(ctx context.Context, userID uuid.UUID) ([]*int, error) {
	rows, err := r.pool.Query(ctx, `SELECT ph.days_to_payment
FROM payment_history ph
JOIN invoices i ON i.id = ph.invoice_id
WHERE i.user_id = $1 AND i.status = 'paid'`, userID)
	if err != nil {
		return nil, db.Classify("payment days", err)
	}
	defer rows.Close()

	var out []*int
	for rows.Next() {
		var days pgtype.Int4
		if err := rows.Scan(&days); err != nil {
			return nil, db.Classify("scan payment days", err)
		}
		if !days.Valid {
			out = append(out, nil)
			continue
		}
		d := int(days.Int32)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("payment days", err)
	}
	return out, nil
}

func (r *pgRepository) Clients(ctx context.Context, userID uuid.UUID) ([]clients.Client, error) {
	return r.clients.List(ctx, userID)
}

func (r *pgRepository) ClientOutstanding(ctx context.Context, userID, clientID uuid.UUID) (decimal.Decimal, error) {
	var total pgtype.Numeric
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)
FROM invoices
WHERE user_id = $1 AND client_id = $2 AND status IN ('pending', 'overdue')`, userID, clientID).Scan(&total)
	if err != nil {
		return decimal.Zero, db.Classify("client outstanding", err)
	}
	return db.Decimal(total), nil
}

func (r *pgRepository) queryInvoices(ctx context.Context, op, sql string, args ...any) ([]invoices.Invoice, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Classify(op, err)
	}
	defer rows.Close()

	var out []invoices.Invoice
	for rows.Next() {
		inv, err := invoices.ScanInvoice(rows)
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
