package clients

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cashflow-ai/cashflow/internal/platform/db"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Repository persists clients scoped to their owning user.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, userID, id uuid.UUID) (*Client, error)
	List(ctx context.Context, userID uuid.UUID) ([]Client, error)
	Create(ctx context.Context, client Client) (*Client, error)
	Update(ctx context.Context, userID, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
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

const clientColumns = `id, user_id, name, email, phone, address, average_payment_days, payment_reliability,
       total_invoiced, total_paid, invoice_count, is_active, created_at, updated_at`

func (r *repository) Get(ctx context.Context, userID, id uuid.UUID) (*Client, error) {
	row := r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1 AND user_id = $2`, id, userID)
	c, err := scanClient(row)
	if err != nil {
		return nil, db.Classify("get client", err)
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, userID uuid.UUID) ([]Client, error) {
	rows, err := r.db.Query(ctx, `SELECT `+clientColumns+` FROM clients WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, db.Classify("list clients", err)
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, db.Classify("scan client", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list clients", err)
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, client Client) (*Client, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO clients (id, user_id, name, email, phone, address, average_payment_days, payment_reliability, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+clientColumns,
		client.ID, client.UserID, client.Name,
		pgtype.Text{String: getString(client.Email), Valid: client.Email != nil},
		pgtype.Text{String: getString(client.Phone), Valid: client.Phone != nil},
		pgtype.Text{String: getString(client.Address), Valid: client.Address != nil},
		client.AveragePaymentDays, client.PaymentReliability, client.IsActive,
	)
	created, err := scanClient(row)
	if err != nil {
		return nil, db.Classify("create client", err)
	}
	return created, nil
}

var updatableColumns = map[string]struct{}{
	"name": {}, "email": {}, "phone": {}, "address": {},
	"average_payment_days": {}, "payment_reliability": {}, "is_active": {},
}

func (r *repository) Update(ctx context.Context, userID, id uuid.UUID, updates map[string]any) error {
	columns := make([]string, 0, len(updates))
	for col := range updates {
		if _, ok := updatableColumns[col]; !ok {
			return fmt.Errorf("update client: unknown column %q: %w", col, shared.ErrValidation)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	var b strings.Builder
	b.WriteString("UPDATE clients SET updated_at = NOW()")
	args := []any{id, userID}
	for _, col := range columns {
		args = append(args, updates[col])
		fmt.Fprintf(&b, ", %s = $%d", col, len(args))
	}
	b.WriteString(" WHERE id = $1 AND user_id = $2")

	tag, err := r.db.Exec(ctx, b.String(), args...)
	if err != nil {
		return db.Classify("update client", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update client: %w", shared.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return db.Classify("delete client", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete client: %w", shared.ErrNotFound)
	}
	return nil
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var email, phone, address pgtype.Text
	var totalInvoiced, totalPaid pgtype.Numeric
	var avgDays pgtype.Int4
	var reliability pgtype.Float8
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &email, &phone, &address, &avgDays, &reliability,
		&totalInvoiced, &totalPaid, &c.InvoiceCount, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		c.Email = &email.String
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	if address.Valid {
		c.Address = &address.String
	}
	c.AveragePaymentDays = DefaultAveragePaymentDays
	if avgDays.Valid {
		c.AveragePaymentDays = int(avgDays.Int32)
	}
	c.PaymentReliability = DefaultPaymentReliability
	if reliability.Valid {
		c.PaymentReliability = reliability.Float64
	}
	c.TotalInvoiced = db.Decimal(totalInvoiced)
	c.TotalPaid = db.Decimal(totalPaid)
	return &c, nil
}

func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
