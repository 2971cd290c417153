package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cashflow-ai/cashflow/internal/platform/db"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, user User) (*User, error)
	ListActive(ctx context.Context) ([]User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, COALESCE(company_name, ''), is_active, created_at, updated_at`

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row, "find user by email")
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row, "find user by id")
}

// Create inserts a user. A duplicate email yields shared.ErrDuplicate.
func (r *PGRepository) Create(ctx context.Context, user User) (*User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (id, email, password_hash, first_name, last_name, company_name, is_active)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
RETURNING `+userColumns,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.CompanyName, user.IsActive)
	created, err := scanUser(row, "create user")
	if err != nil && shared.IsUniqueViolation(err) {
		return nil, fmt.Errorf("email %s: %w", user.Email, shared.ErrDuplicate)
	}
	return created, err
}

// ListActive returns every active account ordered by creation.
func (r *PGRepository) ListActive(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, db.Classify("list active users", err)
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows, "scan user")
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list active users", err)
	}
	return users, nil
}

func scanUser(row pgx.Row, op string) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.CompanyName, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, db.Classify(op, err)
	}
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
