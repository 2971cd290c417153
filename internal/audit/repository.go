package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cashflow-ai/cashflow/internal/platform/db"
)

// WindowParams selects a slice of audit_logs for one actor.
type WindowParams struct {
	ActorID  uuid.UUID
	From     pgtype.Timestamptz
	To       pgtype.Timestamptz
	Entity   pgtype.Text
	EntityID pgtype.Text
	Action   pgtype.Text
	Offset   int32
	Limit    int32
}

// Repository reads audit_logs.
type Repository interface {
	TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error)
}

// PGRepository reads audit_logs from PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const timelineWindow = `SELECT occurred_at, action, entity, entity_id, meta
FROM audit_logs
WHERE actor_id = $1
  AND ($2::timestamptz IS NULL OR occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR occurred_at < $3)
  AND ($4::text IS NULL OR entity = $4)
  AND ($5::text IS NULL OR entity_id = $5)
  AND ($6::text IS NULL OR action = $6)
ORDER BY occurred_at DESC, id DESC
OFFSET $7 LIMIT $8`

// TimelineWindow returns rows newest first.
func (r *PGRepository) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineWindow,
		arg.ActorID, arg.From, arg.To, arg.Entity, arg.EntityID, arg.Action, arg.Offset, arg.Limit)
	if err != nil {
		return nil, db.Classify("audit timeline", err)
	}
	defer rows.Close()

	var out []TimelineRow
	for rows.Next() {
		var row TimelineRow
		var at time.Time
		var meta []byte
		if err := rows.Scan(&at, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, db.Classify("scan audit timeline", err)
		}
		row.At = at.UTC()
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, db.Classify("decode audit meta", err)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("audit timeline", err)
	}
	return out, nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}
