package db

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const upSuffix = ".up.sql"

// Migration is one versioned schema change read from an fs.FS.
type Migration struct {
	Version string
	SQL     string
}

// PendingMigrations lists *.up.sql files in lexical order, skipping versions already applied.
func PendingMigrations(fsys fs.FS, applied map[string]bool) ([]Migration, error) {
	names, err := fs.Glob(fsys, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("platform/db: list migrations: %w", err)
	}
	sort.Strings(names)

	var out []Migration
	for _, name := range names {
		version := strings.TrimSuffix(name, upSuffix)
		if applied[version] {
			continue
		}
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("platform/db: read %s: %w", name, err)
		}
		if strings.TrimSpace(string(body)) == "" {
			return nil, fmt.Errorf("platform/db: migration %s is empty", name)
		}
		out = append(out, Migration{Version: version, SQL: string(body)})
	}
	return out, nil
}

// Migrate applies pending migrations, each in its own transaction, and returns the versions applied.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return nil, Classify("platform/db: create schema_migrations", err)
	}

	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}
	pending, err := PendingMigrations(fsys, applied)
	if err != nil {
		return nil, err
	}

	var done []string
	for _, m := range pending {
		err := WithTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return Classify("platform/db: apply "+m.Version, err)
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version)
			return Classify("platform/db: record "+m.Version, err)
		})
		if err != nil {
			return done, err
		}
		logger.Info("migration applied", slog.String("version", m.Version))
		done = append(done, m.Version)
	}
	return done, nil
}

func appliedVersions(ctx context.Context, q DBTX) (map[string]bool, error) {
	rows, err := q.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, Classify("platform/db: list applied migrations", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, Classify("platform/db: scan applied migrations", err)
	}
	out := make(map[string]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}
