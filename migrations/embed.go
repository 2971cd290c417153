// Package migrations embeds the PostgreSQL schema applied by `cashflow migrate`.
package migrations

import "embed"

// FS holds the ordered *.up.sql and *.down.sql files.
//
//go:embed *.sql
var FS embed.FS
