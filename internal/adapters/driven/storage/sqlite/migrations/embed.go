// Package migrations holds the SQLite schema as numbered SQL files.
// NNN_name.up.sql files are applied in order by the store, which records
// each version itself; .down.sql files are for manual rollback.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
