package migrations

import "embed"

// FS embeds the SQL migrations for the SQLite session backend.
//
//go:embed *.sql
var FS embed.FS
