// Package migrations holds the ledger schema, one directory per driver.
package migrations

import "embed"

// FS contains sqlite/*.sql and postgres/*.sql in golang-migrate naming.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS

const (
	SQLiteDir   = "sqlite"
	PostgresDir = "postgres"
)
