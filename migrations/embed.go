package migrations

import "embed"

// PostgresFS contains the goose migrations for the postgres driver.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// SQLiteFS contains the goose migrations for the sqlite driver.
//
//go:embed sqlite/*.sql
var SQLiteFS embed.FS
