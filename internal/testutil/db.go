// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/redmonkez12/users-api/internal/database"
)

// NewSQLiteDB opens a private in-memory sqlite database with all migrations
// applied. It is closed when the test ends.
func NewSQLiteDB(t testing.TB) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqlDB, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := database.NewBunDB(sqlDB, database.DriverSQLite)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.MigrateUp(context.Background(), sqlDB, database.DriverSQLite))

	return db
}
