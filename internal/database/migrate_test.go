package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/users-api/internal/config"
)

func openMemory(t *testing.T) *config.DatabaseConfig {
	t.Helper()
	return &config.DatabaseConfig{
		Driver:     DriverSQLite,
		SQLitePath: t.Name() + "?mode=memory",
	}
}

func TestOpen_SQLiteAutoMigrate(t *testing.T) {
	ctx := context.Background()
	cfg := openMemory(t)
	cfg.AutoMigrate = true

	db, err := Open(ctx, *cfg)
	require.NoError(t, err)
	defer db.Close()

	version, err := Version(ctx, db.DB, DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	count, err := db.NewSelect().Model((*User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMigrateDown(t *testing.T) {
	ctx := context.Background()
	cfg := openMemory(t)

	db, err := Open(ctx, *cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, MigrateUp(ctx, db.DB, DriverSQLite))
	require.NoError(t, MigrateDown(ctx, db.DB, DriverSQLite))

	version, err := Version(ctx, db.DB, DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)
}

func TestMigrateUp_UnknownDriver(t *testing.T) {
	err := MigrateUp(context.Background(), nil, "mysql")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}
