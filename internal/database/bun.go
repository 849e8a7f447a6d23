package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/redmonkez12/users-api/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// NewBunDB wraps an existing sql.DB connection with the bun dialect for driver.
func NewBunDB(sqlDB *sql.DB, driver string) *bun.DB {
	if driver == DriverSQLite {
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
	return bun.NewDB(sqlDB, pgdialect.New())
}

// Open connects to the configured database, verifies the connection and
// applies pending migrations when AutoMigrate is set.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*bun.DB, error) {
	driverName := "postgres"
	if cfg.Driver == DriverSQLite {
		driverName = sqliteshim.ShimName
	}

	sqlDB, err := sql.Open(driverName, cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// sqlite serializes writers; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := NewBunDB(sqlDB, cfg.Driver)

	if cfg.AutoMigrate {
		if err := MigrateUp(ctx, db.DB, cfg.Driver); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}
