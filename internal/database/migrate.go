package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/redmonkez12/users-api/migrations"
)

// goose keeps its base FS and dialect in package globals
var gooseMu sync.Mutex

func withGoose(driver string, fn func() error) error {
	var (
		fsys    fs.FS
		dialect string
	)

	switch driver {
	case DriverPostgres:
		fsys, dialect = migrations.PostgresFS, "postgres"
	case DriverSQLite:
		fsys, dialect = migrations.SQLiteFS, "sqlite3"
	default:
		return fmt.Errorf("no migrations for driver %q", driver)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return fn()
}

// MigrateUp applies every pending migration for driver.
func MigrateUp(ctx context.Context, db *sql.DB, driver string) error {
	return withGoose(driver, func() error {
		if err := goose.UpContext(ctx, db, driver); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the most recent migration.
func MigrateDown(ctx context.Context, db *sql.DB, driver string) error {
	return withGoose(driver, func() error {
		if err := goose.DownContext(ctx, db, driver); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		return nil
	})
}

// MigrationStatus logs the applied state of every migration through goose's logger.
func MigrationStatus(ctx context.Context, db *sql.DB, driver string) error {
	return withGoose(driver, func() error {
		if err := goose.StatusContext(ctx, db, driver); err != nil {
			return fmt.Errorf("failed to read migration status: %w", err)
		}
		return nil
	})
}

// Version returns the current schema version.
func Version(ctx context.Context, db *sql.DB, driver string) (int64, error) {
	var version int64
	err := withGoose(driver, func() error {
		v, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}
