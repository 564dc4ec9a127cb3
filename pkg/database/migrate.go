package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	migrate "github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RunMigrations applies every pending up migration found in dir of fsys.
// The driver instance is closed when RunMigrations returns. ErrNoChange counts as success.
func RunMigrations(fsys fs.FS, dir string, databaseName string, driver migratedb.Driver, logger *slog.Logger) error {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		_ = driver.Close()
		return fmt.Errorf("could not open migration source %s: %w", dir, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, databaseName, driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	upErr := m.Up()

	sourceErr, dbErr := m.Close()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}
	if sourceErr != nil {
		return fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database error: %w", dbErr)
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		logger.Debug("No new migrations to apply", slog.String("database", databaseName))
	} else {
		logger.Info("Database migrations applied successfully", slog.String("database", databaseName))
	}
	return nil
}
