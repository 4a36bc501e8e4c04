package database

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/mailpilot/mailpilot/internal/config"
)

// NewMigrator returns a migrator reading SQL files from dir
func NewMigrator(db *Postgres, dir string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve migrations path: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(abs), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies every pending migration in dir over a dedicated
// connection pool, which is closed afterwards.
func MigrateUp(cfg config.DatabaseConfig, dir string) error {
	db, err := NewPostgres(cfg)
	if err != nil {
		return err
	}

	m, err := NewMigrator(db, dir)
	if err != nil {
		db.Close()
		return err
	}
	// closing the migrator also closes db
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}
