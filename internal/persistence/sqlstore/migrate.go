package sqlstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies the pending schema migrations of the store's driver and
// returns the resulting schema version.
func (s *Store) Migrate() (uint, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("sqlstore: migrate up: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("sqlstore: schema version %d is dirty", version)
	}
	s.logger.Info("schema migrated", "version", version)
	return version, nil
}

// The migrator is never closed: closing it would close the shared *sql.DB.
func (s *Store) migrator() (*migrate.Migrate, error) {
	driverName := s.db.DriverName()
	source, err := iofs.New(migrations, "migrations/"+driverName)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: no migrations for %s: %w", driverName, err)
	}

	var target database.Driver
	switch driverName {
	case DriverSQLite:
		target, err = migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	case DriverPostgres:
		target, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", driverName)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, driverName, target)
}
