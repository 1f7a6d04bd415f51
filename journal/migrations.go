package journal

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btclog"
	"github.com/golang-migrate/migrate/v4"
	sqlite_migrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var sqlSchemas embed.FS

// migrationLogger routes migrate's output to the package logger.
type migrationLogger struct {
	log btclog.Logger
}

// Printf is like fmt.Printf.
func (m *migrationLogger) Printf(format string, v ...interface{}) {
	m.log.Infof(strings.TrimSpace(format), v...)
}

// Verbose should return true when verbose logging output is wanted.
func (m *migrationLogger) Verbose() bool {
	return m.log.Level() <= btclog.LevelDebug
}

// applyMigrations brings the schema of db up to the latest version.
func applyMigrations(db *sql.DB) error {
	driver, err := sqlite_migrate.WithInstance(
		db, &sqlite_migrate.Config{},
	)
	if err != nil {
		return fmt.Errorf("unable to create migration driver: %w", err)
	}

	source, err := iofs.New(sqlSchemas, "migrations")
	if err != nil {
		return fmt.Errorf("unable to open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("migrations", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("unable to create migrator: %w", err)
	}
	m.Log = &migrationLogger{log: log}

	// The driver is not closed since that would close db.
	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		log.Debugf("Journal schema up to date")
		return nil

	case err != nil:
		return fmt.Errorf("unable to migrate journal: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("unable to read schema version: %w", err)
	}
	log.Infof("Journal schema migrated to version %d", version)

	return nil
}
