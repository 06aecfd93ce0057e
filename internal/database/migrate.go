package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrator is the part of *migrate.Migrate that EnsureSchema drives.
type migrator interface {
	Up() error
}

// EnsureSchema applies every pending migration embedded in the binary.  It is
// safe to run on every start; an up-to-date schema is not an error.
func EnsureSchema(db *sql.DB, dbName string) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}
	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{DatabaseName: dbName})
	if err != nil {
		return fmt.Errorf("migrations driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("migrations instance: %w", err)
	}
	return migrationsUp(m)
}

func migrationsUp(m migrator) error {
	err := m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("migrations: schema up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrations up: %w", err)
	}
	log.Println("migrations: applied")
	return nil
}
