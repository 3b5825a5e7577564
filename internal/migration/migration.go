package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/giftbot/pkg/db"
)

//go:embed migrations
var embeddedMigrations embed.FS

// RunMigrations creates the bot tables on startup so a fresh sqlite file or
// an empty postgres database is usable right away.
func RunMigrations(conn *sql.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	dir, driverName, err := migrationsDir(dbType)
	if err != nil {
		return err
	}

	sub, err := fs.Sub(embeddedMigrations, dir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	var driver database.Driver
	switch driverName {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(conn, &sqlite3.Config{})
	default:
		driver, err = postgres.WithInstance(conn, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

func migrationsDir(dbType string) (string, string, error) {
	switch dbType {
	case db.TypeSQLite, "":
		return "migrations/sqlite", "sqlite3", nil
	case db.TypePostgres:
		return "migrations/postgres", "postgres", nil
	default:
		return "", "", fmt.Errorf("no migrations for database type %q", dbType)
	}
}
