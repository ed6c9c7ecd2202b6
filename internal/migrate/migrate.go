// Package migrate creates empty Messages-compatible databases: the chat.db
// schema and the AddressBook record tables. They back the demo database
// command and the test fixtures; the live stores are never migrated.
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed sql/chatdb/*.sql
var chatDBMigrations embed.FS

//go:embed sql/addressbook/*.sql
var addressBookMigrations embed.FS

// Result describes what happened during migration.
type Result struct {
	Version uint
	Dirty   bool
	Changed bool
}

// MigrateChatDB creates (or upgrades) the Messages schema at dbPath.
func MigrateChatDB(dbPath string) (*Result, error) {
	return runMigrations(dbPath, chatDBMigrations, "sql/chatdb")
}

// MigrateAddressBook creates (or upgrades) the AddressBook schema at dbPath.
func MigrateAddressBook(dbPath string) (*Result, error) {
	return runMigrations(dbPath, addressBookMigrations, "sql/addressbook")
}

// runMigrations applies every pending migration in dir to dbPath.
func runMigrations(dbPath string, fs embed.FS, dir string) (*Result, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	source, err := iofs.New(fs, dir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration instance: %w", err)
	}
	// closes db through the driver
	defer m.Close()

	err = m.Up()
	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed = false
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("migration up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return nil, fmt.Errorf("migration version: %w", err)
	}
	return &Result{Version: version, Dirty: dirty, Changed: changed}, nil
}
