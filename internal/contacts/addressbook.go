package contacts

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// addressBookFile is the database name macOS uses for each contact source.
const addressBookFile = "AddressBook-v22.abcddb"

// AddressBook reads names from the macOS Contacts databases under Root
// (normally ~/Library/Application Support/AddressBook).
type AddressBook struct {
	Root string
}

// DefaultAddressBookRoot returns the macOS AddressBook directory.
func DefaultAddressBookRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Application Support", "AddressBook")
}

// IsAvailable reports whether at least one AddressBook database is readable.
func (a AddressBook) IsAvailable() bool {
	dbs, _ := a.databases()
	return len(dbs) > 0
}

// BuildLookup reads every AddressBook database into a handle -> name map.
func (a AddressBook) BuildLookup(ctx context.Context) (map[string]string, error) {
	dbs, err := a.databases()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	var firstErr error
	for _, path := range dbs {
		entries, err := readAddressBook(ctx, path)
		if err != nil {
			// Fail soft on per-source errors; keep going.
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, e := range entries {
			if _, exists := out[e.identifier]; !exists {
				out[e.identifier] = e.name
			}
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// databases walks Root and picks up all AddressBook-v22.abcddb files.
func (a AddressBook) databases() ([]string, error) {
	if a.Root == "" {
		return nil, nil
	}
	if _, err := os.Stat(a.Root); err != nil {
		return nil, err
	}
	var dbs []string
	seen := map[string]struct{}{}
	_ = filepath.WalkDir(a.Root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d == nil || d.IsDir() || d.Name() != addressBookFile {
			return nil
		}
		if _, ok := seen[path]; ok {
			return nil
		}
		seen[path] = struct{}{}
		dbs = append(dbs, path)
		return nil
	})
	return dbs, nil
}

type addressBookEntry struct {
	name       string
	identifier string
}

// identifierTables lists the AddressBook tables holding phones and emails.
var identifierTables = []struct{ table, column string }{
	{"ZABCDPHONENUMBER", "ZFULLNUMBER"},
	{"ZABCDEMAILADDRESS", "ZADDRESS"},
	{"ZABCDMESSAGINGADDRESS", "ZADDRESS"},
}

func readAddressBook(ctx context.Context, path string) ([]addressBookEntry, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tableExists := func(name string) bool {
		var n string
		err := conn.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name = ? LIMIT 1", name).Scan(&n)
		return err == nil && n == name
	}
	if !tableExists("ZABCDRECORD") {
		return nil, nil
	}

	var parts []string
	for _, t := range identifierTables {
		if !tableExists(t.table) {
			continue
		}
		parts = append(parts, fmt.Sprintf(`SELECT r.ZFIRSTNAME, r.ZLASTNAME, x.%s
			FROM ZABCDRECORD r
			JOIN %s x ON x.ZOWNER = r.Z_PK
			WHERE x.%s IS NOT NULL`, t.column, t.table, t.column))
	}
	if len(parts) == 0 {
		return nil, nil
	}

	rows, err := conn.QueryContext(ctx, strings.Join(parts, " UNION "))
	if err != nil {
		return nil, fmt.Errorf("failed to query address book: %w", err)
	}
	defer rows.Close()

	var out []addressBookEntry
	for rows.Next() {
		var first, last, ident sql.NullString
		if err := rows.Scan(&first, &last, &ident); err != nil {
			return nil, fmt.Errorf("failed to scan address book row: %w", err)
		}
		name := cleanContactName(strings.TrimSpace(first.String) + " " + strings.TrimSpace(last.String))
		identifier := strings.TrimSpace(ident.String)
		if name == "" || identifier == "" || isSystemContact(name, identifier) {
			continue
		}
		out = append(out, addressBookEntry{name: name, identifier: identifier})
	}
	return out, rows.Err()
}

// isSystemContact skips carrier and service entries.
func isSystemContact(name, identifier string) bool {
	return strings.HasPrefix(name, "#") ||
		strings.HasPrefix(identifier, "#") ||
		strings.Contains(name, "VZ") ||
		strings.Contains(name, "Roadside") ||
		strings.Contains(name, "Assistance") ||
		strings.HasPrefix(name, "*") ||
		strings.HasPrefix(identifier, "*")
}

func cleanContactName(name string) string {
	parts := strings.Fields(name)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.EqualFold(p, "none") {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, " ")
}
