package imessage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrChatDBNotFound is returned by OpenChatDB when the file does not exist.
	ErrChatDBNotFound = errors.New("chat.db not found")
	// ErrChatNotFound is returned when a chat token matches no chat.
	ErrChatNotFound = errors.New("chat not found")
	// ErrMessageNotFound is returned when a message id matches no message.
	ErrMessageNotFound = errors.New("message not found")
)

// DefaultChatDBPath returns the path to the macOS Messages chat.db
func DefaultChatDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Messages", "chat.db")
}

// ExpandHome resolves a leading "~/" against the user's home directory, the
// form chat.db uses for attachment paths.
func ExpandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// OpenChatDB opens the chat.db with read-only optimized pragmas
func OpenChatDB(path string) (*ChatDB, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrChatDBNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat chat.db: %w", err)
	}

	// Open with read-only URI mode
	// Note: Don't use immutable=1 for live macOS Messages DB (uses WAL)
	uri := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat.db: %w", err)
	}

	pragmas := []string{
		"PRAGMA query_only=ON",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA cache_size=-65536",   // 64MB cache
		"PRAGMA mmap_size=268435456", // 256MB memory map
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			// Ignore pragma errors (some may not be supported)
			continue
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open chat.db: %w", err)
	}

	return &ChatDB{db: db, path: path}, nil
}

// Close closes the chat.db connection
func (c *ChatDB) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Path returns the path to the chat.db file
func (c *ChatDB) Path() string {
	return c.path
}

func (c *ChatDB) query(ctx context.Context, b sq.Sqlizer) (*sql.Rows, error) {
	queryStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return c.db.QueryContext(ctx, queryStr, args...)
}

func (c *ChatDB) queryRow(ctx context.Context, b sq.Sqlizer) (*sql.Row, error) {
	queryStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return c.db.QueryRowContext(ctx, queryStr, args...), nil
}
