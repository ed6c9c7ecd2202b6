package migrate

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrateChatDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	res, err := MigrateChatDB(dbPath)
	if err != nil {
		t.Fatalf("MigrateChatDB failed: %v", err)
	}
	if !res.Changed || res.Version != 1 || res.Dirty {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("Database file was not created")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"handle", "chat", "message", "chat_handle_join", "chat_message_join", "attachment", "message_attachment_join"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("%s table does not exist: %v", table, err)
		}
	}
}

func TestMigrateChatDBIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "chat.db")

	if _, err := MigrateChatDB(dbPath); err != nil {
		t.Fatalf("first migration failed: %v", err)
	}
	res, err := MigrateChatDB(dbPath)
	if err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	if res.Changed {
		t.Error("second migration should be a no-op")
	}
}

func TestMigrateAddressBook(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "AddressBook-v22.abcddb")

	if _, err := MigrateAddressBook(dbPath); err != nil {
		t.Fatalf("MigrateAddressBook failed: %v", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM ZABCDRECORD").Scan(&count); err != nil {
		t.Fatalf("ZABCDRECORD missing: %v", err)
	}
}
