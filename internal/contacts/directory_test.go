package contacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Napageneral/imessage-max/internal/fixture"
)

func TestAddressBook(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "Sources", "ABC-123")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatal(err)
	}
	err := fixture.AddressBook(filepath.Join(source, "AddressBook-v22.abcddb"),
		fixture.Contact{First: "John", Last: "Doe", Phones: []string{"+1 (917) 555-1234"}, Emails: []string{"john@example.com"}},
		fixture.Contact{First: "Jane", Last: "none", Phones: []string{"562-555-9876"}},
		fixture.Contact{First: "VZ", Last: "Roadside", Phones: []string{"#123"}},
		fixture.Contact{Phones: []string{"+15550000000"}},
	)
	if err != nil {
		t.Fatalf("Failed to create address book: %v", err)
	}

	ab := AddressBook{Root: root}
	if !ab.IsAvailable() {
		t.Fatal("address book should be available")
	}
	lookup, err := ab.BuildLookup(context.Background())
	if err != nil {
		t.Fatalf("BuildLookup: %v", err)
	}
	if len(lookup) != 3 {
		t.Errorf("expected 3 identifiers, got %v", lookup)
	}
	if lookup["john@example.com"] != "John Doe" || lookup["562-555-9876"] != "Jane" {
		t.Errorf("lookup = %v", lookup)
	}

	r := NewResolver(ab, nil)
	if name, ok := r.Resolve(context.Background(), "+19175551234"); !ok || name != "John Doe" {
		t.Errorf("Resolve via address book = %q, %v", name, ok)
	}
}

func TestAddressBookMissing(t *testing.T) {
	ab := AddressBook{Root: filepath.Join(t.TempDir(), "missing")}
	if ab.IsAvailable() {
		t.Error("missing root should not be available")
	}
	if (AddressBook{}).IsAvailable() {
		t.Error("empty root should not be available")
	}
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	content := `contacts:
  - name: John Doe
    handles: ["+19175551234", "john@example.com"]
  - name: "  "
    handles: ["+15550000000"]
  - name: Jane Smith
    handles:
      - "+15625559876"
      - ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	f := File{Path: path}
	if !f.IsAvailable() {
		t.Fatal("file should be available")
	}
	lookup, err := f.BuildLookup(context.Background())
	if err != nil {
		t.Fatalf("BuildLookup: %v", err)
	}
	want := map[string]string{
		"+19175551234":     "John Doe",
		"john@example.com": "John Doe",
		"+15625559876":     "Jane Smith",
	}
	if len(lookup) != len(want) {
		t.Fatalf("lookup = %v", lookup)
	}
	for k, v := range want {
		if lookup[k] != v {
			t.Errorf("lookup[%q] = %q, want %q", k, lookup[k], v)
		}
	}

	if (File{Path: filepath.Join(t.TempDir(), "nope.yaml")}).IsAvailable() {
		t.Error("missing file should not be available")
	}
}

func TestFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yaml")
	if err := os.WriteFile(path, []byte("contacts: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (File{Path: path}).BuildLookup(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	dir := &countingDirectory{lookup: map[string]string{"+19175551234": "John Doe", "+15625559876": "Jane"}}
	cache, err := NewRedisCache(dir, "redis://"+mr.Addr(), time.Hour, nil)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer cache.Close()

	first, err := cache.BuildLookup(ctx)
	if err != nil || len(first) != 2 {
		t.Fatalf("first build: %v %v", first, err)
	}
	if got := mr.HGet(DefaultCacheKey, "+19175551234"); got != "John Doe" {
		t.Errorf("cached value = %q", got)
	}
	if ttl := mr.TTL(DefaultCacheKey); ttl != time.Hour {
		t.Errorf("ttl = %v", ttl)
	}

	second, err := cache.BuildLookup(ctx)
	if err != nil || second["+15625559876"] != "Jane" {
		t.Fatalf("second build: %v %v", second, err)
	}
	if n := dir.calls.Load(); n != 1 {
		t.Errorf("directory called %d times, want 1", n)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := cache.BuildLookup(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n := dir.calls.Load(); n != 2 {
		t.Errorf("expired cache should rebuild, got %d calls", n)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := Static{"+19175551234": "John Doe"}
	cache, err := NewRedisCache(dir, "redis://"+mr.Addr(), 0, nil)
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer cache.Close()
	mr.Close()

	lookup, err := cache.BuildLookup(context.Background())
	if err != nil || lookup["+19175551234"] != "John Doe" {
		t.Errorf("should fall through to directory: %v %v", lookup, err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(Static{}, "not a url", 0, nil); err == nil {
		t.Error("expected error for bad url")
	}
}
