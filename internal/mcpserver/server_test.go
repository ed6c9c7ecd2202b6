package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/Napageneral/imessage-max/internal/contacts"
	"github.com/Napageneral/imessage-max/internal/fixture"
	"github.com/Napageneral/imessage-max/internal/tools"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	if err := fixture.Demo(dbPath); err != nil {
		t.Fatalf("Failed to create fixture: %v", err)
	}
	svc := tools.NewService(tools.Options{
		DBPath:   dbPath,
		Resolver: contacts.NewResolver(contacts.Static{fixture.HandleJohn: "John Doe"}, nil),
		Location: time.UTC,
	})
	return NewServer(svc)
}

// roundTrip marshals a tool output the way the SDK does for structured
// content and decodes it generically.
func roundTrip(t *testing.T, out any) map[string]any {
	t.Helper()
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal output: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	return m
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	if s.version != "dev" {
		t.Errorf("expected default version 'dev', got %q", s.version)
	}
	if s.server == nil {
		t.Fatal("expected MCP server to be created")
	}

	s = NewServer(s.svc, WithVersion("1.2.3"))
	if s.version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %q", s.version)
	}
}

func TestHandleGetMessages(t *testing.T) {
	s := newTestServer(t)
	res, out, err := s.handleGetMessages(context.Background(), nil, tools.GetMessagesInput{ChatID: "chat123", Limit: 2})
	if err != nil {
		t.Fatalf("handleGetMessages failed: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil CallToolResult, got %+v", res)
	}
	m := roundTrip(t, out)
	if chat := m["chat"].(map[string]any); chat["id"] != "chat1" {
		t.Errorf("chat = %v", chat)
	}
	if people := m["people"].(map[string]any); people["me"] != "Me" {
		t.Errorf("people = %v", people)
	}
	if msgs := m["messages"].([]any); len(msgs) != 2 {
		t.Errorf("messages = %v", msgs)
	}
	if m["more"] != true {
		t.Errorf("more = %v", m["more"])
	}
	if v, ok := m["cursor"]; !ok || v != nil {
		t.Errorf("cursor should be present and null, got %v (present=%v)", v, ok)
	}
}

func TestHandleErrorsBecomeEnvelopes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleGetMessages(ctx, nil, tools.GetMessagesInput{})
	if err != nil {
		t.Fatalf("tool errors should be returned as output, got %v", err)
	}
	m := roundTrip(t, out)
	if m["error"] != "validation_error" || m["message"] == "" {
		t.Errorf("envelope = %v", m)
	}

	_, out, _ = s.handleGetContext(ctx, nil, tools.GetContextInput{MessageID: "msg_999"})
	if m := roundTrip(t, out); m["error"] != "message_not_found" {
		t.Errorf("envelope = %v", m)
	}

	missing := NewServer(tools.NewService(tools.Options{DBPath: filepath.Join(t.TempDir(), "none.db")}))
	_, out, _ = missing.handleListChats(ctx, nil, tools.ListChatsInput{})
	if m := roundTrip(t, out); m["error"] != "database_not_found" {
		t.Errorf("envelope = %v", m)
	}
}

func TestHandleOtherTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, _ := s.handleFindChat(ctx, nil, tools.FindChatInput{Name: "Test Group"})
	if chats := roundTrip(t, out)["chats"].([]any); len(chats) != 1 {
		t.Errorf("find_chat chats = %v", chats)
	}

	_, out, _ = s.handleListChats(ctx, nil, tools.ListChatsInput{})
	if chats := roundTrip(t, out)["chats"].([]any); len(chats) != 2 {
		t.Errorf("list_chats chats = %v", chats)
	}

	_, out, _ = s.handleSearch(ctx, nil, tools.SearchInput{Query: "video"})
	if results := roundTrip(t, out)["results"].([]any); len(results) != 1 {
		t.Errorf("search results = %v", results)
	}

	_, out, _ = s.handleGetContext(ctx, nil, tools.GetContextInput{MessageID: "msg_5", Before: 1, After: 1})
	if target := roundTrip(t, out)["target"].(map[string]any); target["id"] != "msg_5" {
		t.Errorf("get_context target = %v", target)
	}

	_, out, _ = s.handleGetAttachments(ctx, nil, tools.GetAttachmentsInput{Type: "video"})
	if atts := roundTrip(t, out)["attachments"].([]any); len(atts) != 1 {
		t.Errorf("get_attachments = %v", atts)
	}

	_, out, _ = s.handleContactsStatus(ctx, nil, ContactsStatusInput{})
	m := roundTrip(t, out)
	if m["available"] != true || m["handle_count"] != float64(1) {
		t.Errorf("contacts_status = %v", m)
	}
}
