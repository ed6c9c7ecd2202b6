package imessage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Napageneral/imessage-max/internal/fixture"
)

// openConversation creates the conversation fixture and opens it read-only.
func openConversation(t *testing.T) *ChatDB {
	t.Helper()
	return openSeeded(t, fixture.Conversation)
}

func openSeeded(t *testing.T, seeds ...func(*fixture.Builder)) *ChatDB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	b, err := fixture.Create(dbPath)
	if err != nil {
		t.Fatalf("Failed to create fixture: %v", err)
	}
	for _, seed := range seeds {
		seed(b)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Failed to seed fixture: %v", err)
	}

	db, err := OpenChatDB(dbPath)
	if err != nil {
		t.Fatalf("OpenChatDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenChatDBMissing(t *testing.T) {
	_, err := OpenChatDB(filepath.Join(t.TempDir(), "nope.db"))
	if !errors.Is(err, ErrChatDBNotFound) {
		t.Fatalf("expected ErrChatDBNotFound, got %v", err)
	}
}

func TestOpenChatDBIsReadOnly(t *testing.T) {
	db := openConversation(t)
	if _, err := db.db.Exec("DELETE FROM message"); err == nil {
		t.Fatal("expected write to fail on read-only connection")
	}
}

func TestResolveChat(t *testing.T) {
	db := openConversation(t)
	ctx := context.Background()

	for _, token := range []string{"chat1", "chat123", "iMessage;+;chat123"} {
		ch, err := db.ResolveChat(ctx, token)
		if err != nil {
			t.Fatalf("ResolveChat(%q): %v", token, err)
		}
		if ch.Token() != "chat1" {
			t.Errorf("ResolveChat(%q) = %s, want chat1", token, ch.Token())
		}
	}

	ch, err := db.ResolveChat(ctx, "chat456")
	if err != nil || ch.Token() != "chat2" || ch.DisplayName.String != "Test Group" {
		t.Errorf("ResolveChat(chat456) = %+v, %v", ch, err)
	}

	if _, err := db.ResolveChat(ctx, "nonexistent"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound, got %v", err)
	}
	if _, err := db.ResolveChat(ctx, "chat999"); !errors.Is(err, ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound, got %v", err)
	}
}

func TestParseChatToken(t *testing.T) {
	if id, ok := ParseChatToken("chat42"); !ok || id != 42 {
		t.Errorf("ParseChatToken(chat42) = %d, %v", id, ok)
	}
	for _, bad := range []string{"chat", "chatx1", "42", "chat-1"} {
		if _, ok := ParseChatToken(bad); ok {
			t.Errorf("ParseChatToken(%q) should fail", bad)
		}
	}
}

func TestChatParticipants(t *testing.T) {
	db := openConversation(t)
	ctx := context.Background()

	handles, err := db.ChatParticipants(ctx, 2)
	if err != nil {
		t.Fatalf("ChatParticipants: %v", err)
	}
	if len(handles) != 2 || handles[0].ID != fixture.HandleJohn || handles[1].ID != fixture.HandleJane {
		t.Errorf("participants = %+v", handles)
	}
}

func TestFindChatsByHandleGroups(t *testing.T) {
	db := openConversation(t)
	ctx := context.Background()

	chats, err := db.FindChatsByHandleGroups(ctx, [][]string{{fixture.HandleJohn}})
	if err != nil {
		t.Fatalf("FindChatsByHandleGroups: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected both chats, got %d", len(chats))
	}
	// chat1 has messages, chat2 has none
	if chats[0].ROWID != 1 {
		t.Errorf("most recently active chat should come first, got %s", chats[0].Token())
	}

	chats, err = db.FindChatsByHandleGroups(ctx, [][]string{{fixture.HandleJohn}, {fixture.HandleJane, "+10000000000"}})
	if err != nil {
		t.Fatalf("FindChatsByHandleGroups: %v", err)
	}
	if len(chats) != 1 || chats[0].ROWID != 2 {
		t.Errorf("expected only the group chat, got %+v", chats)
	}

	chats, err = db.FindChatsByHandleGroups(ctx, [][]string{{fixture.HandleEmail}})
	if err != nil || len(chats) != 0 {
		t.Errorf("expected no chats, got %+v %v", chats, err)
	}
}

func TestFindChatsByNameAndContent(t *testing.T) {
	db := openConversation(t)
	ctx := context.Background()

	chats, err := db.FindChatsByName(ctx, "test gr", 5)
	if err != nil || len(chats) != 1 || chats[0].ROWID != 2 {
		t.Errorf("FindChatsByName = %+v, %v", chats, err)
	}
	chats, err = db.FindChatsByContent(ctx, "meeting", 5)
	if err != nil || len(chats) != 1 || chats[0].ROWID != 1 {
		t.Errorf("FindChatsByContent = %+v, %v", chats, err)
	}
	chats, err = db.FindChatsByContent(ctx, "100%", 5)
	if err != nil || len(chats) != 0 {
		t.Errorf("LIKE wildcards should be escaped, got %+v, %v", chats, err)
	}
}

func TestQueryMessagesExcludesReactions(t *testing.T) {
	db := openConversation(t)
	msgs, more, err := db.QueryMessages(context.Background(), MessageQuery{ChatID: 1, Limit: 50})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if more {
		t.Error("more should be false")
	}
	if len(msgs) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.GUID == "msg3" {
			t.Error("reaction row leaked into listing")
		}
	}
	if msgs[0].GUID != "msg8" || msgs[6].GUID != "msg1" {
		t.Errorf("expected newest first, got %s..%s", msgs[0].GUID, msgs[6].GUID)
	}
}

func TestQueryMessagesLimitAndMore(t *testing.T) {
	db := openConversation(t)
	ctx := context.Background()

	msgs, more, err := db.QueryMessages(ctx, MessageQuery{ChatID: 1, Limit: 3})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if len(msgs) != 3 || !more {
		t.Errorf("got %d messages, more=%v", len(msgs), more)
	}

	msgs, more, err = db.QueryMessages(ctx, MessageQuery{ChatID: 1, Limit: 7})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if len(msgs) != 7 || more {
		t.Errorf("exact page: got %d messages, more=%v", len(msgs), more)
	}
}

func TestQueryMessagesFilters(t *testing.T) {
	db := openConversation(t)
	ctx := context.Background()

	msgs, _, err := db.QueryMessages(ctx, MessageQuery{ChatID: 1, Contains: "hello", Limit: 10})
	if err != nil || len(msgs) != 1 || msgs[0].GUID != "msg1" {
		t.Errorf("contains: %+v %v", msgs, err)
	}

	msgs, _, err = db.QueryMessages(ctx, MessageQuery{ChatID: 1, Contains: "zzz_no_match", Limit: 10})
	if err != nil || len(msgs) != 0 {
		t.Errorf("no match: %+v %v", msgs, err)
	}

	msgs, _, err = db.QueryMessages(ctx, MessageQuery{ChatID: 1, Sender: FromMe, Limit: 10})
	if err != nil || len(msgs) != 4 {
		t.Errorf("from me: got %d, %v", len(msgs), err)
	}
	for _, m := range msgs {
		if !m.IsFromMe {
			t.Errorf("%s is not from me", m.GUID)
		}
	}

	msgs, _, err = db.QueryMessages(ctx, MessageQuery{ChatID: 1, Sender: FromHandles, Handles: []string{fixture.HandleJohn}, Limit: 10})
	if err != nil || len(msgs) != 3 {
		t.Errorf("from john: got %d, %v", len(msgs), err)
	}

	since, before := fixture.DateAsk, fixture.DateMeeting
	msgs, _, err = db.QueryMessages(ctx, MessageQuery{ChatID: 1, Since: &since, Before: &before, Limit: 10})
	if err != nil || len(msgs) != 2 {
		t.Fatalf("window: got %d, %v", len(msgs), err)
	}
	if msgs[0].GUID != "msg5" || msgs[1].GUID != "msg4" {
		t.Errorf("window: since is inclusive and before exclusive, got %s %s", msgs[0].GUID, msgs[1].GUID)
	}

	msgs, _, err = db.QueryMessages(ctx, MessageQuery{ChatID: 1, Limit: 10, Match: func(m Message, text string) bool {
		return strings.HasSuffix(text, "?")
	}})
	if err != nil || len(msgs) != 4 {
		t.Errorf("match: got %d, %v", len(msgs), err)
	}
}

func TestQueryMessagesDecodesBody(t *testing.T) {
	db := openSeeded(t, func(b *fixture.Builder) {
		h := b.Handle(fixture.HandleJohn)
		c := b.Chat("iMessage;-;+19175551234", "", h)
		b.Message(c, fixture.Message{GUID: "body1", Body: fixture.AttributedBody("Hidden in the body"), HandleID: h, Date: fixture.DateHello})
		b.Message(c, fixture.Message{GUID: "body2", Body: []byte("corrupt"), HandleID: h, Date: fixture.DateAsk})
	})

	msgs, _, err := db.QueryMessages(context.Background(), MessageQuery{ChatID: 1, Contains: "HIDDEN", Limit: 10})
	if err != nil {
		t.Fatalf("QueryMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].GUID != "body1" {
		t.Fatalf("expected body1, got %+v", msgs)
	}

	all, _, err := db.QueryMessages(context.Background(), MessageQuery{ChatID: 1, Limit: 10})
	if err != nil || len(all) != 2 {
		t.Fatalf("corrupt body should not fail the listing: %d %v", len(all), err)
	}
	if _, ok := all[0].Body(); ok {
		t.Error("corrupt body should decode to no text")
	}
}

func TestQueryMessagesKeys(t *testing.T) {
	db := openConversation(t)
	ctx := context.Background()

	target, err := db.GetMessage(ctx, 4)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	key := MessageKey{Date: target.Date, ROWID: target.ROWID}

	before, _, err := db.QueryMessages(ctx, MessageQuery{ChatID: 1, BeforeKey: &key, Limit: 10})
	if err != nil || len(before) != 2 || before[0].GUID != "msg2" {
		t.Errorf("before: %+v %v", before, err)
	}
	after, _, err := db.QueryMessages(ctx, MessageQuery{ChatID: 1, AfterKey: &key, Ascending: true, Limit: 2})
	if err != nil || len(after) != 2 || after[0].GUID != "msg5" || after[1].GUID != "msg6" {
		t.Errorf("after: %+v %v", after, err)
	}

	if _, err := db.GetMessage(ctx, 999); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestHasReplyWithin(t *testing.T) {
	db := openConversation(t)
	ctx := context.Background()

	ok, err := db.HasReplyWithin(ctx, 1, fixture.DateMeeting, fixture.DateMeeting+NanosPerDay)
	if err != nil || !ok {
		t.Errorf("meeting question should have a reply: %v %v", ok, err)
	}
	ok, err = db.HasReplyWithin(ctx, 1, fixture.DateAsk, fixture.DateAsk+NanosPerDay)
	if err != nil || ok {
		t.Errorf("help question should have no reply within a day: %v %v", ok, err)
	}
	// upper bound is inclusive
	reply := fixture.DateMeeting + 100_000_000_000
	ok, err = db.HasReplyWithin(ctx, 1, fixture.DateMeeting, reply)
	if err != nil || !ok {
		t.Errorf("reply exactly at the bound should count: %v %v", ok, err)
	}
	ok, err = db.HasReplyWithin(ctx, 1, reply, reply+1)
	if err != nil || ok {
		t.Errorf("lower bound is exclusive: %v %v", ok, err)
	}
}

func TestReactionsFor(t *testing.T) {
	db := openSeeded(t, func(b *fixture.Builder) {
		john := b.Handle(fixture.HandleJohn)
		jane := b.Handle(fixture.HandleJane)
		c := b.Chat("iMessage;+;chat456", "Test Group", john, jane)
		b.Message(c, fixture.Message{GUID: "target", Text: "Nice", FromMe: true, Date: fixture.DateHello})
		b.Message(c, fixture.Message{GUID: "r1", NullText: true, HandleID: john, Date: fixture.DateHello + 1, AssocType: 2000, AssocGUID: "p:0/target"})
		b.Message(c, fixture.Message{GUID: "r2", NullText: true, HandleID: jane, Date: fixture.DateHello + 2, AssocType: 2003, AssocGUID: "bp:target"})
		b.Message(c, fixture.Message{GUID: "r3", NullText: true, HandleID: jane, Date: fixture.DateHello + 3, AssocType: 3003, AssocGUID: "p:0/target"})
		b.Message(c, fixture.Message{GUID: "r4", NullText: true, HandleID: jane, Date: fixture.DateHello + 4, AssocType: 2001, AssocGUID: "p:0/other"})
	})

	got, err := db.ReactionsFor(context.Background(), []string{"target"})
	if err != nil {
		t.Fatalf("ReactionsFor: %v", err)
	}
	rows := got["target"]
	if len(rows) != 3 {
		t.Fatalf("expected 3 reaction rows, got %+v", got)
	}
	active := ActiveReactions(rows)
	if len(active) != 1 || active[0].Type != 2000 || active[0].SenderHandle.String != fixture.HandleJohn {
		t.Errorf("active = %+v", active)
	}

	msgs, _, err := db.QueryMessages(context.Background(), MessageQuery{ChatID: 1, Limit: 10})
	if err != nil || len(msgs) != 1 {
		t.Errorf("reaction rows should not be listed: %d %v", len(msgs), err)
	}
}

func TestListChats(t *testing.T) {
	db := openSeeded(t, fixture.Conversation, fixture.Attachments)
	ctx := context.Background()

	chats, err := db.ListChats(ctx, ChatListQuery{Limit: 10})
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(chats))
	}
	if chats[0].ROWID != 1 || chats[0].ParticipantCount != 1 || chats[1].ParticipantCount != 2 {
		t.Errorf("chats = %+v", chats)
	}

	group := true
	chats, err = db.ListChats(ctx, ChatListQuery{IsGroup: &group, Limit: 10})
	if err != nil || len(chats) != 1 || chats[0].ROWID != 2 {
		t.Errorf("group filter: %+v %v", chats, err)
	}

	chats, err = db.ListChats(ctx, ChatListQuery{Limit: 1})
	if err != nil || len(chats) != 2 {
		t.Errorf("limit probe should return limit+1 rows: %d %v", len(chats), err)
	}
}

func TestQueryAttachments(t *testing.T) {
	db := openSeeded(t, fixture.Attachments)
	ctx := context.Background()

	atts, more, err := db.QueryAttachments(ctx, AttachmentQuery{Limit: 10})
	if err != nil || more || len(atts) != 5 {
		t.Fatalf("QueryAttachments: %d %v %v", len(atts), more, err)
	}
	if atts[0].GUID != "att5" {
		t.Errorf("recent first: got %s", atts[0].GUID)
	}

	atts, _, err = db.QueryAttachments(ctx, AttachmentQuery{Sort: SortLargestFirst, Limit: 2})
	if err != nil || len(atts) != 2 || atts[0].GUID != "att2" || atts[1].GUID != "att1" {
		t.Errorf("largest first: %+v %v", atts, err)
	}

	atts, _, err = db.QueryAttachments(ctx, AttachmentQuery{MediaType: MediaImage, Limit: 10})
	if err != nil || len(atts) != 2 {
		t.Errorf("images: %d %v", len(atts), err)
	}
	for _, a := range atts {
		if a.MediaType() != MediaImage {
			t.Errorf("%s is %s", a.GUID, a.MediaType())
		}
	}

	atts, _, err = db.QueryAttachments(ctx, AttachmentQuery{MediaType: MediaDocument, Limit: 10})
	if err != nil || len(atts) != 1 || atts[0].Name() != "document.pdf" {
		t.Errorf("documents: %+v %v", atts, err)
	}

	byMsg, err := db.AttachmentsFor(ctx, []int64{1, 2})
	if err != nil || len(byMsg) != 2 || byMsg[1][0].GUID != "att1" {
		t.Errorf("AttachmentsFor: %+v %v", byMsg, err)
	}
}

func TestQueryMessagesHas(t *testing.T) {
	db := openSeeded(t, fixture.Attachments, func(b *fixture.Builder) {
		h := b.Handle(fixture.HandleJohn)
		c := b.Chat("iMessage;+;chat123", "", h)
		b.Message(c, fixture.Message{GUID: "link", Text: "see https://example.com", HandleID: h, Date: fixture.DateLink})
		heic := b.Message(c, fixture.Message{GUID: "heic", Text: "from my phone", HandleID: h, Date: fixture.DateAsk})
		b.Attachment(heic, fixture.Attachment{GUID: "att-heic", UTI: "public.heic", TransferName: "IMG_0042.HEIC"})
	})
	ctx := context.Background()

	cases := map[string]int{
		HasAttachments: 6,
		HasImages:      3,
		HasVideos:      1,
		HasAudio:       1,
		HasDocuments:   1,
		HasLinks:       1,
	}
	for has, want := range cases {
		msgs, _, err := db.QueryMessages(ctx, MessageQuery{Has: has, Limit: 20})
		if err != nil || len(msgs) != want {
			t.Errorf("has=%s: got %d, want %d (%v)", has, len(msgs), want, err)
		}
	}
	if _, _, err := db.QueryMessages(ctx, MessageQuery{Has: "gifs", Limit: 20}); err == nil {
		t.Error("unknown content filter should fail")
	}
}

func TestMediaTypeFilterMatchesDerivedType(t *testing.T) {
	rows := []fixture.Attachment{
		{GUID: "jpeg", MimeType: "image/jpeg"},
		{GUID: "heic", UTI: "public.heic"},
		{GUID: "png-uti", UTI: "public.png"},
		{GUID: "movie", UTI: "com.apple.quicktime-movie"},
		{GUID: "mp4-uti", UTI: "public.mpeg-4"},
		{GUID: "mp4-audio", UTI: "public.mpeg-4-audio"},
		{GUID: "caf", UTI: "com.apple.coreaudio-format"},
		{GUID: "upper", MimeType: "VIDEO/MP4"},
		{GUID: "pdf", UTI: "com.adobe.pdf"},
		{GUID: "mime-wins", MimeType: "application/pdf", UTI: "public.jpeg"},
		{GUID: "bare"},
	}
	db := openSeeded(t, func(b *fixture.Builder) {
		h := b.Handle(fixture.HandleJohn)
		c := b.Chat("iMessage;-;+19175551234", "", h)
		for i, a := range rows {
			msg := b.Message(c, fixture.Message{GUID: "m-" + a.GUID, Text: a.GUID, HandleID: h, Date: fixture.DateHello + int64(i)})
			b.Attachment(msg, a)
		}
	})
	ctx := context.Background()

	all, _, err := db.QueryAttachments(ctx, AttachmentQuery{Limit: 100})
	if err != nil || len(all) != len(rows) {
		t.Fatalf("QueryAttachments: %d %v", len(all), err)
	}
	want := make(map[string][]string)
	for _, a := range all {
		want[a.MediaType()] = append(want[a.MediaType()], a.GUID)
	}
	if len(want[MediaImage]) != 3 || len(want[MediaVideo]) != 3 || len(want[MediaAudio]) != 2 || len(want[MediaDocument]) != 3 {
		t.Fatalf("derived types = %v", want)
	}

	hasFor := map[string]string{MediaImage: HasImages, MediaVideo: HasVideos, MediaAudio: HasAudio, MediaDocument: HasDocuments}
	for _, class := range []string{MediaImage, MediaVideo, MediaAudio, MediaDocument} {
		atts, _, err := db.QueryAttachments(ctx, AttachmentQuery{MediaType: class, Limit: 100})
		if err != nil {
			t.Fatalf("QueryAttachments(%s): %v", class, err)
		}
		var got []string
		for _, a := range atts {
			got = append(got, a.GUID)
		}
		if strings.Join(got, ",") != strings.Join(want[class], ",") {
			t.Errorf("type=%s: got %v, want %v", class, got, want[class])
		}

		msgs, _, err := db.QueryMessages(ctx, MessageQuery{Has: hasFor[class], Limit: 100})
		if err != nil || len(msgs) != len(want[class]) {
			t.Errorf("has=%s: got %d messages, want %d (%v)", hasFor[class], len(msgs), len(want[class]), err)
		}
	}
}

func TestContainsFoldsNonASCII(t *testing.T) {
	db := openSeeded(t, func(b *fixture.Builder) {
		h := b.Handle(fixture.HandleJohn)
		c := b.Chat("iMessage;+;chat777", "Café Crew", h)
		b.Message(c, fixture.Message{GUID: "fr", Text: "ÉCOLE demain", HandleID: h, Date: fixture.DateHello})
		b.Message(c, fixture.Message{GUID: "ru", Text: "Привет, как дела", HandleID: h, Date: fixture.DateAsk})
		b.Message(c, fixture.Message{GUID: "en", Text: "plain ascii", HandleID: h, Date: fixture.DateMeeting})
	})
	ctx := context.Background()

	tests := []struct {
		needle string
		want   string
	}{
		{"école", "fr"},
		{"ÉCOLE", "fr"},
		{"привет", "ru"},
		{"PLAIN", "en"},
	}
	for _, tt := range tests {
		msgs, _, err := db.QueryMessages(ctx, MessageQuery{Contains: tt.needle, Limit: 10})
		if err != nil || len(msgs) != 1 || msgs[0].GUID != tt.want {
			t.Errorf("contains %q = %+v, %v", tt.needle, msgs, err)
		}
	}

	chats, err := db.FindChatsByName(ctx, "CAFÉ", 5)
	if err != nil || len(chats) != 1 || chats[0].DisplayName.String != "Café Crew" {
		t.Errorf("FindChatsByName(CAFÉ) = %+v, %v", chats, err)
	}
	chats, err = db.FindChatsByContent(ctx, "ПРИВЕТ", 5)
	if err != nil || len(chats) != 1 {
		t.Errorf("FindChatsByContent(ПРИВЕТ) = %+v, %v", chats, err)
	}
}

func TestFindChatsByContentDecodesBody(t *testing.T) {
	db := openSeeded(t, func(b *fixture.Builder) {
		john := b.Handle(fixture.HandleJohn)
		jane := b.Handle(fixture.HandleJane)
		first := b.Chat("iMessage;-;+19175551234", "", john)
		second := b.Chat("iMessage;-;+15625559876", "", jane)
		b.Message(first, fixture.Message{GUID: "p1", Body: fixture.AttributedBody("pizza tonight"), HandleID: john, Date: fixture.DateHello})
		b.Message(second, fixture.Message{GUID: "p2", Text: "more pizza?", HandleID: jane, Date: fixture.DateAsk})
		b.Message(second, fixture.Message{GUID: "p3", Text: "PIZZA again", HandleID: jane, Date: fixture.DateMeeting})
	})
	ctx := context.Background()

	chats, err := db.FindChatsByContent(ctx, "pizza", 5)
	if err != nil {
		t.Fatalf("FindChatsByContent: %v", err)
	}
	if len(chats) != 2 || chats[0].ROWID != 2 || chats[1].ROWID != 1 {
		t.Errorf("chats = %+v, want newest match first and body-only chat included", chats)
	}

	chats, err = db.FindChatsByContent(ctx, "pizza", 1)
	if err != nil || len(chats) != 1 || chats[0].ROWID != 2 {
		t.Errorf("limit 1 = %+v, %v", chats, err)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := map[string]string{
		"~/Library/Messages/a.jpg": filepath.Join(home, "Library", "Messages", "a.jpg"),
		"/var/tmp/b.jpg":           "/var/tmp/b.jpg",
		"~other/c.jpg":             "~other/c.jpg",
		"":                         "",
	}
	for in, want := range tests {
		if got := ExpandHome(in); got != want {
			t.Errorf("ExpandHome(%q) = %q, want %q", in, got, want)
		}
	}

	a := Attachment{Filename: sql.NullString{String: "~/Library/Messages/a.jpg", Valid: true}}
	if a.Path() != tests["~/Library/Messages/a.jpg"] {
		t.Errorf("Path() = %q", a.Path())
	}
	if (Attachment{}).Path() != "" {
		t.Error("missing filename should give an empty path")
	}
}
