// Package fixture builds Messages-compatible chat.db and AddressBook files
// with known contents, for the demo command and for tests.
package fixture

import (
	"database/sql"
	"encoding/binary"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Napageneral/imessage-max/internal/migrate"
)

// Builder inserts rows into a fixture chat.db. The first error is kept and
// later calls become no-ops; check it with Err or Close.
type Builder struct {
	db  *sql.DB
	err error
}

// Create migrates a fresh chat.db at path and opens it for seeding.
func Create(path string) (*Builder, error) {
	if _, err := migrate.MigrateChatDB(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fixture: %w", err)
	}
	return &Builder{db: db}, nil
}

// Err returns the first error encountered while seeding.
func (b *Builder) Err() error { return b.err }

// Close closes the database and returns the first seeding error, if any.
func (b *Builder) Close() error {
	cerr := b.db.Close()
	if b.err != nil {
		return b.err
	}
	return cerr
}

func (b *Builder) exec(query string, args ...any) int64 {
	if b.err != nil {
		return 0
	}
	res, err := b.db.Exec(query, args...)
	if err != nil {
		b.err = fmt.Errorf("fixture: %w", err)
		return 0
	}
	id, err := res.LastInsertId()
	if err != nil {
		b.err = fmt.Errorf("fixture: %w", err)
	}
	return id
}

func (b *Builder) lookup(query string, args ...any) (int64, bool) {
	if b.err != nil {
		return 0, false
	}
	var id int64
	err := b.db.QueryRow(query, args...).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false
	}
	if err != nil {
		b.err = fmt.Errorf("fixture: %w", err)
		return 0, false
	}
	return id, true
}

// Handle inserts a handle (or returns the existing one) and returns its ROWID.
func (b *Builder) Handle(id string) int64 {
	if rowID, ok := b.lookup("SELECT ROWID FROM handle WHERE id = ?", id); ok {
		return rowID
	}
	return b.exec("INSERT INTO handle (id, service) VALUES (?, 'iMessage')", id)
}

// Chat inserts a chat with the given participants, in join order. An empty
// displayName is stored as NULL.
func (b *Builder) Chat(guid, displayName string, handleIDs ...int64) int64 {
	if rowID, ok := b.lookup("SELECT ROWID FROM chat WHERE guid = ?", guid); ok {
		return rowID
	}
	var name sql.NullString
	if displayName != "" {
		name = sql.NullString{String: displayName, Valid: true}
	}
	identifier := guid
	if i := lastSemicolon(guid); i >= 0 {
		identifier = guid[i+1:]
	}
	chatID := b.exec(
		"INSERT INTO chat (guid, chat_identifier, display_name, service_name, style) VALUES (?, ?, ?, 'iMessage', ?)",
		guid, identifier, name, styleFor(len(handleIDs)),
	)
	for _, h := range handleIDs {
		b.exec("INSERT INTO chat_handle_join (chat_id, handle_id) VALUES (?, ?)", chatID, h)
	}
	return chatID
}

// Message describes a message row. Text is stored as NULL when NullText is
// set or when Text is empty and Body is present.
type Message struct {
	GUID      string
	Text      string
	NullText  bool
	Body      []byte
	HandleID  int64
	Date      int64
	FromMe    bool
	AssocType int
	AssocGUID string
}

// Message inserts a message into a chat and returns its ROWID.
func (b *Builder) Message(chatID int64, m Message) int64 {
	var text sql.NullString
	if !m.NullText && (m.Text != "" || m.Body == nil) {
		text = sql.NullString{String: m.Text, Valid: true}
	}
	var handle sql.NullInt64
	if m.HandleID != 0 {
		handle = sql.NullInt64{Int64: m.HandleID, Valid: true}
	}
	var assoc sql.NullString
	if m.AssocGUID != "" {
		assoc = sql.NullString{String: m.AssocGUID, Valid: true}
	}
	msgID := b.exec(`INSERT INTO message
		(guid, text, attributedBody, handle_id, date, is_from_me, associated_message_type, associated_message_guid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.GUID, text, m.Body, handle, m.Date, m.FromMe, m.AssocType, assoc,
	)
	b.exec("INSERT INTO chat_message_join (chat_id, message_id, message_date) VALUES (?, ?, ?)", chatID, msgID, m.Date)
	return msgID
}

// Attachment describes an attachment row.
type Attachment struct {
	GUID         string
	Filename     string
	MimeType     string
	UTI          string
	TotalBytes   int64
	TransferName string
}

// Attachment links a new attachment to a message and returns its ROWID.
func (b *Builder) Attachment(messageID int64, a Attachment) int64 {
	attID := b.exec(`INSERT INTO attachment (guid, filename, mime_type, uti, total_bytes, transfer_name)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.GUID, a.Filename, nullable(a.MimeType), nullable(a.UTI), a.TotalBytes, nullable(a.TransferName),
	)
	b.exec("INSERT INTO message_attachment_join (message_id, attachment_id) VALUES (?, ?)", messageID, attID)
	b.exec("UPDATE message SET cache_has_attachments = 1 WHERE ROWID = ?", messageID)
	return attID
}

// AttributedBody encodes text the way Messages archives an
// NSAttributedString, enough for the attributedBody decoder.
func AttributedBody(text string) []byte {
	out := []byte("\x04\x0bstreamtyped\x81\xe8\x03\x84\x01@\x84\x84\x84\x19NSMutableAttributedString\x00" +
		"\x84\x84\x12NSAttributedString\x00\x84\x84\x08NSObject\x00\x85\x92\x84\x84\x84\x08NSString\x01\x94\x84\x01+")
	n := len(text)
	switch {
	case n < 0x80:
		out = append(out, byte(n))
	case n <= 0xffff:
		out = append(out, 0x81)
		out = binary.LittleEndian.AppendUint16(out, uint16(n))
	default:
		out = append(out, 0x82)
		out = binary.LittleEndian.AppendUint32(out, uint32(n))
	}
	out = append(out, text...)
	out = append(out, []byte("\x86\x84\x02iI\x01\x0b\x92\x84\x84\x84\x0cNSDictionary\x00\x94\x84\x01i\x01\x92\x84\x96\x96\x1d__kIMMessagePartAttributeName\x86\x92\x84\x84\x84\x08NSNumber\x00\x84\x84\x07NSValue\x00\x94\x84\x01*\x84\x99\x99\x00\x86\x86\x86")...)
	return out
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func styleFor(participants int) int {
	if participants > 1 {
		return 43
	}
	return 45
}

func lastSemicolon(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == ';' {
			return i
		}
	}
	return -1
}
