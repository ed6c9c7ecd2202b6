// Package imessage provides read-only access to Apple's iMessage chat.db:
// row types, query helpers, payload decoding and time conversion.
package imessage

import (
	"database/sql"
)

// ChatDB provides read-only access to Apple's chat.db
type ChatDB struct {
	db   *sql.DB
	path string
}

// Handle represents a contact handle from chat.db
type Handle struct {
	ROWID   int64
	ID      string // phone number or email
	Service sql.NullString
}

// Chat represents a chat from chat.db
type Chat struct {
	ROWID          int64
	GUID           string
	ChatIdentifier sql.NullString
	DisplayName    sql.NullString
	ServiceName    sql.NullString
}

// Token returns the wire identifier for the chat ("chat" + ROWID).
func (c Chat) Token() string {
	return ChatToken(c.ROWID)
}

// ChatSummary is a chat with its last activity, as listed by ListChats.
type ChatSummary struct {
	Chat
	LastDate         int64
	ParticipantCount int
}

// Message represents a non-reaction message from chat.db
type Message struct {
	ROWID                 int64
	GUID                  string
	Text                  sql.NullString
	AttributedBody        []byte
	HandleID              sql.NullInt64
	SenderHandle          sql.NullString
	Date                  int64 // Apple timestamp (nanoseconds since 2001-01-01)
	IsFromMe              bool
	AssociatedMessageType int
	HasAttachments        bool
	ChatID                int64
}

// Body returns the decoded text of the message.
func (m Message) Body() (string, bool) {
	return ExtractText(m.Text, m.AttributedBody)
}

// Attachment represents an attachment from chat.db
type Attachment struct {
	ROWID        int64
	GUID         string
	Filename     sql.NullString
	MimeType     sql.NullString
	UTI          sql.NullString
	TotalBytes   sql.NullInt64
	TransferName sql.NullString
	MessageID    int64
	MessageDate  int64
	IsFromMe     bool
	SenderHandle sql.NullString
	ChatID       int64
}

// Path returns the attachment's file path with "~/" expanded, or "" when
// the row has no filename.
func (a Attachment) Path() string {
	if !a.Filename.Valid {
		return ""
	}
	return ExpandHome(a.Filename.String)
}

// Name returns the user-facing file name of the attachment.
func (a Attachment) Name() string {
	if a.TransferName.Valid && a.TransferName.String != "" {
		return a.TransferName.String
	}
	if a.Filename.Valid {
		name := a.Filename.String
		for i := len(name) - 1; i >= 0; i-- {
			if name[i] == '/' {
				return name[i+1:]
			}
		}
		return name
	}
	return ""
}

// MediaType returns the attachment's media class (image, video, audio, document).
func (a Attachment) MediaType() string {
	return DeriveMediaType(a.MimeType.String, a.UTI.String)
}

// Reaction represents a reaction row targeting another message
type Reaction struct {
	ROWID        int64
	TargetGUID   string // associated_message_guid with the p:N/ or bp: prefix removed
	Type         int
	HandleID     sql.NullInt64
	SenderHandle sql.NullString
	IsFromMe     bool
	Date         int64
}

// ReactionKind describes a tapback type code.
type ReactionKind struct {
	Name    string
	Emoji   string
	Removed bool
}

var reactionKinds = map[int]ReactionKind{
	2000: {Name: "love", Emoji: "❤️"},
	2001: {Name: "like", Emoji: "👍"},
	2002: {Name: "dislike", Emoji: "👎"},
	2003: {Name: "laugh", Emoji: "😂"},
	2004: {Name: "emphasize", Emoji: "‼️"},
	2005: {Name: "question", Emoji: "❓"},
}

// LookupReaction maps an associated_message_type to its kind.
// Codes 3000-3005 are removals of the matching 2000-2005 kind.
func LookupReaction(code int) (ReactionKind, bool) {
	if k, ok := reactionKinds[code]; ok {
		return k, true
	}
	if k, ok := reactionKinds[code-1000]; ok && code >= 3000 {
		k.Removed = true
		return k, true
	}
	return ReactionKind{}, false
}

// ReactionTypeToEmoji converts iMessage reaction type to emoji.
// Removed and unknown codes return "".
func ReactionTypeToEmoji(code int) string {
	k, ok := LookupReaction(code)
	if !ok || k.Removed {
		return ""
	}
	return k.Emoji
}
