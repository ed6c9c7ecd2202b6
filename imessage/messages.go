package imessage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Content filters accepted by MessageQuery.Has.
const (
	HasLinks       = "links"
	HasAttachments = "attachments"
	HasImages      = "images"
	HasVideos      = "videos"
	HasAudio       = "audio"
	HasDocuments   = "documents"
)

// ValidHas reports whether v is a known content filter.
func ValidHas(v string) bool {
	switch v {
	case HasLinks, HasAttachments, HasImages, HasVideos, HasAudio, HasDocuments:
		return true
	}
	return false
}

var messageColumns = []string{
	"m.ROWID",
	"m.guid",
	"m.text",
	"m.attributedBody",
	"m.handle_id",
	"h.id",
	"COALESCE(m.date, 0)",
	"COALESCE(m.is_from_me, 0)",
	"COALESCE(m.associated_message_type, 0)",
	"COALESCE(m.cache_has_attachments, 0)",
	"cmj.chat_id",
}

// MessageKey positions a message in (date, ROWID) order.
type MessageKey struct {
	Date  int64
	ROWID int64
}

// Sender restricts messages by author.
type Sender int

const (
	AnySender Sender = iota
	FromMe
	FromHandles
)

// MessageQuery filters QueryMessages. Zero values mean "no filter".
type MessageQuery struct {
	ChatID  int64
	Since   *int64 // inclusive
	Before  *int64 // exclusive
	Sender  Sender
	Handles []string // with FromHandles
	// Contains is a case-insensitive substring of the decoded text.
	Contains string
	Has      string
	IsGroup  *bool

	// After/BeforeKey restrict to messages strictly after/before a position.
	AfterKey  *MessageKey
	BeforeKey *MessageKey

	Ascending bool
	Limit     int

	// Match is applied to each decoded candidate after the store filters.
	Match func(m Message, text string) bool
}

// QueryMessages returns non-reaction messages matching q ordered by
// (date, ROWID), newest first unless Ascending. It returns at most q.Limit
// messages and reports whether more matched.
func (c *ChatDB) QueryMessages(ctx context.Context, q MessageQuery) ([]Message, bool, error) {
	if q.Sender == FromHandles && len(q.Handles) == 0 {
		return nil, false, nil
	}

	b := sq.Select(messageColumns...).
		From("message m").
		Join("chat_message_join cmj ON cmj.message_id = m.ROWID").
		LeftJoin("handle h ON h.ROWID = m.handle_id").
		Where("COALESCE(m.associated_message_type, 0) = 0")

	if q.ChatID != 0 {
		b = b.Where(sq.Eq{"cmj.chat_id": q.ChatID})
	}
	if q.Since != nil {
		b = b.Where(sq.GtOrEq{"m.date": *q.Since})
	}
	if q.Before != nil {
		b = b.Where(sq.Lt{"m.date": *q.Before})
	}
	if k := q.AfterKey; k != nil {
		b = b.Where("(m.date > ? OR (m.date = ? AND m.ROWID > ?))", k.Date, k.Date, k.ROWID)
	}
	if k := q.BeforeKey; k != nil {
		b = b.Where("(m.date < ? OR (m.date = ? AND m.ROWID < ?))", k.Date, k.Date, k.ROWID)
	}

	switch q.Sender {
	case FromMe:
		b = b.Where("m.is_from_me = 1")
	case FromHandles:
		b = b.Where("COALESCE(m.is_from_me, 0) = 0").Where(sq.Eq{"h.id": q.Handles})
	}

	if q.Contains != "" && isASCII(q.Contains) {
		b = b.Where(sq.Or{
			sq.Expr(`m.text LIKE ? ESCAPE '\'`, likePattern(q.Contains)),
			sq.Expr("((m.text IS NULL OR m.text = '') AND m.attributedBody IS NOT NULL)"),
		})
	}
	if q.Has != "" {
		cond, err := hasCondition(q.Has)
		if err != nil {
			return nil, false, err
		}
		b = b.Where(cond)
	}
	if q.IsGroup != nil {
		if *q.IsGroup {
			b = b.Where(participantCountFor("cmj.chat_id") + " > 1")
		} else {
			b = b.Where(participantCountFor("cmj.chat_id") + " <= 1")
		}
	}

	if q.Ascending {
		b = b.OrderBy("m.date ASC", "m.ROWID ASC")
	} else {
		b = b.OrderBy("m.date DESC", "m.ROWID DESC")
	}

	// Without Go-side filtering the store can apply the probe limit itself.
	goSide := q.Contains != "" || q.Has == HasLinks || q.Match != nil
	if q.Limit > 0 && !goSide {
		b = b.Limit(uint64(q.Limit + 1))
	}

	rows, err := c.query(ctx, b)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	needle := strings.ToLower(q.Contains)
	var out []Message
	more := false
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, false, err
		}
		if goSide {
			text, _ := msg.Body()
			if needle != "" && !strings.Contains(strings.ToLower(text), needle) {
				continue
			}
			if q.Has == HasLinks && len(ExtractLinks(text)) == 0 {
				continue
			}
			if q.Match != nil && !q.Match(msg, text) {
				continue
			}
		}
		if q.Limit > 0 && len(out) == q.Limit {
			more = true
			break
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating messages: %w", err)
	}
	return out, more, nil
}

// GetMessage returns a single non-reaction message by ROWID.
func (c *ChatDB) GetMessage(ctx context.Context, rowID int64) (Message, error) {
	b := sq.Select(messageColumns...).
		From("message m").
		Join("chat_message_join cmj ON cmj.message_id = m.ROWID").
		LeftJoin("handle h ON h.ROWID = m.handle_id").
		Where(sq.Eq{"m.ROWID": rowID}).
		Limit(1)
	row, err := c.queryRow(ctx, b)
	if err != nil {
		return Message{}, err
	}
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Message{}, fmt.Errorf("%w: msg_%d", ErrMessageNotFound, rowID)
	}
	return msg, err
}

// LastMessage returns the newest non-reaction message of a chat.
func (c *ChatDB) LastMessage(ctx context.Context, chatID int64) (Message, bool, error) {
	msgs, _, err := c.QueryMessages(ctx, MessageQuery{ChatID: chatID, Limit: 1})
	if err != nil || len(msgs) == 0 {
		return Message{}, false, err
	}
	return msgs[0], true, nil
}

// HasReplyWithin reports whether someone other than me sent a non-reaction
// message in the chat with from < date <= to.
func (c *ChatDB) HasReplyWithin(ctx context.Context, chatID, from, to int64) (bool, error) {
	b := sq.Select("1").
		From("message m").
		Join("chat_message_join cmj ON cmj.message_id = m.ROWID").
		Where(sq.Eq{"cmj.chat_id": chatID}).
		Where("COALESCE(m.is_from_me, 0) = 0").
		Where("COALESCE(m.associated_message_type, 0) = 0").
		Where(sq.Gt{"m.date": from}).
		Where(sq.LtOrEq{"m.date": to}).
		Limit(1)
	row, err := c.queryRow(ctx, b)
	if err != nil {
		return false, err
	}
	var one int
	switch err := row.Scan(&one); {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to query replies: %w", err)
	}
	return true, nil
}

func scanMessage(s interface{ Scan(...any) error }) (Message, error) {
	var msg Message
	if err := s.Scan(
		&msg.ROWID,
		&msg.GUID,
		&msg.Text,
		&msg.AttributedBody,
		&msg.HandleID,
		&msg.SenderHandle,
		&msg.Date,
		&msg.IsFromMe,
		&msg.AssociatedMessageType,
		&msg.HasAttachments,
		&msg.ChatID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, err
		}
		return Message{}, fmt.Errorf("failed to scan message: %w", err)
	}
	return msg, nil
}

func participantCountFor(chatCol string) string {
	return `(SELECT COUNT(DISTINCT ph.id) FROM chat_handle_join pj
	JOIN handle ph ON ph.ROWID = pj.handle_id
	WHERE pj.chat_id = ` + chatCol + `)`
}

// mediaClassExpr classifies attachment alias a the way DeriveMediaType does:
// by MIME type when present, otherwise by UTI.
const mediaClassExpr = `CASE
	WHEN LOWER(COALESCE(a.mime_type, '')) LIKE 'image/%' THEN 'image'
	WHEN LOWER(COALESCE(a.mime_type, '')) LIKE 'video/%' THEN 'video'
	WHEN LOWER(COALESCE(a.mime_type, '')) LIKE 'audio/%' THEN 'audio'
	WHEN COALESCE(a.mime_type, '') <> '' THEN 'document'
	WHEN LOWER(COALESCE(a.uti, '')) LIKE '%image%'
		OR LOWER(COALESCE(a.uti, '')) LIKE '%.jpeg'
		OR LOWER(COALESCE(a.uti, '')) LIKE '%.png'
		OR LOWER(COALESCE(a.uti, '')) LIKE '%.heic' THEN 'image'
	WHEN LOWER(COALESCE(a.uti, '')) LIKE '%movie%'
		OR LOWER(COALESCE(a.uti, '')) LIKE '%video%'
		OR LOWER(COALESCE(a.uti, '')) LIKE '%mpeg-4' THEN 'video'
	WHEN LOWER(COALESCE(a.uti, '')) LIKE '%audio%'
		OR LOWER(COALESCE(a.uti, '')) LIKE '%.m4a'
		OR LOWER(COALESCE(a.uti, '')) LIKE '%caf%' THEN 'audio'
	ELSE 'document'
END`

// mimeClass is a SQL predicate on attachment alias a for a media class.
func mimeClass(class string) sq.Sqlizer {
	return sq.Expr("("+mediaClassExpr+") = ?", class)
}

func hasCondition(has string) (sq.Sqlizer, error) {
	attached := func(class string) sq.Sqlizer {
		q := `EXISTS (SELECT 1 FROM message_attachment_join maj
			JOIN attachment a ON a.ROWID = maj.attachment_id
			WHERE maj.message_id = m.ROWID`
		if class == "" {
			return sq.Expr(q + ")")
		}
		return sq.Expr(q+" AND ("+mediaClassExpr+") = ?)", class)
	}
	switch has {
	case HasLinks:
		return sq.Or{
			sq.Expr("m.text LIKE '%http%'"),
			sq.Expr("((m.text IS NULL OR m.text = '') AND m.attributedBody IS NOT NULL)"),
		}, nil
	case HasAttachments:
		return attached(""), nil
	case HasImages:
		return attached(MediaImage), nil
	case HasVideos:
		return attached(MediaVideo), nil
	case HasAudio:
		return attached(MediaAudio), nil
	case HasDocuments:
		return attached(MediaDocument), nil
	}
	return nil, fmt.Errorf("unknown content filter %q", has)
}
