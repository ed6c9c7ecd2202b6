package imessage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

var attachmentColumns = []string{
	"a.ROWID",
	"COALESCE(a.guid, '')",
	"a.filename",
	"a.mime_type",
	"a.uti",
	"a.total_bytes",
	"a.transfer_name",
	"m.ROWID",
	"COALESCE(m.date, 0)",
	"COALESCE(m.is_from_me, 0)",
	"h.id",
	"cmj.chat_id",
}

func attachmentsBase() sq.SelectBuilder {
	return sq.Select(attachmentColumns...).
		From("attachment a").
		Join("message_attachment_join maj ON maj.attachment_id = a.ROWID").
		Join("message m ON m.ROWID = maj.message_id").
		Join("chat_message_join cmj ON cmj.message_id = m.ROWID").
		LeftJoin("handle h ON h.ROWID = m.handle_id")
}

// Attachment sort orders.
const (
	SortRecentFirst  = "recent_first"
	SortOldestFirst  = "oldest_first"
	SortLargestFirst = "largest_first"
)

// AttachmentQuery filters QueryAttachments.
type AttachmentQuery struct {
	ChatID    int64
	Sender    Sender
	Handles   []string
	MediaType string // image, video, audio, document
	Since     *int64
	Before    *int64
	Sort      string
	Limit     int
}

// QueryAttachments lists attachments with their message context, returning
// at most q.Limit rows and whether more matched.
func (c *ChatDB) QueryAttachments(ctx context.Context, q AttachmentQuery) ([]Attachment, bool, error) {
	if q.Sender == FromHandles && len(q.Handles) == 0 {
		return nil, false, nil
	}
	b := attachmentsBase()
	if q.ChatID != 0 {
		b = b.Where(sq.Eq{"cmj.chat_id": q.ChatID})
	}
	switch q.Sender {
	case FromMe:
		b = b.Where("m.is_from_me = 1")
	case FromHandles:
		b = b.Where("COALESCE(m.is_from_me, 0) = 0").Where(sq.Eq{"h.id": q.Handles})
	}
	if q.MediaType != "" {
		b = b.Where(mimeClass(q.MediaType))
	}
	if q.Since != nil {
		b = b.Where(sq.GtOrEq{"m.date": *q.Since})
	}
	if q.Before != nil {
		b = b.Where(sq.Lt{"m.date": *q.Before})
	}
	switch q.Sort {
	case SortOldestFirst:
		b = b.OrderBy("m.date ASC", "a.ROWID ASC")
	case SortLargestFirst:
		b = b.OrderBy("COALESCE(a.total_bytes, 0) DESC", "a.ROWID DESC")
	default:
		b = b.OrderBy("m.date DESC", "a.ROWID DESC")
	}
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit + 1))
	}

	atts, err := c.collectAttachments(ctx, b)
	if err != nil {
		return nil, false, err
	}
	more := false
	if q.Limit > 0 && len(atts) > q.Limit {
		atts, more = atts[:q.Limit], true
	}
	return atts, more, nil
}

// AttachmentsFor returns the attachments of the given messages keyed by
// message ROWID, in attachment order.
func (c *ChatDB) AttachmentsFor(ctx context.Context, messageIDs []int64) (map[int64][]Attachment, error) {
	out := make(map[int64][]Attachment)
	for start := 0; start < len(messageIDs); start += inChunk {
		end := min(start+inChunk, len(messageIDs))
		b := attachmentsBase().
			Where(sq.Eq{"m.ROWID": messageIDs[start:end]}).
			OrderBy("m.ROWID", "a.ROWID")
		atts, err := c.collectAttachments(ctx, b)
		if err != nil {
			return nil, err
		}
		for _, a := range atts {
			out[a.MessageID] = append(out[a.MessageID], a)
		}
	}
	return out, nil
}

func (c *ChatDB) collectAttachments(ctx context.Context, b sq.SelectBuilder) ([]Attachment, error) {
	rows, err := c.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to query attachments: %w", err)
	}
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var att Attachment
		if err := rows.Scan(
			&att.ROWID,
			&att.GUID,
			&att.Filename,
			&att.MimeType,
			&att.UTI,
			&att.TotalBytes,
			&att.TransferName,
			&att.MessageID,
			&att.MessageDate,
			&att.IsFromMe,
			&att.SenderHandle,
			&att.ChatID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		out = append(out, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}
	return out, nil
}
