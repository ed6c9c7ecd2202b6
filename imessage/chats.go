package imessage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
)

var chatColumns = []string{"c.ROWID", "c.guid", "c.chat_identifier", "c.display_name", "c.service_name"}

// lastDateExpr is the date of the newest non-reaction message in chat c.
const lastDateExpr = `(SELECT MAX(lm.date) FROM chat_message_join lj
	JOIN message lm ON lm.ROWID = lj.message_id
	WHERE lj.chat_id = c.ROWID AND COALESCE(lm.associated_message_type, 0) = 0)`

// participantCountExpr counts distinct participant handles of chat c.
const participantCountExpr = `(SELECT COUNT(DISTINCT ph.id) FROM chat_handle_join pj
	JOIN handle ph ON ph.ROWID = pj.handle_id
	WHERE pj.chat_id = c.ROWID)`

// ChatToken returns the wire identifier for a chat row.
func ChatToken(rowID int64) string {
	return "chat" + strconv.FormatInt(rowID, 10)
}

// ParseChatToken extracts the row id from a "chat<digits>" token.
func ParseChatToken(token string) (int64, bool) {
	rest, ok := strings.CutPrefix(token, "chat")
	if !ok || rest == "" {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func scanChat(s interface{ Scan(...any) error }, extra ...any) (Chat, error) {
	var ch Chat
	dest := append([]any{&ch.ROWID, &ch.GUID, &ch.ChatIdentifier, &ch.DisplayName, &ch.ServiceName}, extra...)
	err := s.Scan(dest...)
	return ch, err
}

func (c *ChatDB) collectChats(ctx context.Context, b sq.SelectBuilder) ([]Chat, error) {
	rows, err := c.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		ch, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}
	return chats, nil
}

// GetChat returns the chat with the given ROWID.
func (c *ChatDB) GetChat(ctx context.Context, rowID int64) (Chat, error) {
	row, err := c.queryRow(ctx, sq.Select(chatColumns...).From("chat c").Where(sq.Eq{"c.ROWID": rowID}))
	if err != nil {
		return Chat{}, err
	}
	ch, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, fmt.Errorf("%w: %s", ErrChatNotFound, ChatToken(rowID))
	}
	if err != nil {
		return Chat{}, fmt.Errorf("failed to query chat: %w", err)
	}
	return ch, nil
}

// ChatsByID returns the chats with the given ROWIDs keyed by ROWID.
// Missing rows are absent from the map.
func (c *ChatDB) ChatsByID(ctx context.Context, ids []int64) (map[int64]Chat, error) {
	out := make(map[int64]Chat, len(ids))
	for start := 0; start < len(ids); start += inChunk {
		end := min(start+inChunk, len(ids))
		chats, err := c.collectChats(ctx, sq.Select(chatColumns...).From("chat c").Where(sq.Eq{"c.ROWID": ids[start:end]}))
		if err != nil {
			return nil, err
		}
		for _, ch := range chats {
			out[ch.ROWID] = ch
		}
	}
	return out, nil
}

// FindChatByGUID returns the lowest-ROWID chat whose guid or
// chat_identifier contains fragment.
func (c *ChatDB) FindChatByGUID(ctx context.Context, fragment string) (Chat, error) {
	pattern := likePattern(fragment)
	b := sq.Select(chatColumns...).From("chat c").
		Where(sq.Or{
			sq.Expr(`c.guid LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`c.chat_identifier LIKE ? ESCAPE '\'`, pattern),
		}).
		OrderBy("c.ROWID").
		Limit(1)
	row, err := c.queryRow(ctx, b)
	if err != nil {
		return Chat{}, err
	}
	ch, err := scanChat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, fmt.Errorf("%w: %s", ErrChatNotFound, fragment)
	}
	if err != nil {
		return Chat{}, fmt.Errorf("failed to query chat: %w", err)
	}
	return ch, nil
}

// ResolveChat turns a caller token into a chat: "chat<ROWID>" first, then a
// partial match on the chat guid.
func (c *ChatDB) ResolveChat(ctx context.Context, token string) (Chat, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Chat{}, fmt.Errorf("%w: empty chat id", ErrChatNotFound)
	}
	if id, ok := ParseChatToken(token); ok {
		ch, err := c.GetChat(ctx, id)
		if err == nil || !errors.Is(err, ErrChatNotFound) {
			return ch, err
		}
	}
	return c.FindChatByGUID(ctx, token)
}

// ChatParticipants returns the distinct participant handles of a chat in
// chat_handle_join order.
func (c *ChatDB) ChatParticipants(ctx context.Context, chatID int64) ([]Handle, error) {
	m, err := c.ParticipantsFor(ctx, []int64{chatID})
	if err != nil {
		return nil, err
	}
	return m[chatID], nil
}

// ParticipantsFor returns participants for several chats keyed by chat ROWID.
func (c *ChatDB) ParticipantsFor(ctx context.Context, chatIDs []int64) (map[int64][]Handle, error) {
	out := make(map[int64][]Handle, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	b := sq.Select("chj.chat_id", "h.ROWID", "h.id", "h.service").
		From("chat_handle_join chj").
		Join("handle h ON h.ROWID = chj.handle_id").
		Where(sq.Eq{"chj.chat_id": chatIDs}).
		OrderBy("chj.chat_id", "chj.rowid")

	rows, err := c.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat participants: %w", err)
	}
	defer rows.Close()

	seen := make(map[int64]map[string]bool)
	for rows.Next() {
		var chatID int64
		var h Handle
		if err := rows.Scan(&chatID, &h.ROWID, &h.ID, &h.Service); err != nil {
			return nil, fmt.Errorf("failed to scan chat participant: %w", err)
		}
		if seen[chatID] == nil {
			seen[chatID] = make(map[string]bool)
		}
		if seen[chatID][h.ID] {
			continue
		}
		seen[chatID][h.ID] = true
		out[chatID] = append(out[chatID], h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chat participants: %w", err)
	}
	return out, nil
}

// FindChatsByHandleGroups returns every chat that contains, for each group,
// at least one of the group's handles. Most recently active chats come first.
func (c *ChatDB) FindChatsByHandleGroups(ctx context.Context, groups [][]string) ([]Chat, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	b := sq.Select(chatColumns...).From("chat c")
	for _, group := range groups {
		if len(group) == 0 {
			return nil, nil
		}
		sub := sq.Select("1").
			From("chat_handle_join gj").
			Join("handle gh ON gh.ROWID = gj.handle_id").
			Where("gj.chat_id = c.ROWID").
			Where(sq.Eq{"gh.id": group})
		subSQL, args, err := sub.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build query: %w", err)
		}
		b = b.Where(sq.Expr("EXISTS ("+subSQL+")", args...))
	}
	b = b.OrderBy("COALESCE("+lastDateExpr+", 0) DESC", "c.ROWID DESC")
	return c.collectChats(ctx, b)
}

// FindChatsByName returns chats whose display name contains fragment,
// ignoring case.
func (c *ChatDB) FindChatsByName(ctx context.Context, fragment string, limit int) ([]Chat, error) {
	b := sq.Select(chatColumns...).From("chat c").
		OrderBy("COALESCE("+lastDateExpr+", 0) DESC", "c.ROWID DESC")
	if isASCII(fragment) {
		b = b.Where(sq.Expr(`c.display_name LIKE ? ESCAPE '\'`, likePattern(fragment))).Limit(uint64(limit))
		return c.collectChats(ctx, b)
	}

	// LIKE only folds ASCII, so non-ASCII names are matched here.
	named, err := c.collectChats(ctx, b.Where("COALESCE(c.display_name, '') <> ''"))
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(fragment)
	var out []Chat
	for _, ch := range named {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(ch.DisplayName.String), needle) {
			out = append(out, ch)
		}
	}
	return out, nil
}

// FindChatsByContent returns chats with a message whose decoded text
// contains fragment, ordered by the newest matching message.
func (c *ChatDB) FindChatsByContent(ctx context.Context, fragment string, limit int) ([]Chat, error) {
	seen := make(map[int64]bool)
	var order []int64
	_, _, err := c.QueryMessages(ctx, MessageQuery{
		Contains: fragment,
		Limit:    limit,
		Match: func(m Message, _ string) bool {
			if seen[m.ChatID] {
				return false
			}
			seen[m.ChatID] = true
			order = append(order, m.ChatID)
			return true
		},
	})
	if err != nil {
		return nil, err
	}
	if len(order) > limit {
		order = order[:limit]
	}
	byID, err := c.ChatsByID(ctx, order)
	if err != nil {
		return nil, err
	}
	out := make([]Chat, 0, len(order))
	for _, id := range order {
		if ch, ok := byID[id]; ok {
			out = append(out, ch)
		}
	}
	return out, nil
}

// ChatListQuery filters ListChats.
type ChatListQuery struct {
	Since           *int64 // only chats active at or after this store time
	IsGroup         *bool
	MinParticipants int
	MaxParticipants int
	Limit           int
}

// ListChats returns chats with activity ordered by their newest message.
// Up to Limit+1 rows are returned so callers can detect a further page.
func (c *ChatDB) ListChats(ctx context.Context, q ChatListQuery) ([]ChatSummary, error) {
	inner := sq.Select("c.ROWID AS chat_rowid", "c.guid", "c.chat_identifier", "c.display_name", "c.service_name").
		Column(lastDateExpr + " AS last_date").
		Column(participantCountExpr + " AS participant_count").
		From("chat c")

	b := sq.Select("s.chat_rowid", "s.guid", "s.chat_identifier", "s.display_name", "s.service_name",
		"s.last_date", "s.participant_count").
		FromSelect(inner, "s").
		Where("s.last_date IS NOT NULL")
	if q.Since != nil {
		b = b.Where(sq.GtOrEq{"s.last_date": *q.Since})
	}
	if q.IsGroup != nil {
		if *q.IsGroup {
			b = b.Where(sq.Gt{"s.participant_count": 1})
		} else {
			b = b.Where(sq.LtOrEq{"s.participant_count": 1})
		}
	}
	if q.MinParticipants > 0 {
		b = b.Where(sq.GtOrEq{"s.participant_count": q.MinParticipants})
	}
	if q.MaxParticipants > 0 {
		b = b.Where(sq.LtOrEq{"s.participant_count": q.MaxParticipants})
	}
	b = b.OrderBy("s.last_date DESC", "s.chat_rowid DESC")
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit + 1))
	}

	rows, err := c.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var out []ChatSummary
	for rows.Next() {
		var s ChatSummary
		ch, err := scanChat(rows, &s.LastDate, &s.ParticipantCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		s.Chat = ch
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}
	return out, nil
}

// isASCII reports whether s has only ASCII runes, the only ones SQLite LIKE
// compares without case.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// likePattern wraps s for a LIKE substring match with '\' as escape.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
