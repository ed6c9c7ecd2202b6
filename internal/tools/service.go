// Package tools implements the query operations exposed over MCP and the CLI.
// Each operation opens its own read-only connection to chat.db, assembles a
// compact response and closes the connection before returning.
package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Napageneral/imessage-max/imessage"
	"github.com/Napageneral/imessage-max/internal/contacts"
	"github.com/Napageneral/imessage-max/internal/enrich"
	"github.com/Napageneral/imessage-max/internal/people"
	"github.com/Napageneral/imessage-max/internal/timeparse"
)

// Options configures a Service.
type Options struct {
	DBPath   string
	Resolver *contacts.Resolver
	Logger   *zap.Logger
	Location *time.Location
	Now      func() time.Time
	Media    *enrich.Set
}

// Service runs operations against one chat.db path.
type Service struct {
	dbPath   string
	resolver *contacts.Resolver
	logger   *zap.Logger
	loc      *time.Location
	now      func() time.Time
	media    enrich.Set
}

// NewService fills in defaults for anything opts leaves unset.
func NewService(opts Options) *Service {
	s := &Service{
		dbPath:   opts.DBPath,
		resolver: opts.Resolver,
		logger:   opts.Logger,
		loc:      opts.Location,
		now:      opts.Now,
		media:    enrich.Defaults(),
	}
	if s.dbPath == "" {
		s.dbPath = imessage.DefaultChatDBPath()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.resolver == nil {
		s.resolver = contacts.NewResolver(nil, s.logger)
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Media != nil {
		s.media = *opts.Media
	}
	if s.media.Logger == nil {
		s.media.Logger = s.logger
	}
	return s
}

// DBPath returns the chat.db path the service reads.
func (s *Service) DBPath() string { return s.dbPath }

// Resolver returns the contact resolver shared by all operations.
func (s *Service) Resolver() *contacts.Resolver { return s.resolver }

// withDB opens chat.db, runs fn and closes the connection. Panics and
// unexpected errors come back as typed errors.
func (s *Service) withDB(ctx context.Context, op string, fn func(db *imessage.ChatDB) error) (err error) {
	log := s.logger.With(zap.String("op", op), zap.String("request_id", uuid.NewString()))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("operation panicked", zap.Any("panic", r))
			err = &Error{Kind: KindInternal, Message: fmt.Sprintf("internal error: %v", r)}
		}
		if err != nil {
			te := AsError(err)
			log.Debug("operation failed", zap.String("kind", string(te.Kind)), zap.Error(err))
			err = te
			return
		}
		log.Debug("operation done", zap.Duration("took", time.Since(start)))
	}()

	db, err := imessage.OpenChatDB(s.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func clampLimit(v, def, ceiling int) int {
	switch {
	case v <= 0:
		return def
	case v > ceiling:
		return ceiling
	}
	return v
}

// bound converts a caller time expression to a store timestamp. Empty or
// unparsable input means no bound.
func (s *Service) bound(expr string) *int64 {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	t, ok := timeparse.Parse(expr, s.now().In(s.loc))
	if !ok {
		return nil
	}
	v := imessage.FromTime(t)
	return &v
}

// timestamp renders a store date as RFC 3339, nil for zero dates.
func (s *Service) timestamp(date int64) *string {
	if date == 0 {
		return nil
	}
	ts := imessage.ToTime(date).In(s.loc).Format(time.RFC3339)
	return &ts
}

func (s *Service) ago(date int64) string {
	if date == 0 {
		return ""
	}
	return timeparse.CompactRelative(imessage.ToTime(date), s.now().In(s.loc))
}

// participant resolves a handle to a people entry.
func (s *Service) participant(ctx context.Context, handle string) people.Participant {
	name, _ := s.resolver.Resolve(ctx, handle)
	return people.Participant{Handle: handle, Name: name}
}

func (s *Service) participants(ctx context.Context, handles []imessage.Handle) []people.Participant {
	out := make([]people.Participant, 0, len(handles))
	for _, h := range handles {
		out = append(out, s.participant(ctx, h.ID))
	}
	return out
}

// chatName is the display name of a chat, or one synthesized from its
// participants.
func chatName(ch imessage.Chat, ps []people.Participant) string {
	if ch.DisplayName.Valid && strings.TrimSpace(ch.DisplayName.String) != "" {
		return ch.DisplayName.String
	}
	return people.GenerateDisplayName(ps)
}

// personHandles turns a caller person reference into candidate handles: the
// normalized handle itself, or the handles of contacts whose name matches.
func (s *Service) personHandles(ctx context.Context, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if h, ok := imessage.NormalizeHandle(value); ok {
		if h != value && (strings.HasPrefix(value, "+") || strings.Contains(value, "@")) {
			return []string{h, value}
		}
		return []string{h}
	}
	var out []string
	seen := make(map[string]bool)
	for _, m := range s.resolver.SearchByName(ctx, value) {
		if !seen[m.Handle] {
			seen[m.Handle] = true
			out = append(out, m.Handle)
		}
	}
	return out
}

// senderFilter maps from_person to a sender restriction. known are the
// participants of the chat in scope, matched by name before the directory is
// consulted.
func (s *Service) senderFilter(ctx context.Context, fromPerson string, known []people.Participant) (imessage.Sender, []string) {
	fromPerson = strings.TrimSpace(fromPerson)
	if fromPerson == "" {
		return imessage.AnySender, nil
	}
	if strings.EqualFold(fromPerson, people.MeKey) {
		return imessage.FromMe, nil
	}
	needle := strings.ToLower(fromPerson)
	var handles []string
	for _, p := range known {
		if p.Name != "" && strings.Contains(strings.ToLower(p.Name), needle) {
			handles = append(handles, p.Handle)
		}
	}
	if len(handles) == 0 {
		handles = s.personHandles(ctx, fromPerson)
	}
	return imessage.FromHandles, handles
}

// resolveChat finds the chat for a chat_id token or, failing that, the most
// recently active chat containing every participant.
func (s *Service) resolveChat(ctx context.Context, db *imessage.ChatDB, chatID string, participants []string) (imessage.Chat, error) {
	if strings.TrimSpace(chatID) != "" {
		return db.ResolveChat(ctx, chatID)
	}
	groups := make([][]string, 0, len(participants))
	for _, p := range participants {
		hs := s.personHandles(ctx, p)
		if len(hs) == 0 {
			return imessage.Chat{}, fmt.Errorf("%w: no handle for %q", imessage.ErrChatNotFound, p)
		}
		groups = append(groups, hs)
	}
	chats, err := db.FindChatsByHandleGroups(ctx, groups)
	if err != nil {
		return imessage.Chat{}, err
	}
	if len(chats) == 0 {
		return imessage.Chat{}, fmt.Errorf("%w: no chat with %s", imessage.ErrChatNotFound, strings.Join(participants, ", "))
	}
	return chats[0], nil
}

// MessageID formats a message ROWID for the wire.
func MessageID(rowID int64) string {
	return "msg_" + strconv.FormatInt(rowID, 10)
}

// ParseMessageID accepts "msg_123" or "123".
func ParseMessageID(id string) (int64, bool) {
	id = strings.TrimPrefix(strings.TrimSpace(id), "msg_")
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// filterUnanswered keeps candidates that look like questions and got no
// reply from anyone else within a day, up to limit.
func filterUnanswered(ctx context.Context, db *imessage.ChatDB, candidates []imessage.Message, limit int) ([]imessage.Message, bool, error) {
	var kept []imessage.Message
	for _, m := range candidates {
		replied, err := db.HasReplyWithin(ctx, m.ChatID, m.Date, m.Date+imessage.NanosPerDay)
		if err != nil {
			return nil, false, err
		}
		if replied {
			continue
		}
		if len(kept) == limit {
			return kept, true, nil
		}
		kept = append(kept, m)
	}
	return kept, false, nil
}

func looksLikeQuestion(_ imessage.Message, text string) bool {
	return imessage.LooksLikeQuestion(text)
}
