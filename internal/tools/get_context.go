package tools

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Napageneral/imessage-max/imessage"
)

const (
	defaultContextSide = 5
	maxContextSide     = 50
)

// GetContextInput names a target message, by id or by chat and text.
type GetContextInput struct {
	MessageID string `json:"message_id,omitempty" jsonschema:"message id (msg_123)"`
	ChatID    string `json:"chat_id,omitempty" jsonschema:"chat to search when message_id is not known"`
	Contains  string `json:"contains,omitempty" jsonschema:"text of the target message, used with chat_id"`
	Before    int    `json:"before,omitempty" jsonschema:"messages before the target (default 5, max 50)"`
	After     int    `json:"after,omitempty" jsonschema:"messages after the target (default 5, max 50)"`
}

// GetContextResult is the get_context response. Before and After are in
// chronological order.
type GetContextResult struct {
	Chat   ChatRef           `json:"chat"`
	People map[string]string `json:"people"`
	Target MessageView       `json:"target"`
	Before []MessageView     `json:"before"`
	After  []MessageView     `json:"after"`
	More   bool              `json:"more"`
	Cursor *string           `json:"cursor"`
}

// GetContext returns the messages around a target message.
func (s *Service) GetContext(ctx context.Context, in GetContextInput) (*GetContextResult, error) {
	var msgID int64
	if strings.TrimSpace(in.MessageID) != "" {
		id, ok := ParseMessageID(in.MessageID)
		if !ok {
			return nil, validationError("invalid message_id %q", in.MessageID)
		}
		msgID = id
	} else if strings.TrimSpace(in.ChatID) == "" || strings.TrimSpace(in.Contains) == "" {
		return nil, validationError("either message_id or chat_id with contains must be provided")
	}
	before := clampLimit(in.Before, defaultContextSide, maxContextSide)
	after := clampLimit(in.After, defaultContextSide, maxContextSide)

	var out *GetContextResult
	err := s.withDB(ctx, "get_context", func(db *imessage.ChatDB) error {
		target, err := s.contextTarget(ctx, db, msgID, in)
		if err != nil {
			return err
		}
		key := imessage.MessageKey{Date: target.Date, ROWID: target.ROWID}

		older, moreBefore, err := db.QueryMessages(ctx, imessage.MessageQuery{
			ChatID:    target.ChatID,
			BeforeKey: &key,
			Limit:     before,
		})
		if err != nil {
			return err
		}
		slices.Reverse(older)
		newer, moreAfter, err := db.QueryMessages(ctx, imessage.MessageQuery{
			ChatID:    target.ChatID,
			AfterKey:  &key,
			Ascending: true,
			Limit:     after,
		})
		if err != nil {
			return err
		}

		chat, err := db.GetChat(ctx, target.ChatID)
		if err != nil {
			return err
		}
		handles, err := db.ChatParticipants(ctx, chat.ROWID)
		if err != nil {
			return err
		}
		members := s.participants(ctx, handles)

		b := s.newViewBuilder(db, true)
		b.addParticipants(members)
		all := make([]imessage.Message, 0, len(older)+1+len(newer))
		all = append(all, older...)
		all = append(all, target)
		all = append(all, newer...)
		views, err := b.build(ctx, all)
		if err != nil {
			return err
		}

		out = &GetContextResult{
			Chat:   ChatRef{ID: chat.Token(), Name: chatName(chat, members)},
			People: b.people.Labels(),
			Target: views[len(older)],
			Before: views[:len(older)],
			After:  views[len(older)+1:],
			More:   moreBefore || moreAfter,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) contextTarget(ctx context.Context, db *imessage.ChatDB, msgID int64, in GetContextInput) (imessage.Message, error) {
	if msgID != 0 {
		m, err := db.GetMessage(ctx, msgID)
		if err != nil {
			return imessage.Message{}, err
		}
		if m.AssociatedMessageType != 0 {
			return imessage.Message{}, fmt.Errorf("%w: %s is a reaction", imessage.ErrMessageNotFound, MessageID(msgID))
		}
		return m, nil
	}
	chat, err := db.ResolveChat(ctx, in.ChatID)
	if err != nil {
		return imessage.Message{}, err
	}
	msgs, _, err := db.QueryMessages(ctx, imessage.MessageQuery{
		ChatID:   chat.ROWID,
		Contains: strings.TrimSpace(in.Contains),
		Limit:    1,
	})
	if err != nil {
		return imessage.Message{}, err
	}
	if len(msgs) == 0 {
		return imessage.Message{}, fmt.Errorf("%w: no message containing %q in %s", imessage.ErrMessageNotFound, in.Contains, chat.Token())
	}
	return msgs[0], nil
}
