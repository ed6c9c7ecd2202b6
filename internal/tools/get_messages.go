package tools

import (
	"context"
	"strings"

	"github.com/Napageneral/imessage-max/imessage"
	"github.com/Napageneral/imessage-max/internal/people"
)

const (
	defaultMessagesLimit = 50
	maxMessagesLimit     = 200

	// unanswered candidates fetched per requested result
	unansweredFactor = 3
)

// GetMessagesInput selects a chat and filters its messages.
type GetMessagesInput struct {
	ChatID           string   `json:"chat_id,omitempty" jsonschema:"chat id from find_chat (chat123) or part of the chat guid"`
	Participants     []string `json:"participants,omitempty" jsonschema:"find the chat by participants (names, phone numbers or emails) when chat_id is not known"`
	Since            string   `json:"since,omitempty" jsonschema:"lower time bound: ISO date, relative (24h, 7d, 2w), today or yesterday"`
	Before           string   `json:"before,omitempty" jsonschema:"upper time bound, same formats as since"`
	Limit            int      `json:"limit,omitempty" jsonschema:"maximum messages (default 50, max 200)"`
	FromPerson       string   `json:"from_person,omitempty" jsonschema:"only messages from this person, or me"`
	Contains         string   `json:"contains,omitempty" jsonschema:"case-insensitive text filter"`
	Has              string   `json:"has,omitempty" jsonschema:"content filter: links, attachments, images, videos, audio or documents"`
	IncludeReactions *bool    `json:"include_reactions,omitempty" jsonschema:"include reactions (default true)"`
	Unanswered       bool     `json:"unanswered,omitempty" jsonschema:"only my questions that got no reply within 24 hours"`
	Cursor           string   `json:"cursor,omitempty" jsonschema:"pagination cursor (reserved)"`
}

// GetMessagesResult is the get_messages response.
type GetMessagesResult struct {
	Chat     ChatRef           `json:"chat"`
	People   map[string]string `json:"people"`
	Messages []MessageView     `json:"messages"`
	More     bool              `json:"more"`
	Cursor   *string           `json:"cursor"`
}

// GetMessages returns messages of one chat, newest first.
func (s *Service) GetMessages(ctx context.Context, in GetMessagesInput) (*GetMessagesResult, error) {
	if strings.TrimSpace(in.ChatID) == "" && len(in.Participants) == 0 {
		return nil, validationError("either chat_id or participants must be provided")
	}
	if in.Has != "" && !imessage.ValidHas(in.Has) {
		return nil, validationError("unknown has filter %q", in.Has)
	}
	if in.Unanswered && in.FromPerson != "" && !strings.EqualFold(strings.TrimSpace(in.FromPerson), people.MeKey) {
		return nil, validationError("unanswered only applies to messages from me")
	}
	limit := clampLimit(in.Limit, defaultMessagesLimit, maxMessagesLimit)
	reactions := in.IncludeReactions == nil || *in.IncludeReactions

	var out *GetMessagesResult
	err := s.withDB(ctx, "get_messages", func(db *imessage.ChatDB) error {
		chat, err := s.resolveChat(ctx, db, in.ChatID, in.Participants)
		if err != nil {
			return err
		}
		handles, err := db.ChatParticipants(ctx, chat.ROWID)
		if err != nil {
			return err
		}
		members := s.participants(ctx, handles)

		q := imessage.MessageQuery{
			ChatID:   chat.ROWID,
			Since:    s.bound(in.Since),
			Before:   s.bound(in.Before),
			Contains: in.Contains,
			Has:      in.Has,
			Limit:    limit,
		}
		q.Sender, q.Handles = s.senderFilter(ctx, in.FromPerson, members)

		var msgs []imessage.Message
		var more bool
		if in.Unanswered {
			q.Sender, q.Handles = imessage.FromMe, nil
			q.Limit = unansweredFactor * limit
			q.Match = looksLikeQuestion
			var candidates []imessage.Message
			if candidates, _, err = db.QueryMessages(ctx, q); err != nil {
				return err
			}
			msgs, more, err = filterUnanswered(ctx, db, candidates, limit)
		} else {
			msgs, more, err = db.QueryMessages(ctx, q)
		}
		if err != nil {
			return err
		}

		b := s.newViewBuilder(db, reactions)
		b.addParticipants(members)
		views, err := b.build(ctx, msgs)
		if err != nil {
			return err
		}
		out = &GetMessagesResult{
			Chat:     ChatRef{ID: chat.Token(), Name: chatName(chat, members)},
			People:   b.people.Labels(),
			Messages: views,
			More:     more,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
