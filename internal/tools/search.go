package tools

import (
	"context"
	"strings"

	"github.com/Napageneral/imessage-max/imessage"
	"github.com/Napageneral/imessage-max/internal/people"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// SearchInput filters messages across all chats. At least one of Query,
// FromPerson, Has or Unanswered is required.
type SearchInput struct {
	Query      string `json:"query,omitempty" jsonschema:"case-insensitive text to find"`
	FromPerson string `json:"from_person,omitempty" jsonschema:"only messages from this person, or me"`
	InChat     string `json:"in_chat,omitempty" jsonschema:"limit to one chat id"`
	IsGroup    *bool  `json:"is_group,omitempty" jsonschema:"only group chats (true) or only direct chats (false)"`
	Has        string `json:"has,omitempty" jsonschema:"content filter: links, attachments, images, videos, audio or documents"`
	Since      string `json:"since,omitempty" jsonschema:"lower time bound: ISO date, relative (24h, 7d, 2w), today or yesterday"`
	Before     string `json:"before,omitempty" jsonschema:"upper time bound, same formats as since"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum results (default 20, max 100)"`
	Sort       string `json:"sort,omitempty" jsonschema:"recent_first (default) or oldest_first"`
	Unanswered bool   `json:"unanswered,omitempty" jsonschema:"only my questions that got no reply within 24 hours"`
}

// SearchHit is one matching message with its chat.
type SearchHit struct {
	MessageView
	Chat     string `json:"chat"`
	ChatName string `json:"chat_name"`
}

// SearchResult is the search response.
type SearchResult struct {
	People  map[string]string `json:"people"`
	Results []SearchHit       `json:"results"`
	More    bool              `json:"more"`
	Cursor  *string           `json:"cursor"`
}

// Search finds messages across chats.
func (s *Service) Search(ctx context.Context, in SearchInput) (*SearchResult, error) {
	if strings.TrimSpace(in.Query) == "" && strings.TrimSpace(in.FromPerson) == "" && in.Has == "" && !in.Unanswered {
		return nil, validationError("at least one of query, from_person, has or unanswered must be provided")
	}
	if in.Has != "" && !imessage.ValidHas(in.Has) {
		return nil, validationError("unknown has filter %q", in.Has)
	}
	switch in.Sort {
	case "", imessage.SortRecentFirst, imessage.SortOldestFirst:
	default:
		return nil, validationError("unknown sort %q", in.Sort)
	}
	if in.Unanswered && in.FromPerson != "" && !strings.EqualFold(strings.TrimSpace(in.FromPerson), people.MeKey) {
		return nil, validationError("unanswered only applies to messages from me")
	}
	limit := clampLimit(in.Limit, defaultSearchLimit, maxSearchLimit)

	var out *SearchResult
	err := s.withDB(ctx, "search", func(db *imessage.ChatDB) error {
		q := imessage.MessageQuery{
			Since:     s.bound(in.Since),
			Before:    s.bound(in.Before),
			Contains:  strings.TrimSpace(in.Query),
			Has:       in.Has,
			IsGroup:   in.IsGroup,
			Ascending: in.Sort == imessage.SortOldestFirst,
			Limit:     limit,
		}

		var known []people.Participant
		if strings.TrimSpace(in.InChat) != "" {
			chat, err := db.ResolveChat(ctx, in.InChat)
			if err != nil {
				return err
			}
			q.ChatID = chat.ROWID
			handles, err := db.ChatParticipants(ctx, chat.ROWID)
			if err != nil {
				return err
			}
			known = s.participants(ctx, handles)
		}
		q.Sender, q.Handles = s.senderFilter(ctx, in.FromPerson, known)

		var msgs []imessage.Message
		var more bool
		var err error
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

		b := s.newViewBuilder(db, false)
		views, err := b.build(ctx, msgs)
		if err != nil {
			return err
		}
		names, err := s.chatNames(ctx, db, msgs)
		if err != nil {
			return err
		}

		out = &SearchResult{People: b.people.Labels(), Results: make([]SearchHit, 0, len(views)), More: more}
		for i, v := range views {
			id := msgs[i].ChatID
			out.Results = append(out.Results, SearchHit{
				MessageView: v,
				Chat:        imessage.ChatToken(id),
				ChatName:    names[id],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// chatNames names every chat the messages belong to.
func (s *Service) chatNames(ctx context.Context, db *imessage.ChatDB, msgs []imessage.Message) (map[int64]string, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, m := range msgs {
		if !seen[m.ChatID] {
			seen[m.ChatID] = true
			ids = append(ids, m.ChatID)
		}
	}
	chats, err := db.ChatsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	members, err := db.ParticipantsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(ids))
	for _, id := range ids {
		names[id] = chatName(chats[id], s.participants(ctx, members[id]))
	}
	return names, nil
}
