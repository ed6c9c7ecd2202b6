package tools

import (
	"context"

	"github.com/Napageneral/imessage-max/imessage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// ListChatsInput filters list_chats.
type ListChatsInput struct {
	Limit           int    `json:"limit,omitempty" jsonschema:"maximum chats (default 20, max 100)"`
	Since           string `json:"since,omitempty" jsonschema:"only chats active since: ISO date, relative (24h, 7d) or yesterday"`
	IsGroup         *bool  `json:"is_group,omitempty" jsonschema:"only group chats (true) or only direct chats (false)"`
	MinParticipants int    `json:"min_participants,omitempty" jsonschema:"minimum participant count"`
	MaxParticipants int    `json:"max_participants,omitempty" jsonschema:"maximum participant count"`
}

// ListedChat is one list_chats entry.
type ListedChat struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Participants int          `json:"participants"`
	Group        bool         `json:"group,omitempty"`
	Last         *LastMessage `json:"last,omitempty"`
}

// ListChatsResult is the list_chats response.
type ListChatsResult struct {
	Chats  []ListedChat `json:"chats"`
	More   bool         `json:"more"`
	Cursor *string      `json:"cursor"`
}

// ListChats returns recently active chats, newest activity first.
func (s *Service) ListChats(ctx context.Context, in ListChatsInput) (*ListChatsResult, error) {
	if in.MinParticipants < 0 || in.MaxParticipants < 0 {
		return nil, validationError("participant bounds must not be negative")
	}
	if in.MaxParticipants > 0 && in.MinParticipants > in.MaxParticipants {
		return nil, validationError("min_participants %d exceeds max_participants %d", in.MinParticipants, in.MaxParticipants)
	}
	limit := clampLimit(in.Limit, defaultListLimit, maxListLimit)

	var out *ListChatsResult
	err := s.withDB(ctx, "list_chats", func(db *imessage.ChatDB) error {
		summaries, err := db.ListChats(ctx, imessage.ChatListQuery{
			Since:           s.bound(in.Since),
			IsGroup:         in.IsGroup,
			MinParticipants: in.MinParticipants,
			MaxParticipants: in.MaxParticipants,
			Limit:           limit,
		})
		if err != nil {
			return err
		}
		out = &ListChatsResult{Chats: []ListedChat{}}
		if len(summaries) > limit {
			summaries, out.More = summaries[:limit], true
		}

		ids := make([]int64, len(summaries))
		for i, cs := range summaries {
			ids[i] = cs.ROWID
		}
		members, err := db.ParticipantsFor(ctx, ids)
		if err != nil {
			return err
		}
		for _, cs := range summaries {
			lc := ListedChat{
				ID:           cs.Token(),
				Name:         chatName(cs.Chat, s.participants(ctx, members[cs.ROWID])),
				Participants: cs.ParticipantCount,
				Group:        cs.ParticipantCount > 1,
			}
			if lc.Last, err = s.lastMessage(ctx, db, cs.ROWID); err != nil {
				return err
			}
			out.Chats = append(out.Chats, lc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
