package tools

import (
	"context"
	"strings"

	"github.com/Napageneral/imessage-max/imessage"
	"github.com/Napageneral/imessage-max/internal/people"
)

const (
	defaultFindLimit = 5
	maxFindLimit     = 50

	previewRunes = 50
)

// FindChatInput describes what to look for. At least one of Participants,
// Name or ContainsRecent is required.
type FindChatInput struct {
	Participants   []string `json:"participants,omitempty" jsonschema:"people in the chat: names, phone numbers or emails"`
	Name           string   `json:"name,omitempty" jsonschema:"part of the group chat name"`
	ContainsRecent string   `json:"contains_recent,omitempty" jsonschema:"text that appears in a recent message"`
	IsGroup        *bool    `json:"is_group,omitempty" jsonschema:"only group chats (true) or only direct chats (false)"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum chats (default 5, max 50)"`
}

// LastMessage previews the newest message of a chat.
type LastMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	Ago  string `json:"ago"`
}

// FoundChat is one find_chat result.
type FoundChat struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Participants []people.Participant `json:"participants"`
	Group        bool                 `json:"group,omitempty"`
	Last         *LastMessage         `json:"last,omitempty"`
	Match        string               `json:"match"`
}

// FindChatResult is the find_chat response.
type FindChatResult struct {
	Chats  []FoundChat `json:"chats"`
	More   bool        `json:"more"`
	Cursor *string     `json:"cursor"`
}

// FindChat locates chats by participants, then by name, then by recent
// content. Later strategies run only when earlier ones found nothing.
func (s *Service) FindChat(ctx context.Context, in FindChatInput) (*FindChatResult, error) {
	if len(in.Participants) == 0 && strings.TrimSpace(in.Name) == "" && strings.TrimSpace(in.ContainsRecent) == "" {
		return nil, validationError("at least one of participants, name or contains_recent must be provided")
	}
	limit := clampLimit(in.Limit, defaultFindLimit, maxFindLimit)

	var out *FindChatResult
	err := s.withDB(ctx, "find_chat", func(db *imessage.ChatDB) error {
		chats, match, err := s.findCandidates(ctx, db, in, limit)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(chats))
		seen := make(map[int64]bool)
		var unique []imessage.Chat
		for _, ch := range chats {
			if !seen[ch.ROWID] {
				seen[ch.ROWID] = true
				unique = append(unique, ch)
				ids = append(ids, ch.ROWID)
			}
		}
		members, err := db.ParticipantsFor(ctx, ids)
		if err != nil {
			return err
		}

		out = &FindChatResult{Chats: []FoundChat{}}
		for _, ch := range unique {
			group := len(members[ch.ROWID]) > 1
			if in.IsGroup != nil && *in.IsGroup != group {
				continue
			}
			if len(out.Chats) == limit {
				out.More = true
				break
			}
			ps := s.participants(ctx, members[ch.ROWID])
			fc := FoundChat{
				ID:           ch.Token(),
				Name:         chatName(ch, ps),
				Participants: labelled(ps),
				Group:        group,
				Match:        match,
			}
			if fc.Last, err = s.lastMessage(ctx, db, ch.ROWID); err != nil {
				return err
			}
			out.Chats = append(out.Chats, fc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) findCandidates(ctx context.Context, db *imessage.ChatDB, in FindChatInput, limit int) ([]imessage.Chat, string, error) {
	// the is_group filter runs after the store query, so over-fetch
	probe := limit + 1
	if in.IsGroup != nil {
		probe = maxFindLimit * 4
	}

	if len(in.Participants) > 0 {
		groups := make([][]string, 0, len(in.Participants))
		resolved := true
		for _, p := range in.Participants {
			hs := s.personHandles(ctx, p)
			if len(hs) == 0 {
				resolved = false
				break
			}
			groups = append(groups, hs)
		}
		if resolved {
			chats, err := db.FindChatsByHandleGroups(ctx, groups)
			if err != nil {
				return nil, "", err
			}
			if len(chats) > 0 {
				return chats, "participants", nil
			}
		}
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		chats, err := db.FindChatsByName(ctx, name, probe)
		if err != nil {
			return nil, "", err
		}
		if len(chats) > 0 {
			return chats, "name", nil
		}
	}

	if text := strings.TrimSpace(in.ContainsRecent); text != "" {
		chats, err := db.FindChatsByContent(ctx, text, probe)
		if err != nil {
			return nil, "", err
		}
		if len(chats) > 0 {
			return chats, "content", nil
		}
	}
	return nil, "", nil
}

// lastMessage previews the newest message of a chat, nil for empty chats.
func (s *Service) lastMessage(ctx context.Context, db *imessage.ChatDB, chatID int64) (*LastMessage, error) {
	m, ok, err := db.LastMessage(ctx, chatID)
	if err != nil || !ok {
		return nil, err
	}
	last := &LastMessage{Ago: s.ago(m.Date)}
	switch {
	case m.IsFromMe:
		last.From = people.MeKey
	case m.SenderHandle.Valid && m.SenderHandle.String != "":
		last.From = s.participant(ctx, m.SenderHandle.String).Label()
	default:
		last.From = "unknown"
	}
	if text, ok := m.Body(); ok {
		last.Text = truncate(text, previewRunes)
	}
	return last, nil
}

// labelled fills unnamed participants with their formatted handle.
func labelled(ps []people.Participant) []people.Participant {
	out := make([]people.Participant, len(ps))
	for i, p := range ps {
		out[i] = people.Participant{Handle: p.Handle, Name: p.Label()}
	}
	return out
}
