package tools

import (
	"context"
	"strings"

	"github.com/Napageneral/imessage-max/imessage"
	"github.com/Napageneral/imessage-max/internal/enrich"
	"github.com/Napageneral/imessage-max/internal/people"
)

// ChatRef identifies a chat in responses.
type ChatRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AttachmentSummary is the short attachment form embedded in messages.
type AttachmentSummary struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// MessageView is one message on the wire.
type MessageView struct {
	ID          string              `json:"id"`
	TS          *string             `json:"ts"`
	Text        *string             `json:"text"`
	From        string              `json:"from,omitempty"`
	Reactions   []string            `json:"reactions,omitempty"`
	Links       []string            `json:"links,omitempty"`
	Previews    []*enrich.Result    `json:"link_previews,omitempty"`
	Attachments []AttachmentSummary `json:"attachments,omitempty"`
}

// viewBuilder turns message rows into views, registering every sender and
// reactor in the response's people map.
type viewBuilder struct {
	s         *Service
	db        *imessage.ChatDB
	people    *people.Map
	reactions bool
}

func (s *Service) newViewBuilder(db *imessage.ChatDB, reactions bool) *viewBuilder {
	return &viewBuilder{s: s, db: db, people: people.NewMap(), reactions: reactions}
}

// addParticipants registers chat members in join order.
func (b *viewBuilder) addParticipants(ps []people.Participant) {
	for _, p := range ps {
		b.people.Add(p)
	}
}

func (b *viewBuilder) key(ctx context.Context, fromMe bool, handle string) string {
	if fromMe {
		return people.MeKey
	}
	if handle == "" {
		return ""
	}
	if k, ok := b.people.Key(handle); ok {
		return k
	}
	return b.people.Add(b.s.participant(ctx, handle))
}

func (b *viewBuilder) senderKey(ctx context.Context, m imessage.Message) string {
	return b.key(ctx, m.IsFromMe, m.SenderHandle.String)
}

func (b *viewBuilder) build(ctx context.Context, msgs []imessage.Message) ([]MessageView, error) {
	views := make([]MessageView, 0, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}

	var reactions map[string][]imessage.Reaction
	if b.reactions {
		guids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			guids = append(guids, m.GUID)
		}
		var err error
		if reactions, err = b.db.ReactionsFor(ctx, guids); err != nil {
			return nil, err
		}
	}

	var withAtts []int64
	for _, m := range msgs {
		if m.HasAttachments {
			withAtts = append(withAtts, m.ROWID)
		}
	}
	atts, err := b.db.AttachmentsFor(ctx, withAtts)
	if err != nil {
		return nil, err
	}

	for _, m := range msgs {
		v := MessageView{
			ID:   MessageID(m.ROWID),
			TS:   b.s.timestamp(m.Date),
			From: b.senderKey(ctx, m),
		}
		if text, ok := m.Body(); ok {
			v.Text = &text
			v.Links = imessage.ExtractLinks(text)
		}
		for _, link := range v.Links {
			if res, ok := b.s.media.Process(ctx, "link", enrich.Reference{URL: link}); ok {
				v.Previews = append(v.Previews, res)
			}
		}
		for _, r := range imessage.ActiveReactions(reactions[m.GUID]) {
			kind, _ := imessage.LookupReaction(r.Type)
			who := b.key(ctx, r.IsFromMe, r.SenderHandle.String)
			if who == "" {
				who = b.people.Add(people.Participant{})
			}
			v.Reactions = append(v.Reactions, kind.Emoji+" "+who)
		}
		for _, a := range atts[m.ROWID] {
			v.Attachments = append(v.Attachments, AttachmentSummary{Type: a.MediaType(), Name: a.Name()})
		}
		views = append(views, v)
	}
	return views, nil
}

// truncate shortens s to n runes.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
