package tools

import (
	"context"
	"strconv"
	"strings"

	"github.com/Napageneral/imessage-max/imessage"
	"github.com/Napageneral/imessage-max/internal/enrich"
	"github.com/Napageneral/imessage-max/internal/people"
)

const (
	defaultAttachmentsLimit = 20
	maxAttachmentsLimit     = 100
)

// GetAttachmentsInput filters get_attachments.
type GetAttachmentsInput struct {
	ChatID     string `json:"chat_id,omitempty" jsonschema:"limit to one chat id"`
	FromPerson string `json:"from_person,omitempty" jsonschema:"only attachments sent by this person, or me"`
	Type       string `json:"type,omitempty" jsonschema:"image, video, audio or document"`
	Since      string `json:"since,omitempty" jsonschema:"lower time bound: ISO date, relative (24h, 7d, 2w), today or yesterday"`
	Before     string `json:"before,omitempty" jsonschema:"upper time bound, same formats as since"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum attachments (default 20, max 100)"`
	Sort       string `json:"sort,omitempty" jsonschema:"recent_first (default), oldest_first or largest_first"`
}

// AttachmentView is one get_attachments entry.
type AttachmentView struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Mime    string         `json:"mime,omitempty"`
	Name    string         `json:"name,omitempty"`
	Size    int64          `json:"size"`
	TS      *string        `json:"ts"`
	From    string         `json:"from,omitempty"`
	Chat    string         `json:"chat"`
	Msg     string         `json:"msg"`
	Preview *enrich.Result `json:"preview,omitempty"`
}

// GetAttachmentsResult is the get_attachments response.
type GetAttachmentsResult struct {
	People      map[string]string `json:"people"`
	Attachments []AttachmentView  `json:"attachments"`
	More        bool              `json:"more"`
	Cursor      *string           `json:"cursor"`
}

// mediaTypeArg maps caller type names, singular or plural, to media classes.
func mediaTypeArg(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return "", true
	case "image", "images", "photo", "photos":
		return imessage.MediaImage, true
	case "video", "videos":
		return imessage.MediaVideo, true
	case "audio":
		return imessage.MediaAudio, true
	case "document", "documents", "file", "files":
		return imessage.MediaDocument, true
	}
	return "", false
}

// GetAttachments lists attachments with their message context.
func (s *Service) GetAttachments(ctx context.Context, in GetAttachmentsInput) (*GetAttachmentsResult, error) {
	mediaType, ok := mediaTypeArg(in.Type)
	if !ok {
		return nil, validationError("unknown attachment type %q", in.Type)
	}
	switch in.Sort {
	case "", imessage.SortRecentFirst, imessage.SortOldestFirst, imessage.SortLargestFirst:
	default:
		return nil, validationError("unknown sort %q", in.Sort)
	}
	limit := clampLimit(in.Limit, defaultAttachmentsLimit, maxAttachmentsLimit)

	var out *GetAttachmentsResult
	err := s.withDB(ctx, "get_attachments", func(db *imessage.ChatDB) error {
		q := imessage.AttachmentQuery{
			MediaType: mediaType,
			Since:     s.bound(in.Since),
			Before:    s.bound(in.Before),
			Sort:      in.Sort,
			Limit:     limit,
		}
		b := s.newViewBuilder(db, false)
		var known []people.Participant
		if strings.TrimSpace(in.ChatID) != "" {
			chat, err := db.ResolveChat(ctx, in.ChatID)
			if err != nil {
				return err
			}
			q.ChatID = chat.ROWID
			handles, err := db.ChatParticipants(ctx, chat.ROWID)
			if err != nil {
				return err
			}
			known = s.participants(ctx, handles)
			b.addParticipants(known)
		}
		q.Sender, q.Handles = s.senderFilter(ctx, in.FromPerson, known)

		atts, more, err := db.QueryAttachments(ctx, q)
		if err != nil {
			return err
		}
		out = &GetAttachmentsResult{Attachments: make([]AttachmentView, 0, len(atts)), More: more}
		for _, a := range atts {
			v := AttachmentView{
				ID:   "att" + strconv.FormatInt(a.ROWID, 10),
				Type: a.MediaType(),
				Mime: a.MimeType.String,
				Name: a.Name(),
				Size: a.TotalBytes.Int64,
				TS:   s.timestamp(a.MessageDate),
				From: b.key(ctx, a.IsFromMe, a.SenderHandle.String),
				Chat: imessage.ChatToken(a.ChatID),
				Msg:  MessageID(a.MessageID),
			}
			if res, ok := s.media.Process(ctx, v.Type, enrich.Reference{Path: a.Path(), MimeType: v.Mime}); ok {
				v.Preview = res
			}
			out.Attachments = append(out.Attachments, v)
		}
		out.People = b.people.Labels()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
