package imessage

import (
	"database/sql"
	"regexp"
	"strings"
	"unicode"
)

// ExtractText returns the text of a message. The text column is returned
// unchanged when present; otherwise the attributedBody blob is decoded.
// Attachment-only messages legitimately have no text.
func ExtractText(text sql.NullString, attributedBody []byte) (string, bool) {
	if text.Valid && text.String != "" {
		return text.String, true
	}
	if len(attributedBody) == 0 {
		return "", false
	}
	return DecodeAttributedBody(attributedBody)
}

// CleanMessageContent strips control and placeholder characters from decoded text.
func CleanMessageContent(content string) string {
	if content == "" {
		return ""
	}

	// Keep printable chars plus whitespace
	var b strings.Builder
	b.Grow(len(content))
	for _, r := range content {
		if unicode.IsPrint(r) || r == ' ' || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	cleaned = strings.ReplaceAll(cleaned, "\uFFFC", "") // object replacement char
	cleaned = strings.ReplaceAll(cleaned, "\uFFFD", "") // replacement char

	return strings.TrimSpace(cleaned)
}

var linkPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// ExtractLinks returns the http(s) URLs in text, in order, without duplicates.
func ExtractLinks(text string) []string {
	if text == "" {
		return nil
	}
	var links []string
	seen := make(map[string]bool)
	for _, m := range linkPattern.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:!?)]}")
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		links = append(links, m)
	}
	return links
}

// requestPhrases mark a message as expecting a reply when it ends with one.
var requestPhrases = []string{
	"let me know",
	"lmk",
	"thoughts",
	"what do you think",
	"wdyt",
	"please advise",
	"get back to me",
	"your call",
	"any ideas",
}

// LooksLikeQuestion reports whether text probably expects a reply: it
// contains a question mark or ends with a request phrase. Best-effort only.
func LooksLikeQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, ".! ")
	if t == "" {
		return false
	}
	for _, p := range requestPhrases {
		if strings.HasSuffix(t, p) {
			return true
		}
	}
	return false
}

// Media classes returned by DeriveMediaType.
const (
	MediaImage    = "image"
	MediaVideo    = "video"
	MediaAudio    = "audio"
	MediaDocument = "document"
)

// DeriveMediaType determines the media class from mime_type, falling back to the UTI
func DeriveMediaType(mimeType, uti string) string {
	mimeType = strings.ToLower(mimeType)
	uti = strings.ToLower(uti)

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaImage
	case strings.HasPrefix(mimeType, "video/"):
		return MediaVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return MediaAudio
	case mimeType != "":
		return MediaDocument
	}

	switch {
	case strings.Contains(uti, "image") || strings.HasSuffix(uti, ".jpeg") || strings.HasSuffix(uti, ".png") || strings.HasSuffix(uti, ".heic"):
		return MediaImage
	case strings.Contains(uti, "movie") || strings.Contains(uti, "video") || strings.HasSuffix(uti, "mpeg-4"):
		return MediaVideo
	case strings.Contains(uti, "audio") || strings.HasSuffix(uti, ".m4a") || strings.Contains(uti, "caf"):
		return MediaAudio
	}
	return MediaDocument
}
