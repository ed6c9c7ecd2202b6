package imessage

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

// attributedBody blobs are NSArchiver typedstreams holding an
// NSAttributedString. The plain text lives in the first NSString object:
//
//	... "NSString" 0x01 0x94 0x84 0x01 '+' <length> <utf-8 bytes> ...
//
// where <length> is a single byte below 0x80, or 0x81 followed by a
// little-endian uint16, or 0x82 followed by a little-endian uint32.

var (
	typedStreamHeader = []byte("streamtyped")
	nsStringClass     = []byte("NSString")
	nsMutableClass    = []byte("NSMutableString")
)

const (
	lenUint16 = 0x81
	lenUint32 = 0x82

	// how far past the class name the '+' marker may appear
	markerWindow = 16
)

// DecodeAttributedBody extracts the plain text of an attributedBody blob.
// Unrecognized or truncated input yields ("", false); it never panics.
func DecodeAttributedBody(body []byte) (string, bool) {
	if len(body) < len(typedStreamHeader) {
		return "", false
	}
	head := body
	if len(head) > 32 {
		head = head[:32]
	}
	if !bytes.Contains(head, typedStreamHeader) {
		return "", false
	}

	start := classEnd(body)
	if start < 0 {
		return "", false
	}

	window := body[start:]
	if len(window) > markerWindow {
		window = window[:markerWindow]
	}
	plus := bytes.IndexByte(window, '+')
	if plus < 0 {
		return "", false
	}
	pos := start + plus + 1

	n, width, ok := readLength(body[pos:])
	if !ok {
		return "", false
	}
	pos += width
	if n <= 0 || n > len(body)-pos {
		return "", false
	}

	raw := body[pos : pos+n]
	if !utf8.Valid(raw) {
		return "", false
	}
	text := CleanMessageContent(string(raw))
	if text == "" {
		return "", false
	}
	return text, true
}

// classEnd returns the offset just past the first string class name.
func classEnd(body []byte) int {
	if i := bytes.Index(body, nsMutableClass); i >= 0 {
		if j := bytes.Index(body, nsStringClass); j < 0 || i < j {
			return i + len(nsMutableClass)
		}
	}
	if j := bytes.Index(body, nsStringClass); j >= 0 {
		return j + len(nsStringClass)
	}
	return -1
}

func readLength(b []byte) (n, width int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	switch b[0] {
	case lenUint16:
		if len(b) < 3 {
			return 0, 0, false
		}
		return int(binary.LittleEndian.Uint16(b[1:3])), 3, true
	case lenUint32:
		if len(b) < 5 {
			return 0, 0, false
		}
		v := binary.LittleEndian.Uint32(b[1:5])
		if v > 1<<30 {
			return 0, 0, false
		}
		return int(v), 5, true
	default:
		if b[0] >= 0x80 {
			return 0, 0, false
		}
		return int(b[0]), 1, true
	}
}
