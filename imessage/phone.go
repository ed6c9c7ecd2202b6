package imessage

import (
	"strings"
)

// digitsOf returns only the ASCII digits of s.
func digitsOf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhoneE164 normalizes phone numbers to E.164-ish format.
// - 10 digits -> +1XXXXXXXXXX
// - 11 digits starting with 1 -> +1XXXXXXXXXX
// - already has + -> + and digits
// - longer numbers get a + prefix
func NormalizePhoneE164(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	digits := digitsOf(s)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(s, "+") {
		return "+" + digits
	}
	if len(digits) == 10 {
		return "+1" + digits
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		return "+" + digits
	}
	if len(digits) > 10 {
		return "+" + digits
	}
	return digits
}

// NormalizeHandle converts a caller-supplied phone number or email into the
// canonical handle form used by chat.db. It reports false when raw does not
// look like a handle at all (for example a person's name).
func NormalizeHandle(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if strings.Contains(s, "@") {
		return strings.ToLower(s), true
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-(). ", r) {
			return "", false
		}
	}
	if len(digitsOf(s)) < 7 {
		return "", false
	}
	return NormalizePhoneE164(s), true
}

// FormatPhoneDisplay renders a handle for humans: +1XXXXXXXXXX becomes
// (XXX) XXX-XXXX; anything else is returned unchanged.
func FormatPhoneDisplay(handle string) string {
	if len(handle) == 12 && strings.HasPrefix(handle, "+1") && digitsOf(handle) == handle[1:] {
		d := handle[2:]
		return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
	}
	return handle
}
