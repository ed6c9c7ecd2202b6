// Package people builds the per-response people map and chat display names.
package people

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Napageneral/imessage-max/imessage"
)

// Me is the key and label of the local user.
const (
	MeKey   = "me"
	MeLabel = "Me"
)

// Participant is a chat member with an optional resolved name.
type Participant struct {
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
}

// Label returns the name, or the formatted handle when there is none.
func (p Participant) Label() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Handle == "" {
		return "Unknown"
	}
	return imessage.FormatPhoneDisplay(p.Handle)
}

// FirstName returns the first word of the name, or the label for unnamed
// participants.
func (p Participant) FirstName() string {
	if p.Name == "" {
		return p.Label()
	}
	if f := strings.Fields(p.Name); len(f) > 0 {
		return f[0]
	}
	return p.Name
}

// maxNamed is how many participants a synthesized chat name lists.
const maxNamed = 3

// GenerateDisplayName names a chat that has no display name: the single
// participant's label, or up to three first names plus "+ N more".
// Participants keep the order given.
func GenerateDisplayName(participants []Participant) string {
	switch len(participants) {
	case 0:
		return "Unknown"
	case 1:
		return participants[0].Label()
	}
	n := min(len(participants), maxNamed)
	names := make([]string, 0, n)
	for _, p := range participants[:n] {
		names = append(names, p.FirstName())
	}
	name := strings.Join(names, ", ")
	if extra := len(participants) - n; extra > 0 {
		name += fmt.Sprintf(" + %d more", extra)
	}
	return name
}

// Map assigns short keys to the people in one response. The zero value is
// not usable; call NewMap.
type Map struct {
	labels   map[string]string
	byHandle map[string]string
	unknown  int
}

// NewMap returns a map containing only "me".
func NewMap() *Map {
	return &Map{
		labels:   map[string]string{MeKey: MeLabel},
		byHandle: make(map[string]string),
	}
}

// Add registers a participant and returns its key. Adding a handle again
// returns the key it already has.
func (m *Map) Add(p Participant) string {
	if key, ok := m.byHandle[p.Handle]; ok {
		return key
	}
	var key string
	if base := keyBase(p.Name); base != "" {
		key = base
		for i := 2; m.taken(key); i++ {
			key = fmt.Sprintf("%s%d", base, i)
		}
	} else {
		for {
			m.unknown++
			key = fmt.Sprintf("unknown%d", m.unknown)
			if !m.taken(key) {
				break
			}
		}
	}
	m.labels[key] = p.Label()
	m.byHandle[p.Handle] = key
	return key
}

// Key returns the key of a handle already added.
func (m *Map) Key(handle string) (string, bool) {
	key, ok := m.byHandle[handle]
	return key, ok
}

// Labels returns the key -> label table.
func (m *Map) Labels() map[string]string {
	return m.labels
}

func (m *Map) taken(key string) bool {
	_, ok := m.labels[key]
	return ok
}

// keyBase is the lower-cased first word of name, letters and digits only.
func keyBase(name string) string {
	f := strings.Fields(name)
	if len(f) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToLower(f[0]) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
