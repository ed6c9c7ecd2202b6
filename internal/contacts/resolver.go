package contacts

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Napageneral/imessage-max/imessage"
)

// Match is a person found by name.
type Match struct {
	Handle string `json:"handle"`
	Name   string `json:"name"`
	Score  int    `json:"-"`
}

// Stats describes the resolver state.
type Stats struct {
	Initialized bool `json:"initialized"`
	Available   bool `json:"available"`
	HandleCount int  `json:"handle_count"`
}

// Resolver maps handles to names. The lookup is built once, on first use,
// and kept for the life of the process. A Resolver is safe for concurrent use.
type Resolver struct {
	dir    Directory
	logger *zap.Logger

	group singleflight.Group

	mu          sync.RWMutex
	initialized bool
	available   bool
	lookup      map[string]string // raw, normalized and lower-cased keys
	people      []Match           // one entry per normalized handle
}

// NewResolver returns a resolver over dir. A nil dir resolves nothing.
func NewResolver(dir Directory, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Initialize builds the lookup if it has not been built yet and reports
// whether any names are available. Failures are logged and leave the lookup
// empty; they are not retried.
func (r *Resolver) Initialize(ctx context.Context) bool {
	r.mu.RLock()
	if r.initialized {
		ok := r.available
		r.mu.RUnlock()
		return ok
	}
	r.mu.RUnlock()

	v, _, _ := r.group.Do("init", func() (any, error) {
		r.mu.RLock()
		done, ok := r.initialized, r.available
		r.mu.RUnlock()
		if done {
			return ok, nil
		}
		lookup := r.build(ctx)
		r.install(lookup)
		return len(lookup) > 0, nil
	})
	return v.(bool)
}

func (r *Resolver) build(ctx context.Context) map[string]string {
	if r.dir == nil || !r.dir.IsAvailable() {
		r.logger.Debug("contact directory unavailable")
		return nil
	}
	lookup, err := r.dir.BuildLookup(ctx)
	if err != nil {
		r.logger.Warn("contact lookup failed", zap.Error(err))
		return nil
	}
	r.logger.Debug("contact lookup built", zap.Int("handles", len(lookup)))
	return lookup
}

func (r *Resolver) install(raw map[string]string) {
	lookup := make(map[string]string, len(raw)*2)
	byHandle := make(map[string]string, len(raw))
	for handle, name := range raw {
		if name == "" {
			continue
		}
		lookup[handle] = name
		if norm, ok := imessage.NormalizeHandle(handle); ok {
			if _, exists := lookup[norm]; !exists {
				lookup[norm] = name
			}
			if _, exists := byHandle[norm]; !exists {
				byHandle[norm] = name
			}
		}
		lower := strings.ToLower(handle)
		if _, exists := lookup[lower]; !exists {
			lookup[lower] = name
		}
	}
	people := make([]Match, 0, len(byHandle))
	for handle, name := range byHandle {
		people = append(people, Match{Handle: handle, Name: name})
	}
	slices.SortFunc(people, func(a, b Match) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Handle, b.Handle))
	})

	r.mu.Lock()
	r.lookup = lookup
	r.people = people
	r.available = len(lookup) > 0
	r.initialized = true
	r.mu.Unlock()
}

// Resolve returns the name for handle: exact key first, then the normalized
// handle, then the lower-cased handle.
func (r *Resolver) Resolve(ctx context.Context, handle string) (string, bool) {
	if handle == "" || !r.Initialize(ctx) {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.lookup[handle]; ok {
		return name, true
	}
	if norm, ok := imessage.NormalizeHandle(handle); ok {
		if name, ok := r.lookup[norm]; ok {
			return name, true
		}
	}
	if strings.Contains(handle, "@") {
		if name, ok := r.lookup[strings.ToLower(strings.TrimSpace(handle))]; ok {
			return name, true
		}
	}
	return "", false
}

// DisplayName returns the resolved name or the formatted handle.
func (r *Resolver) DisplayName(ctx context.Context, handle string) string {
	if name, ok := r.Resolve(ctx, handle); ok {
		return name
	}
	return imessage.FormatPhoneDisplay(handle)
}

type matchSource []Match

func (s matchSource) String(i int) string { return strings.ToLower(s[i].Name) }
func (s matchSource) Len() int            { return len(s) }

// SearchByName finds people whose name contains fragment (case-insensitive).
// Exact names come first, then the rest by name. When nothing contains the
// fragment, fuzzy subsequence matches are returned best first.
func (r *Resolver) SearchByName(ctx context.Context, fragment string) []Match {
	q := strings.ToLower(strings.TrimSpace(fragment))
	if q == "" || !r.Initialize(ctx) {
		return nil
	}
	r.mu.RLock()
	people := r.people
	r.mu.RUnlock()

	var exact, partial []Match
	for _, p := range people {
		name := strings.ToLower(p.Name)
		switch {
		case name == q:
			exact = append(exact, p)
		case strings.Contains(name, q):
			partial = append(partial, p)
		}
	}
	if len(exact)+len(partial) > 0 {
		return append(exact, partial...)
	}

	var out []Match
	for _, res := range fuzzy.FindFrom(q, matchSource(people)) {
		m := people[res.Index]
		m.Score = res.Score
		out = append(out, m)
	}
	return out
}

// Stats reports whether the lookup was built and how many handles it holds.
func (r *Resolver) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{
		Initialized: r.initialized,
		Available:   r.available,
		HandleCount: len(r.people),
	}
}
