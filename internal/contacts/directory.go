// Package contacts resolves message handles to people's names using
// pluggable contact directories.
package contacts

import (
	"context"
	"maps"
)

// Directory is a source of handle -> name mappings.
//
// BuildLookup may fail benignly (no permission, empty directory); the
// resolver treats any error as "no names available".
type Directory interface {
	IsAvailable() bool
	BuildLookup(ctx context.Context) (map[string]string, error)
}

// Static is an in-memory directory.
type Static map[string]string

// IsAvailable reports whether the map has entries.
func (s Static) IsAvailable() bool { return len(s) > 0 }

// BuildLookup returns a copy of the map.
func (s Static) BuildLookup(context.Context) (map[string]string, error) {
	return maps.Clone(s), nil
}

// Chain merges directories; for a handle present in several, the earliest
// directory wins. Unavailable or failing members are skipped.
type Chain []Directory

// IsAvailable reports whether any member is available.
func (c Chain) IsAvailable() bool {
	for _, d := range c {
		if d != nil && d.IsAvailable() {
			return true
		}
	}
	return false
}

// BuildLookup merges the members' lookups.
func (c Chain) BuildLookup(ctx context.Context) (map[string]string, error) {
	out := make(map[string]string)
	var firstErr error
	ok := false
	for _, d := range c {
		if d == nil || !d.IsAvailable() {
			continue
		}
		lookup, err := d.BuildLookup(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ok = true
		for handle, name := range lookup {
			if _, exists := out[handle]; !exists {
				out[handle] = name
			}
		}
	}
	if !ok && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
