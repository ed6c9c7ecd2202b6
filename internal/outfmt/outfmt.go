// Package outfmt prints command results as JSON, optionally through a jq
// filter.
package outfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"golang.org/x/term"
)

// Printer writes values as JSON. Output is indented for terminals and
// compact otherwise.
type Printer struct {
	W      io.Writer
	Filter string
	Indent bool
}

// New returns a Printer for w applying the jq expression filter.
func New(w io.Writer, filter string) *Printer {
	return &Printer{W: w, Filter: filter, Indent: isTerminal(w)}
}

// Print encodes v, after filtering when a filter is set.
func (p *Printer) Print(v any) error {
	if p.Filter != "" {
		data, err := toPlain(v)
		if err != nil {
			return err
		}
		if v, err = Apply(data, p.Filter); err != nil {
			return err
		}
	}
	encoder := json.NewEncoder(p.W)
	encoder.SetEscapeHTML(false)
	if p.Indent {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Apply runs a jq expression over plain JSON data (maps, slices, strings,
// float64, bool, nil). A single result is returned as is; several results
// come back as a slice.
func Apply(data any, expression string) (any, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return data, nil
	}
	query, err := gojq.Parse(strings.ReplaceAll(expression, `\!`, `!`))
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}

	iter := query.Run(data)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("filter error: %w", err)
		}
		results = append(results, v)
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return results, nil
}

// toPlain round-trips v through JSON so gojq sees only plain types.
func toPlain(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return data, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
