// Package enrich defines the media enrichment hooks used when listing
// attachments. The default processors do nothing.
package enrich

import (
	"context"

	"go.uber.org/zap"
)

// Reference points at a piece of media.
type Reference struct {
	Path     string
	MimeType string
	URL      string
}

// Result is what a processor learned about the media.
type Result struct {
	Kind    string         `json:"kind"`
	Summary string         `json:"summary,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Processor enriches one kind of media. It returns false on any failure.
type Processor interface {
	Process(ctx context.Context, ref Reference) (*Result, bool)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, ref Reference) (*Result, bool)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, ref Reference) (*Result, bool) {
	return f(ctx, ref)
}

// Nop never produces a result.
type Nop struct{}

// Process always reports false.
func (Nop) Process(context.Context, Reference) (*Result, bool) { return nil, false }

// Set holds a processor per media kind. Nil members act as Nop.
type Set struct {
	Image Processor
	Video Processor
	Audio Processor
	Link  Processor

	Logger *zap.Logger
}

// Defaults returns a Set of no-op processors.
func Defaults() Set {
	return Set{Image: Nop{}, Video: Nop{}, Audio: Nop{}, Link: Nop{}}
}

// For returns the processor for a media type (image, video, audio, link).
func (s Set) For(mediaType string) Processor {
	var p Processor
	switch mediaType {
	case "image":
		p = s.Image
	case "video":
		p = s.Video
	case "audio":
		p = s.Audio
	case "link":
		p = s.Link
	}
	if p == nil {
		return Nop{}
	}
	return p
}

// Process runs the processor for mediaType, converting a panic into "no result".
func (s Set) Process(ctx context.Context, mediaType string, ref Reference) (res *Result, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if s.Logger != nil {
				s.Logger.Warn("enrichment panicked", zap.String("media_type", mediaType), zap.Any("panic", r))
			}
			res, ok = nil, false
		}
	}()
	res, ok = s.For(mediaType).Process(ctx, ref)
	if res == nil {
		ok = false
	}
	return res, ok
}
