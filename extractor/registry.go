package extractor

import (
	"context"
	"fmt"

	"postfetch/internal"
	"postfetch/utils"
)

// Registry maps source kinds to extractors
type Registry struct {
	extractors map[utils.SourceKind]Extractor
	text       *TextExtractor
}

// NewRegistry builds the default set of extractors. The imgur extractors are only
// registered when deps carries an imgur client.
func NewRegistry(deps Deps) *Registry {
	deps = deps.withDefaults()
	text := NewTextExtractor(deps)

	r := &Registry{
		extractors: make(map[utils.SourceKind]Extractor),
		text:       text,
	}
	r.Register(text)
	r.Register(NewDirectExtractor(deps))
	r.Register(NewPageExtractor(deps))
	if deps.Imgur != nil {
		r.Register(NewAlbumExtractor(deps))
		r.Register(NewImgurImageExtractor(deps))
	}
	return r
}

// Register adds or replaces the extractor for its kind
func (r *Registry) Register(e Extractor) {
	r.extractors[e.Kind()] = e
}

// For selects the extractor for a post from its URL pattern alone
func (r *Registry) For(post *internal.Post) (Extractor, bool) {
	e, ok := r.extractors[utils.ClassifyURL(post.URL, post.IsSelf)]
	return e, ok
}

// Extract dispatches post to its extractor. Unsupported posts get a failed outcome.
func (r *Registry) Extract(ctx context.Context, post *internal.Post) *internal.ExtractionOutcome {
	e, ok := r.For(post)
	if !ok {
		kind := utils.ClassifyURL(post.URL, post.IsSelf)
		outcome := internal.NewOutcome(post.ID, kind.String())
		outcome.Fail(internal.ErrUnsupportedSource, fmt.Sprintf("no extractor for %s link %s", kind, post.URL))
		internal.GetLogger().WarnFields("Unsupported content source", postFields(post, kind))
		return outcome.Finish()
	}
	return e.Extract(ctx, post)
}

// ExtractComment saves a comment's text
func (r *Registry) ExtractComment(ctx context.Context, comment *internal.Comment) *internal.ExtractionOutcome {
	return r.text.ExtractComment(ctx, comment)
}
