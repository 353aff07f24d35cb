package extractor

import (
	"context"

	"postfetch/internal"
	"postfetch/utils"
)

// DirectExtractor downloads a post whose URL is the file itself
type DirectExtractor struct {
	deps Deps
}

var _ Extractor = (*DirectExtractor)(nil)

// NewDirectExtractor creates a direct link extractor
func NewDirectExtractor(deps Deps) *DirectExtractor {
	return &DirectExtractor{deps: deps.withDefaults()}
}

// Kind implements Extractor
func (e *DirectExtractor) Kind() utils.SourceKind {
	return utils.KindDirect
}

// Extract implements Extractor
func (e *DirectExtractor) Extract(ctx context.Context, post *internal.Post) *internal.ExtractionOutcome {
	outcome := internal.NewOutcome(post.ID, utils.KindDirect.String())
	defer outcome.Finish()

	dir := e.deps.Dirs.PostDir(post)
	title := e.deps.Titles.PostTitle(post)

	if err := transfer(ctx, e.deps, outcome, post.URL, dir, title); err != nil {
		failPost(outcome, post, utils.KindDirect, internal.ErrDownloadFailed, "Failed to download direct link", err)
	}
	return outcome
}
