package extractor

import (
	"context"

	"postfetch/internal"
	"postfetch/utils"
)

// ImgurImageExtractor resolves an imgur image page to its direct link
type ImgurImageExtractor struct {
	deps Deps
}

var _ Extractor = (*ImgurImageExtractor)(nil)

// NewImgurImageExtractor creates an imgur image extractor. deps.Imgur is required.
func NewImgurImageExtractor(deps Deps) *ImgurImageExtractor {
	return &ImgurImageExtractor{deps: deps.withDefaults()}
}

// Kind implements Extractor
func (e *ImgurImageExtractor) Kind() utils.SourceKind {
	return utils.KindImgurImage
}

// Extract implements Extractor
func (e *ImgurImageExtractor) Extract(ctx context.Context, post *internal.Post) *internal.ExtractionOutcome {
	outcome := internal.NewOutcome(post.ID, utils.KindImgurImage.String())
	defer outcome.Finish()

	imageID, err := utils.ImgurImageID(post.URL)
	if err != nil {
		failPost(outcome, post, utils.KindImgurImage, internal.ErrInvalidURL, "Failed to read image id", err)
		return outcome
	}

	link, err := e.deps.Imgur.GetImage(ctx, imageID)
	if err != nil {
		failPost(outcome, post, utils.KindImgurImage, internal.ErrDownloadFailed, "Failed to resolve imgur image", err)
		return outcome
	}

	if err := transfer(ctx, e.deps, outcome, link, e.deps.Dirs.PostDir(post), e.deps.Titles.PostTitle(post)); err != nil {
		failPost(outcome, post, utils.KindImgurImage, internal.ErrDownloadFailed, "Failed to download imgur image", err)
	}
	return outcome
}
