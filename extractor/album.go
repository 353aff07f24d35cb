package extractor

import (
	"context"
	"fmt"

	"postfetch/internal"
	"postfetch/utils"
)

// AlbumExtractor downloads every image of an imgur album. All images share the album
// title; each one claims its own path so they never overwrite each other.
type AlbumExtractor struct {
	deps Deps
}

var _ Extractor = (*AlbumExtractor)(nil)

// NewAlbumExtractor creates an album extractor. deps.Imgur is required.
func NewAlbumExtractor(deps Deps) *AlbumExtractor {
	return &AlbumExtractor{deps: deps.withDefaults()}
}

// Kind implements Extractor
func (e *AlbumExtractor) Kind() utils.SourceKind {
	return utils.KindImgurAlbum
}

// Extract implements Extractor. Images that fail do not stop the rest of the album,
// but any failure fails the outcome.
func (e *AlbumExtractor) Extract(ctx context.Context, post *internal.Post) *internal.ExtractionOutcome {
	outcome := internal.NewOutcome(post.ID, utils.KindImgurAlbum.String())
	defer outcome.Finish()

	albumID, err := utils.ImgurAlbumID(post.URL)
	if err != nil {
		failPost(outcome, post, utils.KindImgurAlbum, internal.ErrInvalidURL, "Failed to read album id", err)
		return outcome
	}

	links, err := e.deps.Imgur.GetAlbumImages(ctx, albumID)
	if err != nil {
		failPost(outcome, post, utils.KindImgurAlbum, internal.ErrDownloadFailed, "Failed to list album images", err)
		return outcome
	}
	if len(links) == 0 {
		internal.LogInfo("Album %s is empty", albumID)
		return outcome
	}

	dir := e.deps.Dirs.PostDir(post)
	title := e.deps.Titles.PostTitle(post)

	for i, link := range links {
		if ctx.Err() != nil {
			failPost(outcome, post, utils.KindImgurAlbum, internal.ErrDownloadFailed, "Album download cancelled", ctx.Err())
			break
		}
		if err := transfer(ctx, e.deps, outcome, link, dir, title); err != nil {
			failPost(outcome, post, utils.KindImgurAlbum, internal.ErrDownloadFailed,
				fmt.Sprintf("Failed to download album image %d of %d", i+1, len(links)), err)
		}
	}
	return outcome
}
