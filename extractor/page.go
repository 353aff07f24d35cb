package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"postfetch/internal"
	"postfetch/utils"
)

// Meta tags that point at a page's preview media, most specific first
var previewSelectors = []string{
	`meta[property="og:video:secure_url"]`,
	`meta[property="og:video"]`,
	`meta[property="og:image:secure_url"]`,
	`meta[property="og:image"]`,
	`meta[name="twitter:image"]`,
	`meta[property="twitter:image"]`,
}

// PageExtractor downloads the preview media a web page advertises in its meta tags
type PageExtractor struct {
	deps Deps
}

var _ Extractor = (*PageExtractor)(nil)

// NewPageExtractor creates a page extractor
func NewPageExtractor(deps Deps) *PageExtractor {
	return &PageExtractor{deps: deps.withDefaults()}
}

// Kind implements Extractor
func (e *PageExtractor) Kind() utils.SourceKind {
	return utils.KindPage
}

// Extract implements Extractor
func (e *PageExtractor) Extract(ctx context.Context, post *internal.Post) *internal.ExtractionOutcome {
	outcome := internal.NewOutcome(post.ID, utils.KindPage.String())
	defer outcome.Finish()

	mediaURL, err := e.findMedia(ctx, post.URL)
	if err != nil {
		failPost(outcome, post, utils.KindPage, internal.ErrUnsupportedSource, "Failed to find media on page", err)
		return outcome
	}

	if err := transfer(ctx, e.deps, outcome, mediaURL, e.deps.Dirs.PostDir(post), e.deps.Titles.PostTitle(post)); err != nil {
		failPost(outcome, post, utils.KindPage, internal.ErrDownloadFailed, "Failed to download page media", err)
	}
	return outcome
}

// findMedia fetches the page and returns the absolute URL of its preview media
func (e *PageExtractor) findMedia(ctx context.Context, pageURL string) (string, error) {
	resp, err := e.deps.HTTP.GetWithRetry(ctx, pageURL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", internal.NewHostError(resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", internal.NewInvalidResponseError(pageURL, fmt.Sprintf("failed to parse HTML: %v", err))
	}

	for _, selector := range previewSelectors {
		content, ok := doc.Find(selector).First().Attr("content")
		content = strings.TrimSpace(content)
		if !ok || content == "" {
			continue
		}
		return resolveReference(resp.Request.URL, content), nil
	}

	return "", internal.NewFetchError(0, "page has no preview media", internal.ErrUnsupportedSource).WithURL(pageURL)
}

// resolveReference turns a possibly relative reference into an absolute URL
func resolveReference(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil || base == nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}
