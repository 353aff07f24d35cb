package extractor

import (
	"context"

	"postfetch/internal"
	"postfetch/utils"
)

// CommentExtractor saves the text of comments
type CommentExtractor interface {
	ExtractComment(ctx context.Context, comment *internal.Comment) *internal.ExtractionOutcome
}

// TextExtractor writes self-post and comment bodies to disk verbatim. The extension
// comes from the significant object's configured format.
type TextExtractor struct {
	deps Deps
}

var (
	_ Extractor        = (*TextExtractor)(nil)
	_ CommentExtractor = (*TextExtractor)(nil)
)

// NewTextExtractor creates a text extractor
func NewTextExtractor(deps Deps) *TextExtractor {
	return &TextExtractor{deps: deps.withDefaults()}
}

// Kind implements Extractor
func (e *TextExtractor) Kind() utils.SourceKind {
	return utils.KindSelfPost
}

// Extract saves a self post's text
func (e *TextExtractor) Extract(ctx context.Context, post *internal.Post) *internal.ExtractionOutcome {
	outcome := internal.NewOutcome(post.ID, utils.KindSelfPost.String())
	defer outcome.Finish()

	dir := e.deps.Dirs.PostDir(post)
	title := e.deps.Titles.PostTitle(post)

	if err := e.save(dir, title, post.Significant.PostFormat(), post.Text, post.URL, outcome); err != nil {
		failPost(outcome, post, utils.KindSelfPost, internal.ErrTextSave, "Failed to save post text", err)
	}
	return outcome
}

// ExtractComment saves a comment's text
func (e *TextExtractor) ExtractComment(ctx context.Context, comment *internal.Comment) *internal.ExtractionOutcome {
	outcome := internal.NewOutcome(comment.ID, utils.KindComment.String())
	defer outcome.Finish()

	var significant *internal.SignificantObject
	if comment.Post != nil {
		significant = comment.Post.Significant
	}

	dir := e.deps.Dirs.CommentDir(comment)
	title := e.deps.Titles.CommentTitle(comment)

	if err := e.save(dir, title, significant.CommentFormat(), comment.Body, comment.URL, outcome); err != nil {
		outcome.FailWith(internal.ErrTextSave, "Failed to save comment text", err)

		fields := commentFields(comment)
		fields["error"] = err.Error()
		internal.GetLogger().ErrorFields("Failed to save content text", fields)
	}
	return outcome
}

// save claims a unique path and writes text to it
func (e *TextExtractor) save(dir, title, ext, text, sourceURL string, outcome *internal.ExtractionOutcome) error {
	if ext = utils.CleanExtension(ext); ext == "" {
		ext = internal.DefaultTextFormat
	}

	file, path, err := e.deps.Resolver.Claim(dir, title, ext)
	if err != nil {
		return internal.NewTextSaveError(dir, err)
	}

	written, writeErr := file.WriteString(text)
	closeErr := file.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		outcome.AddIncomplete(path)
		return internal.NewTextSaveError(path, writeErr)
	}

	outcome.AddContent(internal.ContentDescriptor{
		Path:      path,
		SourceURL: sourceURL,
		Size:      int64(written),
	})
	return nil
}
