package extractor

import (
	"context"
	"time"

	"postfetch/imgur"
	"postfetch/internal"
	"postfetch/utils"
)

// Extractor saves the content of one kind of post. Extract never returns an error:
// every failure is recorded on the outcome so sibling extractions keep running.
type Extractor interface {
	Kind() utils.SourceKind
	Extract(ctx context.Context, post *internal.Post) *internal.ExtractionOutcome
}

// Deps are the collaborators shared by all extractors
type Deps struct {
	Resolver *utils.PathResolver
	HTTP     *utils.HTTPClient
	Imgur    *imgur.Client
	Limiter  internal.RateLimiter
	Dedup    internal.DuplicateChecker
	Titles   internal.TitleBuilder
	Dirs     internal.DirBuilder
}

// withDefaults fills in what the caller left out
func (d Deps) withDefaults() Deps {
	if d.Resolver == nil {
		d.Resolver = utils.NewPathResolver()
	}
	if d.HTTP == nil {
		d.HTTP = utils.NewHTTPClient()
	}
	if d.Titles == nil || d.Dirs == nil {
		naming := NewNaming("")
		if d.Titles == nil {
			d.Titles = naming
		}
		if d.Dirs == nil {
			d.Dirs = naming
		}
	}
	return d
}

// postFields is the log context of a failed post extraction
func postFields(post *internal.Post, kind utils.SourceKind) internal.Fields {
	fields := internal.Fields{
		"extractor": kind.String(),
		"url":       post.URL,
		"post_id":   post.ID,
		"reddit_id": post.RedditID,
		"subreddit": post.Subreddit,
	}
	if !post.DatePosted.IsZero() {
		fields["date_posted"] = post.DatePosted.Format(time.RFC3339)
	}
	if post.Significant != nil {
		fields["significant"] = post.Significant.Name
	}
	return fields
}

// commentFields is the log context of a failed comment extraction
func commentFields(comment *internal.Comment) internal.Fields {
	fields := internal.Fields{
		"url":        comment.URL,
		"subreddit":  comment.Subreddit,
		"comment_id": comment.ID,
		"reddit_id":  comment.RedditID,
	}
	if !comment.DatePosted.IsZero() {
		fields["date_posted"] = comment.DatePosted.Format(time.RFC3339)
	}
	return fields
}

// failPost records err on the outcome and logs it with the post context
func failPost(outcome *internal.ExtractionOutcome, post *internal.Post, kind utils.SourceKind, fallback internal.ErrorType, prefix string, err error) {
	outcome.FailWith(fallback, prefix, err)

	fields := postFields(post, kind)
	fields["error"] = err.Error()
	internal.GetLogger().ErrorFields(prefix, fields)
}
