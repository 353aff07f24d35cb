package internal

import (
	"fmt"
	"time"
)

// ObjectKind tells whether a significant object is a user or a subreddit
type ObjectKind string

const (
	ObjectUser      ObjectKind = "user"
	ObjectSubreddit ObjectKind = "subreddit"
)

// DefaultTextFormat is the extension used when an object has no format configured
const DefaultTextFormat = "txt"

// SignificantObject is the tracked user or subreddit whose settings govern how content is saved
type SignificantObject struct {
	Name              string     `json:"name" yaml:"name"`
	Kind              ObjectKind `json:"kind" yaml:"kind"`
	PostFileFormat    string     `json:"post_file_format,omitempty" yaml:"post_file_format"`
	CommentFileFormat string     `json:"comment_file_format,omitempty" yaml:"comment_file_format"`
}

// PostFormat returns the extension for saved self-post text
func (o *SignificantObject) PostFormat() string {
	if o == nil || o.PostFileFormat == "" {
		return DefaultTextFormat
	}
	return o.PostFileFormat
}

// CommentFormat returns the extension for saved comment text
func (o *SignificantObject) CommentFormat() string {
	if o == nil || o.CommentFileFormat == "" {
		return DefaultTextFormat
	}
	return o.CommentFileFormat
}

// Post is a reddit submission. The extraction core only reads it.
type Post struct {
	ID          string             `json:"id"`
	RedditID    string             `json:"reddit_id"`
	URL         string             `json:"url"`
	Title       string             `json:"title"`
	Author      string             `json:"author,omitempty"`
	Subreddit   string             `json:"subreddit"`
	DatePosted  time.Time          `json:"date_posted"`
	IsSelf      bool               `json:"is_self,omitempty"`
	Text        string             `json:"text,omitempty"`
	Significant *SignificantObject `json:"significant,omitempty"`
}

// Comment is a reddit comment whose text can be saved
type Comment struct {
	ID         string    `json:"id"`
	RedditID   string    `json:"reddit_id"`
	URL        string    `json:"url"`
	Author     string    `json:"author,omitempty"`
	Subreddit  string    `json:"subreddit"`
	DatePosted time.Time `json:"date_posted"`
	Body       string    `json:"body"`
	Post       *Post     `json:"-"`
}

// ContentDescriptor describes one item written to disk
type ContentDescriptor struct {
	Path      string `json:"path"`
	SourceURL string `json:"source_url"`
	Size      int64  `json:"size"` // -1 when unknown
}

// ExtractionOutcome is the result of one extraction call. It is created at the start of the
// call, finalized at the end and then handed to the orchestrator; never reused.
type ExtractionOutcome struct {
	PostID       string              `json:"post_id"`
	Extractor    string              `json:"extractor"`
	Failed       bool                `json:"failed"`
	ErrorKind    ErrorType           `json:"error_kind"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Content      []ContentDescriptor `json:"content,omitempty"`
	Skipped      []string            `json:"skipped,omitempty"`
	Incomplete   []string            `json:"incomplete,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
}

// NewOutcome starts a pending outcome
func NewOutcome(postID, extractor string) *ExtractionOutcome {
	return &ExtractionOutcome{
		PostID:    postID,
		Extractor: extractor,
		StartedAt: time.Now(),
	}
}

// AddContent records a written item. Items without a path are ignored.
func (o *ExtractionOutcome) AddContent(d ContentDescriptor) {
	if d.Path == "" {
		return
	}
	o.Content = append(o.Content, d)
}

// AddSkipped records a source URL that was already downloaded
func (o *ExtractionOutcome) AddSkipped(url string) {
	o.Skipped = append(o.Skipped, url)
}

// AddIncomplete records a path that was claimed but not fully written
func (o *ExtractionOutcome) AddIncomplete(path string) {
	if path != "" {
		o.Incomplete = append(o.Incomplete, path)
	}
}

// Fail marks the outcome failed. The kind falls back to the FetchError type carried by err.
func (o *ExtractionOutcome) Fail(kind ErrorType, message string) {
	if kind == ErrNone {
		kind = ErrDownloadFailed
	}
	o.Failed = true
	o.ErrorKind = kind
	if o.ErrorMessage == "" {
		o.ErrorMessage = message
	} else {
		o.ErrorMessage = o.ErrorMessage + "; " + message
	}
}

// FailWith marks the outcome failed from an error
func (o *ExtractionOutcome) FailWith(fallback ErrorType, prefix string, err error) {
	o.Fail(TypeOf(err, fallback), fmt.Sprintf("%s. ERROR: %v", prefix, err))
}

// Finish stamps the end of the call
func (o *ExtractionOutcome) Finish() *ExtractionOutcome {
	o.FinishedAt = time.Now()
	return o
}

// Succeeded reports whether the extraction ended without failure
func (o *ExtractionOutcome) Succeeded() bool {
	return !o.Failed
}
