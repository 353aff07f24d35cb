package internal

import "context"

// SettingsProvider exposes the credentials used against imgur
type SettingsProvider interface {
	ImgurClientID() string
	ImgurClientSecret() string
	// ImgurMashapeKey is the optional RapidAPI key for the metered endpoint
	ImgurMashapeKey() string
}

// Notifier accepts user-facing warning strings
type Notifier interface {
	Notify(message string)
}

// DuplicateChecker remembers which source URLs have already been downloaded
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, url string) (bool, error)
	MarkDownloaded(ctx context.Context, item ContentDescriptor) error
}

// TitleBuilder returns the display title used to name saved content
type TitleBuilder interface {
	PostTitle(post *Post) string
	CommentTitle(comment *Comment) string
}

// DirBuilder returns the directory content for a post is saved to
type DirBuilder interface {
	PostDir(post *Post) string
	CommentDir(comment *Comment) string
}

// RateLimiter controls bandwidth usage
type RateLimiter interface {
	Wait(ctx context.Context, n int) error
	SetRate(bytesPerSecond int64)
}
