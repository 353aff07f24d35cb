package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"golang.org/x/time/rate"

	"postfetch/internal"
)

const redditBaseURL = "https://www.reddit.com"

// Listing sorts supported by SubredditPosts
const (
	SortNew = "new"
	SortHot = "hot"
)

// RedditSource reads posts and comments from the reddit API
type RedditSource struct {
	client  *reddit.Client
	limiter *rate.Limiter
}

// NewRedditSource creates a source from the configured credentials. Without a client
// id the read-only client is used.
func NewRedditSource(config *internal.Config) (*RedditSource, error) {
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "postfetch/1.0"
	}

	var (
		client *reddit.Client
		err    error
	)
	if config.RedditID != "" {
		creds := reddit.Credentials{
			ID:       config.RedditID,
			Secret:   config.RedditSecret,
			Username: config.RedditUsername,
			Password: config.RedditPassword,
		}
		client, err = reddit.NewClient(creds, reddit.WithUserAgent(userAgent))
	} else {
		internal.LogDebug("No reddit credentials configured, using the read-only client")
		client, err = reddit.NewReadonlyClient(reddit.WithUserAgent(userAgent))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create reddit client: %w", err)
	}

	// ~100 requests per 10 minutes
	limiter := rate.NewLimiter(rate.Every(600*time.Millisecond), 1)

	return &RedditSource{client: client, limiter: limiter}, nil
}

// SubredditPosts lists up to limit posts of a subreddit. significant is attached to every
// post and may be nil.
func (s *RedditSource) SubredditPosts(ctx context.Context, subreddit, sort string, limit int, significant *internal.SignificantObject) ([]*internal.Post, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	opts := &reddit.ListOptions{Limit: limit}

	var (
		posts []*reddit.Post
		err   error
	)
	switch sort {
	case SortHot:
		posts, _, err = s.client.Subreddit.HotPosts(ctx, subreddit, opts)
	case SortNew, "":
		posts, _, err = s.client.Subreddit.NewPosts(ctx, subreddit, opts)
	default:
		return nil, internal.NewValidationErrorWithValue("sort", "unsupported listing sort", sort).
			WithSuggestion("Use new or hot")
	}
	if err != nil {
		return nil, fmt.Errorf("reddit listing r/%s: %w", subreddit, err)
	}

	result := make([]*internal.Post, 0, len(posts))
	for _, p := range posts {
		result = append(result, convertPost(p, significant))
	}
	return result, nil
}

// PostComments returns the top-level comments of a post
func (s *RedditSource) PostComments(ctx context.Context, post *internal.Post) ([]*internal.Comment, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	thread, _, err := s.client.Post.Get(ctx, post.RedditID)
	if err != nil {
		return nil, fmt.Errorf("reddit comments of %s: %w", post.RedditID, err)
	}

	comments := make([]*internal.Comment, 0, len(thread.Comments))
	for _, c := range thread.Comments {
		if c.Body == "" || c.Body == "[deleted]" || c.Body == "[removed]" {
			continue
		}
		comments = append(comments, convertComment(c, post))
	}
	return comments, nil
}

func convertPost(p *reddit.Post, significant *internal.SignificantObject) *internal.Post {
	post := &internal.Post{
		ID:          p.FullID,
		RedditID:    p.ID,
		URL:         p.URL,
		Title:       p.Title,
		Author:      p.Author,
		Subreddit:   p.SubredditName,
		IsSelf:      p.IsSelfPost,
		Text:        p.Body,
		Significant: significant,
	}
	if post.ID == "" {
		post.ID = "t3_" + p.ID
	}
	if p.Created != nil {
		post.DatePosted = p.Created.Time.UTC()
	}
	if post.URL == "" && p.Permalink != "" {
		post.URL = redditBaseURL + p.Permalink
	}
	if post.Significant == nil {
		post.Significant = &internal.SignificantObject{Name: p.SubredditName, Kind: internal.ObjectSubreddit}
	}
	return post
}

func convertComment(c *reddit.Comment, post *internal.Post) *internal.Comment {
	comment := &internal.Comment{
		ID:        c.FullID,
		RedditID:  c.ID,
		Author:    c.Author,
		Subreddit: c.SubredditName,
		Body:      c.Body,
		Post:      post,
	}
	if comment.ID == "" {
		comment.ID = "t1_" + c.ID
	}
	if c.Permalink != "" {
		comment.URL = redditBaseURL + c.Permalink
	}
	if c.Created != nil {
		comment.DatePosted = c.Created.Time.UTC()
	}
	return comment
}
