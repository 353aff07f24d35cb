package extractor

import (
	"path/filepath"

	"postfetch/internal"
	"postfetch/utils"
)

// Naming is the default title and directory builder. Content lands in
// <root>/<significant object>/ and comment text in a comments/ subdirectory of it.
type Naming struct {
	Root string
}

var (
	_ internal.TitleBuilder = (*Naming)(nil)
	_ internal.DirBuilder   = (*Naming)(nil)
)

// NewNaming creates a builder rooted at root; an empty root means the working directory
func NewNaming(root string) *Naming {
	if root == "" {
		root = "."
	}
	return &Naming{Root: root}
}

// PostTitle uses the post title, or its id for untitled posts
func (n *Naming) PostTitle(post *internal.Post) string {
	if post.Title != "" {
		return post.Title
	}
	return post.ID
}

// CommentTitle names a comment after its parent post
func (n *Naming) CommentTitle(comment *internal.Comment) string {
	if comment.Post != nil {
		return n.PostTitle(comment.Post) + " - comment " + comment.ID
	}
	return "comment " + comment.ID
}

// PostDir returns the directory of the object that triggered the download
func (n *Naming) PostDir(post *internal.Post) string {
	return filepath.Join(n.Root, utils.CleanPath(ownerName(post.Significant, post.Subreddit)))
}

// CommentDir returns the comments directory below the parent post's directory
func (n *Naming) CommentDir(comment *internal.Comment) string {
	if comment.Post != nil {
		return filepath.Join(n.PostDir(comment.Post), "comments")
	}
	return filepath.Join(n.Root, utils.CleanPath(comment.Subreddit), "comments")
}

func ownerName(significant *internal.SignificantObject, subreddit string) string {
	if significant != nil && significant.Name != "" {
		return significant.Name
	}
	return subreddit
}
