package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"

	"postfetch/internal"
)

func TestReadPosts(t *testing.T) {
	significant := &internal.SignificantObject{Name: "pics", Kind: internal.ObjectSubreddit}

	tests := []struct {
		name    string
		input   string
		wantIDs []string
	}{
		{
			name:    "array",
			input:   `[{"id":"t3_a","url":"https://i.redd.it/a.jpg","title":"A"},{"id":"t3_b","url":"https://i.redd.it/b.jpg"}]`,
			wantIDs: []string{"t3_a", "t3_b"},
		},
		{
			name:    "ndjson_with_blank_and_bad_lines",
			input:   "{\"id\":\"t3_a\",\"url\":\"https://x/a.jpg\"}\n\nnot json\n{\"id\":\"t3_c\",\"url\":\"https://x/c.jpg\"}\n",
			wantIDs: []string{"t3_a", "t3_c"},
		},
		{
			name:    "bom_and_whitespace",
			input:   "\uFEFF  \n[{\"id\":\"t3_a\",\"url\":\"https://x/a.jpg\"}]",
			wantIDs: []string{"t3_a"},
		},
		{
			name:    "missing_fields_skipped",
			input:   `[{"id":"t3_a"},{"url":"https://x/b.jpg"},{"id":"t3_s","is_self":true,"text":"hi"}]`,
			wantIDs: []string{"t3_s"},
		},
		{
			name:    "empty",
			input:   "   ",
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := ReadPosts(strings.NewReader(tt.input), significant)
			if err != nil {
				t.Fatalf("ReadPosts: %v", err)
			}
			if len(posts) != len(tt.wantIDs) {
				t.Fatalf("expected %d posts, got %d", len(tt.wantIDs), len(posts))
			}
			for i, post := range posts {
				if post.ID != tt.wantIDs[i] {
					t.Errorf("post %d: expected %s, got %s", i, tt.wantIDs[i], post.ID)
				}
				if post.Significant != significant {
					t.Errorf("post %d: significant object not attached", i)
				}
				if post.RedditID != strings.TrimPrefix(post.ID, "t3_") {
					t.Errorf("post %d: unexpected reddit id %s", i, post.RedditID)
				}
			}
		})
	}
}

func TestReadPosts_KeepsOwnSignificant(t *testing.T) {
	input := `[{"id":"t3_a","url":"https://x/a.jpg","significant":{"name":"someone","kind":"user","post_file_format":"md"}}]`

	posts, err := ReadPosts(strings.NewReader(input), &internal.SignificantObject{Name: "default"})
	if err != nil {
		t.Fatalf("ReadPosts: %v", err)
	}
	if posts[0].Significant.Name != "someone" || posts[0].Significant.PostFormat() != "md" {
		t.Errorf("unexpected significant object %+v", posts[0].Significant)
	}
}

func TestReadPosts_BrokenArray(t *testing.T) {
	if _, err := ReadPosts(strings.NewReader(`[{"id":`), nil); err == nil {
		t.Error("expected error for a truncated array")
	}
}

func TestLoadPosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.json")
	content := `[{"id":"t3_a","url":"https://i.redd.it/a.jpg","date_posted":"2024-03-01T10:00:00Z"}]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	posts, err := LoadPosts(path, nil)
	if err != nil {
		t.Fatalf("LoadPosts: %v", err)
	}
	if len(posts) != 1 || !posts[0].DatePosted.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected posts %+v", posts)
	}

	if _, err := LoadPosts(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestConvertPost(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := &reddit.Post{
		ID:            "abc",
		FullID:        "t3_abc",
		Created:       &reddit.Timestamp{Time: created},
		Permalink:     "/r/pics/comments/abc/title/",
		URL:           "https://i.redd.it/abc.jpg",
		Title:         "title",
		SubredditName: "pics",
		Author:        "someone",
	}

	post := convertPost(p, nil)
	if post.ID != "t3_abc" || post.RedditID != "abc" || post.URL != p.URL {
		t.Errorf("unexpected post %+v", post)
	}
	if !post.DatePosted.Equal(created) {
		t.Errorf("unexpected date %v", post.DatePosted)
	}
	if post.Significant == nil || post.Significant.Name != "pics" || post.Significant.Kind != internal.ObjectSubreddit {
		t.Errorf("subreddit should be the default significant object, got %+v", post.Significant)
	}

	self := convertPost(&reddit.Post{ID: "def", Permalink: "/r/pics/comments/def/x/", IsSelfPost: true, Body: "text"}, nil)
	if self.ID != "t3_def" || self.URL != "https://www.reddit.com/r/pics/comments/def/x/" || !self.IsSelf || self.Text != "text" {
		t.Errorf("unexpected self post %+v", self)
	}
}

func TestConvertComment(t *testing.T) {
	parent := &internal.Post{ID: "t3_abc"}
	c := &reddit.Comment{
		ID:            "xyz",
		Permalink:     "/r/pics/comments/abc/title/xyz/",
		Body:          "nice",
		Author:        "other",
		SubredditName: "pics",
	}

	comment := convertComment(c, parent)
	if comment.ID != "t1_xyz" || comment.RedditID != "xyz" || comment.Post != parent {
		t.Errorf("unexpected comment %+v", comment)
	}
	if comment.URL != "https://www.reddit.com/r/pics/comments/abc/title/xyz/" {
		t.Errorf("unexpected url %s", comment.URL)
	}
	if !comment.DatePosted.IsZero() {
		t.Error("missing created time should stay zero")
	}
}
