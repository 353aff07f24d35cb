package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"postfetch/internal"
)

// LoadPosts reads posts from a JSON array or newline-delimited JSON file. Entries without
// a URL or an id are skipped with a warning. significant is attached to posts that carry
// none and may be nil.
func LoadPosts(path string, significant *internal.SignificantObject) ([]*internal.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open posts file: %w", err)
	}
	defer f.Close()

	return ReadPosts(f, significant)
}

// ReadPosts is LoadPosts for an already open reader
func ReadPosts(r io.Reader, significant *internal.SignificantObject) ([]*internal.Post, error) {
	br := bufio.NewReader(stripBOM(r))

	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}

	var raw []*internal.Post
	if first == '[' {
		if err := json.NewDecoder(br).Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode posts array: %w", err)
		}
	} else {
		raw, err = decodeLines(br)
		if err != nil {
			return nil, err
		}
	}

	posts := make([]*internal.Post, 0, len(raw))
	for i, post := range raw {
		if post == nil || (strings.TrimSpace(post.URL) == "" && !post.IsSelf) || strings.TrimSpace(post.ID) == "" {
			internal.LogWarn("Skipping post %d: an id and a url are required", i+1)
			continue
		}
		if post.RedditID == "" {
			post.RedditID = strings.TrimPrefix(post.ID, "t3_")
		}
		if post.Significant == nil {
			post.Significant = significant
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func decodeLines(r *bufio.Reader) ([]*internal.Post, error) {
	var posts []*internal.Post
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var post internal.Post
		if err := json.Unmarshal(text, &post); err != nil {
			internal.LogWarn("Skipping line %d: %v", line, err)
			continue
		}
		posts = append(posts, &post)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read posts: %w", err)
	}
	return posts, nil
}

// peekNonSpace skips leading whitespace and returns the next byte without consuming it
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if b == ' ' || b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		return b, br.UnreadByte()
	}
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune()
	}
	return br
}
