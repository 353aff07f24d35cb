package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"postfetch/internal"
)

// Ledger remembers downloaded source URLs
type Ledger interface {
	internal.DuplicateChecker
	// Locate returns the saved path of url, or "" when it was never downloaded
	Locate(ctx context.Context, url string) (string, error)
	Close() error
}

// Open creates the ledger selected by the configuration
func Open(ctx context.Context, config *internal.Config) (Ledger, error) {
	switch config.DedupBackend {
	case internal.DedupSQLite, "":
		return OpenSQLite(config.DedupPath)
	case internal.DedupRedis:
		client := redis.NewClient(&redis.Options{
			Addr: config.RedisAddr,
			DB:   config.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", config.RedisAddr, err)
		}
		return NewRedisLedger(client, "postfetch", 0), nil
	case internal.DedupNone:
		return Noop{}, nil
	default:
		return nil, internal.NewValidationErrorWithValue("dedup_backend", "unknown duplicate ledger", config.DedupBackend)
	}
}

// Noop never reports a duplicate
type Noop struct{}

// IsDuplicate implements internal.DuplicateChecker
func (Noop) IsDuplicate(ctx context.Context, url string) (bool, error) { return false, nil }

// MarkDownloaded implements internal.DuplicateChecker
func (Noop) MarkDownloaded(ctx context.Context, item internal.ContentDescriptor) error { return nil }

// Locate implements Ledger
func (Noop) Locate(ctx context.Context, url string) (string, error) { return "", nil }

// Close implements Ledger
func (Noop) Close() error { return nil }

// Record is one remembered download
type Record struct {
	SourceURL    string
	Path         string
	Size         int64
	DownloadedAt time.Time
}

// normalizeURL drops the parts of a URL that do not change the content
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Scheme == "http" {
		parsed.Scheme = "https"
	}
	return parsed.String()
}

// hashURL is the key a URL is stored under
func hashURL(rawURL string) string {
	h := sha256.Sum256([]byte(normalizeURL(rawURL)))
	return hex.EncodeToString(h[:16])
}
