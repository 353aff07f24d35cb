package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"postfetch/internal"
)

// RedisLedger shares the download ledger between machines through redis
type RedisLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Ledger = (*RedisLedger)(nil)

// NewRedisLedger creates a redis ledger. A ttl of 0 keeps records forever.
func NewRedisLedger(client *redis.Client, prefix string, ttl time.Duration) *RedisLedger {
	if prefix == "" {
		prefix = "postfetch"
	}
	return &RedisLedger{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// IsDuplicate implements internal.DuplicateChecker
func (l *RedisLedger) IsDuplicate(ctx context.Context, url string) (bool, error) {
	exists, err := l.client.Exists(ctx, l.makeKey(url)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return exists > 0, nil
}

// MarkDownloaded implements internal.DuplicateChecker. The saved path is the value.
func (l *RedisLedger) MarkDownloaded(ctx context.Context, item internal.ContentDescriptor) error {
	if err := l.client.Set(ctx, l.makeKey(item.SourceURL), item.Path, l.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Locate returns the saved path of url, or "" when it was never downloaded
func (l *RedisLedger) Locate(ctx context.Context, url string) (string, error) {
	path, err := l.client.Get(ctx, l.makeKey(url)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return path, nil
}

// Close closes the redis client
func (l *RedisLedger) Close() error {
	return l.client.Close()
}

func (l *RedisLedger) makeKey(url string) string {
	return fmt.Sprintf("%s:download:%s", l.prefix, hashURL(url))
}
