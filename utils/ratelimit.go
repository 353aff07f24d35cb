package utils

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"postfetch/internal"
)

// BandwidthLimiter caps bytes per second shared by every transfer that uses it
type BandwidthLimiter struct {
	limiter *rate.Limiter
}

// NewBandwidthLimiter creates a limiter; bytesPerSecond <= 0 disables limiting
func NewBandwidthLimiter(bytesPerSecond int64) *BandwidthLimiter {
	b := &BandwidthLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	b.SetRate(bytesPerSecond)
	return b
}

var _ internal.RateLimiter = (*BandwidthLimiter)(nil)

// Wait blocks until n bytes may be consumed
func (b *BandwidthLimiter) Wait(ctx context.Context, n int) error {
	if b == nil || b.limiter.Limit() == rate.Inf {
		return nil
	}

	burst := b.limiter.Burst()
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := b.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// SetRate updates the rate limit
func (b *BandwidthLimiter) SetRate(bytesPerSecond int64) {
	if bytesPerSecond <= 0 {
		b.limiter.SetLimit(rate.Inf)
		return
	}
	b.limiter.SetBurst(int(bytesPerSecond))
	b.limiter.SetLimit(rate.Limit(bytesPerSecond))
}

// PacedReader wraps r so every read waits on limiter
func PacedReader(ctx context.Context, r io.Reader, limiter internal.RateLimiter) io.Reader {
	return &limitedReader{ctx: ctx, reader: r, limiter: limiter}
}

type limitedReader struct {
	ctx     context.Context
	reader  io.Reader
	limiter internal.RateLimiter
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.reader.Read(p)
	if n > 0 {
		if waitErr := l.limiter.Wait(l.ctx, n); waitErr != nil {
			return n, waitErr
		}
	}
	return n, err
}

// ParseRateLimit parses human-readable rate limit strings (e.g., "5M", "1G")
func ParseRateLimit(rateStr string) (int64, error) {
	rateStr = strings.TrimSpace(rateStr)
	if rateStr == "" {
		return 0, nil
	}

	// Pure numbers are bytes per second
	if val, err := strconv.ParseInt(rateStr, 10, 64); err == nil {
		if val < 0 {
			return 0, fmt.Errorf("rate cannot be negative: %d", val)
		}
		return val, nil
	}

	if len(rateStr) < 2 {
		return 0, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	var numStr, suffix string
	rateUpper := strings.ToUpper(rateStr)

	if len(rateUpper) >= 3 && (strings.HasSuffix(rateUpper, "KB") ||
		strings.HasSuffix(rateUpper, "MB") ||
		strings.HasSuffix(rateUpper, "GB")) {
		numStr = rateStr[:len(rateStr)-2]
		suffix = rateUpper[len(rateUpper)-2:]
	} else {
		numStr = rateStr[:len(rateStr)-1]
		suffix = rateUpper[len(rateUpper)-1:]
	}

	baseValue, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value in rate: %s", numStr)
	}
	if baseValue < 0 {
		return 0, fmt.Errorf("rate cannot be negative: %f", baseValue)
	}

	var multiplier int64
	switch suffix {
	case "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported rate suffix: %s (supported: B, K/KB, M/MB, G/GB)", suffix)
	}

	return int64(baseValue * float64(multiplier)), nil
}
