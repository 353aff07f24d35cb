package utils

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
)

func TestParseRateLimit(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"", 0, false},
		{"1024", 1024, false},
		{"100B", 100, false},
		{"1K", 1024, false},
		{"1KB", 1024, false},
		{"5M", 5 * 1024 * 1024, false},
		{"1.5MB", 1572864, false},
		{"2g", 2 * 1024 * 1024 * 1024, false},
		{"-5", 0, true},
		{"5X", 0, true},
		{"abcM", 0, true},
		{"K", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseRateLimit(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("ParseRateLimit(%q) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestBandwidthLimiter_Unlimited(t *testing.T) {
	limiter := NewBandwidthLimiter(0)

	start := time.Now()
	if err := limiter.Wait(context.Background(), 10*1024*1024); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("unlimited limiter should not block")
	}
}

func TestBandwidthLimiter_Throttles(t *testing.T) {
	limiter := NewBandwidthLimiter(1000)
	ctx := context.Background()

	// The first burst is free; the next one has to wait for the bucket to refill
	if err := limiter.Wait(ctx, 1000); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	start := time.Now()
	if err := limiter.Wait(ctx, 500); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("expected throttling, waited only %v", elapsed)
	}
}

func TestBandwidthLimiter_ContextCanceled(t *testing.T) {
	limiter := NewBandwidthLimiter(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, 100); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestPacedReader(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)

	data, err := io.ReadAll(PacedReader(context.Background(), bytes.NewReader(payload), NewBandwidthLimiter(0)))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("reader altered the data")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := io.ReadAll(PacedReader(ctx, bytes.NewReader(payload), NewBandwidthLimiter(1024))); err == nil {
		t.Error("expected error once the context is canceled")
	}
}
