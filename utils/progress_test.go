package utils

import (
	"strings"
	"testing"
)

func TestBatchProgress_Quiet(t *testing.T) {
	progress := NewBatchProgress(3, true)

	progress.Record(false, 2, 2048)
	progress.Record(true, 0, 0)
	progress.Record(false, 1, -1)

	summary := progress.Finish()
	if summary.Total != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("unexpected counts: %+v", summary)
	}
	if summary.Files != 3 {
		t.Errorf("expected 3 files, got %d", summary.Files)
	}
	if summary.Bytes != 2048 {
		t.Errorf("unknown sizes must not reduce the byte count, got %d", summary.Bytes)
	}
	if !strings.Contains(summary.String(), "2 succeeded, 1 failed") {
		t.Errorf("unexpected summary %q", summary.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		if result := FormatBytes(tt.input); result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
