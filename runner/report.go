package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"postfetch/internal"
)

// ReportWriter appends outcomes as newline-delimited JSON
type ReportWriter struct {
	mutex  sync.Mutex
	enc    *json.Encoder
	closer io.Closer
}

// OpenReport opens path for appending, creating it and its directory if needed
func OpenReport(path string) (*ReportWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open report: %w", err)
	}
	w := NewReportWriter(f)
	w.closer = f
	return w, nil
}

// NewReportWriter writes to w; the caller keeps ownership of w
func NewReportWriter(w io.Writer) *ReportWriter {
	return &ReportWriter{enc: json.NewEncoder(w)}
}

// Write appends one outcome
func (w *ReportWriter) Write(outcome *internal.ExtractionOutcome) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.enc.Encode(outcome)
}

// Close closes the underlying file when the writer opened it
func (w *ReportWriter) Close() error {
	if w == nil || w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
