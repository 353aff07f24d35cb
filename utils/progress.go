package utils

import (
	"fmt"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// BatchProgress shows how many posts of a batch have been extracted
type BatchProgress struct {
	bar       *pb.ProgressBar
	quiet     bool
	startTime time.Time
	mutex     sync.Mutex

	total     int
	succeeded int
	failed    int
	files     int
	bytes     int64
}

// BatchSummary contains the final statistics of a batch
type BatchSummary struct {
	Total     int
	Succeeded int
	Failed    int
	Files     int
	Bytes     int64
	Elapsed   time.Duration
}

// NewBatchProgress creates a progress display for total posts
func NewBatchProgress(total int, quiet bool) *BatchProgress {
	progress := &BatchProgress{
		quiet:     quiet,
		startTime: time.Now(),
		total:     total,
	}

	if !quiet {
		tmpl := `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{string . "files"}} {{etime . }}`
		bar := pb.ProgressBarTemplate(tmpl).Start(total)
		bar.Set("prefix", "Extracting: ")
		progress.bar = bar
	}

	return progress
}

// Record counts one finished post
func (p *BatchProgress) Record(failed bool, files int, bytes int64) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if failed {
		p.failed++
	} else {
		p.succeeded++
	}
	p.files += files
	if bytes > 0 {
		p.bytes += bytes
	}

	if p.bar != nil {
		p.bar.Increment()
		p.bar.Set("files", fmt.Sprintf("files: %d (%s)", p.files, FormatBytes(p.bytes)))
	}
}

// Finish stops the bar and returns the batch summary
func (p *BatchProgress) Finish() *BatchSummary {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.bar != nil {
		p.bar.Finish()
	}

	return &BatchSummary{
		Total:     p.total,
		Succeeded: p.succeeded,
		Failed:    p.failed,
		Files:     p.files,
		Bytes:     p.bytes,
		Elapsed:   time.Since(p.startTime),
	}
}

// String renders the summary for the terminal
func (s *BatchSummary) String() string {
	return fmt.Sprintf("%d posts: %d succeeded, %d failed; %d files (%s) in %v",
		s.Total, s.Succeeded, s.Failed, s.Files, FormatBytes(s.Bytes), s.Elapsed.Round(time.Millisecond))
}

// FormatBytes formats byte count as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
