package runner

import (
	"context"
	"fmt"
	"os"
	"sync"

	"postfetch/internal"
	"postfetch/utils"
)

const noQuotaNotice = "Imgur credits are used up and no RapidAPI key is configured. " +
	"Imgur content is skipped until the credits reset."

// Extractor turns posts and comments into outcomes. extractor.Registry implements it.
type Extractor interface {
	Extract(ctx context.Context, post *internal.Post) *internal.ExtractionOutcome
	ExtractComment(ctx context.Context, comment *internal.Comment) *internal.ExtractionOutcome
}

// Notifier delivers a user-facing message once per key
type Notifier interface {
	NotifyOnce(key, message string)
}

// Job is one unit of work: either a post or a comment
type Job struct {
	Post    *internal.Post
	Comment *internal.Comment
}

// PostJobs wraps posts as jobs
func PostJobs(posts []*internal.Post) []Job {
	jobs := make([]Job, 0, len(posts))
	for _, post := range posts {
		jobs = append(jobs, Job{Post: post})
	}
	return jobs
}

// CommentJobs wraps comments as jobs
func CommentJobs(comments []*internal.Comment) []Job {
	jobs := make([]Job, 0, len(comments))
	for _, comment := range comments {
		jobs = append(jobs, Job{Comment: comment})
	}
	return jobs
}

func (j Job) id() string {
	if j.Comment != nil {
		return j.Comment.ID
	}
	if j.Post != nil {
		return j.Post.ID
	}
	return ""
}

// Option configures a Runner
type Option func(*Runner)

// WithWorkers sets the number of concurrent extractions
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithReport writes every outcome to report
func WithReport(report *ReportWriter) Option {
	return func(r *Runner) { r.report = report }
}

// WithNotifier routes run-level notices to notifier
func WithNotifier(notifier Notifier) Option {
	return func(r *Runner) { r.notifier = notifier }
}

// WithQuiet disables the progress bar
func WithQuiet(quiet bool) Option {
	return func(r *Runner) { r.quiet = quiet }
}

// Runner drives extractions through a bounded pool of workers. Every job owns its
// outcome, so a failing post never affects its siblings.
type Runner struct {
	extractor Extractor
	workers   int
	report    *ReportWriter
	notifier  Notifier
	quiet     bool
}

// New creates a runner with a single worker unless configured otherwise
func New(extractor Extractor, opts ...Option) *Runner {
	r := &Runner{extractor: extractor, workers: 1}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type indexedJob struct {
	index int
	job   Job
}

type jobResult struct {
	index   int
	outcome *internal.ExtractionOutcome
}

// Run extracts every job and returns the batch summary together with the outcomes in
// job order. Jobs not started before ctx is canceled have no outcome.
func (r *Runner) Run(ctx context.Context, jobs []Job) (*utils.BatchSummary, []*internal.ExtractionOutcome) {
	progress := utils.NewBatchProgress(len(jobs), r.quiet)

	workers := r.workers
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}

	queue := make(chan indexedJob, workers*2)
	results := make(chan jobResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go r.worker(ctx, &wg, queue, results)
	}

	go func() {
		defer close(queue)
		for i, job := range jobs {
			select {
			case queue <- indexedJob{index: i, job: job}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]*internal.ExtractionOutcome, len(jobs))
	processed := 0
	for result := range results {
		processed++
		ordered[result.index] = result.outcome
		r.record(progress, result.outcome)
	}

	summary := progress.Finish()
	if processed < len(jobs) {
		internal.LogWarn("Run canceled: %d of %d jobs processed", processed, len(jobs))
	}

	outcomes := make([]*internal.ExtractionOutcome, 0, processed)
	for _, outcome := range ordered {
		if outcome != nil {
			outcomes = append(outcomes, outcome)
		}
	}
	return summary, outcomes
}

func (r *Runner) worker(ctx context.Context, wg *sync.WaitGroup, queue <-chan indexedJob, results chan<- jobResult) {
	defer wg.Done()

	for {
		select {
		case item, ok := <-queue:
			if !ok {
				return
			}
			// Results are always delivered so the collector sees every started job
			results <- jobResult{index: item.index, outcome: r.process(ctx, item.job)}
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) process(ctx context.Context, job Job) (outcome *internal.ExtractionOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			outcome = internal.NewOutcome(job.id(), "unknown")
			outcome.Fail(internal.ErrDownloadFailed, fmt.Sprintf("extractor panicked: %v", rec))
			internal.GetLogger().ErrorFields("Extraction panicked", internal.Fields{"id": job.id(), "panic": rec})
			outcome.Finish()
		}
	}()

	switch {
	case job.Comment != nil:
		outcome = r.extractor.ExtractComment(ctx, job.Comment)
	case job.Post != nil:
		outcome = r.extractor.Extract(ctx, job.Post)
	default:
		outcome = internal.NewOutcome("", "unknown")
		outcome.Fail(internal.ErrUnsupportedSource, "empty job")
		return outcome.Finish()
	}

	removeIncomplete(outcome)
	if outcome.ErrorKind == internal.ErrNoQuota && r.notifier != nil {
		r.notifier.NotifyOnce("imgur_no_quota", noQuotaNotice)
	}
	return outcome
}

func (r *Runner) record(progress *utils.BatchProgress, outcome *internal.ExtractionOutcome) {
	var bytes int64
	for _, item := range outcome.Content {
		if item.Size > 0 {
			bytes += item.Size
		}
	}
	progress.Record(outcome.Failed, len(outcome.Content), bytes)

	if r.report != nil {
		if err := r.report.Write(outcome); err != nil {
			internal.LogWarn("Failed to write report entry for %s: %v", outcome.PostID, err)
		}
	}
}

// removeIncomplete deletes files that were claimed but never finished
func removeIncomplete(outcome *internal.ExtractionOutcome) {
	for _, path := range outcome.Incomplete {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			internal.LogWarn("Failed to remove incomplete file %s: %v", path, err)
			continue
		}
		internal.LogDebug("Removed incomplete file %s", path)
	}
}
