package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"postfetch/dedup"
	"postfetch/extractor"
	"postfetch/imgur"
	"postfetch/internal"
	"postfetch/runner"
	"postfetch/utils"
)

// pipeline holds everything one run needs and what has to be released after it
type pipeline struct {
	runner   *runner.Runner
	quota    *imgur.QuotaManager
	ledger   dedup.Ledger
	report   *runner.ReportWriter
	notifier *internal.QueueNotifier
	drained  chan struct{}
}

// signalContext is canceled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			internal.LogInfo("Received signal %v, finishing running extractions...", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

func newHTTPClient() (*utils.HTTPClient, error) {
	return utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		Timeout:   time.Duration(config.DefaultTimeout) * time.Second,
		ProxyURL:  config.ProxyURL,
		UserAgent: config.UserAgent,
	})
}

// newPipeline wires the imgur client, the duplicate ledger and the extractors
func newPipeline(ctx context.Context) (*pipeline, error) {
	httpClient, err := newHTTPClient()
	if err != nil {
		return nil, err
	}

	bytesPerSecond, err := utils.ParseRateLimit(config.RateLimit)
	if err != nil {
		return nil, err
	}
	var limiter internal.RateLimiter
	if bytesPerSecond > 0 {
		limiter = utils.NewBandwidthLimiter(bytesPerSecond)
		internal.LogDebug("Bandwidth limited to %s/s", utils.FormatBytes(bytesPerSecond))
	}

	ledger, err := dedup.Open(ctx, config)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		ledger:   ledger,
		notifier: internal.NewQueueNotifier(16),
		drained:  make(chan struct{}),
	}
	go p.printNotices()

	p.quota = imgur.NewQuotaManager(config, httpClient)
	sessions := imgur.NewSessionManager(config, p.quota, p.notifier)
	imgurClient := imgur.NewClient(p.quota, sessions, httpClient, imgur.WithMaxRetries(config.MaxRetries))

	naming := extractor.NewNaming(config.OutputDir)
	registry := extractor.NewRegistry(extractor.Deps{
		Resolver: utils.NewPathResolver(),
		HTTP:     httpClient,
		Imgur:    imgurClient,
		Limiter:  limiter,
		Dedup:    ledger,
		Titles:   naming,
		Dirs:     naming,
	})

	opts := []runner.Option{
		runner.WithWorkers(config.DefaultWorkers),
		runner.WithQuiet(config.QuietMode),
		runner.WithNotifier(p.notifier),
	}
	if config.ReportFile != "" {
		report, err := runner.OpenReport(config.ReportFile)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.report = report
		opts = append(opts, runner.WithReport(report))
	}

	p.runner = runner.New(registry, opts...)
	return p, nil
}

// printNotices is the single consumer of the notification queue
func (p *pipeline) printNotices() {
	defer close(p.drained)
	for message := range p.notifier.Messages() {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", message)
	}
}

// run extracts jobs and prints the summary. It fails when any job failed.
func (p *pipeline) run(ctx context.Context, jobs []runner.Job) error {
	if len(jobs) == 0 {
		internal.LogInfo("Nothing to extract")
		return nil
	}

	internal.LogInfo("Extracting %d items with %d workers", len(jobs), config.DefaultWorkers)
	summary, _ := p.runner.Run(ctx, jobs)

	internal.GetLogger().InfoFields("Run finished", internal.Fields{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"files":     summary.Files,
		"bytes":     summary.Bytes,
		"elapsed":   summary.Elapsed.Round(time.Millisecond),
	})
	if !config.QuietMode {
		fmt.Fprintln(os.Stderr, summary.String())
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d items failed", summary.Failed, summary.Total)
	}
	return nil
}

// Close flushes notices and releases the ledger and report
func (p *pipeline) Close() {
	p.notifier.Close()
	<-p.drained

	if p.report != nil {
		if err := p.report.Close(); err != nil {
			internal.LogWarn("Failed to close report: %v", err)
		}
	}
	if err := p.ledger.Close(); err != nil {
		internal.LogError("Failed to close duplicate ledger: %v", err)
	}
}
