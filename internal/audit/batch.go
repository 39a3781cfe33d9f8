package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pagelens/pagelens/internal/crawler"
	"github.com/pagelens/pagelens/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor audits multiple targets concurrently. It uses errgroup
// to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding
// batch functionality to Pipeline because:
//  1. It keeps the Pipeline focused on single-target execution
//  2. It allows different batch strategies (e.g., rate limiting, retries)
//  3. Politeness is per-site; concurrency only exists across sites
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each target.
	// We use a factory to ensure each audit gets a fresh pipeline
	// instance.
	pipelineFactory func() *Pipeline

	// budget is the page budget recorded in each report.
	budget int

	// concurrency is the maximum number of targets audited at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed reports, ordered like the input targets.
	// Access is synchronized via mutex.
	results []*model.CrawlReport
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrently audited
// targets. Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithBudget sets the page budget recorded in each report. It must match
// the budget the factory's crawl step runs under.
func WithBudget(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.budget = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each target to create a
// fresh pipeline instance. This ensures that pipeline state doesn't leak
// between audits.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		budget:          50,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch audits multiple targets concurrently. It respects the
// configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each target gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all reports in input order, including targets that failed; a
// failed target's report carries its error. The error return indicates
// cancellation of the batch as a whole.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.CrawlReport, error) {
	bp.logger.Info("starting batch audit",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	bp.results = make([]*model.CrawlReport, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("auditing target",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)

			report := model.NewCrawlReport(target, crawler.SeedFromDomain(target), bp.budget)

			pipeline := bp.pipelineFactory()
			err := pipeline.Execute(ctx, report)

			bp.mu.Lock()
			bp.results[i] = report
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("audit failed",
					"target", target,
					"error", err,
				)
				// The error stays in the report so other targets keep
				// running.
				return nil
			}

			bp.logger.Info("audit completed",
				"target", target,
				"pages", report.PagesCrawled(),
				"findings", len(report.Findings),
			)

			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch audit complete",
		"total_targets", len(targets),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}

// ProcessBatchWithCallback audits multiple targets and calls a callback
// for each completed report. This is useful for streaming results.
//
// The callback receives the report and the index of the target in the
// original slice. It is called from the goroutine that completed the
// audit, so it must be safe for concurrent use if it touches shared
// state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.CrawlReport, index int),
) error {
	bp.logger.Info("starting batch audit with callback",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report := model.NewCrawlReport(target, crawler.SeedFromDomain(target), bp.budget)
			pipeline := bp.pipelineFactory()
			_ = pipeline.Execute(ctx, report) //nolint:errcheck // Error is stored in report

			callback(report, i)

			return nil
		})
	}

	return g.Wait()
}
