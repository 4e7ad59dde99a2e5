package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nao1215/linkrank/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of corpora ranked at once when no
// WithConcurrency option is given.
const DefaultConcurrency = 4

// BatchProcessor ranks several corpus directories at the same time, each
// with its own Pipeline.
//
// Design decision: Batching lives outside Pipeline because:
// 1. A Pipeline describes the steps for one corpus and nothing else
// 2. Per-corpus overrides mean each directory may need different steps
// 3. The CLI ranks a single corpus and several with the same code path
type BatchProcessor struct {
	// newPipeline builds the pipeline for one directory. A fresh pipeline
	// per corpus keeps step state from leaking between runs.
	newPipeline func(dir string) *Pipeline

	// concurrency bounds the number of corpora ranked at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger for batch progress.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency bounds the number of corpora ranked at once.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor returns a BatchProcessor that calls newPipeline once per
// corpus directory.
func NewBatchProcessor(newPipeline func(dir string) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		newPipeline: newPipeline,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch ranks dirs and returns one report per directory in input
// order, failed corpora included. A directory that was never started
// because ctx ended has a nil entry. The error is ctx's error, if any.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, dirs []string) ([]*model.RankReport, error) {
	results := make([]*model.RankReport, len(dirs))
	err := bp.ProcessBatchWithCallback(ctx, dirs, func(report *model.RankReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback ranks dirs and hands every finished report to
// callback together with its index in dirs. Callbacks run on worker
// goroutines, possibly at the same time, and must synchronize any shared
// state themselves.
//
// Design decision: errgroup.SetLimit bounds the goroutines instead of a
// fixed worker pool; a corpus waits in g.Go until a slot frees up.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	dirs []string,
	callback func(report *model.RankReport, index int),
) error {
	bp.logger.Info("ranking corpora", "count", len(dirs), "concurrency", bp.concurrency)
	start := time.Now()

	var failed atomic.Int32
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, dir := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report := bp.rank(ctx, dir, i, len(dirs))
			if report.Failed() {
				failed.Add(1)
			}
			callback(report, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("corpora ranked",
		"count", len(dirs),
		"failed", failed.Load(),
		"elapsed", time.Since(start),
	)
	return err
}

// rank runs the pipeline for one directory. Failures stay in the report so
// that one broken corpus never cancels the others.
func (bp *BatchProcessor) rank(ctx context.Context, dir string, index, total int) *model.RankReport {
	logger := bp.logger.With("corpus", dir)
	logger.Info("ranking corpus", "index", index+1, "total", total)

	report := model.NewRankReport(dir)
	if err := bp.newPipeline(dir).Execute(ctx, report); err != nil {
		logger.Warn("ranking failed", "error", err)
		return report
	}
	logger.Info("corpus ranked", "pages", report.Pages, "sweeps", report.Sweeps)
	return report
}
