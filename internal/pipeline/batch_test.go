package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/linkrank/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(func(string) *Pipeline { return New() })

	if bp == nil {
		t.Fatal("expected non-nil processor")
	}
	if bp.concurrency != DefaultConcurrency {
		t.Errorf("expected default concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
	}
	if bp.logger == nil {
		t.Error("expected non-nil logger")
	}
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("processes all corpora in input order", func(t *testing.T) {
		t.Parallel()

		var processedCount atomic.Int32

		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "counter",
				doFunc: func(_ context.Context, _ *model.RankReport) error {
					processedCount.Add(1)
					return nil
				},
			})
			return p
		})

		dirs := []string{"corpus0", "corpus1", "corpus2"}
		results, err := bp.ProcessBatch(context.Background(), dirs)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		for i, dir := range dirs {
			if results[i] == nil || results[i].Corpus != dir {
				t.Errorf("result %d: expected corpus %q, got %+v", i, dir, results[i])
			}
		}
		if processedCount.Load() != 3 {
			t.Errorf("expected 3 processed, got %d", processedCount.Load())
		}
	})

	t.Run("passes the directory to the factory", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		seen := make(map[string]bool)

		bp := NewBatchProcessor(func(dir string) *Pipeline {
			mu.Lock()
			seen[dir] = true
			mu.Unlock()
			return New()
		})

		if _, err := bp.ProcessBatch(context.Background(), []string{"a", "b"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !seen["a"] || !seen["b"] {
			t.Errorf("expected factory to see both directories, got %v", seen)
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var maxConcurrent atomic.Int32
		var currentConcurrent atomic.Int32

		bp := NewBatchProcessor(func(string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "slow",
				doFunc: func(_ context.Context, _ *model.RankReport) error {
					current := currentConcurrent.Add(1)
					for {
						maxVal := maxConcurrent.Load()
						if current <= maxVal || maxConcurrent.CompareAndSwap(maxVal, current) {
							break
						}
					}
					time.Sleep(20 * time.Millisecond)
					currentConcurrent.Add(-1)
					return nil
				},
			})
			return p
		}, WithConcurrency(2))

		dirs := []string{"c1", "c2", "c3", "c4", "c5", "c6"}
		if _, err := bp.ProcessBatch(context.Background(), dirs); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if maxConcurrent.Load() > 2 {
			t.Errorf("expected at most 2 concurrent runs, got %d", maxConcurrent.Load())
		}
	})

	t.Run("failed corpus does not stop the others", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(dir string) *Pipeline {
			p := New()
			p.AddStep(&mockStep{
				name: "maybe-fail",
				doFunc: func(_ context.Context, _ *model.RankReport) error {
					if dir == "broken" {
						return errors.New("unreadable corpus")
					}
					return nil
				},
			})
			return p
		})

		results, err := bp.ProcessBatch(context.Background(), []string{"ok", "broken"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if results[0].Failed() {
			t.Error("expected first corpus to succeed")
		}
		if !results[1].Failed() {
			t.Error("expected second corpus to record its error")
		}
	})

	t.Run("returns cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() })
		_, err := bp.ProcessBatch(ctx, []string{"a", "b"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	indexes := make(map[int]string)

	bp := NewBatchProcessor(func(string) *Pipeline { return New() })
	err := bp.ProcessBatchWithCallback(context.Background(), []string{"x", "y"},
		func(report *model.RankReport, index int) {
			mu.Lock()
			indexes[index] = report.Corpus
			mu.Unlock()
		})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if indexes[0] != "x" || indexes[1] != "y" {
		t.Errorf("expected callback per corpus, got %v", indexes)
	}
}
