// Package pipeline provides the bounded worker pool shared by the cardinality
// estimator, the rule engine and the codec meter.
package pipeline

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ParallelProcessor runs independent, read-only tasks on a bounded number of
// goroutines. Results are always returned by task index, so callers can merge
// deterministically regardless of scheduling.
type ParallelProcessor struct {
	name       string
	logger     *zap.Logger
	numWorkers int

	// Performance metrics
	tasksProcessed int64
	processingTime int64 // nanoseconds
}

// ParallelConfig configures the parallel processor
type ParallelConfig struct {
	Name       string
	NumWorkers int // 0 = auto (NumCPU)
}

// NewParallelProcessor creates a new parallel processor
func NewParallelProcessor(config ParallelConfig, logger *zap.Logger) *ParallelProcessor {
	if config.NumWorkers <= 0 {
		config.NumWorkers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ParallelProcessor{
		name:       config.Name,
		logger:     logger,
		numWorkers: config.NumWorkers,
	}
}

// Workers returns the concurrency bound
func (p *ParallelProcessor) Workers() int {
	return p.numWorkers
}

// Map calls fn for every index in [0, n) with at most Workers() calls in
// flight and returns the results in index order. The first error cancels the
// remaining tasks and is returned; tasks that already started run to
// completion.
func Map[T any](ctx context.Context, p *ParallelProcessor, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	semaphore := make(chan struct{}, p.numWorkers)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for i := 0; i < n; i++ {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
		}
		if err := ctx.Err(); err != nil {
			errOnce.Do(func() { firstErr = err })
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result, err := fn(ctx, i)
			if err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
				return
			}
			results[i] = result
			atomic.AddInt64(&p.tasksProcessed, 1)
		}(i)
	}

	wg.Wait()
	atomic.AddInt64(&p.processingTime, int64(time.Since(start)))

	if firstErr != nil {
		p.logger.Debug("parallel map aborted",
			zap.String("name", p.name),
			zap.Int("tasks", n),
			zap.Error(firstErr))
		return nil, firstErr
	}

	p.logger.Debug("parallel map completed",
		zap.String("name", p.name),
		zap.Int("tasks", n),
		zap.Int("workers", p.numWorkers),
		zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

// Stats returns the number of completed tasks and the accumulated wall time
// spent in Map.
func (p *ParallelProcessor) Stats() (tasks int64, elapsed time.Duration) {
	return atomic.LoadInt64(&p.tasksProcessed), time.Duration(atomic.LoadInt64(&p.processingTime))
}
