package batch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cnec/backend/internal/infrastructure/config"
	"golang.org/x/sync/errgroup"
)

// Default pacing used when a config value is not positive
const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 5
)

// Executor sends work in chunks of BatchSize, pausing InterBatchDelay
// between chunks so outbound providers are not flooded. Items of one chunk
// run concurrently, at most Concurrency at a time.
type Executor[T any] struct {
	batchSize       int
	interBatchDelay time.Duration
	concurrency     int
}

// NewExecutor creates an executor from the batch config
func NewExecutor[T any](cfg config.BatchConfig) *Executor[T] {
	e := &Executor[T]{
		batchSize:       cfg.Size,
		interBatchDelay: cfg.InterBatchDelay,
		concurrency:     cfg.Concurrency,
	}
	if e.batchSize <= 0 {
		e.batchSize = DefaultBatchSize
	}
	if e.interBatchDelay < 0 {
		e.interBatchDelay = 0
	}
	if e.concurrency <= 0 {
		e.concurrency = DefaultConcurrency
	}
	return e
}

// BatchSize returns the chunk size
func (e *Executor[T]) BatchSize() int {
	return e.batchSize
}

// Execute calls fn for every item. A failing item does not stop the others;
// all failures are joined into the returned error. When ctx is cancelled
// no further chunk is started and ctx.Err() is part of the result.
func (e *Executor[T]) Execute(ctx context.Context, items []T, fn func(ctx context.Context, item T) error) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	for start := 0; start < len(items); start += e.batchSize {
		if start > 0 {
			if err := sleep(ctx, e.interBatchDelay); err != nil {
				errs = append(errs, err)
				break
			}
		} else if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		end := min(start+e.batchSize, len(items))
		var g errgroup.Group
		g.SetLimit(e.concurrency)
		for _, item := range items[start:end] {
			g.Go(func() error {
				if err := fn(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return errors.Join(errs...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
