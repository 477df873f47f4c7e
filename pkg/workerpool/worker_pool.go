// Package workerpool runs a fixed number of goroutines against a stream
// of tasks and waits for them all to finish. The rule engine's parallel
// joins and the encoder's line partitioning both use it. The joins stay
// deterministic regardless of worker count because every task's
// contribution is combined in a commutative way by the caller (sum of
// signed multiplicities).
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a unit of work submitted to the pool. Its error, if any, is
// logged, and Run returns the first such error, wrapped with the task's
// index.
type Task func(ctx context.Context) error

// Pool runs tasks across a fixed number of worker goroutines.
type Pool struct {
	workers int
	logger  *logrus.Logger
}

// New creates a Pool with the given worker count. A count <= 0 falls
// back to runtime.NumCPU().
func New(workers int, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pool{workers: workers, logger: logger}
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Run executes all tasks, capped at p.workers concurrently, and blocks
// until every task has completed. It returns the first error
// encountered, if any, after all tasks have finished.
func (p *Pool) Run(ctx context.Context, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, task := range tasks {
		task := task
		idx := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := task(ctx); err != nil {
				p.logger.WithFields(logrus.Fields{
					"task_index": idx,
					"error":      err,
				}).Error("worker pool task failed")
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("task %d: %w", idx, err)
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return firstErr
}

// Partition splits n items into p.workers contiguous shards (earlier
// shards absorbing any remainder), used by the encoder to assign line
// ranges. The join operator does not use it: it assigns hash buckets
// itself, one per worker.
func (p *Pool) Partition(n int) [][2]int {
	if n == 0 {
		return nil
	}
	workers := p.workers
	if workers > n {
		workers = n
	}
	shards := make([][2]int, 0, workers)
	base := n / workers
	rem := n % workers
	start := 0
	for i := 0; i < workers; i++ {
		size := base
		if i < rem {
			size++
		}
		if size == 0 {
			continue
		}
		shards = append(shards, [2]int{start, start + size})
		start += size
	}
	return shards
}
