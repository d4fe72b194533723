// internal/pipeline/pipeline.go
// Package pipeline dispatches chunks to a bounded pool of workers.
// The unbuffered jobs channel is the backpressure gate: at most Workers
// chunks are in flight, and the producer blocks until a worker frees up,
// which bounds peak memory on arbitrarily large inputs. One bad chunk is
// a logged failure, never an aborted run.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chemsift-core/chunk"
)

// Summary is the small per-chunk result kept in memory after the
// chunk's data has been released: issue counts only.
type Summary struct {
	File     string
	Index    int
	Records  int
	Accepted int
	Issues   map[string]int
}

// Failure is a chunk whose task failed wholesale (error, panic or
// timeout). It is excluded from Summaries but still surfaces in the
// audit log via the OnFailure hook.
type Failure struct {
	File    string
	Index   int
	Records int
	Err     error
}

// TaskFunc processes one chunk. It must be safe to call concurrently.
type TaskFunc func(ctx context.Context, c chunk.Chunk) (Summary, error)

// Config controls the scheduler.
type Config struct {
	Workers     int           // <1 = DefaultWorkers()
	TaskTimeout time.Duration // 0 = no per-task deadline
	Logger      *zap.Logger

	// OnSummary/OnFailure run on the collector goroutine, in completion
	// order, before the run returns. Used to append audit entries as
	// soon as each chunk completes.
	OnSummary func(Summary)
	OnFailure func(Failure)
}

// Results is everything the scheduler retains once the run is over.
type Results struct {
	Summaries []Summary
	Failures  []Failure
}

// Accepted sums accepted records across successful chunks.
func (r Results) Accepted() int {
	n := 0
	for _, s := range r.Summaries {
		n += s.Accepted
	}
	return n
}

// DefaultWorkers reserves one CPU for the coordinating process.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Run consumes chunks until the channel closes, keeping at most
// cfg.Workers chunks in flight. It returns early only on context
// cancellation; task failures are collected, not propagated.
func Run(ctx context.Context, cfg Config, chunks <-chan chunk.Chunk, task TaskFunc) (Results, error) {
	if cfg.Workers < 1 {
		cfg.Workers = DefaultWorkers()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	type outcome struct {
		sum  Summary
		fail *Failure
	}
	results := make(chan outcome, cfg.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case c, ok := <-chunks:
					if !ok {
						return nil
					}
					sum, err := runTask(gctx, cfg, task, c)
					var out outcome
					if err != nil {
						out.fail = &Failure{File: c.SourceFile, Index: c.Index, Records: len(c.Lines), Err: err}
					} else {
						out.sum = sum
					}
					select {
					case results <- out:
					case <-gctx.Done():
						return gctx.Err()
					}
				}
			}
		})
	}

	var res Results
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for o := range results {
			if o.fail != nil {
				logger.Error("chunk task failed",
					zap.String("file", o.fail.File),
					zap.Int("chunk", o.fail.Index),
					zap.Error(o.fail.Err))
				if cfg.OnFailure != nil {
					cfg.OnFailure(*o.fail)
				}
				res.Failures = append(res.Failures, *o.fail)
				continue
			}
			logger.Debug("chunk done",
				zap.String("file", o.sum.File),
				zap.Int("chunk", o.sum.Index),
				zap.Int("accepted", o.sum.Accepted))
			if cfg.OnSummary != nil {
				cfg.OnSummary(o.sum)
			}
			res.Summaries = append(res.Summaries, o.sum)
		}
	}()

	err := g.Wait()
	close(results)
	<-collected
	return res, err
}

// runTask isolates one task invocation: panics become errors, and a
// task that outlives its deadline is converted into a failure (the
// goroutine is abandoned; its eventual result is discarded).
func runTask(ctx context.Context, cfg Config, task TaskFunc, c chunk.Chunk) (Summary, error) {
	tctx := ctx
	if cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, cfg.TaskTimeout)
		defer cancel()
	}

	type result struct {
		sum Summary
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		sum, err := task(tctx, c)
		ch <- result{sum: sum, err: err}
	}()

	select {
	case r := <-ch:
		return r.sum, r.err
	case <-tctx.Done():
		return Summary{}, fmt.Errorf("task: %w", tctx.Err())
	}
}
