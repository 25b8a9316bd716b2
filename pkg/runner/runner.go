// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package runner

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/pingcap/aggsplit/pkg/metrics"
	"github.com/pingcap/aggsplit/pkg/planner"
	"github.com/pingcap/aggsplit/pkg/splitreader"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sink consumes the rows read from the splits. It is called concurrently by
// the workers.
type Sink func(ctx context.Context, split planner.Split, row any) error

// Result is the outcome of executing one split.
type Result struct {
	Split planner.Split
	Rows  int64
	Err   error
	Take  time.Duration
}

// Runner executes the splits of a plan in parallel. The splits share nothing,
// a failed split never stops the others.
type Runner struct {
	executor splitreader.Executor
	workers  splitWorkers
	sink     Sink

	total    atomic.Int64
	finished atomic.Int64
	failed   atomic.Int64
}

// New creates a Runner executing at most concurrency splits at the same time.
func New(executor splitreader.Executor, concurrency uint, sink Sink) *Runner {
	return &Runner{
		executor: executor,
		workers:  newSplitWorkers(concurrency),
		sink:     sink,
	}
}

// Progress returns the number of finished splits, the failed ones included,
// and the number of splits to run.
func (r *Runner) Progress() (finished, total int64) {
	return r.finished.Load(), r.total.Load()
}

// Failed returns the number of failed splits.
func (r *Runner) Failed() int64 {
	return r.failed.Load()
}

// Run executes the splits and returns their results in the order of splits.
// The returned error is only about the run as a whole, i.e. the context is
// done before all the splits are executed. The splits never started are
// reported with the context error.
func (r *Runner) Run(ctx context.Context, splits []planner.Split) ([]Result, error) {
	r.total.Add(int64(len(splits)))
	results := make([]Result, len(splits))
	for i := range splits {
		results[i].Split = splits[i]
	}

	eg := new(errgroup.Group)
	var applyErr error
	for i := range splits {
		id, err := r.workers.acquire(ctx)
		if err != nil {
			applyErr = err
			for j := i; j < len(splits); j++ {
				results[j].Err = err
			}
			break
		}
		eg.Go(func() error {
			defer r.workers.release(id)
			results[i] = r.runSplit(ctx, id, splits[i])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return results, errors.Trace(err)
	}
	if applyErr != nil {
		logutil.CL(ctx).Warn("split run interrupted", logutil.ShortError(applyErr))
	}
	return results, errors.Trace(applyErr)
}

func (r *Runner) runSplit(ctx context.Context, workerID uint64, split planner.Split) (result Result) {
	begin := time.Now()
	result.Split = split
	ctx = logutil.ContextWithField(ctx, zap.Uint64("worker", workerID))
	logger := logutil.CL(ctx).With(zap.Stringer("split", split))

	metrics.RunningSplitsGauge.Inc()
	defer func() {
		metrics.RunningSplitsGauge.Dec()
		result.Take = time.Since(begin)
		r.finished.Inc()
		if result.Err != nil {
			r.failed.Inc()
			metrics.ExecuteSplitCounter.WithLabelValues(metrics.LblError).Inc()
			logger.Warn("split failed", zap.Int64("rows", result.Rows), logutil.ShortError(result.Err))
			return
		}
		metrics.ExecuteSplitCounter.WithLabelValues(metrics.LblOK).Inc()
		logger.Debug("split finished", zap.Int64("rows", result.Rows), zap.Duration("take", result.Take))
	}()
	defer recoverSplit(logger, &result.Err)

	reader, err := splitreader.Open(ctx, split, r.executor)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() {
		result.Rows = reader.Rows()
		result.Err = multierr.Append(result.Err, reader.Close())
	}()
	for reader.Next() {
		if r.sink == nil {
			continue
		}
		if err := r.sink(ctx, split, reader.Current()); err != nil {
			return Result{Split: split, Err: errors.Annotate(err, "sink rejects row")}
		}
	}
	result.Err = reader.Err()
	return result
}

// recoverSplit turns a panic of the running split into the error of the split.
func recoverSplit(logger *zap.Logger, err *error) {
	if item := recover(); item != nil {
		*err = errors.Annotatef(berrors.ErrUnknown, "split panicked: %v", item)
		logger.Warn("split panicked", zap.StackSkip("stack", 1), logutil.ShortError(*err))
	}
}

// splitWorkers hands out the IDs of idle workers, one running split per ID.
type splitWorkers chan uint64

func newSplitWorkers(concurrency uint) splitWorkers {
	if concurrency == 0 {
		concurrency = 1
	}
	w := make(splitWorkers, concurrency)
	for id := uint64(1); id <= uint64(concurrency); id++ {
		w <- id
	}
	return w
}

// acquire waits for an idle worker.
func (w splitWorkers) acquire(ctx context.Context) (uint64, error) {
	if ctx.Err() != nil {
		return 0, errors.Trace(context.Cause(ctx))
	}
	select {
	case <-ctx.Done():
		return 0, errors.Trace(context.Cause(ctx))
	case id := <-w:
		return id, nil
	}
}

func (w splitWorkers) release(id uint64) {
	w <- id
}

// Summary sums up the results of a run.
type Summary struct {
	Splits int
	Failed int
	Rows   int64
}

// Summarize sums up results.
func Summarize(results []Result) Summary {
	s := Summary{Splits: len(results)}
	for _, r := range results {
		s.Rows += r.Rows
		if r.Err != nil {
			s.Failed++
		}
	}
	return s
}

// CombinedError combines the errors of all the failed splits.
func CombinedError(results []Result) error {
	errs := make([]error, 0, len(results))
	for _, r := range results {
		errs = append(errs, r.Err)
	}
	return multierr.Combine(errs...)
}
