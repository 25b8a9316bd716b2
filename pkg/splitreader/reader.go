// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package splitreader

import (
	"context"
	"sync"

	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/pingcap/aggsplit/pkg/metrics"
	"github.com/pingcap/aggsplit/pkg/planner"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ResultIterator iterates the result rows of one split.
type ResultIterator interface {
	// Next advances to the next row. It returns false when there is no more
	// row or an error happened.
	Next() bool
	// Current returns the row Next advanced to.
	Current() any
	// Err returns the error stopped the iteration, if any.
	Err() error
	// Close releases the resources held by the iterator.
	Close() error
}

// Executor runs the query over a key range of a partition set.
type Executor interface {
	// Execute starts the execution over [start, end) of the partition set,
	// an empty end means unbounded.
	Execute(ctx context.Context, start, end kv.Key, partitionSetID string) (ResultIterator, error)
}

// Reader reads the result rows of one split.
//
// Next and Current must be called from one goroutine, Close may be called
// from any goroutine and any number of times.
type Reader struct {
	logger *zap.Logger

	mu      sync.Mutex
	iter    ResultIterator
	current any
	hasRow  bool

	closed   atomic.Bool
	closeErr error
	rows     atomic.Int64
}

// Open starts the execution of split and returns a reader over its rows.
func Open(ctx context.Context, split planner.Split, executor Executor) (*Reader, error) {
	if split.PartitionSetID == "" {
		return nil, errors.Annotatef(berrors.ErrMissingPartitionID, "split %s", split)
	}
	ctx = logutil.ContextWithSplit(ctx, split.PartitionSetID, split.KeyRange(), split.Host)
	logger := logutil.CL(ctx)

	iter, err := executor.Execute(ctx, split.Start, split.End, split.PartitionSetID)
	if err != nil {
		logger.Warn("failed to execute split", logutil.ShortError(err))
		return nil, berrors.ErrExecute.Wrap(err).GenWithStackByArgs()
	}
	logger.Debug("split reader opened")
	return &Reader{
		logger: logger,
		iter:   iter,
	}, nil
}

// Next advances to the next row. It returns false at the end of the split,
// on error, and once the reader is closed.
func (r *Reader) Next() bool {
	if r.closed.Load() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// closed while waiting for the lock.
	if r.closed.Load() {
		return false
	}
	r.hasRow = r.iter.Next()
	if !r.hasRow {
		r.current = nil
		return false
	}
	r.current = r.iter.Current()
	r.rows.Inc()
	metrics.ReadRowsCounter.Inc()
	return true
}

// Current returns the row of the last successful Next, or nil.
func (r *Reader) Current() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasRow || r.closed.Load() {
		return nil
	}
	return r.current
}

// Rows returns the number of rows read so far.
func (r *Reader) Rows() int64 {
	return r.rows.Load()
}

// Err returns the error stopped the iteration, if any.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.iter.Err(); err != nil {
		return berrors.ErrExecute.Wrap(err).GenWithStackByArgs()
	}
	return nil
}

// Close stops the row production and releases the executor resources. Only
// the first call closes the underlying iterator, the later ones return the
// same result.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return r.closeErr
	}
	r.closed.Store(true)
	r.current = nil
	r.hasRow = false
	if err := r.iter.Close(); err != nil {
		r.closeErr = errors.Trace(err)
		r.logger.Warn("failed to close split reader", logutil.ShortError(err))
	}
	r.logger.Debug("split reader closed", zap.Int64("rows", r.rows.Load()))
	return r.closeErr
}
