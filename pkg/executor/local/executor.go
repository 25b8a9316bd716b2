// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package local

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/pingcap/aggsplit/pkg/splitreader"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ValueLen is the length of a stored measure, a big endian int64.
const ValueLen = 8

// Executor executes splits against local pebble databases, one database per
// partition set. Each row of the database is a measure keyed by its
// dimension key, the executor sums up the measures sharing the same grouping
// key prefix.
type Executor struct {
	groupKeyLen int

	mu  sync.RWMutex
	dbs map[string]*pebble.DB
}

var _ splitreader.Executor = (*Executor)(nil)

// NewExecutor creates an Executor grouping the rows by their first
// groupKeyLen bytes.
func NewExecutor(groupKeyLen int) *Executor {
	return &Executor{
		groupKeyLen: groupKeyLen,
		dbs:         make(map[string]*pebble.DB),
	}
}

// AddPartitionSet registers the database storing a partition set. The
// executor takes over the database and closes it in Close.
func (e *Executor) AddPartitionSet(partitionSetID string, db *pebble.DB) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dbs[partitionSetID] = db
}

// OpenDir opens the database of every partition set under dir, the database
// of a partition set lives in the sub directory named by its id.
func (e *Executor) OpenDir(ctx context.Context, dir string, partitionSetIDs ...string) error {
	for _, id := range partitionSetIDs {
		path := filepath.Join(dir, id)
		if _, err := os.Stat(path); err != nil {
			return errors.Annotatef(berrors.ErrUnknownPartitionSet, "partition set %s: %s", id, err)
		}
		db, err := pebble.Open(path, &pebble.Options{})
		if err != nil {
			return errors.Annotatef(err, "open partition set %s", id)
		}
		logutil.CL(ctx).Info("opened partition set", zap.String("partition-set", id), zap.String("path", path))
		e.AddPartitionSet(id, db)
	}
	return nil
}

// Execute implements splitreader.Executor.
func (e *Executor) Execute(ctx context.Context, start, end kv.Key, partitionSetID string) (splitreader.ResultIterator, error) {
	e.mu.RLock()
	db, ok := e.dbs[partitionSetID]
	e.mu.RUnlock()
	if !ok {
		return nil, errors.Annotatef(berrors.ErrUnknownPartitionSet, "partition set %s", partitionSetID)
	}
	opts := &pebble.IterOptions{}
	if len(start) > 0 {
		opts.LowerBound = start.Clone()
	}
	if len(end) > 0 {
		opts.UpperBound = end.Clone()
	}
	iter, err := db.NewIter(opts)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &groupIter{
		ctx:         ctx,
		iter:        iter,
		groupKeyLen: e.groupKeyLen,
	}, nil
}

// DiskUsage returns the disk space used by all the databases in bytes.
func (e *Executor) DiskUsage() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var total uint64
	for _, db := range e.dbs {
		total += db.Metrics().DiskSpaceUsage()
	}
	return total
}

// Close closes all the databases.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	for id, db := range e.dbs {
		err = multierr.Append(err, errors.Annotatef(db.Close(), "close partition set %s", id))
		delete(e.dbs, id)
	}
	return err
}

// AggregateRow is the aggregation of the measures sharing a grouping key.
type AggregateRow struct {
	GroupKey kv.Key
	Count    int64
	Sum      int64
}

// groupIter folds adjacent rows sharing the grouping key prefix.
type groupIter struct {
	ctx         context.Context
	iter        *pebble.Iterator
	groupKeyLen int

	started bool
	valid   bool
	current AggregateRow
	err     error
}

func (it *groupIter) groupKey(key []byte) []byte {
	if len(key) <= it.groupKeyLen {
		return key
	}
	return key[:it.groupKeyLen]
}

// Next implements splitreader.ResultIterator.
func (it *groupIter) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = errors.Trace(err)
		return false
	}
	if !it.started {
		it.started = true
		it.valid = it.iter.First()
	}
	if !it.valid {
		it.err = errors.Trace(it.iter.Error())
		return false
	}

	row := AggregateRow{GroupKey: kv.Key(it.groupKey(it.iter.Key())).Clone()}
	for it.valid && kv.Key(it.groupKey(it.iter.Key())).Cmp(row.GroupKey) == 0 {
		value := it.iter.Value()
		if len(value) != ValueLen {
			it.err = errors.Errorf("malformed measure of key %s, expect %d bytes but got %d",
				kv.Key(it.iter.Key()), ValueLen, len(value))
			return false
		}
		row.Count++
		row.Sum += int64(binary.BigEndian.Uint64(value))
		it.valid = it.iter.Next()
	}
	it.current = row
	return true
}

// Current implements splitreader.ResultIterator.
func (it *groupIter) Current() any {
	return it.current
}

// Err implements splitreader.ResultIterator.
func (it *groupIter) Err() error {
	return it.err
}

// Close implements splitreader.ResultIterator.
func (it *groupIter) Close() error {
	return errors.Trace(it.iter.Close())
}

// EncodeValue encodes a measure.
func EncodeValue(v int64) []byte {
	buf := make([]byte, ValueLen)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

// Put writes measures into db in one batch.
func Put(db *pebble.DB, keys []kv.Key, values []int64) error {
	if len(keys) != len(values) {
		return errors.Annotatef(berrors.ErrInvalidArgument, "%d keys but %d values", len(keys), len(values))
	}
	batch := db.NewBatch()
	defer batch.Close()
	for i, key := range keys {
		if err := batch.Set(key, EncodeValue(values[i]), nil); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(batch.Commit(pebble.Sync))
}
