// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package local

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pingcap/aggsplit/pkg/config"
	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/aggsplit/pkg/partition"
	"github.com/pingcap/aggsplit/pkg/planner"
	"github.com/pingcap/aggsplit/pkg/splitreader"
	"github.com/stretchr/testify/require"
)

func openMemDB(t *testing.T) *pebble.DB {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	return db
}

func newTestExecutor(t *testing.T) *Executor {
	db := openMemDB(t)
	require.NoError(t, Put(db,
		[]kv.Key{
			{0x02, 0x01}, {0x02, 0x02},
			{0x05, 0x00}, {0x05, 0x10}, {0x05, 0x20},
			{0x08, 0x01},
			{0x0a, 0x01}, {0x0a, 0x02},
		},
		[]int64{1, 2, 10, 20, 30, -5, 100, 200}))
	e := NewExecutor(1)
	e.AddPartitionSet("cube_a", db)
	t.Cleanup(func() {
		require.NoError(t, e.Close())
	})
	return e
}

func readAll(t *testing.T, iter splitreader.ResultIterator) []AggregateRow {
	var rows []AggregateRow
	for iter.Next() {
		rows = append(rows, iter.Current().(AggregateRow))
	}
	require.NoError(t, iter.Err())
	require.NoError(t, iter.Close())
	return rows
}

func TestExecute(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	iter, err := e.Execute(ctx, kv.Key{0x02}, kv.Key{0x09}, "cube_a")
	require.NoError(t, err)
	require.Equal(t, []AggregateRow{
		{GroupKey: kv.Key{0x02}, Count: 2, Sum: 3},
		{GroupKey: kv.Key{0x05}, Count: 3, Sum: 60},
		{GroupKey: kv.Key{0x08}, Count: 1, Sum: -5},
	}, readAll(t, iter))

	iter, err = e.Execute(ctx, kv.Key{0x05}, nil, "cube_a")
	require.NoError(t, err)
	require.Equal(t, []AggregateRow{
		{GroupKey: kv.Key{0x05}, Count: 3, Sum: 60},
		{GroupKey: kv.Key{0x08}, Count: 1, Sum: -5},
		{GroupKey: kv.Key{0x0a}, Count: 2, Sum: 300},
	}, readAll(t, iter))

	iter, err = e.Execute(ctx, kv.Key{0x0b}, nil, "cube_a")
	require.NoError(t, err)
	require.Empty(t, readAll(t, iter))
}

func TestExecuteSplits(t *testing.T) {
	e := newTestExecutor(t)
	ctx := context.Background()

	source := partition.NewStaticSource()
	require.NoError(t, source.SetPartitions("cube_a", partition.Boundaries{{}, {0x05}, {0x0a}}, nil))
	preparer := planner.StaticPreparer{
		{Start: kv.Key{0x02}, End: kv.Key{0x08, 0xff}, GroupKeyLen: 1, PartitionSetID: "cube_a"},
	}
	splits, err := planner.NewPlanner(preparer, source).Plan(ctx, &config.JobConfig{})
	require.NoError(t, err)
	require.Len(t, splits, 2)

	total := AggregateRow{}
	groups := 0
	for _, split := range splits {
		r, err := splitreader.Open(ctx, split, e)
		require.NoError(t, err)
		for r.Next() {
			row := r.Current().(AggregateRow)
			require.True(t, split.KeyRange().Contains(row.GroupKey))
			total.Count += row.Count
			total.Sum += row.Sum
			groups++
		}
		require.NoError(t, r.Err())
		require.NoError(t, r.Close())
	}
	require.Equal(t, 3, groups)
	require.Equal(t, AggregateRow{Count: 6, Sum: 58}, total)
}

func TestExecuteErrors(t *testing.T) {
	e := newTestExecutor(t)
	_, err := e.Execute(context.Background(), nil, nil, "cube_b")
	require.True(t, berrors.Is(err, berrors.ErrUnknownPartitionSet))

	db := openMemDB(t)
	require.NoError(t, db.Set([]byte{0x01}, []byte{0x01, 0x02}, pebble.Sync))
	e.AddPartitionSet("broken", db)
	iter, err := e.Execute(context.Background(), nil, nil, "broken")
	require.NoError(t, err)
	require.False(t, iter.Next())
	require.ErrorContains(t, iter.Err(), "malformed measure")
	require.NoError(t, iter.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	iter, err = e.Execute(ctx, nil, nil, "cube_a")
	require.NoError(t, err)
	require.False(t, iter.Next())
	require.Equal(t, context.Canceled, errors.Cause(iter.Err()))
	require.NoError(t, iter.Close())

	require.True(t, berrors.Is(Put(db, []kv.Key{{0x01}}, nil), berrors.ErrInvalidArgument))
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	db, err := pebble.Open(filepath.Join(dir, "cube_a"), &pebble.Options{})
	require.NoError(t, err)
	require.NoError(t, Put(db, []kv.Key{{0x01, 0x01}, {0x01, 0x02}}, []int64{7, 8}))
	require.NoError(t, db.Close())

	e := NewExecutor(1)
	defer func() {
		require.NoError(t, e.Close())
	}()
	err = e.OpenDir(context.Background(), dir, "cube_a", "cube_b")
	require.True(t, berrors.Is(err, berrors.ErrUnknownPartitionSet))

	iter, err := e.Execute(context.Background(), nil, nil, "cube_a")
	require.NoError(t, err)
	require.Equal(t, []AggregateRow{{GroupKey: kv.Key{0x01}, Count: 2, Sum: 15}}, readAll(t, iter))
}
