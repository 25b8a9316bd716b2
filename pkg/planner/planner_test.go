// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package planner

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pingcap/errors"
	"github.com/pingcap/aggsplit/pkg/config"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/aggsplit/pkg/partition"
	"github.com/stretchr/testify/require"
)

type recordPreparer struct {
	ranges []ScanRange
	err    error

	queryText string
	params    map[int]string
}

func (p *recordPreparer) Prepare(_ context.Context, queryText string, params map[int]string) ([]ScanRange, error) {
	p.queryText = queryText
	p.params = params
	return p.ranges, p.err
}

func newCubeSource(t *testing.T) *partition.StaticSource {
	source := partition.NewStaticSource()
	require.NoError(t, source.SetPartitions("cube_a",
		partition.Boundaries{{}, {0x05}, {0x0a}},
		[]string{"h1", "h2", "h3"}))
	return source
}

func TestPlan(t *testing.T) {
	preparer := &recordPreparer{ranges: []ScanRange{
		{Start: kv.Key{0x02}, End: kv.Key{0x04}, GroupKeyLen: 1, PartitionSetID: "cube_a"},
		{Start: kv.Key{0x06}, End: kv.Key{0x08}, GroupKeyLen: 1, PartitionSetID: "cube_a"},
	}}
	job := &config.JobConfig{QueryText: "select sum(x) from cube_a where d between ? and ?"}
	job.SetParam(0, "2")
	job.SetParam(1, "8")

	splits, err := NewPlanner(preparer, newCubeSource(t)).Plan(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, []Split{
		{Host: "h1", PartitionSetID: "cube_a", Start: kv.Key{0x02}, End: kv.Key{0x05}},
		{Host: "h2", PartitionSetID: "cube_a", Start: kv.Key{0x05}, End: kv.Key{0x09}},
	}, splits)
	require.Equal(t, job.QueryText, preparer.queryText)
	require.Equal(t, map[int]string{0: "2", 1: "8"}, preparer.params)
}

func TestPlanNoScan(t *testing.T) {
	splits, err := NewPlanner(StaticPreparer(nil), newCubeSource(t)).Plan(context.Background(), &config.JobConfig{})
	require.NoError(t, err)
	require.Nil(t, splits)
}

func TestPlanErrors(t *testing.T) {
	ctx := context.Background()
	source := newCubeSource(t)
	job := &config.JobConfig{}

	_, err := NewPlanner(&recordPreparer{err: errors.New("syntax error")}, source).Plan(ctx, job)
	require.True(t, berrors.Is(err, berrors.ErrPlanningIO))

	preparer := StaticPreparer{{Start: kv.Key{0x01}, End: kv.Key{0x02}, PartitionSetID: "cube_b"}}
	splits, err := NewPlanner(preparer, source).Plan(ctx, job)
	require.Nil(t, splits)
	require.True(t, berrors.Is(err, berrors.ErrPlanningIO))
	require.True(t, berrors.Is(err, berrors.ErrUnknownPartitionSet))

	preparer = StaticPreparer{
		{Start: kv.Key{0x01}, End: kv.Key{0x02}, PartitionSetID: "cube_a"},
		{Start: kv.Key{0x01}, End: kv.Key{0x02}, PartitionSetID: "cube_b"},
	}
	splits, err = NewPlanner(preparer, source).Plan(ctx, job)
	require.Nil(t, splits)
	require.True(t, berrors.Is(err, berrors.ErrIncompatiblePartitionSet))
}

func TestStaticPreparer(t *testing.T) {
	preparer, err := NewStaticPreparer([]config.ScanRange{
		{Start: "0x0102", End: "ff", GroupKeyLen: 2, PartitionSet: "cube_a"},
	})
	require.NoError(t, err)
	ranges, err := preparer.Prepare(context.Background(), "", nil)
	require.NoError(t, err)
	require.Equal(t, []ScanRange{
		{Start: kv.Key{0x01, 0x02}, End: kv.Key{0xff}, GroupKeyLen: 2, PartitionSetID: "cube_a"},
	}, ranges)
	// the returned ranges are copies.
	ranges[0].Start[0] = 0x10
	require.Equal(t, kv.Key{0x01, 0x02}, preparer[0].Start)

	_, err = NewStaticPreparer([]config.ScanRange{{Start: "xyz"}})
	require.True(t, berrors.Is(err, berrors.ErrConfigInvalid))
}

func TestSplitJSON(t *testing.T) {
	splits := []Split{
		{Host: "h1", PartitionSetID: "cube_a", Start: kv.Key{}, End: kv.Key{0x05}},
		{PartitionSetID: "cube_a", Start: kv.Key{0x05}},
	}
	data, err := json.Marshal(splits)
	require.NoError(t, err)
	require.JSONEq(t, `[
		{"host": "h1", "partition_set_id": "cube_a", "start": "", "end": "BQ=="},
		{"host": "", "partition_set_id": "cube_a", "start": "BQ==", "end": null}
	]`, string(data))

	var decoded []Split
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, splits, decoded)
	require.True(t, decoded[1].IsUnbounded())
	require.Equal(t, "cube_a[05, +inf)@<unknown>", decoded[1].String())
}

func TestSplitRanges(t *testing.T) {
	require.Equal(t, "{[, 05), [05, +inf)}", splitRanges([]Split{
		{PartitionSetID: "cube_a", Start: kv.Key{}, End: kv.Key{0x05}},
		{PartitionSetID: "cube_a", Start: kv.Key{0x05}},
	}).String())
	require.Equal(t, "{}", splitRanges(nil).String())
}
