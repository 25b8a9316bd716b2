// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package planner

import (
	"context"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"github.com/pingcap/aggsplit/pkg/config"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/pingcap/aggsplit/pkg/metrics"
	"github.com/pingcap/aggsplit/pkg/partition"
	"go.uber.org/zap"
)

// Preparer prepares a query and generates the scans needed to answer it.
type Preparer interface {
	// Prepare binds the positional parameters to queryText and returns the
	// scan ranges of the query.
	Prepare(ctx context.Context, queryText string, params map[int]string) ([]ScanRange, error)
}

// StaticPreparer is a Preparer returning fixed scan ranges whatever the query is.
type StaticPreparer []ScanRange

// Prepare implements Preparer.
func (p StaticPreparer) Prepare(context.Context, string, map[int]string) ([]ScanRange, error) {
	ret := make([]ScanRange, 0, len(p))
	for _, r := range p {
		r.Start = r.Start.Clone()
		r.End = r.End.Clone()
		ret = append(ret, r)
	}
	return ret, nil
}

// NewStaticPreparer builds a StaticPreparer from the scan sections of a job
// config.
func NewStaticPreparer(scans []config.ScanRange) (StaticPreparer, error) {
	ret := make(StaticPreparer, 0, len(scans))
	for _, s := range scans {
		start, err := config.ParseKey(s.Start)
		if err != nil {
			return nil, errors.Annotate(berrors.ErrConfigInvalid, err.Error())
		}
		end, err := config.ParseKey(s.End)
		if err != nil {
			return nil, errors.Annotate(berrors.ErrConfigInvalid, err.Error())
		}
		ret = append(ret, ScanRange{
			Start:          start,
			End:            end,
			GroupKeyLen:    s.GroupKeyLen,
			PartitionSetID: s.PartitionSet,
		})
	}
	return ret, nil
}

// Planner plans the splits of aggregate queries.
type Planner struct {
	preparer Preparer
	source   partition.Source
}

// NewPlanner creates a Planner.
func NewPlanner(preparer Preparer, source partition.Source) *Planner {
	return &Planner{
		preparer: preparer,
		source:   source,
	}
}

// Plan prepares the job's query and cuts its scan range into splits aligned
// with both the partitions and the grouping keys. Any error aborts the whole
// plan.
func (p *Planner) Plan(ctx context.Context, job *config.JobConfig) (_ []Split, err error) {
	begin := time.Now()
	defer func() {
		if err != nil {
			metrics.PlanCounter.WithLabelValues(metrics.LblError).Inc()
			return
		}
		metrics.PlanCounter.WithLabelValues(metrics.LblOK).Inc()
		metrics.PlanDurationHistogram.Observe(time.Since(begin).Seconds())
	}()

	ranges, err := p.preparer.Prepare(ctx, job.QueryText, job.Params())
	if err != nil {
		return nil, berrors.ErrPlanningIO.Wrap(err).GenWithStackByArgs()
	}
	if len(ranges) == 0 {
		logutil.CL(ctx).Info("query generates no scan, nothing to plan")
		return nil, nil
	}
	overall, groupKeyLen, err := Union(ranges)
	if err != nil {
		return nil, errors.Trace(err)
	}

	ctx = logutil.ContextWithField(ctx, zap.String("partition-set", overall.PartitionSetID))
	boundaries, err := p.listBoundaries(ctx, overall.PartitionSetID)
	if err != nil {
		return nil, berrors.ErrPlanningIO.Wrap(err).GenWithStackByArgs()
	}

	splits, err := Align(ctx, boundaries, overall, groupKeyLen, func(ctx context.Context, key kv.Key) (string, error) {
		return p.source.ResolveHost(ctx, overall.PartitionSetID, key)
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	metrics.SplitsPerPlanHistogram.Observe(float64(len(splits)))
	logutil.CL(ctx).Info("planned splits",
		zap.Int("scans", len(ranges)),
		zap.Int("partitions", len(boundaries)),
		zap.Int("splits", len(splits)),
		zap.Int("group-key-len", groupKeyLen),
		zap.Stringer("overall", logutil.StringifyRange(overall.KeyRange())),
		zap.Stringer("ranges", splitRanges(splits)),
		zap.Duration("take", time.Since(begin)))
	return splits, nil
}

func splitRanges(splits []Split) logutil.StringifyKeys {
	ret := make(logutil.StringifyKeys, 0, len(splits))
	for _, s := range splits {
		ret = append(ret, s.KeyRange())
	}
	return ret
}

func (p *Planner) listBoundaries(ctx context.Context, partitionSetID string) (partition.Boundaries, error) {
	failpoint.Inject("list-boundaries-error", func(_ failpoint.Value) {
		logutil.CL(ctx).Debug("failpoint list-boundaries-error injected.")
		failpoint.Return(nil, errors.New("injected list boundaries error"))
	})
	boundaries, err := p.source.ListBoundaries(ctx, partitionSetID)
	return boundaries, errors.Trace(err)
}
