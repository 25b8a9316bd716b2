// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package planner

import (
	"bytes"
	"context"

	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/pingcap/aggsplit/pkg/metrics"
	"github.com/pingcap/aggsplit/pkg/partition"
)

// LocalityFunc returns the host serving the partition containing key. An
// empty host with a nil error means the host is unknown.
type LocalityFunc func(ctx context.Context, key kv.Key) (string, error)

// RoundToGroupBoundary rounds a partition boundary to the closest grouping
// key boundary, so that no group is divided between two splits.
//
// Keys not longer than groupKeyLen are returned as they are. Otherwise the
// byte right after the grouping key prefix decides the direction: with the
// high bit set the prefix is incremented (round up), else it is kept (round
// down). Everything after the prefix is then zero filled. An overflow while
// rounding up returns an empty key, which is the unbounded end.
//
// This is a naive proximity test that assumes uniformly distributed grouping
// key data. Skewed dimensions (e.g. a calendar time dimension) may be rounded
// in the wrong direction, we cannot know how many rows a group holds at
// planning time.
func RoundToGroupBoundary(key kv.Key, groupKeyLen int) kv.Key {
	if len(key) <= groupKeyLen {
		return key.Clone()
	}
	ret := key.Clone()
	if key[groupKeyLen]&0x80 == 0x80 {
		var overflow bool
		ret, overflow = kv.Increment(ret, 0, groupKeyLen)
		if overflow {
			return nil
		}
	}
	for i := groupKeyLen; i < len(ret); i++ {
		ret[i] = 0
	}
	return ret
}

// Align cuts the overall range into splits along the partition boundaries,
// rounded to grouping key boundaries.
//
// Candidates whose rounded end does not go past their start are merged into
// the next candidate. The remaining candidates are clipped to the overall
// range, and those left empty are skipped. The returned splits are ascending
// and do not overlap.
func Align(
	ctx context.Context,
	boundaries partition.Boundaries,
	overall OverallRange,
	groupKeyLen int,
	locate LocalityFunc,
) ([]Split, error) {
	if err := boundaries.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if groupKeyLen < 0 {
		return nil, errors.Annotatef(berrors.ErrInvalidArgument, "negative grouping key length %d", groupKeyLen)
	}
	logger := logutil.CL(ctx)
	splits := make([]Split, 0, len(boundaries))

	start := boundaries[0]
	for i := 0; i < len(boundaries); {
		var end kv.Key
		next := i + 1
		for ; next < len(boundaries); next++ {
			end = RoundToGroupBoundary(boundaries[next], groupKeyLen)
			if !bytes.Equal(end, boundaries[next]) {
				metrics.SplitEventCounter.WithLabelValues(metrics.SplitEventRounded).Inc()
			}
			if len(end) == 0 || bytes.Compare(start, end) < 0 {
				break
			}
			// No single group fits into this partition, get rid of the boundary.
			logger.Debug("collapse degenerate split",
				logutil.Key("start", start),
				logutil.Key("boundary", boundaries[next]),
				logutil.EndKey("rounded", end))
			metrics.SplitEventCounter.WithLabelValues(metrics.SplitEventCollapsed).Inc()
			end = nil
		}

		s, ok := clip(start, end, overall)
		if ok {
			host, err := locate(ctx, s.Start)
			if err != nil {
				return nil, berrors.ErrPlanningIO.Wrap(err).GenWithStackByArgs()
			}
			s.Host = host
			s.PartitionSetID = overall.PartitionSetID
			splits = append(splits, s)
			metrics.SplitEventCounter.WithLabelValues(metrics.SplitEventEmitted).Inc()
		} else {
			metrics.SplitEventCounter.WithLabelValues(metrics.SplitEventSkipped).Inc()
		}

		// an unbounded candidate has absorbed all the remaining partitions.
		if len(end) == 0 {
			break
		}
		// the remaining candidates lie after the overall range.
		if !overall.IsUnbounded() && bytes.Compare(end, overall.End) >= 0 {
			break
		}
		start = end
		i = next
	}
	return splits, nil
}

// clip clips the candidate [start, end) into the overall range. It returns
// false if nothing is left.
func clip(start, end kv.Key, overall OverallRange) (Split, bool) {
	if len(end) != 0 && bytes.Compare(end, overall.Start) <= 0 {
		return Split{}, false
	}
	if !overall.IsUnbounded() && bytes.Compare(start, overall.End) >= 0 {
		return Split{}, false
	}
	clipped := false
	if bytes.Compare(start, overall.Start) < 0 {
		start = overall.Start
		clipped = true
	}
	if !overall.IsUnbounded() && kv.CompareEndKey(end, overall.End) > 0 {
		end = overall.End
		clipped = true
	}
	if len(end) != 0 && bytes.Compare(start, end) >= 0 {
		return Split{}, false
	}
	if clipped {
		metrics.SplitEventCounter.WithLabelValues(metrics.SplitEventClipped).Inc()
	}
	s := Split{Start: start.Clone(), End: end.Clone()}
	if s.Start == nil {
		s.Start = kv.Key{}
	}
	return s, true
}
