// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package planner

import (
	"bytes"

	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
)

// ScanRange is one logical scan of a prepared query. Both Start and End are
// inclusive.
type ScanRange struct {
	Start          kv.Key
	End            kv.Key
	GroupKeyLen    int
	PartitionSetID string
}

// OverallRange is the union of the scan ranges of a query, [Start, End).
// An empty End means the range runs to the end of the key space.
type OverallRange struct {
	PartitionSetID string
	Start          kv.Key
	End            kv.Key
}

// IsUnbounded reports whether the range has no finite end.
func (r OverallRange) IsUnbounded() bool {
	return len(r.End) == 0
}

// KeyRange returns the range as a kv.KeyRange.
func (r OverallRange) KeyRange() kv.KeyRange {
	return kv.KeyRange{StartKey: r.Start, EndKey: r.End}
}

// Union merges the scan ranges into the overall range of a plan and returns
// the grouping key length they share.
//
// All ranges must target the same partition set and use the same grouping
// key length. The inclusive maximum end is turned into an exclusive end by
// incrementing the whole key, an overflow makes the range unbounded.
func Union(ranges []ScanRange) (OverallRange, int, error) {
	if len(ranges) == 0 {
		return OverallRange{}, 0, errors.Annotate(berrors.ErrInvalidArgument, "no scan range to union")
	}
	first := ranges[0]
	if first.GroupKeyLen < 0 {
		return OverallRange{}, 0, errors.Annotatef(berrors.ErrInvalidArgument,
			"negative grouping key length %d", first.GroupKeyLen)
	}
	if first.PartitionSetID == "" {
		return OverallRange{}, 0, errors.Annotate(berrors.ErrInvalidArgument, "scan range without partition set")
	}
	start, end := first.Start, first.End
	for i, r := range ranges {
		if bytes.Compare(r.Start, r.End) > 0 {
			return OverallRange{}, 0, errors.Annotatef(berrors.ErrInvalidArgument,
				"scan range #%d starts at %s after its end %s", i, r.Start, r.End)
		}
		if i == 0 {
			continue
		}
		if r.PartitionSetID != first.PartitionSetID {
			return OverallRange{}, 0, errors.Annotatef(berrors.ErrIncompatiblePartitionSet,
				"%q and %q", first.PartitionSetID, r.PartitionSetID)
		}
		if r.GroupKeyLen != first.GroupKeyLen {
			return OverallRange{}, 0, errors.Annotatef(berrors.ErrGroupKeyLenMismatch,
				"%d and %d in partition set %q", first.GroupKeyLen, r.GroupKeyLen, first.PartitionSetID)
		}
		if bytes.Compare(r.Start, start) < 0 {
			start = r.Start
		}
		if bytes.Compare(r.End, end) > 0 {
			end = r.End
		}
	}

	exclusiveEnd, overflow := kv.Increment(end, 0, len(end))
	if overflow {
		exclusiveEnd = nil
	}
	startKey := start.Clone()
	if startKey == nil {
		startKey = kv.Key{}
	}
	return OverallRange{
		PartitionSetID: first.PartitionSetID,
		Start:          startKey,
		End:            exclusiveEnd,
	}, first.GroupKeyLen, nil
}
