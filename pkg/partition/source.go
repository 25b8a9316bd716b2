// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package partition

import (
	"bytes"
	"context"

	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
)

// Source is the partition metadata of a range partitioned store.
type Source interface {
	// ListBoundaries lists the first key of every partition of the
	// partition set, in ascending order.
	ListBoundaries(ctx context.Context, partitionSetID string) (Boundaries, error)
	// ResolveHost returns the host serving the partition which contains key.
	// An empty host with a nil error means the location is unknown.
	ResolveHost(ctx context.Context, partitionSetID string, key kv.Key) (string, error)
}

// Boundaries is the ascending list of partition start keys. Partition i
// covers [b[i], b[i+1]) and the last one covers [b[last], +inf).
type Boundaries []kv.Key

// Validate checks that the boundaries are strictly ascending and start with
// the empty key.
func (b Boundaries) Validate() error {
	if len(b) == 0 {
		return errors.Annotate(berrors.ErrInvalidBoundaries, "no partitions")
	}
	if len(b[0]) != 0 {
		return errors.Annotatef(berrors.ErrInvalidBoundaries, "first boundary %s is not the empty key", b[0])
	}
	for i := 1; i < len(b); i++ {
		if bytes.Compare(b[i-1], b[i]) >= 0 {
			return errors.Annotatef(berrors.ErrInvalidBoundaries,
				"boundaries are not strictly ascending at #%d: %s >= %s", i, b[i-1], b[i])
		}
	}
	return nil
}

// Clone returns a deep copy of the boundaries.
func (b Boundaries) Clone() Boundaries {
	ret := make(Boundaries, 0, len(b))
	for _, k := range b {
		ret = append(ret, k.Clone())
	}
	return ret
}
