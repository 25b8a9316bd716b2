// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package partition

import (
	"bytes"
	"context"
	"sync"

	"github.com/google/btree"
	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
)

type partitionItem struct {
	start kv.Key
	host  string
}

func partitionLess(a, b partitionItem) bool {
	return bytes.Compare(a.start, b.start) < 0
}

// StaticSource is an in-memory Source. Each partition set is kept in a btree
// ordered by the partition start key so a host lookup is a floor search.
type StaticSource struct {
	mu   sync.RWMutex
	sets map[string]*btree.BTreeG[partitionItem]
}

// NewStaticSource creates an empty StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		sets: make(map[string]*btree.BTreeG[partitionItem]),
	}
}

// SetPartitions replaces the layout of a partition set. hosts may be nil or
// shorter than boundaries, missing hosts are unknown.
func (s *StaticSource) SetPartitions(partitionSetID string, boundaries Boundaries, hosts []string) error {
	if err := boundaries.Validate(); err != nil {
		return errors.Annotatef(err, "partition set %s", partitionSetID)
	}
	tree := btree.NewG(32, partitionLess)
	for i, b := range boundaries {
		item := partitionItem{start: b.Clone()}
		if i < len(hosts) {
			item.host = hosts[i]
		}
		tree.ReplaceOrInsert(item)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[partitionSetID] = tree
	return nil
}

// ListBoundaries implements Source.
func (s *StaticSource) ListBoundaries(_ context.Context, partitionSetID string) (Boundaries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.sets[partitionSetID]
	if !ok {
		return nil, errors.Annotatef(berrors.ErrUnknownPartitionSet, "partition set %s", partitionSetID)
	}
	ret := make(Boundaries, 0, tree.Len())
	tree.Ascend(func(item partitionItem) bool {
		ret = append(ret, item.start)
		return true
	})
	return ret.Clone(), nil
}

// ResolveHost implements Source.
func (s *StaticSource) ResolveHost(_ context.Context, partitionSetID string, key kv.Key) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tree, ok := s.sets[partitionSetID]
	if !ok {
		return "", errors.Annotatef(berrors.ErrUnknownPartitionSet, "partition set %s", partitionSetID)
	}
	var host string
	tree.DescendLessOrEqual(partitionItem{start: key}, func(item partitionItem) bool {
		host = item.host
		return false
	})
	return host, nil
}
