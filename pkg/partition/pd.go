// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package partition

import (
	"bytes"
	"context"
	"sync"

	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"github.com/pingcap/kvproto/pkg/metapb"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/tikv/pd/client/clients/router"
	"github.com/tikv/pd/client/opt"
	"go.uber.org/zap"
)

// ScanRegionBatchSize is the number of regions fetched by one ScanRegions call.
var ScanRegionBatchSize = 128

// RegionClient is the part of the PD client used to discover partitions.
// pd.Client implements it.
type RegionClient interface {
	// GetRegion gets a region and its leader peer from PD by key.
	GetRegion(ctx context.Context, key []byte, opts ...opt.GetRegionOption) (*router.Region, error)
	// ScanRegions gets a list of regions, starts from the region that contains key.
	// Limit limits the maximum number of regions returned.
	ScanRegions(ctx context.Context, key, endKey []byte, limit int, opts ...opt.GetRegionOption) ([]*router.Region, error)
	// GetStore gets a store from PD by store id.
	GetStore(ctx context.Context, storeID uint64) (*metapb.Store, error)
}

// PDSource is a Source whose partitions are the regions of a TiKV cluster
// running in raw mode. The whole key space of the cluster is exposed as a
// single partition set, and the host of a partition is the address of the
// store holding the region leader.
type PDSource struct {
	client         RegionClient
	partitionSetID string

	mu         sync.Mutex
	storeCache map[uint64]*metapb.Store
}

// NewPDSource creates a PDSource serving partitionSetID.
func NewPDSource(client RegionClient, partitionSetID string) *PDSource {
	return &PDSource{
		client:         client,
		partitionSetID: partitionSetID,
		storeCache:     make(map[uint64]*metapb.Store),
	}
}

func (s *PDSource) checkPartitionSet(partitionSetID string) error {
	if partitionSetID != s.partitionSetID {
		return errors.Annotatef(berrors.ErrUnknownPartitionSet,
			"partition set %s, the cluster serves %s", partitionSetID, s.partitionSetID)
	}
	return nil
}

// ListBoundaries implements Source. It pages through all regions of the
// cluster.
func (s *PDSource) ListBoundaries(ctx context.Context, partitionSetID string) (Boundaries, error) {
	if err := s.checkPartitionSet(partitionSetID); err != nil {
		return nil, err
	}
	var (
		ret       Boundaries
		scanStart []byte
	)
	for {
		regions, err := s.scanRegions(ctx, scanStart)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if len(regions) == 0 {
			break
		}
		for _, region := range regions {
			meta := region.Meta
			if len(ret) > 0 && !bytes.Equal(scanStart, meta.GetStartKey()) {
				return nil, errors.Annotatef(berrors.ErrInvalidBoundaries,
					"region %d starts at %s, expect %s", meta.GetId(), kv.Key(meta.GetStartKey()), kv.Key(scanStart))
			}
			ret = append(ret, kv.Key(meta.GetStartKey()).Clone())
			scanStart = meta.GetEndKey()
			if len(scanStart) == 0 {
				break
			}
		}
		if len(scanStart) == 0 {
			break
		}
	}
	if err := ret.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	logutil.CL(ctx).Debug("listed region boundaries",
		zap.String("partition-set", partitionSetID), logutil.Keys(ret))
	return ret, nil
}

func (s *PDSource) scanRegions(ctx context.Context, key []byte) ([]*router.Region, error) {
	failpoint.Inject("scan-regions-error", func(_ failpoint.Value) {
		logutil.CL(ctx).Debug("failpoint scan-regions-error injected.")
		failpoint.Return(nil, errors.New("injected scan regions error"))
	})
	regions, err := s.client.ScanRegions(ctx, key, nil, ScanRegionBatchSize)
	return regions, errors.Trace(err)
}

// ResolveHost implements Source.
func (s *PDSource) ResolveHost(ctx context.Context, partitionSetID string, key kv.Key) (string, error) {
	if err := s.checkPartitionSet(partitionSetID); err != nil {
		return "", err
	}
	region, err := s.client.GetRegion(ctx, key)
	if err != nil {
		return "", errors.Trace(err)
	}
	if region == nil || region.Leader == nil {
		// the region is in election, leave the host unknown.
		return "", nil
	}
	store, err := s.getStore(ctx, region.Leader.GetStoreId())
	if err != nil {
		return "", errors.Trace(err)
	}
	return store.GetAddress(), nil
}

func (s *PDSource) getStore(ctx context.Context, storeID uint64) (*metapb.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.storeCache[storeID]
	if ok {
		return store, nil
	}
	store, err := s.client.GetStore(ctx, storeID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	s.storeCache[storeID] = store
	return store, nil
}
