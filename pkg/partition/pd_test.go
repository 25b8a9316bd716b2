// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package partition

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/pingcap/errors"
	"github.com/pingcap/kvproto/pkg/metapb"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/stretchr/testify/require"
	"github.com/tikv/pd/client/clients/router"
	"github.com/tikv/pd/client/opt"
)

type mockRegionClient struct {
	mu            sync.Mutex
	regions       []*router.Region
	stores        map[uint64]*metapb.Store
	scanCalls     int
	getStoreCalls int
	scanErr       error
}

// newMockRegionClient creates regions between the boundaries, the leader of
// region i lives on store i%2+1.
func newMockRegionClient(boundaries [][]byte) *mockRegionClient {
	c := &mockRegionClient{
		stores: map[uint64]*metapb.Store{
			1: {Id: 1, Address: "tikv-1:20160"},
			2: {Id: 2, Address: "tikv-2:20160"},
		},
	}
	for i := 1; i < len(boundaries); i++ {
		storeID := uint64(i%2 + 1)
		c.regions = append(c.regions, &router.Region{
			Meta: &metapb.Region{
				Id:       uint64(i),
				StartKey: boundaries[i-1],
				EndKey:   boundaries[i],
			},
			Leader: &metapb.Peer{Id: uint64(i), StoreId: storeID},
		})
	}
	return c
}

func (c *mockRegionClient) GetRegion(_ context.Context, key []byte, _ ...opt.GetRegionOption) (*router.Region, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.regions {
		if bytes.Compare(key, r.Meta.StartKey) >= 0 &&
			(len(r.Meta.EndKey) == 0 || bytes.Compare(key, r.Meta.EndKey) < 0) {
			return r, nil
		}
	}
	return nil, nil
}

func (c *mockRegionClient) ScanRegions(_ context.Context, key, endKey []byte, limit int, _ ...opt.GetRegionOption) ([]*router.Region, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scanCalls++
	if c.scanErr != nil {
		return nil, c.scanErr
	}
	ret := make([]*router.Region, 0, limit)
	for _, r := range c.regions {
		if len(r.Meta.EndKey) != 0 && bytes.Compare(r.Meta.EndKey, key) <= 0 {
			continue
		}
		if len(endKey) != 0 && bytes.Compare(r.Meta.StartKey, endKey) >= 0 {
			break
		}
		ret = append(ret, r)
		if len(ret) >= limit {
			break
		}
	}
	return ret, nil
}

func (c *mockRegionClient) GetStore(_ context.Context, storeID uint64) (*metapb.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getStoreCalls++
	store, ok := c.stores[storeID]
	if !ok {
		return nil, errors.Errorf("store %d not found", storeID)
	}
	return store, nil
}

func TestPDSourceListBoundaries(t *testing.T) {
	backup := ScanRegionBatchSize
	ScanRegionBatchSize = 2
	t.Cleanup(func() {
		ScanRegionBatchSize = backup
	})

	ctx := context.Background()
	client := newMockRegionClient([][]byte{{}, {0x05}, {0x0a}, {0x0a, 0x80}, {0xf0}, {}})
	s := NewPDSource(client, "raw")

	b, err := s.ListBoundaries(ctx, "raw")
	require.NoError(t, err)
	require.Equal(t, Boundaries{{}, {0x05}, {0x0a}, {0x0a, 0x80}, {0xf0}}, b)
	require.Equal(t, 3, client.scanCalls)

	_, err = s.ListBoundaries(ctx, "cube_a")
	require.True(t, berrors.Is(err, berrors.ErrUnknownPartitionSet))

	client.scanErr = errors.New("pd is unavailable")
	_, err = s.ListBoundaries(ctx, "raw")
	require.ErrorContains(t, err, "pd is unavailable")
}

func TestPDSourceRejectsHoles(t *testing.T) {
	client := newMockRegionClient([][]byte{{}, {0x05}, {0x0a}, {}})
	// punch a hole between the first and the second region.
	client.regions[1].Meta.StartKey = []byte{0x06}
	_, err := NewPDSource(client, "raw").ListBoundaries(context.Background(), "raw")
	require.True(t, berrors.Is(err, berrors.ErrInvalidBoundaries))
}

func TestPDSourceResolveHost(t *testing.T) {
	ctx := context.Background()
	client := newMockRegionClient([][]byte{{}, {0x05}, {0x0a}, {}})
	s := NewPDSource(client, "raw")

	for _, c := range []struct {
		key  kv.Key
		host string
	}{
		{kv.Key{}, "tikv-2:20160"},
		{kv.Key{0x05}, "tikv-1:20160"},
		{kv.Key{0x09, 0xff}, "tikv-1:20160"},
		{kv.Key{0x0a}, "tikv-2:20160"},
	} {
		host, err := s.ResolveHost(ctx, "raw", c.key)
		require.NoError(t, err)
		require.Equal(t, c.host, host, "key=%s", c.key)
	}
	// stores are cached.
	require.Equal(t, 2, client.getStoreCalls)

	// a region without leader has an unknown host.
	client.regions[0].Leader = nil
	host, err := s.ResolveHost(ctx, "raw", kv.Key{0x01})
	require.NoError(t, err)
	require.Empty(t, host)

	client.regions[1].Leader.StoreId = 3
	_, err = s.ResolveHost(ctx, "raw", kv.Key{0x06})
	require.ErrorContains(t, err, "store 3 not found")

	_, err = s.ResolveHost(ctx, "cube_a", kv.Key{0x06})
	require.True(t, berrors.Is(err, berrors.ErrUnknownPartitionSet))
}
