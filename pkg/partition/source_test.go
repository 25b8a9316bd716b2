// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package partition

import (
	"context"
	"testing"

	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/stretchr/testify/require"
)

func TestBoundariesValidate(t *testing.T) {
	require.NoError(t, Boundaries{{}}.Validate())
	require.NoError(t, Boundaries{{}, {0x05}, {0x05, 0x00}, {0x0a}}.Validate())

	for _, b := range []Boundaries{
		nil,
		{{0x01}},
		{{}, {0x05}, {0x05}},
		{{}, {0x06}, {0x05}},
	} {
		require.True(t, berrors.Is(b.Validate(), berrors.ErrInvalidBoundaries), "%v", b)
	}
}

func TestStaticSource(t *testing.T) {
	ctx := context.Background()
	s := NewStaticSource()

	_, err := s.ListBoundaries(ctx, "cube_a")
	require.True(t, berrors.Is(err, berrors.ErrUnknownPartitionSet))
	_, err = s.ResolveHost(ctx, "cube_a", kv.Key{0x01})
	require.True(t, berrors.Is(err, berrors.ErrUnknownPartitionSet))

	require.True(t, berrors.Is(s.SetPartitions("cube_a", Boundaries{{0x01}}, nil), berrors.ErrInvalidBoundaries))

	boundaries := Boundaries{{}, {0x05}, {0x0a}}
	require.NoError(t, s.SetPartitions("cube_a", boundaries, []string{"h1", "h2"}))
	got, err := s.ListBoundaries(ctx, "cube_a")
	require.NoError(t, err)
	require.Equal(t, boundaries, got)
	// the listed boundaries are a copy.
	got[1][0] = 0x06
	got, err = s.ListBoundaries(ctx, "cube_a")
	require.NoError(t, err)
	require.Equal(t, boundaries, got)

	for _, c := range []struct {
		key  kv.Key
		host string
	}{
		{kv.Key{}, "h1"},
		{kv.Key{0x04, 0xff}, "h1"},
		{kv.Key{0x05}, "h2"},
		{kv.Key{0x09}, "h2"},
		// the third partition has no configured host.
		{kv.Key{0x0a}, ""},
		{kv.Key{0xff, 0xff}, ""},
	} {
		host, err := s.ResolveHost(ctx, "cube_a", c.key)
		require.NoError(t, err)
		require.Equal(t, c.host, host, "key=%s", c.key)
	}

	// replacing a layout drops the old one.
	require.NoError(t, s.SetPartitions("cube_a", Boundaries{{}}, []string{"h9"}))
	host, err := s.ResolveHost(ctx, "cube_a", kv.Key{0x09})
	require.NoError(t, err)
	require.Equal(t, "h9", host)
}
