// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package logutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logutil.WithLogger(context.Background(), zap.New(core))

	ctx = logutil.ContextWithField(ctx, zap.String("job-id", "j1"))
	logutil.CL(ctx).Info("planned",
		logutil.Key("start", []byte{0x0a, 0xff}),
		logutil.EndKey("end", nil),
		logutil.ShortError(errors.New("boom")),
		logutil.ShortError(nil),
		zap.Stringer("ranges", logutil.StringifyKeys{{StartKey: kv.Key{0x01}, EndKey: kv.Key{0x02}}}),
		logutil.Keys([]kv.Key{{0x01}, {0x02}, {0x03}, {0x04}, {0x05}}),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "j1", fields["job-id"])
	require.Equal(t, "0AFF", fields["start"])
	require.Equal(t, "+inf", fields["end"])
	require.Equal(t, "boom", fields["error"])
	require.Equal(t, "{[01, 02)}", fields["ranges"])
	keys, ok := fields["keys"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "[01 05]", keys["keys"])
}

func TestContextWithSplit(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logutil.WithLogger(context.Background(), zap.New(core))

	logutil.CL(logutil.ContextWithSplit(ctx, "cube_a", kv.KeyRange{StartKey: kv.Key{0x02}, EndKey: kv.Key{0x09}}, "h1")).
		Info("split reader opened")
	logutil.CL(logutil.ContextWithSplit(ctx, "cube_a", kv.KeyRange{StartKey: kv.Key{0x09}}, "")).
		Info("split reader opened")
	// the parent context is untouched.
	logutil.CL(ctx).Info("done")

	entries := logs.All()
	require.Len(t, entries, 3)
	fields := entries[0].ContextMap()
	require.Equal(t, "cube_a", fields["partition-set"])
	require.Equal(t, "[02, 09)", fields["range"])
	require.Equal(t, "h1", fields["host"])
	fields = entries[1].ContextMap()
	require.Equal(t, "[09, +inf)", fields["range"])
	require.Equal(t, "<unknown>", fields["host"])
	require.Empty(t, entries[2].ContextMap())
}
