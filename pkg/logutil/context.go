// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package logutil

import (
	"context"

	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// ContextWithField returns a copy of ctx whose logger carries fields.
func ContextWithField(ctx context.Context, fields ...zap.Field) context.Context {
	return WithLogger(ctx, CL(ctx).With(fields...))
}

// ContextWithSplit tags the logger of ctx with the split being executed.
func ContextWithSplit(ctx context.Context, partitionSetID string, r kv.KeyRange, host string) context.Context {
	if host == "" {
		host = "<unknown>"
	}
	return ContextWithField(ctx,
		zap.String("partition-set", partitionSetID),
		zap.Stringer("range", StringifyRange(r)),
		zap.String("host", host))
}

// CL returns the logger of ctx, or the global logger if ctx has none.
func CL(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return log.L()
}
