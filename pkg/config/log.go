// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package config

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func zapStrings(items []string) zap.Field {
	return zap.Strings("items", items)
}

// ToLogConfig converts *Log to *log.Config.
func (l *Log) ToLogConfig() *log.Config {
	return &log.Config{
		Level:  l.Level,
		Format: l.Format,
		File: log.FileLogConfig{
			Filename: l.File,
		},
	}
}

// InitLogger initializes the global logger with the log section.
func (l *Log) InitLogger() error {
	gl, props, err := log.InitLogger(l.ToLogConfig(), zap.AddStacktrace(zapcore.FatalLevel))
	if err != nil {
		return errors.Trace(err)
	}
	log.ReplaceGlobals(gl, props)
	return nil
}
