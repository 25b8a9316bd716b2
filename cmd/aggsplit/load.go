// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/aggsplit/pkg/config"
	"github.com/pingcap/aggsplit/pkg/executor/local"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const loadBatchSize = 4096

func newLoadCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "load <partition-set> <file>",
		Short: "load `<hex key> <measure>` lines into the local storage of a partition set",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := Init(cmd); err != nil {
				return errors.Trace(err)
			}
			if globalConfig.Storage.Dir == "" {
				return errors.New("storage.dir is required to load data")
			}
			f, err := os.Open(args[1])
			if err != nil {
				return errors.Trace(err)
			}
			defer f.Close()
			n, err := loadFile(filepath.Join(globalConfig.Storage.Dir, args[0]), f)
			if err != nil {
				return errors.Trace(err)
			}
			log.Info("loaded measures", zap.String("partition-set", args[0]), zap.Int("rows", n))
			cmd.Printf("loaded %d rows\n", n)
			return nil
		},
	}
	return command
}

func loadFile(path string, r io.Reader) (int, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return 0, errors.Trace(err)
	}
	defer db.Close()

	var (
		keys   = make([]kv.Key, 0, loadBatchSize)
		values = make([]int64, 0, loadBatchSize)
		total  int
	)
	flush := func() error {
		if err := local.Put(db, keys, values); err != nil {
			return errors.Trace(err)
		}
		total += len(keys)
		keys, values = keys[:0], values[:0]
		return nil
	}
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields) != 2 {
			return total, errors.Errorf("line %d: expect `<hex key> <measure>`", line)
		}
		key, err := config.ParseKey(fields[0])
		if err != nil {
			return total, errors.Annotatef(err, "line %d", line)
		}
		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return total, errors.Annotatef(err, "line %d", line)
		}
		keys = append(keys, key)
		values = append(values, value)
		if len(keys) >= loadBatchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return total, errors.Trace(err)
	}
	return total, flush()
}
