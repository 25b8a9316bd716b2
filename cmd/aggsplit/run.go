// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	units "github.com/docker/go-units"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/aggsplit/pkg/config"
	"github.com/pingcap/aggsplit/pkg/executor/local"
	"github.com/pingcap/aggsplit/pkg/planner"
	"github.com/pingcap/aggsplit/pkg/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "run",
		Short: "plan the job query and aggregate every split from the local storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := Init(cmd); err != nil {
				return errors.Trace(err)
			}
			return runJob(GetDefaultContext(), globalConfig, cmd.OutOrStdout())
		},
	}
	return command
}

func groupKeyLenOf(cfg *config.Config) int {
	if len(cfg.Scans) == 0 {
		return 0
	}
	return cfg.Scans[0].GroupKeyLen
}

func runJob(ctx context.Context, cfg *config.Config, out io.Writer) error {
	begin := time.Now()
	splits, err := planJob(ctx, cfg)
	if err != nil {
		return errors.Trace(err)
	}
	if len(splits) == 0 {
		fmt.Fprintln(out, "nothing to aggregate")
		return nil
	}
	if cfg.Storage.Dir == "" {
		return errors.New("storage.dir is required to run the job")
	}

	executor := local.NewExecutor(groupKeyLenOf(cfg))
	defer func() {
		if err := executor.Close(); err != nil {
			log.Warn("failed to close local storage", zap.Error(err))
		}
	}()
	if err := executor.OpenDir(ctx, cfg.Storage.Dir, splits[0].PartitionSetID); err != nil {
		return errors.Trace(err)
	}

	var mu sync.Mutex
	sink := func(_ context.Context, split planner.Split, row any) error {
		agg, ok := row.(local.AggregateRow)
		if !ok {
			return errors.Errorf("unexpected row type %T", row)
		}
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintf(out, "%s\t%s\t%d\t%d\n", split.PartitionSetID, agg.GroupKey, agg.Count, agg.Sum)
		return errors.Trace(err)
	}
	results, err := runner.New(executor, cfg.Concurrency, sink).Run(ctx, splits)
	summary := runner.Summarize(results)
	fmt.Fprintf(out, "splits: %d, failed: %d, rows: %d, storage: %s, take: %s\n",
		summary.Splits, summary.Failed, summary.Rows,
		units.HumanSize(float64(executor.DiskUsage())),
		units.HumanDuration(time.Since(begin)))
	fmt.Fprint(out, renderFailures(results))
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(runner.CombinedError(results))
}
