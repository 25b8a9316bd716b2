// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"context"
	"encoding/json"

	"github.com/pingcap/errors"
	"github.com/pingcap/aggsplit/pkg/config"
	"github.com/pingcap/aggsplit/pkg/planner"
	"github.com/spf13/cobra"
)

func newPlanCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "plan",
		Short: "plan the splits of the job query and print them as JSON or a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := Init(cmd); err != nil {
				return errors.Trace(err)
			}
			splits, err := planJob(GetDefaultContext(), globalConfig)
			if err != nil {
				return errors.Trace(err)
			}
			format, err := cmd.Flags().GetString(FlagFormat)
			if err != nil {
				return errors.Trace(err)
			}
			switch format {
			case formatTable:
				cmd.Println(renderSplits(splits))
				return nil
			case formatJSON:
			default:
				return errors.Errorf("unknown output format %s", format)
			}
			if splits == nil {
				splits = []planner.Split{}
			}
			data, err := json.MarshalIndent(splits, "", "  ")
			if err != nil {
				return errors.Trace(err)
			}
			cmd.Println(string(data))
			return nil
		},
	}
	command.Flags().String(FlagFormat, formatJSON, "Set the output format, one of json and table")
	return command
}

func planJob(ctx context.Context, cfg *config.Config) ([]planner.Split, error) {
	preparer, err := planner.NewStaticPreparer(cfg.Scans)
	if err != nil {
		return nil, errors.Trace(err)
	}
	source, release, err := newSource(ctx, cfg)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer release()
	splits, err := planner.NewPlanner(preparer, source).Plan(ctx, &cfg.Job)
	return splits, errors.Trace(err)
}
