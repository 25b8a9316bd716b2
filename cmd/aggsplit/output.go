// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/pingcap/aggsplit/pkg/planner"
	"github.com/pingcap/aggsplit/pkg/runner"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

func unknownIfEmpty(host string) string {
	if host == "" {
		return "<unknown>"
	}
	return host
}

// renderSplits renders a table which contains one row for each split.
func renderSplits(splits []planner.Split) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Partition Set", "Start", "End", "Host"})
	for i, s := range splits {
		end := "+inf"
		if !s.IsUnbounded() {
			end = s.End.String()
		}
		t.AppendRow(table.Row{i + 1, s.PartitionSetID, s.Start.String(), end, unknownIfEmpty(s.Host)})
	}
	t.AppendFooter(table.Row{"", "", "", "Total", len(splits)})
	return t.Render()
}

// renderFailures renders a table which contains the error of each failed
// split, it returns an empty string if no split failed.
func renderFailures(results []runner.Result) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Range", "Host", "Rows", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", WidthMax: 6},
		{Name: "Range", WidthMax: 42},
		{Name: "Host", WidthMax: 24},
		{Name: "Rows", WidthMax: 12},
		{Name: "Error", WidthMax: 64},
	})
	t.SetRowPainter(func(table.Row) text.Colors {
		return text.Colors{text.FgRed}
	})
	count := 0
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		count++
		t.AppendRow(table.Row{count, logutil.StringifyRange(r.Split.KeyRange()).String(),
			unknownIfEmpty(r.Split.Host), r.Rows, r.Err.Error()})
	}
	if count == 0 {
		return ""
	}
	return fmt.Sprintf("\nFailed Split Summary: \n%s\n", t.Render())
}
