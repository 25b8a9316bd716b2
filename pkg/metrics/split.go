// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// split event types.
const (
	SplitEventEmitted   = "emitted"
	SplitEventCollapsed = "collapsed"
	SplitEventSkipped   = "skipped"
	SplitEventClipped   = "clipped"
	SplitEventRounded   = "rounded"
)

// Planner metrics.
var (
	PlanDurationHistogram  prometheus.Histogram
	PlanCounter            *prometheus.CounterVec
	SplitEventCounter      *prometheus.CounterVec
	SplitsPerPlanHistogram prometheus.Histogram
)

// Executor metrics.
var (
	ExecuteSplitCounter *prometheus.CounterVec
	ReadRowsCounter     prometheus.Counter
	RunningSplitsGauge  prometheus.Gauge
)

// InitPlannerMetrics initializes planner metrics.
func InitPlannerMetrics() {
	PlanDurationHistogram = NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aggsplit",
			Subsystem: "planner",
			Name:      "plan_duration_seconds",
			Help:      "Bucketed histogram of the time (s) spent on planning the splits of a query.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 20), // 0.5ms ~ 4min
		})

	PlanCounter = NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aggsplit",
			Subsystem: "planner",
			Name:      "plan_total",
			Help:      "Counter of split plans.",
		}, []string{LblResult})

	SplitEventCounter = NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aggsplit",
			Subsystem: "planner",
			Name:      "split_event_total",
			Help:      "Counter of candidate split events during boundary alignment.",
		}, []string{LblType})

	SplitsPerPlanHistogram = NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aggsplit",
			Subsystem: "planner",
			Name:      "splits_per_plan",
			Help:      "Bucketed histogram of the number of splits produced by one plan.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16), // 1 ~ 32768
		})
}

// InitExecutorMetrics initializes split execution metrics.
func InitExecutorMetrics() {
	ExecuteSplitCounter = NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aggsplit",
			Subsystem: "executor",
			Name:      "split_total",
			Help:      "Counter of executed splits.",
		}, []string{LblResult})

	ReadRowsCounter = NewCounter(
		prometheus.CounterOpts{
			Namespace: "aggsplit",
			Subsystem: "executor",
			Name:      "read_rows_total",
			Help:      "Counter of result rows read from splits.",
		})

	RunningSplitsGauge = NewGauge(
		prometheus.GaugeOpts{
			Namespace: "aggsplit",
			Subsystem: "executor",
			Name:      "running_splits",
			Help:      "Number of splits being executed.",
		})
}
