// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package metrics

import (
	"github.com/pingcap/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// label constants.
const (
	LblType   = "type"
	LblResult = "result"

	LblOK    = "ok"
	LblError = "error"
)

var constLabels prometheus.Labels

func init() {
	InitMetrics()
}

// SetConstLabels sets constant labels for metrics. It must be called before
// InitMetrics to take effect.
func SetConstLabels(kv ...string) {
	if len(kv)%2 == 1 {
		panic("invalid number of arguments for const labels")
	}
	constLabels = make(prometheus.Labels, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		constLabels[kv[i]] = kv[i+1]
	}
}

// InitMetrics is used to initialize metrics.
func InitMetrics() {
	InitPlannerMetrics()
	InitExecutorMetrics()
}

// NewCounter wraps a prometheus.NewCounter.
func NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.ConstLabels = constLabels
	return prometheus.NewCounter(opts)
}

// NewCounterVec wraps a prometheus.NewCounterVec.
func NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	opts.ConstLabels = constLabels
	return prometheus.NewCounterVec(opts, labelNames)
}

// NewHistogram wraps a prometheus.NewHistogram.
func NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.ConstLabels = constLabels
	return prometheus.NewHistogram(opts)
}

// NewGauge wraps a prometheus.NewGauge.
func NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.ConstLabels = constLabels
	return prometheus.NewGauge(opts)
}

// RegisterMetrics registers all metrics to the given registerer.
func RegisterMetrics(r prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := r.Register(c); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		PlanDurationHistogram,
		PlanCounter,
		SplitEventCounter,
		SplitsPerPlanHistogram,
		ExecuteSplitCounter,
		ReadRowsCounter,
		RunningSplitsGauge,
	}
}
