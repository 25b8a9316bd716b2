// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package main

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/aggsplit/pkg/config"
	"github.com/pingcap/aggsplit/pkg/logutil"
	"github.com/pingcap/aggsplit/pkg/metrics"
	"github.com/pingcap/aggsplit/pkg/partition"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	pd "github.com/tikv/pd/client"
	"github.com/tikv/pd/client/pkg/caller"
	"go.uber.org/zap"
)

var (
	initOnce       = sync.Once{}
	defaultContext context.Context
	globalConfig   *config.Config
)

const (
	// FlagConfig is the name of config flag.
	FlagConfig = "config"
	// FlagLogLevel is the name of log-level flag.
	FlagLogLevel = "log-level"
	// FlagLogFile is the name of log-file flag.
	FlagLogFile = "log-file"
	// FlagLogFormat is the name of log-format flag.
	FlagLogFormat = "log-format"
	// FlagStatusAddr is the name of status-addr flag.
	FlagStatusAddr = "status-addr"
	// FlagPD is the name of pd flag.
	FlagPD = "pd"
	// FlagConcurrency is the name of concurrency flag.
	FlagConcurrency = "concurrency"
	// FlagParam is the name of param flag.
	FlagParam = "param"
	// FlagFormat is the name of format flag.
	FlagFormat = "format"
)

// DefineCommonFlags defines the common flags for all aggsplit commands.
func DefineCommonFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(FlagConfig, "C", "", "Set the job config file path")
	cmd.PersistentFlags().StringP(FlagLogLevel, "L", "", "Set the log level")
	cmd.PersistentFlags().String(FlagLogFile, "", "Set the log file path. If not set, logs will output to stderr")
	cmd.PersistentFlags().String(FlagLogFormat, "", "Set the log format")
	cmd.PersistentFlags().String(FlagStatusAddr, "",
		"Set the HTTP listening address for the status report service. Set to empty string to disable")
	cmd.PersistentFlags().StringSliceP(FlagPD, "u", nil,
		"PD address, when set the partitions are the regions of the cluster")
	cmd.PersistentFlags().Uint(FlagConcurrency, 0, "The number of splits executed at the same time")
	cmd.PersistentFlags().StringToString(FlagParam, nil,
		"Bind a query parameter by its zero-based index, e.g. --param 0=2024")
}

// Init loads the job config, overrides it by the flags and initializes the
// logger and the status server.
func Init(cmd *cobra.Command) (err error) {
	initOnce.Do(func() {
		cfg := config.NewConfig()
		path, e := cmd.Flags().GetString(FlagConfig)
		if e != nil {
			err = e
			return
		}
		if path != "" {
			if e := cfg.Load(path); e != nil {
				err = e
				return
			}
		}
		if e := overrideByFlags(cmd.Flags(), cfg); e != nil {
			err = e
			return
		}
		if e := cfg.Log.InitLogger(); e != nil {
			err = e
			return
		}
		jobID := uuid.NewString()
		ctx := logutil.WithLogger(GetDefaultContext(), log.L())
		SetDefaultContext(logutil.ContextWithField(ctx, zap.String("job-id", jobID)))
		log.Info("aggsplit started", zap.String("job-id", jobID), zap.String("config", path),
			zap.Uint("concurrency", cfg.Concurrency),
			zap.Int("param-count", cfg.Job.ParamCount),
			zap.Ints("params", cfg.Job.SortedParamIndexes()))
		initMetrics(cfg)
		globalConfig = cfg
		err = startStatusServer(GetDefaultContext(), cfg.StatusAddr)
	})
	return errors.Trace(err)
}

// initMetrics rebuilds the metrics with the configured const labels. It must
// be called before the metrics are registered.
func initMetrics(cfg *config.Config) {
	if len(cfg.Metrics.ConstLabels) == 0 {
		return
	}
	metrics.SetConstLabels(cfg.Metrics.LabelPairs()...)
	metrics.InitMetrics()
}

func overrideByFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	if flags.Changed(FlagLogLevel) {
		if cfg.Log.Level, err = flags.GetString(FlagLogLevel); err != nil {
			return errors.Trace(err)
		}
	}
	if flags.Changed(FlagLogFile) {
		if cfg.Log.File, err = flags.GetString(FlagLogFile); err != nil {
			return errors.Trace(err)
		}
	}
	if flags.Changed(FlagLogFormat) {
		if cfg.Log.Format, err = flags.GetString(FlagLogFormat); err != nil {
			return errors.Trace(err)
		}
	}
	if flags.Changed(FlagStatusAddr) {
		if cfg.StatusAddr, err = flags.GetString(FlagStatusAddr); err != nil {
			return errors.Trace(err)
		}
	}
	if flags.Changed(FlagPD) {
		if cfg.PD.Addrs, err = flags.GetStringSlice(FlagPD); err != nil {
			return errors.Trace(err)
		}
	}
	if flags.Changed(FlagConcurrency) {
		if cfg.Concurrency, err = flags.GetUint(FlagConcurrency); err != nil {
			return errors.Trace(err)
		}
	}
	if flags.Changed(FlagParam) {
		params, err := flags.GetStringToString(FlagParam)
		if err != nil {
			return errors.Trace(err)
		}
		if cfg.Job.RawParams == nil {
			cfg.Job.RawParams = make(map[string]string, len(params))
		}
		for idx, v := range params {
			cfg.Job.RawParams[idx] = v
		}
	}
	return cfg.Adjust()
}

// startStatusServer serves the metrics on statusAddr until ctx is done.
func startStatusServer(ctx context.Context, statusAddr string) error {
	if statusAddr == "" {
		return nil
	}
	registry := prometheus.NewRegistry()
	if err := metrics.RegisterMetrics(registry); err != nil {
		return errors.Trace(err)
	}
	listener, err := net.Listen("tcp", statusAddr)
	if err != nil {
		return errors.Trace(err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Warn("status server stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	log.Info("status server started", zap.Stringer("addr", listener.Addr()))
	return nil
}

// newSource creates the partition metadata source of the job. The returned
// function releases it.
func newSource(ctx context.Context, cfg *config.Config) (partition.Source, func(), error) {
	if len(cfg.PD.Addrs) > 0 {
		cli, err := pd.NewClientWithContext(ctx, caller.Component("aggsplit"), cfg.PD.Addrs, pd.SecurityOption{})
		if err != nil {
			return nil, nil, errors.Annotate(err, "create pd client")
		}
		return partition.NewPDSource(cli, cfg.PD.PartitionSet), cli.Close, nil
	}

	source := partition.NewStaticSource()
	for _, ps := range cfg.PartitionSets {
		boundaries := make(partition.Boundaries, 0, len(ps.Boundaries))
		for _, b := range ps.Boundaries {
			key, err := config.ParseKey(b)
			if err != nil {
				return nil, nil, errors.Trace(err)
			}
			boundaries = append(boundaries, key)
		}
		if err := source.SetPartitions(ps.ID, boundaries, ps.Hosts); err != nil {
			return nil, nil, errors.Trace(err)
		}
	}
	return source, func() {}, nil
}

// SetDefaultContext sets the default context for command line usage.
func SetDefaultContext(ctx context.Context) {
	defaultContext = ctx
}

// GetDefaultContext returns the default context for command line usage.
func GetDefaultContext() context.Context {
	return defaultContext
}
