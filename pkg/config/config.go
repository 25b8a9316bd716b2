// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package config

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
	berrors "github.com/pingcap/aggsplit/pkg/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
	"github.com/pingcap/log"
)

// Config contains configuration options of an aggregate split job.
type Config struct {
	Job           JobConfig      `toml:"job" json:"job"`
	Log           Log            `toml:"log" json:"log"`
	Scans         []ScanRange    `toml:"scan" json:"scan"`
	PartitionSets []PartitionSet `toml:"partition-set" json:"partition-set"`
	Storage       Storage        `toml:"storage" json:"storage"`
	PD            PD             `toml:"pd" json:"pd"`
	Metrics       Metrics        `toml:"metrics" json:"metrics"`
	Concurrency   uint           `toml:"concurrency" json:"concurrency"`
	StatusAddr    string         `toml:"status-addr" json:"status-addr"`
}

// JobConfig carries the query text and its positional parameters through
// planning and execution. Parameters are zero-based and typeless strings.
type JobConfig struct {
	QueryText string `toml:"query" json:"query"`
	// ParamCount is the number of parameters bound to the query. It grows to
	// cover the largest index ever set.
	ParamCount int `toml:"param-count" json:"param-count"`
	// RawParams is the `[job.params]` table, keyed by the decimal index.
	RawParams map[string]string `toml:"params" json:"params"`

	params map[int]string
}

// Log is the log section of config.
type Log struct {
	// Log level.
	Level string `toml:"level" json:"level"`
	// Log format. one of json, text, or console.
	Format string `toml:"format" json:"format"`
	// Log file, empty means stderr.
	File string `toml:"file" json:"file"`
}

// ScanRange is a statically configured scan, it replaces the output of a
// query preparer when no query engine is linked in. Keys are hex encoded.
type ScanRange struct {
	Start        string `toml:"start" json:"start"`
	End          string `toml:"end" json:"end"`
	GroupKeyLen  int    `toml:"group-key-len" json:"group-key-len"`
	PartitionSet string `toml:"partition-set" json:"partition-set"`
}

// PartitionSet describes a statically configured partition layout.
// Boundaries are hex encoded, Hosts[i] serves the partition starting at
// Boundaries[i].
type PartitionSet struct {
	ID         string   `toml:"id" json:"id"`
	Boundaries []string `toml:"boundaries" json:"boundaries"`
	Hosts      []string `toml:"hosts" json:"hosts"`
}

// Storage is the storage section of config. Each partition set is read from
// a pebble database at `<dir>/<partition set id>`.
type Storage struct {
	Dir string `toml:"dir" json:"dir"`
}

// PD is the pd section of config. When addresses are set, partitions are the
// regions of the cluster.
type PD struct {
	Addrs []string `toml:"addrs" json:"addrs"`
	// PartitionSet names the partition set served by the cluster.
	PartitionSet string `toml:"partition-set" json:"partition-set"`
}

// Metrics is the metrics section of config.
type Metrics struct {
	// ConstLabels are attached to every exported metric.
	ConstLabels map[string]string `toml:"const-labels" json:"const-labels"`
}

// LabelPairs flattens the const labels into name, value pairs sorted by name.
func (m Metrics) LabelPairs() []string {
	names := make([]string, 0, len(m.ConstLabels))
	for name := range m.ConstLabels {
		names = append(names, name)
	}
	sort.Strings(names)
	ret := make([]string, 0, 2*len(names))
	for _, name := range names {
		ret = append(ret, name, m.ConstLabels[name])
	}
	return ret
}

var defaultConf = Config{
	Log: Log{
		Level:  "info",
		Format: "text",
	},
	Concurrency: 4,
}

// NewConfig creates a new config instance with default value.
func NewConfig() *Config {
	conf := defaultConf
	return &conf
}

// Load loads config options from a toml file.
func (c *Config) Load(confFile string) error {
	meta, err := toml.DecodeFile(confFile, c)
	if err != nil {
		return errors.Trace(err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		items := make([]string, 0, len(undecoded))
		for _, item := range undecoded {
			items = append(items, item.String())
		}
		log.Warn("config file contains unknown configuration options", zapStrings(items))
		return errors.Annotatef(berrors.ErrConfigInvalid, "unknown configuration options: %s", strings.Join(items, ", "))
	}
	return c.Adjust()
}

// Adjust validates the config and fills the derived fields.
func (c *Config) Adjust() error {
	if err := c.Job.Adjust(); err != nil {
		return err
	}
	if c.Concurrency == 0 {
		c.Concurrency = 1
	}
	for i, s := range c.Scans {
		if s.GroupKeyLen < 0 {
			return errors.Annotatef(berrors.ErrConfigInvalid, "scan #%d has negative group-key-len", i)
		}
		for _, k := range []string{s.Start, s.End} {
			if _, err := ParseKey(k); err != nil {
				return errors.Annotatef(berrors.ErrConfigInvalid, "scan #%d: %s", i, err)
			}
		}
	}
	for _, ps := range c.PartitionSets {
		if ps.ID == "" {
			return errors.Annotate(berrors.ErrConfigInvalid, "partition set without id")
		}
		if len(ps.Hosts) > 0 && len(ps.Hosts) != len(ps.Boundaries) {
			return errors.Annotatef(berrors.ErrConfigInvalid,
				"partition set %s has %d boundaries but %d hosts", ps.ID, len(ps.Boundaries), len(ps.Hosts))
		}
		for _, b := range ps.Boundaries {
			if _, err := ParseKey(b); err != nil {
				return errors.Annotatef(berrors.ErrConfigInvalid, "partition set %s: %s", ps.ID, err)
			}
		}
	}
	return nil
}

// Adjust parses the raw parameter table.
func (j *JobConfig) Adjust() error {
	for idx, v := range j.RawParams {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 {
			return errors.Annotatef(berrors.ErrConfigInvalid, "invalid parameter index %q", idx)
		}
		j.SetParam(i, v)
	}
	if j.ParamCount < 0 {
		return errors.Annotatef(berrors.ErrConfigInvalid, "negative param-count %d", j.ParamCount)
	}
	return nil
}

// SetParam binds the paramNo-th (zero-based) parameter.
func (j *JobConfig) SetParam(paramNo int, value string) {
	if paramNo < 0 {
		panic(fmt.Sprintf("negative parameter index %d", paramNo))
	}
	if j.params == nil {
		j.params = make(map[int]string)
	}
	j.params[paramNo] = value
	if j.ParamCount <= paramNo {
		j.ParamCount = paramNo + 1
	}
}

// Param returns the paramNo-th parameter and whether it has been set.
func (j *JobConfig) Param(paramNo int) (string, bool) {
	v, ok := j.params[paramNo]
	return v, ok
}

// Params returns a copy of the bound parameters whose index is less than
// ParamCount.
func (j *JobConfig) Params() map[int]string {
	ret := make(map[int]string, len(j.params))
	for i, v := range j.params {
		if i < j.ParamCount {
			ret[i] = v
		}
	}
	return ret
}

// SortedParamIndexes returns the indexes of bound parameters in ascending order.
func (j *JobConfig) SortedParamIndexes() []int {
	ret := make([]int, 0, len(j.params))
	for i := range j.Params() {
		ret = append(ret, i)
	}
	sort.Ints(ret)
	return ret
}

// ParseKey parses a hex encoded key, an optional "0x" prefix is allowed.
func ParseKey(s string) (kv.Key, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return kv.Key(key), nil
}
