// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package planner

import (
	"encoding/json"
	"fmt"

	"github.com/pingcap/errors"
	"github.com/pingcap/aggsplit/pkg/kv"
)

// Split is an independently executable unit of work: the key range
// [Start, End) of one partition set. An empty End means unbounded and an
// empty Host means the location is unknown.
type Split struct {
	Host           string
	PartitionSetID string
	Start          kv.Key
	End            kv.Key
}

// IsUnbounded reports whether the split runs to the end of the key space.
func (s Split) IsUnbounded() bool {
	return len(s.End) == 0
}

// KeyRange returns the key range covered by the split.
func (s Split) KeyRange() kv.KeyRange {
	return kv.KeyRange{StartKey: s.Start, EndKey: s.End}
}

// String implements fmt.Stringer interface.
func (s Split) String() string {
	host := s.Host
	if host == "" {
		host = "<unknown>"
	}
	return fmt.Sprintf("%s%s@%s", s.PartitionSetID, s.KeyRange(), host)
}

type splitJSON struct {
	Host           string `json:"host"`
	PartitionSetID string `json:"partition_set_id"`
	Start          []byte `json:"start"`
	End            []byte `json:"end"`
}

// MarshalJSON implements json.Marshaler. An unbounded end is encoded as null.
func (s Split) MarshalJSON() ([]byte, error) {
	j := splitJSON{
		Host:           s.Host,
		PartitionSetID: s.PartitionSetID,
		Start:          []byte(s.Start),
	}
	if j.Start == nil {
		j.Start = []byte{}
	}
	if !s.IsUnbounded() {
		j.End = s.End
	}
	data, err := json.Marshal(j)
	return data, errors.Trace(err)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Split) UnmarshalJSON(data []byte) error {
	var j splitJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return errors.Trace(err)
	}
	*s = Split{
		Host:           j.Host,
		PartitionSetID: j.PartitionSetID,
		Start:          kv.Key(j.Start),
	}
	if s.Start == nil {
		s.Start = kv.Key{}
	}
	if len(j.End) > 0 {
		s.End = kv.Key(j.End)
	}
	return nil
}
