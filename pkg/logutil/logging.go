// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package logutil

import (
	"fmt"
	"strings"

	"github.com/pingcap/aggsplit/pkg/kv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Key constructs a field that carries upper hex format key.
func Key(fieldKey string, key []byte) zap.Field {
	return zap.Stringer(fieldKey, kv.Key(key))
}

// EndKey constructs a field for an exclusive end key, an empty key is
// logged as "+inf".
func EndKey(fieldKey string, key []byte) zap.Field {
	if len(key) == 0 {
		return zap.String(fieldKey, "+inf")
	}
	return Key(fieldKey, key)
}

// ShortError make the zap field to display error without verbose representation (e.g. the stack trace).
func ShortError(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", err.Error())
}

// StringifyRange is the wrapper for displaying a key range.
type StringifyRange kv.KeyRange

func (r StringifyRange) String() string {
	return kv.KeyRange(r).String()
}

// StringifyKeys wraps the key range into a stringer.
type StringifyKeys []kv.KeyRange

func (kr StringifyKeys) String() string {
	sb := new(strings.Builder)
	sb.WriteString("{")
	for i, rng := range kr {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(rng.String())
	}
	sb.WriteString("}")
	return sb.String()
}

type zapKeysMarshaler []kv.Key

func (keys zapKeysMarshaler) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	total := len(keys)
	encoder.AddInt("total", total)
	elements := make([]string, 0, total)
	if total <= 4 {
		for _, k := range keys {
			elements = append(elements, k.String())
		}
	} else {
		elements = append(elements, keys[0].String(), keys[total-1].String())
	}
	encoder.AddString("keys", fmt.Sprint(elements))
	return nil
}

// Keys constructs a field that carries upper hex format keys, only the first
// and the last key are kept when there are too many of them.
func Keys(keys []kv.Key) zap.Field {
	return zap.Object("keys", zapKeysMarshaler(keys))
}
