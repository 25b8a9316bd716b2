// Copyright 2026 PingCAP, Inc. Licensed under Apache-2.0.

package kv

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// Key represents a row key of the partitioned store. Keys are unsigned
// big-endian byte strings compared with bytes.Compare.
type Key []byte

// Clone returns a deep copy of the key. Clone of a nil key is nil.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}
	return append(make(Key, 0, len(k)), k...)
}

// Cmp returns the comparison result of two keys.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func (k Key) Cmp(another Key) int {
	return bytes.Compare(k, another)
}

// String implements fmt.Stringer interface.
func (k Key) String() string {
	return strings.ToUpper(hex.EncodeToString(k))
}

// Increment treats key[offset:offset+length] as an unsigned big-endian
// integer and adds one to it. Bytes outside of the window are left untouched
// and the input is never modified.
//
// The second return value reports an overflow, that is, every byte of the
// window was 0xFF (an empty window always overflows). The window of the
// returned key is all zeros in that case and the caller should read the
// result as "no finite successor".
func Increment(key Key, offset, length int) (Key, bool) {
	if offset < 0 || length < 0 || offset+length > len(key) {
		panic(fmt.Sprintf("increment window [%d, %d) out of key length %d", offset, offset+length, len(key)))
	}
	ret := key.Clone()
	if ret == nil {
		ret = Key{}
	}
	for i := offset + length - 1; i >= offset; i-- {
		ret[i]++
		if ret[i] != 0 {
			return ret, false
		}
	}
	return ret, true
}

// CompareEndKey compares two keys that BOTH represent the EXCLUSIVE ending of
// some range. An empty end key is the very end, so an empty key is greater
// than any other key.
func CompareEndKey(a, b Key) int {
	if len(a) == 0 {
		if len(b) == 0 {
			return 0
		}
		return 1
	}
	if len(b) == 0 {
		return -1
	}
	return bytes.Compare(a, b)
}

// KeyRange represents a range [StartKey, EndKey). An empty EndKey means the
// range is unbounded on the right.
type KeyRange struct {
	StartKey Key
	EndKey   Key
}

// IsUnbounded reports whether the range extends to the end of the key space.
func (r KeyRange) IsUnbounded() bool {
	return len(r.EndKey) == 0
}

// Contains reports whether key falls into the range.
func (r KeyRange) Contains(key Key) bool {
	return bytes.Compare(key, r.StartKey) >= 0 && (r.IsUnbounded() || bytes.Compare(key, r.EndKey) < 0)
}

// String implements fmt.Stringer interface.
func (r KeyRange) String() string {
	end := "+inf"
	if !r.IsUnbounded() {
		end = r.EndKey.String()
	}
	return fmt.Sprintf("[%s, %s)", r.StartKey.String(), end)
}
