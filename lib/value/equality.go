// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"math"
	"math/big"
	"slices"
	"strconv"
	"strings"
)

// equalityKey returns a string that is equal for two hashable values
// exactly when Python considers them equal, so numerics of different
// kinds collapse (1, 1.0, True and 1+0j share a key). The second result
// is false for values that compare by identity or never compare equal
// (NaN, records, handles); such values are always distinct members.
func equalityKey(v *Value) (string, bool) {
	switch v.Kind {
	case KindNone:
		return "none", true
	case KindBool:
		if v.Bool {
			return "n:1", true
		}
		return "n:0", true
	case KindInt:
		return "n:" + v.Int.String(), true
	case KindFloat:
		return floatKey(v.Float)
	case KindComplex:
		if v.Imag == 0 {
			return floatKey(v.Float)
		}
		if math.IsNaN(v.Float) || math.IsNaN(v.Imag) {
			return "", false
		}
		return "c:" + strconv.FormatFloat(v.Float, 'x', -1, 64) + "," + strconv.FormatFloat(v.Imag, 'x', -1, 64), true
	case KindStr:
		return "s:" + v.Text, true
	case KindBytes:
		return "b:" + string(v.Bytes), true
	case KindGlobal:
		return "g:" + v.Text, true
	case KindSingleton:
		return "o:" + v.Text, true
	case KindTuple:
		parts := make([]string, len(v.Items))
		for index, item := range v.Items {
			key, comparable := equalityKey(item)
			if !comparable {
				return "", false
			}
			parts[index] = key
		}
		return "t(" + strings.Join(parts, "\x00") + ")", true
	case KindReduced:
		parts := make([]string, len(v.Items))
		for index, item := range v.Items {
			key, comparable := equalityKey(item)
			if !comparable {
				return "", false
			}
			parts[index] = key
		}
		return "r:" + v.Text + "(" + strings.Join(parts, "\x00") + ")", true
	case KindFrozenSet:
		parts := make([]string, len(v.Items))
		for index, item := range v.Items {
			key, comparable := equalityKey(item)
			if !comparable {
				return "", false
			}
			parts[index] = key
		}
		slices.Sort(parts)
		return "fs{" + strings.Join(parts, "\x00") + "}", true
	}
	return "", false
}

func floatKey(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "", false
	case math.IsInf(f, 1):
		return "f:inf", true
	case math.IsInf(f, -1):
		return "f:-inf", true
	}
	if f == math.Trunc(f) {
		integer, _ := new(big.Float).SetFloat64(f).Int(nil)
		return "n:" + integer.String(), true
	}
	return "f:" + strconv.FormatFloat(f, 'x', -1, 64), true
}

// uniqueHashable filters items down to hashable values with no two
// members equal under Python equality, preserving first occurrences.
func uniqueHashable(items []*Value) []*Value {
	result := make([]*Value, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !item.Hashable() {
			continue
		}
		key, comparable := equalityKey(item)
		if comparable {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		result = append(result, item)
	}
	return result
}
