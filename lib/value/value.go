// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"fmt"
	"math/big"
	"strings"
)

// Kind identifies the type of a [Value]. The string form is also the
// kind tag used on the wire.
type Kind string

const (
	KindNone      Kind = "none"
	KindBool      Kind = "bool"
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindComplex   Kind = "complex"
	KindStr       Kind = "str"
	KindBytes     Kind = "bytes"
	KindByteArray Kind = "bytearray"
	KindList      Kind = "list"
	KindTuple     Kind = "tuple"
	KindSet       Kind = "set"
	KindFrozenSet Kind = "frozenset"
	KindDict      Kind = "dict"
	KindRecord    Kind = "record"
	KindReduced   Kind = "reduced"
	KindGlobal    Kind = "global"
	KindSingleton Kind = "singleton"
	KindHandle    Kind = "handle"
	KindOpaque    Kind = "opaque"
)

// IsContainer reports whether values of this kind hold child values.
func (k Kind) IsContainer() bool {
	switch k {
	case KindList, KindTuple, KindSet, KindFrozenSet, KindDict, KindRecord, KindReduced:
		return true
	}
	return false
}

// Value is one node of an object graph. Which fields are meaningful
// depends on Kind:
//
//   - bool: Bool
//   - int: Int (never nil)
//   - float: Float
//   - complex: Float (real part) and Imag
//   - str: Text
//   - bytes, bytearray: Bytes
//   - list, tuple, set, frozenset: Items
//   - dict: Entries, in insertion order
//   - record: Text (class name) and Fields
//   - reduced: Text ("module.qualname" of the callable) and Items (its
//     positional arguments)
//   - global: Text ("module.qualname")
//   - singleton: Text ("Ellipsis" or "NotImplemented")
//   - handle: Text (resource type, e.g. "socket")
//   - opaque: Text (type name as reported by the environment)
//
// Values are treated as immutable once built. Containers may be
// shared or cyclic, so code walking a graph must track visited nodes.
type Value struct {
	Kind    Kind
	Bool    bool
	Int     *big.Int
	Float   float64
	Imag    float64
	Text    string
	Bytes   []byte
	Items   []*Value
	Entries []Entry
	Fields  []Field
}

// Entry is one key/value pair of a dict.
type Entry struct {
	Key   *Value
	Value *Value
}

// Field is one named attribute of a record.
type Field struct {
	Name  string
	Value *Value
}

// Singleton names.
const (
	Ellipsis       = "Ellipsis"
	NotImplemented = "NotImplemented"
)

func None() *Value { return &Value{Kind: KindNone} }

func Bool(b bool) *Value { return &Value{Kind: KindBool, Bool: b} }

func Int(i int64) *Value { return &Value{Kind: KindInt, Int: big.NewInt(i)} }

// BigInt wraps a copy of i.
func BigInt(i *big.Int) *Value {
	return &Value{Kind: KindInt, Int: new(big.Int).Set(i)}
}

func Float(f float64) *Value { return &Value{Kind: KindFloat, Float: f} }

func Complex(realPart, imagPart float64) *Value {
	return &Value{Kind: KindComplex, Float: realPart, Imag: imagPart}
}

func Str(s string) *Value { return &Value{Kind: KindStr, Text: s} }

func Bytes(b []byte) *Value {
	return &Value{Kind: KindBytes, Bytes: append([]byte{}, b...)}
}

func ByteArray(b []byte) *Value {
	return &Value{Kind: KindByteArray, Bytes: append([]byte{}, b...)}
}

func List(items ...*Value) *Value {
	return &Value{Kind: KindList, Items: append([]*Value{}, items...)}
}

func Tuple(items ...*Value) *Value {
	return &Value{Kind: KindTuple, Items: append([]*Value{}, items...)}
}

// Set builds a mutable set. Unhashable members are dropped and members
// equal under Python equality are collapsed to the first occurrence, so
// Set(Int(1), Float(1.0), Bool(true)) has a single member.
func Set(items ...*Value) *Value {
	return &Value{Kind: KindSet, Items: uniqueHashable(items)}
}

// FrozenSet builds an immutable set with the same filtering as [Set].
func FrozenSet(items ...*Value) *Value {
	return &Value{Kind: KindFrozenSet, Items: uniqueHashable(items)}
}

// Dict builds a dict from entries in order. Entries with unhashable keys
// are dropped. A repeated key keeps the position of its first
// occurrence and the value of its last, as a Python dict literal does.
func Dict(entries ...Entry) *Value {
	result := &Value{Kind: KindDict}
	positions := make(map[string]int, len(entries))
	for _, entry := range entries {
		if !entry.Key.Hashable() {
			continue
		}
		key, comparable := equalityKey(entry.Key)
		if !comparable {
			result.Entries = append(result.Entries, entry)
			continue
		}
		if position, seen := positions[key]; seen {
			result.Entries[position].Value = entry.Value
			continue
		}
		positions[key] = len(result.Entries)
		result.Entries = append(result.Entries, entry)
	}
	return result
}

// Pair is shorthand for a dict entry with a string key.
func Pair(key string, v *Value) Entry {
	return Entry{Key: Str(key), Value: v}
}

// Record builds an instance of a plain user class with the given
// attributes. The class name is unqualified; environments define the
// class in their main module.
func Record(class string, fields ...Field) *Value {
	return &Value{Kind: KindRecord, Text: class, Fields: append([]Field{}, fields...)}
}

// Reduced builds an object that pickle reconstructs by calling a
// module-level callable with positional arguments, the way range,
// pathlib paths and os.stat_result reduce. callable is qualified, for
// example "builtins.range".
func Reduced(callable string, args ...*Value) *Value {
	return &Value{Kind: KindReduced, Text: callable, Items: append([]*Value{}, args...)}
}

// Global refers to a module-level function or class by qualified name,
// for example "builtins.len".
func Global(qualified string) *Value { return &Value{Kind: KindGlobal, Text: qualified} }

// Singleton builds Ellipsis or NotImplemented.
func Singleton(name string) *Value { return &Value{Kind: KindSingleton, Text: name} }

// Handle stands for a live OS resource that environments create on
// demand. Supported resources are listed in [HandleResources].
func Handle(resource string) *Value { return &Value{Kind: KindHandle, Text: resource} }

// HandleResources are the resource names an environment knows how to
// open for a [KindHandle] value.
var HandleResources = []string{"socket", "lock", "file", "struct", "generator"}

// Recursive builds a list holding items followed by a reference to
// itself.
func Recursive(items ...*Value) *Value {
	list := List(items...)
	list.Items = append(list.Items, list)
	return list
}

// RecursiveDict builds a dict holding entries plus a "self" key that
// refers back to the dict.
func RecursiveDict(entries ...Entry) *Value {
	dict := Dict(entries...)
	dict.Entries = append(dict.Entries, Pair("self", dict))
	return dict
}

// Len returns the number of direct children: items, entries, fields,
// or bytes. Scalars have length zero.
func (v *Value) Len() int {
	switch v.Kind {
	case KindList, KindTuple, KindSet, KindFrozenSet, KindReduced:
		return len(v.Items)
	case KindDict:
		return len(v.Entries)
	case KindRecord:
		return len(v.Fields)
	case KindBytes, KindByteArray:
		return len(v.Bytes)
	case KindStr:
		return len(v.Text)
	}
	return 0
}

// Hashable reports whether v could be a set member or dict key.
// Lists, dicts, sets and bytearrays are not; tuples and frozensets are
// hashable only when all their members are.
func (v *Value) Hashable() bool {
	return hashable(v, make(map[*Value]bool))
}

func hashable(v *Value, visiting map[*Value]bool) bool {
	switch v.Kind {
	case KindList, KindDict, KindSet, KindByteArray, KindOpaque:
		return false
	case KindTuple, KindFrozenSet:
		if visiting[v] {
			return false
		}
		visiting[v] = true
		defer delete(visiting, v)
		for _, item := range v.Items {
			if !hashable(item, visiting) {
				return false
			}
		}
	}
	return true
}

// String returns the canonical rendering. It exists for debugging and
// %v formatting; code that fingerprints values calls [Canonical].
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	return Canonical(v)
}

// Validate checks structural consistency: ints carry a payload, known
// singleton and handle names, dict keys hashable. Values built through
// the constructors always validate; FromWire output is checked with it.
func Validate(v *Value) error {
	return validate(v, make(map[*Value]bool))
}

func validate(v *Value, visited map[*Value]bool) error {
	if v == nil {
		return fmt.Errorf("nil value")
	}
	if visited[v] {
		return nil
	}
	visited[v] = true
	switch v.Kind {
	case KindNone, KindBool, KindFloat, KindComplex, KindStr, KindBytes, KindByteArray, KindGlobal, KindOpaque:
	case KindInt:
		if v.Int == nil {
			return fmt.Errorf("int without payload")
		}
	case KindSingleton:
		if v.Text != Ellipsis && v.Text != NotImplemented {
			return fmt.Errorf("unknown singleton %q", v.Text)
		}
	case KindHandle:
		if !isHandleResource(v.Text) {
			return fmt.Errorf("unknown handle resource %q", v.Text)
		}
	case KindList, KindTuple, KindSet, KindFrozenSet:
		for index, item := range v.Items {
			if err := validate(item, visited); err != nil {
				return fmt.Errorf("%s item %d: %w", v.Kind, index, err)
			}
		}
	case KindDict:
		for index, entry := range v.Entries {
			if err := validate(entry.Key, visited); err != nil {
				return fmt.Errorf("dict key %d: %w", index, err)
			}
			if !entry.Key.Hashable() {
				return fmt.Errorf("dict key %d: unhashable %s", index, entry.Key.Kind)
			}
			if err := validate(entry.Value, visited); err != nil {
				return fmt.Errorf("dict value %d: %w", index, err)
			}
		}
	case KindReduced:
		if !strings.Contains(v.Text, ".") {
			return fmt.Errorf("reduced callable %q has no module", v.Text)
		}
		for index, item := range v.Items {
			if err := validate(item, visited); err != nil {
				return fmt.Errorf("%s argument %d: %w", v.Text, index, err)
			}
		}
	case KindRecord:
		if v.Text == "" {
			return fmt.Errorf("record without class name")
		}
		for _, field := range v.Fields {
			if err := validate(field.Value, visited); err != nil {
				return fmt.Errorf("record field %s: %w", field.Name, err)
			}
		}
	default:
		return fmt.Errorf("unknown kind %q", v.Kind)
	}
	return nil
}

func isHandleResource(name string) bool {
	for _, resource := range HandleResources {
		if resource == name {
			return true
		}
	}
	return false
}
