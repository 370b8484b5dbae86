// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/bureau-foundation/picklecompat/lib/value"
)

// Container size tiers for list, tuple, set, frozenset and dict. 256
// crosses pickle's one-byte length forms; 1024 crosses the batching
// threshold of the list and dict opcodes.
var containerSizes = []int{0, 1, 256, 1024}

// Boundary returns the curated boundary partition with indices
// assigned from zero. Each call builds fresh graphs.
func Boundary() []TestValue {
	var values []TestValue
	add := func(class, label string, v *value.Value) {
		values = append(values, TestValue{Index: len(values), Label: label, Class: class, Value: v})
	}

	for _, integer := range boundaryIntegers() {
		add(ClassIntBoundary, "int "+integer.label, value.BigInt(integer.value))
	}

	for _, float := range []struct {
		label string
		value float64
	}{
		{"0.0", 0},
		{"-0.0", math.Copysign(0, -1)},
		{"smallest subnormal", math.SmallestNonzeroFloat64},
		{"1e-300", 1e-300},
		{"-1e-300", -1e-300},
		{"1.0", 1},
		{"-1.0", -1},
		{"1e300", 1e300},
		{"-1e300", -1e300},
		{"max finite", math.MaxFloat64},
		{"-max finite", -math.MaxFloat64},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"-inf", math.Inf(-1)},
	} {
		add(ClassFloatSpecial, "float "+float.label, value.Float(float.value))
	}
	add(ClassFloatSpecial, "complex 3+4j", value.Complex(3, 4))

	add(ClassText, "str empty", value.Str(""))
	add(ClassText, "str ascii", value.Str("a"))
	add(ClassText, "str sentence", value.Str("The quick brown fox jumps over the lazy dog."))
	add(ClassText, "str multi-byte", value.Str("你好"))
	add(ClassText, "str emoji", value.Str("😊"))
	add(ClassText, "str 1KiB", value.Str(strings.Repeat("a", 1024)))
	add(ClassText, "str 64KiB", value.Str(strings.Repeat("a", 64*1024)))
	add(ClassText, "str 1MiB", value.Str(strings.Repeat("a", 1024*1024)))

	add(ClassBinary, "bytes empty", value.Bytes(nil))
	add(ClassBinary, "bytes short", value.Bytes([]byte("hello")))
	add(ClassBinary, "bytes all octets", value.Bytes(allOctets()))
	add(ClassBinary, "bytes 64KiB+1", value.Bytes(make([]byte, 64*1024+1)))
	add(ClassBinary, "bytearray short", value.ByteArray([]byte("hello")))

	for _, size := range containerSizes {
		suffix := " " + strconv.Itoa(size)
		add(ClassOrdered, "list"+suffix, value.List(integers(size)...))
		add(ClassOrdered, "tuple"+suffix, value.Tuple(integers(size)...))
	}
	add(ClassOrdered, "nested list", value.List(value.Int(1), value.List(value.Int(2), value.List(value.Int(3)))))

	for _, size := range containerSizes {
		suffix := " " + strconv.Itoa(size)
		add(ClassUnordered, "set"+suffix, value.Set(integers(size)...))
		add(ClassUnordered, "frozenset"+suffix, value.FrozenSet(integers(size)...))
	}
	add(ClassUnordered, "frozenset {1,2,3}", value.FrozenSet(value.Int(1), value.Int(2), value.Int(3)))
	add(ClassUnordered, "set of strings", value.Set(value.Str("apple"), value.Str("banana"), value.Str("cherry")))

	for _, size := range containerSizes {
		entries := make([]value.Entry, size)
		for i := range size {
			entries[i] = value.Pair(strconv.Itoa(i), value.Int(int64(i)))
		}
		add(ClassAssociative, "dict "+strconv.Itoa(size), value.Dict(entries...))
	}
	add(ClassAssociative, "dict {a:1,b:2}", value.Dict(value.Pair("a", value.Int(1)), value.Pair("b", value.Int(2))))
	add(ClassAssociative, "dict {b:2,a:1}", value.Dict(value.Pair("b", value.Int(2)), value.Pair("a", value.Int(1))))
	add(ClassAssociative, "dict mixed keys", value.Dict(
		value.Entry{Key: value.Int(1), Value: value.Str("int")},
		value.Entry{Key: value.Tuple(value.Int(1), value.Int(2)), Value: value.Str("tuple")},
		value.Entry{Key: value.Float(2.5), Value: value.Str("float")},
		value.Entry{Key: value.None(), Value: value.Str("none")},
	))

	add(ClassRecord, "record point", value.Record("Point",
		value.Field{Name: "x", Value: value.Int(1)},
		value.Field{Name: "y", Value: value.Int(2)},
	))
	add(ClassRecord, "record custom object", value.Record("CustomObject",
		value.Field{Name: "value", Value: value.Int(42)},
	))
	add(ClassRecord, "record nested", value.Record("Envelope",
		value.Field{Name: "items", Value: value.List(value.Str("a"), value.Str("b"))},
		value.Field{Name: "meta", Value: value.Dict(value.Pair("version", value.Int(3)))},
	))

	add(ClassRecursive, "recursive list", value.Recursive(value.Int(1), value.Int(2)))
	add(ClassRecursive, "recursive dict", value.RecursiveDict(value.Pair("name", value.Str("root"))))
	shared := value.List(value.Int(7))
	add(ClassRecursive, "shared child", value.List(shared, shared))

	add(ClassSingleton, "None", value.None())
	add(ClassSingleton, "True", value.Bool(true))
	add(ClassSingleton, "False", value.Bool(false))
	add(ClassSingleton, "Ellipsis", value.Singleton(value.Ellipsis))
	add(ClassSingleton, "NotImplemented", value.Singleton(value.NotImplemented))

	add(ClassGlobal, "builtin function", value.Global("builtins.len"))
	add(ClassGlobal, "top-level function", value.Global("__main__.top_level_func"))

	add(ClassPlatform, "range", value.Reduced("builtins.range", value.Int(0), value.Int(5), value.Int(1)))
	add(ClassPlatform, "posix path", value.Reduced("pathlib.PurePosixPath", value.Str("/"), value.Str("tmp")))
	add(ClassPlatform, "stat result", value.Reduced("os.stat_result", value.Tuple(integers(10)...)))
	add(ClassPlatform, "namedtuple", value.Reduced("__main__.Coordinate", value.Int(3), value.Int(4)))
	add(ClassPlatform, "record holding uuid.getnode", value.Record("HostIdentity",
		value.Field{Name: "node", Value: value.Global("uuid.getnode")},
	))

	for _, resource := range value.HandleResources {
		add(ClassNonSerializable, "handle "+resource, value.Handle(resource))
	}
	add(ClassNonSerializable, "list wrapping socket", value.List(value.Int(1), value.Handle("socket")))

	return values
}

type namedInteger struct {
	label string
	value *big.Int
}

func boundaryIntegers() []namedInteger {
	power := func(exponent uint) *big.Int {
		return new(big.Int).Lsh(big.NewInt(1), exponent)
	}
	add := func(a *big.Int, b int64) *big.Int {
		return new(big.Int).Add(a, big.NewInt(b))
	}
	negate := func(a *big.Int) *big.Int {
		return new(big.Int).Neg(a)
	}
	return []namedInteger{
		{"0", big.NewInt(0)},
		{"1", big.NewInt(1)},
		{"-1", big.NewInt(-1)},
		{"255", big.NewInt(255)},
		{"256", big.NewInt(256)},
		{"2^31-1", add(power(31), -1)},
		{"-2^31", negate(power(31))},
		{"2^31", power(31)},
		{"2^63-1", add(power(63), -1)},
		{"-2^63", negate(power(63))},
		{"2^63", power(63)},
		{"-2^63-1", add(negate(power(63)), -1)},
		{"2^64", power(64)},
		{"2^100", power(100)},
		{"-2^100", negate(power(100))},
	}
}

func integers(count int) []*value.Value {
	items := make([]*value.Value, count)
	for i := range count {
		items[i] = value.Int(int64(i))
	}
	return items
}

func allOctets() []byte {
	octets := make([]byte, 256)
	for i := range octets {
		octets[i] = byte(i)
	}
	return octets
}
