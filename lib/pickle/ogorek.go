// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pickle

import (
	"bytes"
	"fmt"
	"math/big"
	"slices"
	"strings"

	ogorek "github.com/kisielk/og-rek"

	"github.com/bureau-foundation/picklecompat/lib/value"
)

// handleTypes maps handle resources to the type name CPython reports
// when refusing to pickle them.
var handleTypes = map[string]string{
	"socket":    "socket",
	"lock":      "_thread.lock",
	"file":      "_io.BufferedReader",
	"struct":    "Struct",
	"generator": "generator",
}

// Ogorek is the og-rek backed [Codec]. The zero value is ready to use
// and safe for concurrent use.
type Ogorek struct{}

var _ Codec = Ogorek{}

// Encode converts v to og-rek's object model and serializes it.
func (Ogorek) Encode(v *value.Value, protocol int) ([]byte, error) {
	if !ValidProtocol(protocol) {
		return nil, &EncodeError{Type: "ValueError", Message: fmt.Sprintf("pickle protocol must be <= %d", HighestProtocol)}
	}
	object, err := toObject(v, make(map[*value.Value]bool))
	if err != nil {
		return nil, err
	}
	var buffer bytes.Buffer
	encoder := ogorek.NewEncoderWithConfig(&buffer, &ogorek.EncoderConfig{Protocol: protocol})
	if err := encoder.Encode(object); err != nil {
		return nil, &EncodeError{Type: "PicklingError", Message: err.Error()}
	}
	return buffer.Bytes(), nil
}

// Decode parses one pickle stream and converts the result back.
func (Ogorek) Decode(data []byte) (*value.Value, error) {
	object, err := ogorek.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return fromObject(object)
}

func builtin(name string) ogorek.Class {
	return ogorek.Class{Module: "builtins", Name: name}
}

func reconstruct(callable ogorek.Class, args ...any) ogorek.Call {
	return ogorek.Call{Callable: callable, Args: ogorek.Tuple(args)}
}

// toObject maps a value graph onto og-rek types. active holds the
// containers on the current path; og-rek writes no memo, so a cycle
// would never terminate and is refused up front.
func toObject(v *value.Value, active map[*value.Value]bool) (any, error) {
	if v.Kind.IsContainer() {
		if active[v] {
			return nil, &EncodeError{Type: "PicklingError", Message: "recursive structures are not supported by og-rek"}
		}
		active[v] = true
		defer delete(active, v)
	}

	switch v.Kind {
	case value.KindNone:
		return ogorek.None{}, nil
	case value.KindBool:
		return v.Bool, nil
	case value.KindInt:
		if v.Int.IsInt64() {
			return v.Int.Int64(), nil
		}
		return new(big.Int).Set(v.Int), nil
	case value.KindFloat:
		return v.Float, nil
	case value.KindComplex:
		return reconstruct(builtin("complex"), v.Float, v.Imag), nil
	case value.KindStr:
		return v.Text, nil
	case value.KindBytes:
		return ogorek.Bytes(v.Bytes), nil
	case value.KindByteArray:
		return slices.Clone(v.Bytes), nil
	case value.KindList:
		return toObjects(v.Items, active)
	case value.KindTuple:
		items, err := toObjects(v.Items, active)
		if err != nil {
			return nil, err
		}
		return ogorek.Tuple(items), nil
	case value.KindSet, value.KindFrozenSet:
		items, err := toObjects(v.Items, active)
		if err != nil {
			return nil, err
		}
		return reconstruct(builtin(string(v.Kind)), items), nil
	case value.KindDict:
		pairs := make([]any, len(v.Entries))
		for index, entry := range v.Entries {
			key, err := toObject(entry.Key, active)
			if err != nil {
				return nil, err
			}
			item, err := toObject(entry.Value, active)
			if err != nil {
				return nil, err
			}
			pairs[index] = ogorek.Tuple{key, item}
		}
		return reconstruct(builtin("dict"), pairs), nil
	case value.KindRecord:
		pairs := make([]any, len(v.Fields))
		for index, field := range v.Fields {
			item, err := toObject(field.Value, active)
			if err != nil {
				return nil, err
			}
			pairs[index] = ogorek.Tuple{field.Name, item}
		}
		return reconstruct(ogorek.Class{Module: "__main__", Name: v.Text}, reconstruct(builtin("dict"), pairs)), nil
	case value.KindReduced:
		module, name, found := splitQualified(v.Text)
		if !found {
			return nil, &EncodeError{Type: "PicklingError", Message: fmt.Sprintf("callable %q has no module", v.Text)}
		}
		args, err := toObjects(v.Items, active)
		if err != nil {
			return nil, err
		}
		return reconstruct(ogorek.Class{Module: module, Name: name}, args...), nil
	case value.KindGlobal:
		module, name, found := splitQualified(v.Text)
		if !found {
			return nil, &EncodeError{Type: "PicklingError", Message: fmt.Sprintf("global %q has no module", v.Text)}
		}
		return ogorek.Class{Module: module, Name: name}, nil
	case value.KindSingleton:
		return builtin(v.Text), nil
	case value.KindHandle:
		typeName, known := handleTypes[v.Text]
		if !known {
			typeName = v.Text
		}
		return nil, &EncodeError{Type: "TypeError", Message: fmt.Sprintf("cannot pickle '%s' object", typeName)}
	}
	return nil, &EncodeError{Type: "TypeError", Message: fmt.Sprintf("cannot pickle %s value %q", v.Kind, v.Text)}
}

// splitQualified splits "package.module.name" at its last dot.
func splitQualified(qualified string) (module, name string, ok bool) {
	position := strings.LastIndex(qualified, ".")
	if position <= 0 || position == len(qualified)-1 {
		return "", "", false
	}
	return qualified[:position], qualified[position+1:], true
}

func toObjects(items []*value.Value, active map[*value.Value]bool) ([]any, error) {
	objects := make([]any, len(items))
	for index, item := range items {
		object, err := toObject(item, active)
		if err != nil {
			return nil, err
		}
		objects[index] = object
	}
	return objects, nil
}

// fromObject maps a decoded og-rek object back to a value. Dicts that
// og-rek decodes into Go maps (streams written by CPython) have lost
// their insertion order; their entries are sorted by canonical key
// rendering so the result is at least deterministic.
func fromObject(object any) (*value.Value, error) {
	switch typed := object.(type) {
	case nil, ogorek.None:
		return value.None(), nil
	case bool:
		return value.Bool(typed), nil
	case int64:
		return value.Int(typed), nil
	case int:
		return value.Int(int64(typed)), nil
	case *big.Int:
		return value.BigInt(typed), nil
	case float64:
		return value.Float(typed), nil
	case string:
		return value.Str(typed), nil
	case ogorek.Bytes:
		return value.Bytes([]byte(typed)), nil
	case []byte:
		return value.ByteArray(typed), nil
	case []any:
		items, err := fromObjects(typed)
		if err != nil {
			return nil, err
		}
		return &value.Value{Kind: value.KindList, Items: items}, nil
	case ogorek.Tuple:
		items, err := fromObjects(typed)
		if err != nil {
			return nil, err
		}
		return &value.Value{Kind: value.KindTuple, Items: items}, nil
	case map[any]any:
		return fromMap(typed)
	case ogorek.Class:
		return fromClass(typed), nil
	case ogorek.Call:
		return fromCall(typed)
	}
	return &value.Value{Kind: value.KindOpaque, Text: fmt.Sprintf("%T", object)}, nil
}

func fromObjects(objects []any) ([]*value.Value, error) {
	items := make([]*value.Value, len(objects))
	for index, object := range objects {
		item, err := fromObject(object)
		if err != nil {
			return nil, err
		}
		items[index] = item
	}
	return items, nil
}

func fromMap(object map[any]any) (*value.Value, error) {
	entries := make([]value.Entry, 0, len(object))
	for key, item := range object {
		keyValue, err := fromObject(key)
		if err != nil {
			return nil, err
		}
		itemValue, err := fromObject(item)
		if err != nil {
			return nil, err
		}
		entries = append(entries, value.Entry{Key: keyValue, Value: itemValue})
	}
	slices.SortFunc(entries, func(a, b value.Entry) int {
		return strings.Compare(value.Canonical(a.Key), value.Canonical(b.Key))
	})
	return &value.Value{Kind: value.KindDict, Entries: entries}, nil
}

func moduleName(module string) string {
	if module == "__builtin__" {
		return "builtins"
	}
	return module
}

func fromClass(class ogorek.Class) *value.Value {
	module := moduleName(class.Module)
	if module == "builtins" && (class.Name == value.Ellipsis || class.Name == value.NotImplemented) {
		return value.Singleton(class.Name)
	}
	return value.Global(module + "." + class.Name)
}

// fromCall undoes the calls toObject writes. Any other call decodes as
// a reduced value.
func fromCall(call ogorek.Call) (*value.Value, error) {
	module := moduleName(call.Callable.Module)
	name := call.Callable.Name
	args := []any(call.Args)

	if module == "builtins" {
		switch name {
		case "set", "frozenset", "dict":
			var members []any
			if len(args) > 0 {
				list, ok := args[0].([]any)
				if !ok {
					return nil, &DecodeError{Err: fmt.Errorf("%s() argument is %T, want list", name, args[0])}
				}
				members = list
			}
			if name == "dict" {
				return dictFromPairs(members)
			}
			items, err := fromObjects(members)
			if err != nil {
				return nil, err
			}
			return &value.Value{Kind: value.Kind(name), Items: items}, nil
		case "complex":
			if len(args) == 2 {
				realPart, realOK := args[0].(float64)
				imagPart, imagOK := args[1].(float64)
				if realOK && imagOK {
					return value.Complex(realPart, imagPart), nil
				}
			}
		case "bytearray":
			if len(args) == 1 {
				if data, ok := args[0].(ogorek.Bytes); ok {
					return value.ByteArray([]byte(data)), nil
				}
			}
		}
	}

	if module == "__main__" && len(args) == 1 {
		state, err := fromObject(args[0])
		if err != nil {
			return nil, err
		}
		if state.Kind == value.KindDict {
			record := &value.Value{Kind: value.KindRecord, Text: name}
			for _, entry := range state.Entries {
				if entry.Key.Kind != value.KindStr {
					return nil, &DecodeError{Err: fmt.Errorf("record %s field name is %s", name, entry.Key.Kind)}
				}
				record.Fields = append(record.Fields, value.Field{Name: entry.Key.Text, Value: entry.Value})
			}
			return record, nil
		}
	}

	items, err := fromObjects(args)
	if err != nil {
		return nil, err
	}
	return &value.Value{Kind: value.KindReduced, Text: module + "." + name, Items: items}, nil
}

func dictFromPairs(pairs []any) (*value.Value, error) {
	dict := &value.Value{Kind: value.KindDict, Entries: make([]value.Entry, len(pairs))}
	for index, pair := range pairs {
		tuple, ok := pair.(ogorek.Tuple)
		if !ok || len(tuple) != 2 {
			return nil, &DecodeError{Err: fmt.Errorf("dict() item %d is %T, want 2-tuple", index, pair)}
		}
		key, err := fromObject(tuple[0])
		if err != nil {
			return nil, err
		}
		item, err := fromObject(tuple[1])
		if err != nil {
			return nil, err
		}
		dict.Entries[index] = value.Entry{Key: key, Value: item}
	}
	return dict, nil
}
