// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// KindRef marks a wire node that points back to an earlier container
// by its ID. It never appears on a [Value].
const KindRef Kind = "ref"

// Node is the wire form of a [Value]. It is what the embedded harness
// and the worker read and write as JSON, and what corpus snapshots
// store as CBOR.
//
// Payload encoding by kind:
//
//   - int: V holds the decimal digits
//   - float: V holds a hexadecimal float ("0x1.8p+01"), or inf, -inf, nan
//   - complex: V and I hold the real and imaginary parts as floats
//   - str, record, global, singleton, handle, opaque: V holds the text
//   - bytes, bytearray: V holds standard base64
//   - dict: Keys and Items are parallel
//   - record: Names and Items are parallel
//   - reduced: V holds the qualified callable, Items its arguments
//
// Containers carry a positive ID; a later node with kind "ref" and the
// same Ref refers to the same container.
type Node struct {
	Kind  Kind     `json:"k"`
	ID    int      `json:"id,omitempty"`
	Ref   int      `json:"ref,omitempty"`
	V     string   `json:"v,omitempty"`
	I     string   `json:"i,omitempty"`
	B     bool     `json:"b,omitempty"`
	Items []*Node  `json:"items,omitempty"`
	Keys  []*Node  `json:"keys,omitempty"`
	Names []string `json:"names,omitempty"`
}

// ToWire converts a graph to its wire tree. Each container is emitted
// once; later occurrences, including cycles, become ref nodes.
func ToWire(v *Value) *Node {
	encoder := wireEncoder{ids: make(map[*Value]int)}
	return encoder.encode(v)
}

type wireEncoder struct {
	ids  map[*Value]int
	next int
}

func (e *wireEncoder) encode(v *Value) *Node {
	if v.Kind.IsContainer() {
		if id, seen := e.ids[v]; seen {
			return &Node{Kind: KindRef, Ref: id}
		}
		e.next++
		e.ids[v] = e.next
	}
	node := &Node{Kind: v.Kind, ID: e.ids[v]}
	switch v.Kind {
	case KindBool:
		node.B = v.Bool
	case KindInt:
		node.V = v.Int.String()
	case KindFloat:
		node.V = formatWireFloat(v.Float)
	case KindComplex:
		node.V = formatWireFloat(v.Float)
		node.I = formatWireFloat(v.Imag)
	case KindStr, KindGlobal, KindSingleton, KindHandle, KindOpaque:
		node.V = v.Text
	case KindBytes, KindByteArray:
		node.V = base64.StdEncoding.EncodeToString(v.Bytes)
	case KindList, KindTuple, KindSet, KindFrozenSet:
		node.Items = make([]*Node, len(v.Items))
		for index, item := range v.Items {
			node.Items[index] = e.encode(item)
		}
	case KindDict:
		node.Keys = make([]*Node, len(v.Entries))
		node.Items = make([]*Node, len(v.Entries))
		for index, entry := range v.Entries {
			node.Keys[index] = e.encode(entry.Key)
			node.Items[index] = e.encode(entry.Value)
		}
	case KindRecord:
		node.V = v.Text
		node.Names = make([]string, len(v.Fields))
		node.Items = make([]*Node, len(v.Fields))
		for index, field := range v.Fields {
			node.Names[index] = field.Name
			node.Items[index] = e.encode(field.Value)
		}
	case KindReduced:
		node.V = v.Text
		node.Items = make([]*Node, len(v.Items))
		for index, item := range v.Items {
			node.Items[index] = e.encode(item)
		}
	}
	return node
}

// FromWire rebuilds a graph from its wire tree. Ref nodes resolve to
// the container with the matching ID, which must already have been
// opened: either an ancestor or an earlier sibling subtree. Set and
// dict members are taken as given; no deduplication is applied, since
// the describing environment already holds a valid object.
func FromWire(node *Node) (*Value, error) {
	decoder := wireDecoder{containers: make(map[int]*Value)}
	v, err := decoder.decode(node)
	if err != nil {
		return nil, err
	}
	return v, nil
}

type wireDecoder struct {
	containers map[int]*Value
}

func (d *wireDecoder) decode(node *Node) (*Value, error) {
	if node == nil {
		return nil, fmt.Errorf("wire: missing node")
	}
	if node.Kind == KindRef {
		v, ok := d.containers[node.Ref]
		if !ok {
			return nil, fmt.Errorf("wire: reference to unknown container %d", node.Ref)
		}
		return v, nil
	}

	v := &Value{Kind: node.Kind}
	if node.Kind.IsContainer() && node.ID > 0 {
		if _, duplicate := d.containers[node.ID]; duplicate {
			return nil, fmt.Errorf("wire: container id %d defined twice", node.ID)
		}
		d.containers[node.ID] = v
	}

	var err error
	switch node.Kind {
	case KindNone:
	case KindBool:
		v.Bool = node.B
	case KindInt:
		integer, ok := new(big.Int).SetString(node.V, 10)
		if !ok {
			return nil, fmt.Errorf("wire: invalid int %q", node.V)
		}
		v.Int = integer
	case KindFloat:
		if v.Float, err = parseWireFloat(node.V); err != nil {
			return nil, err
		}
	case KindComplex:
		if v.Float, err = parseWireFloat(node.V); err != nil {
			return nil, err
		}
		if v.Imag, err = parseWireFloat(node.I); err != nil {
			return nil, err
		}
	case KindStr, KindGlobal, KindSingleton, KindHandle, KindOpaque:
		v.Text = node.V
	case KindBytes, KindByteArray:
		if v.Bytes, err = base64.StdEncoding.DecodeString(node.V); err != nil {
			return nil, fmt.Errorf("wire: %s payload: %w", node.Kind, err)
		}
	case KindList, KindTuple, KindSet, KindFrozenSet, KindReduced:
		v.Text = node.V
		v.Items = make([]*Value, len(node.Items))
		for index, child := range node.Items {
			if v.Items[index], err = d.decode(child); err != nil {
				return nil, err
			}
		}
	case KindDict:
		if len(node.Keys) != len(node.Items) {
			return nil, fmt.Errorf("wire: dict has %d keys and %d values", len(node.Keys), len(node.Items))
		}
		v.Entries = make([]Entry, len(node.Keys))
		for index := range node.Keys {
			if v.Entries[index].Key, err = d.decode(node.Keys[index]); err != nil {
				return nil, err
			}
			if v.Entries[index].Value, err = d.decode(node.Items[index]); err != nil {
				return nil, err
			}
		}
	case KindRecord:
		if len(node.Names) != len(node.Items) {
			return nil, fmt.Errorf("wire: record has %d names and %d values", len(node.Names), len(node.Items))
		}
		v.Text = node.V
		v.Fields = make([]Field, len(node.Names))
		for index, name := range node.Names {
			v.Fields[index].Name = name
			if v.Fields[index].Value, err = d.decode(node.Items[index]); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("wire: unknown kind %q", node.Kind)
	}
	return v, nil
}

func formatWireFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'x', -1, 64)
}

// parseWireFloat accepts Go and Python hexadecimal float spellings
// ("0x1.8p+01", "0x1.8000000000000p+1", "-0x0.0p+0") and the three
// specials.
func parseWireFloat(s string) (float64, error) {
	switch s {
	case "nan":
		return math.NaN(), nil
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("wire: invalid float %q: %w", s, err)
	}
	return f, nil
}
