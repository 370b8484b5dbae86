// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package value

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Canonical renders v as a deterministic string modeled on Python's
// repr. Two graphs that an environment would print identically render
// identically here, with three normalizations that repr does not make:
//
//   - set and frozenset members are sorted by their own rendering, so
//     hash-table iteration order never leaks into the result;
//   - records render as Class(field=value, ...) and reduced objects
//     as callable(arg, ...), instead of a memory address;
//   - floats always render with the shortest round-tripping digits.
//
// A container reached again while it is still being rendered prints
// as [...] (list), {...} (dict) or ... (anything else). Shared but
// acyclic children render in full at each occurrence.
//
// Equality of renderings is an approximation of value equality: it
// cannot see identity, and distinct objects with equal attributes
// collapse to the same string.
func Canonical(v *Value) string {
	var builder strings.Builder
	renderer := canonicalRenderer{builder: &builder, active: make(map[*Value]bool)}
	renderer.render(v)
	return builder.String()
}

type canonicalRenderer struct {
	builder *strings.Builder
	active  map[*Value]bool
}

func (r *canonicalRenderer) write(s string) { r.builder.WriteString(s) }

func (r *canonicalRenderer) render(v *Value) {
	if v == nil {
		r.write("<nil>")
		return
	}
	if v.Kind.IsContainer() {
		if r.active[v] {
			switch v.Kind {
			case KindList:
				r.write("[...]")
			case KindDict:
				r.write("{...}")
			default:
				r.write("...")
			}
			return
		}
		r.active[v] = true
		defer delete(r.active, v)
	}

	switch v.Kind {
	case KindNone:
		r.write("None")
	case KindBool:
		if v.Bool {
			r.write("True")
		} else {
			r.write("False")
		}
	case KindInt:
		r.write(v.Int.String())
	case KindFloat:
		r.write(FormatFloat(v.Float))
	case KindComplex:
		r.write(formatComplex(v.Float, v.Imag))
	case KindStr:
		r.write(strconv.Quote(v.Text))
	case KindBytes:
		r.write("b" + strconv.Quote(string(v.Bytes)))
	case KindByteArray:
		r.write("bytearray(b" + strconv.Quote(string(v.Bytes)) + ")")
	case KindList:
		r.write("[")
		r.sequence(v.Items)
		r.write("]")
	case KindTuple:
		r.write("(")
		r.sequence(v.Items)
		if len(v.Items) == 1 {
			r.write(",")
		}
		r.write(")")
	case KindSet:
		if len(v.Items) == 0 {
			r.write("set()")
			return
		}
		r.write("{")
		r.sorted(v.Items)
		r.write("}")
	case KindFrozenSet:
		if len(v.Items) == 0 {
			r.write("frozenset()")
			return
		}
		r.write("frozenset({")
		r.sorted(v.Items)
		r.write("})")
	case KindDict:
		r.write("{")
		for index, entry := range v.Entries {
			if index > 0 {
				r.write(", ")
			}
			r.render(entry.Key)
			r.write(": ")
			r.render(entry.Value)
		}
		r.write("}")
	case KindRecord:
		r.write(v.Text)
		r.write("(")
		for index, field := range v.Fields {
			if index > 0 {
				r.write(", ")
			}
			r.write(field.Name)
			r.write("=")
			r.render(field.Value)
		}
		r.write(")")
	case KindReduced:
		r.write(v.Text[strings.LastIndex(v.Text, ".")+1:])
		r.write("(")
		r.sequence(v.Items)
		r.write(")")
	case KindGlobal:
		r.write("<global " + v.Text + ">")
	case KindSingleton:
		r.write(v.Text)
	case KindHandle:
		r.write("<handle " + v.Text + ">")
	case KindOpaque:
		r.write("<opaque " + v.Text + ">")
	default:
		r.write("<unknown " + string(v.Kind) + ">")
	}
}

func (r *canonicalRenderer) sequence(items []*Value) {
	for index, item := range items {
		if index > 0 {
			r.write(", ")
		}
		r.render(item)
	}
}

// sorted renders members in the order of their own renderings. Each
// member is rendered into a scratch builder that shares the active set,
// so a member cycling back to an ancestor still prints as a cycle.
func (r *canonicalRenderer) sorted(items []*Value) {
	rendered := make([]string, len(items))
	for index, item := range items {
		var scratch strings.Builder
		child := canonicalRenderer{builder: &scratch, active: r.active}
		child.render(item)
		rendered[index] = scratch.String()
	}
	slices.Sort(rendered)
	r.write(strings.Join(rendered, ", "))
}

// FormatFloat renders f the way Python's repr does for the common
// cases: nan, inf, -inf, and a trailing ".0" on integral values.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func formatComplex(realPart, imagPart float64) string {
	imagText := FormatFloat(imagPart)
	if !strings.HasPrefix(imagText, "-") {
		imagText = "+" + imagText
	}
	return "(" + FormatFloat(realPart) + imagText + "j)"
}
