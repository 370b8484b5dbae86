// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"fmt"

	"github.com/bureau-foundation/picklecompat/lib/value"
)

// Equivalence classes used to tag corpus values.
const (
	ClassIntBoundary     = "int boundary"
	ClassFloatSpecial    = "float special"
	ClassText            = "text"
	ClassBinary          = "binary"
	ClassOrdered         = "ordered container"
	ClassUnordered       = "unordered container"
	ClassAssociative     = "associative container"
	ClassRecord          = "custom record"
	ClassRecursive       = "recursive"
	ClassSingleton       = "singleton"
	ClassGlobal          = "global reference"
	ClassPlatform        = "platform object"
	ClassNonSerializable = "non-serializable"
	ClassRandom          = "random"
)

// TestValue is one corpus entry: the root of an object graph, a label
// for reports, and the equivalence class it exercises.
type TestValue struct {
	// Index is the generation-time position in the corpus and the
	// value's identity for the whole run.
	Index int

	Label string
	Class string
	Value *value.Value
}

// Config selects which parts of the corpus to generate.
type Config struct {
	// Boundary includes the curated boundary partition.
	Boundary bool

	// Random is the number of randomly generated trees appended after
	// the boundary partition.
	Random int

	// MaxDepth bounds random tree nesting. Zero means scalars only.
	MaxDepth int

	// Seed drives the random generator.
	Seed uint64
}

// Generate returns the corpus for config: the boundary partition (if
// enabled) followed by config.Random seeded random trees, indexed
// contiguously from zero.
func Generate(config Config) []TestValue {
	var values []TestValue
	if config.Boundary {
		values = append(values, Boundary()...)
	}
	generator := NewGenerator(config.Seed)
	for i := range max(config.Random, 0) {
		values = append(values, TestValue{
			Label: fmt.Sprintf("random-%04d", i),
			Class: ClassRandom,
			Value: generator.Random(0, config.MaxDepth),
		})
	}
	for index := range values {
		values[index].Index = index
	}
	return values
}

// Classes returns the distinct classes in corpus order of first
// appearance.
func Classes(values []TestValue) []string {
	var classes []string
	seen := make(map[string]bool)
	for _, tv := range values {
		if !seen[tv.Class] {
			seen[tv.Class] = true
			classes = append(classes, tv.Class)
		}
	}
	return classes
}
