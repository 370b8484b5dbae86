// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package corpus

import (
	"fmt"
	"io"

	"github.com/bureau-foundation/picklecompat/lib/codec"
	"github.com/bureau-foundation/picklecompat/lib/value"
)

// snapshotFormat is bumped whenever the snapshot layout changes.
const snapshotFormat = 1

type snapshot struct {
	Format int             `json:"format"`
	Values []snapshotValue `json:"values"`
}

type snapshotValue struct {
	Index int         `json:"index"`
	Label string      `json:"label"`
	Class string      `json:"class"`
	Tree  *value.Node `json:"tree"`
}

// WriteSnapshot stores values to w as one deterministic CBOR document,
// so a generated corpus (in particular a fuzz corpus that exposed a
// divergence) can be reloaded for a later run.
func WriteSnapshot(w io.Writer, values []TestValue) error {
	document := snapshot{Format: snapshotFormat, Values: make([]snapshotValue, len(values))}
	for index, tv := range values {
		document.Values[index] = snapshotValue{
			Index: tv.Index,
			Label: tv.Label,
			Class: tv.Class,
			Tree:  value.ToWire(tv.Value),
		}
	}
	if err := codec.NewEncoder(w).Encode(document); err != nil {
		return fmt.Errorf("writing corpus snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a corpus written by [WriteSnapshot]. Indices must
// be contiguous from zero, matching what [Generate] produces.
func ReadSnapshot(r io.Reader) ([]TestValue, error) {
	var document snapshot
	if err := codec.NewDecoder(r).Decode(&document); err != nil {
		return nil, fmt.Errorf("reading corpus snapshot: %w", err)
	}
	if document.Format != snapshotFormat {
		return nil, fmt.Errorf("corpus snapshot format %d is not supported (want %d)", document.Format, snapshotFormat)
	}
	values := make([]TestValue, len(document.Values))
	for position, stored := range document.Values {
		if stored.Index != position {
			return nil, fmt.Errorf("corpus snapshot entry %d has index %d", position, stored.Index)
		}
		root, err := value.FromWire(stored.Tree)
		if err != nil {
			return nil, fmt.Errorf("corpus snapshot entry %d (%s): %w", position, stored.Label, err)
		}
		if err := value.Validate(root); err != nil {
			return nil, fmt.Errorf("corpus snapshot entry %d (%s): %w", position, stored.Label, err)
		}
		values[position] = TestValue{Index: stored.Index, Label: stored.Label, Class: stored.Class, Value: root}
	}
	return values, nil
}
