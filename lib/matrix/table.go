// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bureau-foundation/picklecompat/lib/compare"
	"github.com/bureau-foundation/picklecompat/lib/oracle"
)

// ErrDuplicateOutcome is returned when a cell is recorded twice.
var ErrDuplicateOutcome = errors.New("duplicate outcome")

// Cell addresses one matrix entry by value index, environment name,
// and protocol.
type Cell struct {
	Value       int    `json:"value"`
	Environment string `json:"environment"`
	Protocol    int    `json:"protocol"`
}

// Axis drops the value coordinate.
func (c Cell) Axis() compare.Axis {
	return compare.Axis{Environment: c.Environment, Protocol: c.Protocol}
}

func (c Cell) String() string {
	return fmt.Sprintf("#%d %s/p%d", c.Value, c.Environment, c.Protocol)
}

// Table holds at most one outcome per cell. It is append-only and safe
// for concurrent use.
type Table struct {
	mu       sync.RWMutex
	outcomes map[Cell]oracle.Outcome
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{outcomes: make(map[Cell]oracle.Outcome)}
}

// Record stores the outcome for cell. A second outcome for the same
// cell is rejected with ErrDuplicateOutcome and the first is kept.
func (t *Table) Record(cell Cell, outcome oracle.Outcome) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.outcomes[cell]; exists {
		return fmt.Errorf("%w for %s", ErrDuplicateOutcome, cell)
	}
	t.outcomes[cell] = outcome
	return nil
}

// Outcome returns the outcome recorded for cell.
func (t *Table) Outcome(cell Cell) (oracle.Outcome, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	outcome, ok := t.outcomes[cell]
	return outcome, ok
}

// Row collects the recorded outcomes of one value along axes.
func (t *Table) Row(valueIndex int, axes []compare.Axis) map[compare.Axis]oracle.Outcome {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row := make(map[compare.Axis]oracle.Outcome, len(axes))
	for _, axis := range axes {
		cell := Cell{Value: valueIndex, Environment: axis.Environment, Protocol: axis.Protocol}
		if outcome, ok := t.outcomes[cell]; ok {
			row[axis] = outcome
		}
	}
	return row
}

// Len returns the number of recorded cells.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.outcomes)
}
