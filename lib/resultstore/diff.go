// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package resultstore

import (
	"cmp"
	"context"
	"slices"

	"github.com/bureau-foundation/picklecompat/lib/compare"
)

// StatusAbsent is the cell status for a cell one run never evaluated.
const StatusAbsent = "absent"

// Change is one cell whose status differs between two runs. Cells are
// matched by value label and axis, so runs with different corpora or
// matrices can still be compared.
type Change struct {
	Label  string       `json:"label"`
	Class  string       `json:"class"`
	Axis   compare.Axis `json:"axis"`
	Before string       `json:"before"`
	After  string       `json:"after"`
}

type cellKey struct {
	label string
	axis  compare.Axis
}

// Diff returns every cell whose status differs between runs before and
// after, sorted by label and axis. A cell's status is "ok" followed by
// its short fingerprint, its error kind, or [StatusAbsent].
func (s *Store) Diff(ctx context.Context, before, after string) ([]Change, error) {
	beforeCells, err := s.cellStatuses(ctx, before)
	if err != nil {
		return nil, err
	}
	afterCells, err := s.cellStatuses(ctx, after)
	if err != nil {
		return nil, err
	}

	changes := []Change{}
	for key, was := range beforeCells {
		now, ok := afterCells[key]
		if !ok {
			changes = append(changes, Change{Label: key.label, Class: was.class, Axis: key.axis, Before: was.status, After: StatusAbsent})
			continue
		}
		if was.status != now.status {
			changes = append(changes, Change{Label: key.label, Class: now.class, Axis: key.axis, Before: was.status, After: now.status})
		}
	}
	for key, now := range afterCells {
		if _, ok := beforeCells[key]; !ok {
			changes = append(changes, Change{Label: key.label, Class: now.class, Axis: key.axis, Before: StatusAbsent, After: now.status})
		}
	}
	slices.SortFunc(changes, func(a, b Change) int {
		return cmp.Or(
			cmp.Compare(a.Label, b.Label),
			cmp.Compare(a.Axis.Environment, b.Axis.Environment),
			cmp.Compare(a.Axis.Protocol, b.Axis.Protocol),
		)
	})
	return changes, nil
}

type cellStatus struct {
	class  string
	status string
}

func (s *Store) cellStatuses(ctx context.Context, runID string) (map[cellKey]cellStatus, error) {
	outcomes, err := s.Outcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	statuses := make(map[cellKey]cellStatus, len(outcomes))
	for _, stored := range outcomes {
		status := string(stored.Outcome.Kind)
		if stored.Outcome.OK {
			status = "ok " + stored.Outcome.Fingerprint.Short()
		}
		statuses[cellKey{label: stored.Label, axis: stored.Axis()}] = cellStatus{class: stored.Class, status: status}
	}
	return statuses, nil
}
