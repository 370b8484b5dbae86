// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package compare decides, for one value, whether every environment
// and protocol that round-tripped it agreed on the result.
package compare

import (
	"fmt"

	"github.com/bureau-foundation/picklecompat/lib/oracle"
)

// Axis is one column of a value's matrix row.
type Axis struct {
	Environment string `json:"environment"`
	Protocol    int    `json:"protocol"`
}

func (a Axis) String() string {
	return fmt.Sprintf("%s/p%d", a.Environment, a.Protocol)
}

// Status is the verdict for one value.
type Status string

const (
	// StatusAgree: at least two environments succeeded and every axis
	// matches the reference.
	StatusAgree Status = "agree"

	// StatusDiverge: some axis differs from the reference.
	StatusDiverge Status = "diverge"

	// StatusInsufficient: nothing diverged, but fewer than two
	// environments succeeded, so cross-environment agreement was not
	// demonstrated.
	StatusInsufficient Status = "insufficient"
)

// Reason says how an axis differs from the reference.
type Reason string

const (
	// ReasonFingerprint: both succeeded with different fingerprints.
	ReasonFingerprint Reason = "fingerprint"

	// ReasonOutcome: one succeeded and the other failed, or both
	// failed with different error kinds.
	ReasonOutcome Reason = "outcome"
)

// Divergence is one axis that disagrees with the reference.
type Divergence struct {
	Axis   Axis   `json:"axis"`
	Reason Reason `json:"reason"`

	// Got and Want describe the axis and the reference: a short
	// fingerprint for successes, the error kind for failures.
	Got  string `json:"got"`
	Want string `json:"want"`
}

// Report is the comparison for one value. It is derived from the
// outcome table and can always be recomputed.
type Report struct {
	ValueIndex  int          `json:"value_index"`
	Status      Status       `json:"status"`
	Reference   *Axis        `json:"reference,omitempty"`
	Divergences []Divergence `json:"divergences"`

	// Succeeded counts distinct environments with at least one Ok
	// outcome.
	Succeeded int `json:"succeeded"`
}

// Compare builds the report for one value from its outcomes. axes
// fixes the order: environment-major, protocol-minor, as configured.
// The reference is the first axis with an Ok outcome; when no axis
// succeeded, the first axis is the reference and failures are compared
// by error kind. Axes missing from outcomes are ignored.
func Compare(valueIndex int, axes []Axis, outcomes map[Axis]oracle.Outcome) Report {
	report := Report{ValueIndex: valueIndex, Divergences: []Divergence{}}

	var reference Axis
	found := false
	for _, axis := range axes {
		if outcome, ok := outcomes[axis]; ok && outcome.OK {
			reference, found = axis, true
			break
		}
	}
	if !found {
		for _, axis := range axes {
			if _, ok := outcomes[axis]; ok {
				reference, found = axis, true
				break
			}
		}
	}
	if !found {
		report.Status = StatusInsufficient
		return report
	}
	report.Reference = &reference
	want := outcomes[reference]

	succeeded := make(map[string]bool)
	for _, axis := range axes {
		got, ok := outcomes[axis]
		if !ok {
			continue
		}
		if got.OK {
			succeeded[axis.Environment] = true
		}
		if axis == reference {
			continue
		}
		if divergence, differs := differ(axis, got, want); differs {
			report.Divergences = append(report.Divergences, divergence)
		}
	}
	report.Succeeded = len(succeeded)

	switch {
	case len(report.Divergences) > 0:
		report.Status = StatusDiverge
	case report.Succeeded < 2:
		report.Status = StatusInsufficient
	default:
		report.Status = StatusAgree
	}
	return report
}

func differ(axis Axis, got, want oracle.Outcome) (Divergence, bool) {
	divergence := Divergence{Axis: axis, Got: describe(got), Want: describe(want)}
	switch {
	case got.OK && want.OK:
		divergence.Reason = ReasonFingerprint
		return divergence, got.Fingerprint != want.Fingerprint
	case got.OK != want.OK:
		divergence.Reason = ReasonOutcome
		return divergence, true
	default:
		divergence.Reason = ReasonOutcome
		return divergence, got.Kind != want.Kind
	}
}

func describe(outcome oracle.Outcome) string {
	if outcome.OK {
		return outcome.Fingerprint.Short()
	}
	return string(outcome.Kind)
}
