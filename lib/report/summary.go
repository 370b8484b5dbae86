// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"sort"
	"time"

	"github.com/bureau-foundation/picklecompat/lib/compare"
	"github.com/bureau-foundation/picklecompat/lib/corpus"
	"github.com/bureau-foundation/picklecompat/lib/matrix"
	"github.com/bureau-foundation/picklecompat/lib/oracle"
)

// Counts tallies cells along one axis.
type Counts struct {
	Cells   int `json:"cells"`
	Success int `json:"success"`
	Failure int `json:"failure"`

	// Mismatch counts successful cells whose fingerprint differs from
	// their value's reference.
	Mismatch int `json:"mismatch"`

	ByKind map[oracle.ErrorKind]int `json:"by_kind"`
}

func (c *Counts) add(outcome oracle.Outcome, mismatch bool) {
	c.Cells++
	if outcome.OK {
		c.Success++
		if mismatch {
			c.Mismatch++
		}
		return
	}
	c.Failure++
	if c.ByKind == nil {
		c.ByKind = make(map[oracle.ErrorKind]int)
	}
	c.ByKind[outcome.Kind]++
}

// EnvironmentStats summarizes one environment's row across values and
// protocols.
type EnvironmentStats struct {
	Name string `json:"name"`

	// Runtime is the version string reported by the environment, empty
	// when no cell ran.
	Runtime string `json:"runtime,omitempty"`

	// Unavailable holds the probe error for environments that never
	// ran.
	Unavailable string `json:"unavailable,omitempty"`

	Counts

	MeanDuration time.Duration `json:"mean_duration"`
	MaxDuration  time.Duration `json:"max_duration"`
	EncodedBytes int64         `json:"encoded_bytes"`
}

// ProtocolStats summarizes one protocol across values and
// environments.
type ProtocolStats struct {
	Protocol int `json:"protocol"`
	Counts
}

// ClassStats summarizes one equivalence class.
type ClassStats struct {
	Class        string `json:"class"`
	Values       int    `json:"values"`
	Agree        int    `json:"agree"`
	Diverge      int    `json:"diverge"`
	Insufficient int    `json:"insufficient"`

	FailedCells        int `json:"failed_cells"`
	NotEquivalentCells int `json:"not_equivalent_cells"`
	UnstableCells      int `json:"unstable_cells"`

	// Messages are the distinct failure messages seen, sorted.
	Messages []string `json:"messages"`
}

// Cell is one enumerated matrix cell.
type Cell struct {
	matrix.Cell
	Label    string         `json:"label"`
	Class    string         `json:"class"`
	Outcome  oracle.Outcome `json:"outcome"`
	Mismatch bool           `json:"mismatch,omitempty"`
}

// Divergent describes one value whose row disagreed.
type Divergent struct {
	Index  int            `json:"index"`
	Label  string         `json:"label"`
	Class  string         `json:"class"`
	Report compare.Report `json:"report"`
}

// Summary is the aggregated view of one run.
type Summary struct {
	// RunID is assigned by the caller when the run is archived.
	RunID string `json:"run_id,omitempty"`

	Seed      uint64        `json:"seed"`
	Stability bool          `json:"stability"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`

	Values     int `json:"values"`
	TotalCells int `json:"total_cells"`

	Agree        int `json:"agree"`
	Diverge      int `json:"diverge"`
	Insufficient int `json:"insufficient"`

	Environments []EnvironmentStats `json:"environments"`
	Protocols    []ProtocolStats    `json:"protocols"`
	Classes      []ClassStats       `json:"classes"`
	Divergent    []Divergent        `json:"divergent"`
	Cells        []Cell             `json:"cells"`
}

// Diverged reports whether any value diverged.
func (s *Summary) Diverged() bool {
	return s.Diverge > 0
}

// Aggregate folds result into a Summary.
func Aggregate(result *matrix.Result) *Summary {
	summary := &Summary{
		Seed:         result.Seed,
		Stability:    result.Stability,
		Started:      result.Started,
		Duration:     result.Duration,
		Values:       len(result.Corpus),
		TotalCells:   result.TotalCells(),
		Environments: make([]EnvironmentStats, len(result.Environments)),
		Protocols:    make([]ProtocolStats, len(result.Protocols)),
		Classes:      []ClassStats{},
		Divergent:    []Divergent{},
		Cells:        make([]Cell, 0, result.TotalCells()),
	}

	environmentIndex := make(map[string]int, len(result.Environments))
	for index, env := range result.Environments {
		environmentIndex[env.Name] = index
		summary.Environments[index] = EnvironmentStats{Name: env.Name, Unavailable: result.Unavailable[env.Name]}
	}
	protocolIndex := make(map[int]int, len(result.Protocols))
	for index, protocol := range result.Protocols {
		protocolIndex[protocol] = index
		summary.Protocols[index] = ProtocolStats{Protocol: protocol}
	}
	durations := make([]time.Duration, len(result.Environments))

	classIndex := make(map[string]int)
	classMessages := make(map[string]map[string]bool)
	for _, class := range corpus.Classes(result.Corpus) {
		classIndex[class] = len(summary.Classes)
		summary.Classes = append(summary.Classes, ClassStats{Class: class, Messages: []string{}})
		classMessages[class] = make(map[string]bool)
	}

	for _, testValue := range result.Corpus {
		report := result.Comparisons[testValue.Index]
		class := &summary.Classes[classIndex[testValue.Class]]
		class.Values++
		switch report.Status {
		case compare.StatusAgree:
			summary.Agree++
			class.Agree++
		case compare.StatusDiverge:
			summary.Diverge++
			class.Diverge++
			summary.Divergent = append(summary.Divergent, Divergent{
				Index:  testValue.Index,
				Label:  testValue.Label,
				Class:  testValue.Class,
				Report: report,
			})
		default:
			summary.Insufficient++
			class.Insufficient++
		}

		mismatched := make(map[compare.Axis]bool)
		for _, divergence := range report.Divergences {
			if divergence.Reason == compare.ReasonFingerprint {
				mismatched[divergence.Axis] = true
			}
		}

		for _, axis := range result.Axes {
			cell := result.Cell(testValue.Index, axis)
			outcome, ok := result.Table.Outcome(cell)
			if !ok {
				// Unrecorded cells still get a row.
				outcome = oracle.Failed(oracle.KindCrash, "no outcome recorded")
			}
			mismatch := mismatched[axis]
			summary.Cells = append(summary.Cells, Cell{
				Cell:     cell,
				Label:    testValue.Label,
				Class:    testValue.Class,
				Outcome:  outcome,
				Mismatch: mismatch,
			})

			environmentPosition := environmentIndex[axis.Environment]
			environment := &summary.Environments[environmentPosition]
			environment.add(outcome, mismatch)
			summary.Protocols[protocolIndex[axis.Protocol]].add(outcome, mismatch)
			if environment.Runtime == "" {
				environment.Runtime = outcome.Runtime
			}
			if outcome.Kind != oracle.KindUnavailable {
				durations[environmentPosition] += outcome.Duration
				environment.MaxDuration = max(environment.MaxDuration, outcome.Duration)
			}
			environment.EncodedBytes += int64(outcome.EncodedSize)

			switch {
			case !outcome.OK:
				class.FailedCells++
				classMessages[testValue.Class][string(outcome.Kind)+": "+outcome.Message] = true
			case !outcome.Equivalent:
				class.NotEquivalentCells++
			}
			if outcome.Stability == oracle.StabilityUnstable {
				class.UnstableCells++
			}
		}
	}

	for index := range summary.Environments {
		environment := &summary.Environments[index]
		if ran := environment.Cells - environment.ByKind[oracle.KindUnavailable]; ran > 0 {
			environment.MeanDuration = durations[index] / time.Duration(ran)
		}
	}
	for index := range summary.Classes {
		class := &summary.Classes[index]
		for message := range classMessages[class.Class] {
			class.Messages = append(class.Messages, message)
		}
		sort.Strings(class.Messages)
	}
	return summary
}
