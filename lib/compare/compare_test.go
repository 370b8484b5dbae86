// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package compare

import (
	"testing"

	"github.com/bureau-foundation/picklecompat/lib/fingerprint"
	"github.com/bureau-foundation/picklecompat/lib/oracle"
)

func ok(rendering string) oracle.Outcome {
	return oracle.Outcome{OK: true, Fingerprint: fingerprint.Sum(fingerprint.SHA256, []byte(rendering)), Canonical: rendering}
}

func failed(kind oracle.ErrorKind) oracle.Outcome {
	return oracle.Failed(kind, "boom")
}

var (
	py37p4 = Axis{"py3.7", 4}
	py37p5 = Axis{"py3.7", 5}
	py38p4 = Axis{"py3.8", 4}
	py38p5 = Axis{"py3.8", 5}
	py39p4 = Axis{"py3.9", 4}
	py39p5 = Axis{"py3.9", 5}
)

var axes = []Axis{py37p4, py37p5, py38p4, py38p5, py39p4, py39p5}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		outcomes  map[Axis]oracle.Outcome
		status    Status
		reference Axis
		divergent []Axis
		reasons   []Reason
		succeeded int
	}{
		{
			name: "all agree",
			outcomes: map[Axis]oracle.Outcome{
				py37p4: ok("1"), py37p5: ok("1"), py38p4: ok("1"), py38p5: ok("1"), py39p4: ok("1"), py39p5: ok("1"),
			},
			status:    StatusAgree,
			reference: py37p4,
			succeeded: 3,
		},
		{
			name: "protocol unsupported on oldest runtime",
			outcomes: map[Axis]oracle.Outcome{
				py37p4: ok("1"), py37p5: failed(oracle.KindEncodeError),
				py38p4: ok("1"), py38p5: ok("1"), py39p4: ok("1"), py39p5: ok("1"),
			},
			status:    StatusDiverge,
			reference: py37p4,
			divergent: []Axis{py37p5},
			reasons:   []Reason{ReasonOutcome},
			succeeded: 3,
		},
		{
			name: "fingerprint differs",
			outcomes: map[Axis]oracle.Outcome{
				py37p4: ok("{'a': 1}"), py37p5: ok("{'a': 1}"),
				py38p4: ok("{'a': 1}"), py38p5: ok("{'a': 1}"),
				py39p4: ok("{'a': 1}"), py39p5: ok("{'a': 2}"),
			},
			status:    StatusDiverge,
			reference: py37p4,
			divergent: []Axis{py39p5},
			reasons:   []Reason{ReasonFingerprint},
			succeeded: 3,
		},
		{
			name: "reference skips leading failures",
			outcomes: map[Axis]oracle.Outcome{
				py37p4: failed(oracle.KindUnavailable), py37p5: failed(oracle.KindUnavailable),
				py38p4: ok("x"), py38p5: ok("x"), py39p4: ok("x"), py39p5: ok("x"),
			},
			status:    StatusDiverge,
			reference: py38p4,
			divergent: []Axis{py37p4, py37p5},
			reasons:   []Reason{ReasonOutcome, ReasonOutcome},
			succeeded: 2,
		},
		{
			name: "uniform encode error is insufficient",
			outcomes: map[Axis]oracle.Outcome{
				py37p4: failed(oracle.KindEncodeError), py37p5: failed(oracle.KindEncodeError),
				py38p4: failed(oracle.KindEncodeError), py38p5: failed(oracle.KindEncodeError),
				py39p4: failed(oracle.KindEncodeError), py39p5: failed(oracle.KindEncodeError),
			},
			status:    StatusInsufficient,
			reference: py37p4,
		},
		{
			name: "failures of different kinds diverge",
			outcomes: map[Axis]oracle.Outcome{
				py37p4: failed(oracle.KindEncodeError), py37p5: failed(oracle.KindEncodeError),
				py38p4: failed(oracle.KindEncodeError), py38p5: failed(oracle.KindEncodeError),
				py39p4: failed(oracle.KindEncodeError), py39p5: failed(oracle.KindTimeout),
			},
			status:    StatusDiverge,
			reference: py37p4,
			divergent: []Axis{py39p5},
			reasons:   []Reason{ReasonOutcome},
		},
		{
			name: "one environment succeeding is insufficient",
			outcomes: map[Axis]oracle.Outcome{
				py38p4: ok("1"), py38p5: ok("1"),
			},
			status:    StatusInsufficient,
			reference: py38p4,
			succeeded: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			report := Compare(7, axes, test.outcomes)
			if report.ValueIndex != 7 {
				t.Errorf("ValueIndex = %d, want 7", report.ValueIndex)
			}
			if report.Status != test.status {
				t.Errorf("Status = %s, want %s", report.Status, test.status)
			}
			if report.Reference == nil || *report.Reference != test.reference {
				t.Errorf("Reference = %v, want %v", report.Reference, test.reference)
			}
			if report.Succeeded != test.succeeded {
				t.Errorf("Succeeded = %d, want %d", report.Succeeded, test.succeeded)
			}
			if len(report.Divergences) != len(test.divergent) {
				t.Fatalf("got %d divergences (%+v), want %d", len(report.Divergences), report.Divergences, len(test.divergent))
			}
			for index, divergence := range report.Divergences {
				if divergence.Axis != test.divergent[index] {
					t.Errorf("divergence %d axis = %v, want %v", index, divergence.Axis, test.divergent[index])
				}
				if divergence.Reason != test.reasons[index] {
					t.Errorf("divergence %d reason = %s, want %s", index, divergence.Reason, test.reasons[index])
				}
			}
		})
	}
}

func TestCompareDescribesBothSides(t *testing.T) {
	t.Parallel()

	want := ok("1")
	report := Compare(0, axes[:2], map[Axis]oracle.Outcome{py37p4: want, py37p5: failed(oracle.KindDecodeError)})
	if len(report.Divergences) != 1 {
		t.Fatalf("got %d divergences, want 1", len(report.Divergences))
	}
	divergence := report.Divergences[0]
	if divergence.Got != "decode_error" {
		t.Errorf("Got = %q, want decode_error", divergence.Got)
	}
	if divergence.Want != want.Fingerprint.Short() {
		t.Errorf("Want = %q, want %q", divergence.Want, want.Fingerprint.Short())
	}
}

func TestCompareWithoutOutcomes(t *testing.T) {
	t.Parallel()

	report := Compare(0, axes, nil)
	if report.Status != StatusInsufficient || report.Reference != nil {
		t.Errorf("report = %+v, want insufficient without reference", report)
	}
	if report.Divergences == nil {
		t.Error("Divergences is nil, want empty slice for JSON output")
	}
}

func TestAxisString(t *testing.T) {
	t.Parallel()

	if got := (Axis{"py3.9", 5}).String(); got != "py3.9/p5" {
		t.Errorf("String = %q, want py3.9/p5", got)
	}
}
