// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	"time"

	"github.com/bureau-foundation/picklecompat/lib/fingerprint"
)

// ErrorKind classifies a failed cell.
type ErrorKind string

const (
	// KindEncodeError: the environment refused to serialize the value.
	KindEncodeError ErrorKind = "encode_error"

	// KindDecodeError: the environment produced bytes it could not
	// read back.
	KindDecodeError ErrorKind = "decode_error"

	// KindUnavailable: the environment's runtime could not be launched.
	KindUnavailable ErrorKind = "environment_unavailable"

	// KindTimeout: the cell exceeded its deadline and was killed.
	KindTimeout ErrorKind = "timeout"

	// KindCrash: the environment exited non-zero, wrote malformed
	// output, or could not construct the value at all.
	KindCrash ErrorKind = "crash"
)

// ErrorKinds lists every kind in report order.
var ErrorKinds = []ErrorKind{KindEncodeError, KindDecodeError, KindUnavailable, KindTimeout, KindCrash}

// Stability is the verdict of encoding one value twice.
type Stability string

const (
	StabilityUnchecked Stability = ""
	StabilityStable    Stability = "stable"
	StabilityUnstable  Stability = "unstable"
	StabilityUnknown   Stability = "unknown"
)

// Outcome is the result of one matrix cell.
//
// Equivalent compares canonical renderings of the original and decoded
// graphs. It is an approximation of Python equality: two objects that
// render identically are considered equal even if their types would
// not compare equal, and objects whose rendering embeds identity are
// never equal.
type Outcome struct {
	OK bool `json:"ok"`

	Fingerprint    fingerprint.Digest `json:"fingerprint,omitzero"`
	RawFingerprint fingerprint.Digest `json:"raw_fingerprint,omitzero"`
	Equivalent     bool               `json:"equivalent,omitempty"`
	EncodedSize    int                `json:"encoded_size,omitempty"`

	Kind    ErrorKind `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`

	Runtime   string        `json:"runtime,omitempty"`
	Duration  time.Duration `json:"duration"`
	Stability Stability     `json:"stability,omitempty"`

	// Payload is the encoded stream. It is kept in memory for the
	// result store and never serialized with the outcome.
	Payload []byte `json:"-"`

	// Canonical is the decoded value's canonical rendering, the input
	// to Fingerprint.
	Canonical string `json:"-"`
}

// Failed builds a failed outcome.
func Failed(kind ErrorKind, message string) Outcome {
	return Outcome{Kind: kind, Message: message}
}
