// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	"github.com/bureau-foundation/picklecompat/lib/value"
)

// Job is the JSON document written to an environment's stdin.
type Job struct {
	Protocol int         `json:"protocol"`
	Value    *value.Node `json:"value"`
}

// Stage names how far a round trip got.
type Stage string

const (
	StageOK        Stage = "ok"
	StageConstruct Stage = "construct"
	StageEncode    Stage = "encode"
	StageDecode    Stage = "decode"
)

// Result is the JSON document an environment writes to stdout. On
// StageOK, Payload, Original, and Decoded are set. On any other stage
// Error and ErrorType describe the failure, and fields from earlier
// stages may be present.
type Result struct {
	Stage     Stage  `json:"stage"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`

	// Payload is the pickle stream, base64 in JSON.
	Payload []byte `json:"payload,omitempty"`

	Original *value.Node `json:"original,omitempty"`
	Decoded  *value.Node `json:"decoded,omitempty"`

	// Runtime identifies the implementation, e.g. "CPython 3.9.18".
	Runtime string `json:"runtime,omitempty"`
}

// failure formats the error fields as a Python exception line.
func (r *Result) failure() string {
	switch {
	case r.ErrorType == "":
		return r.Error
	case r.Error == "":
		return r.ErrorType
	}
	return r.ErrorType + ": " + r.Error
}
