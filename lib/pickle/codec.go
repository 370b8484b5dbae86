// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pickle

import (
	"fmt"

	"github.com/bureau-foundation/picklecompat/lib/value"
)

// HighestProtocol is the newest pickle protocol revision.
const HighestProtocol = 5

// Codec encodes and decodes values in one pickle implementation.
type Codec interface {
	// Encode serializes v under protocol. Values the implementation
	// cannot represent fail with an *EncodeError.
	Encode(v *value.Value, protocol int) ([]byte, error)

	// Decode reconstructs a value from data. Malformed or unsupported
	// streams fail with a *DecodeError.
	Decode(data []byte) (*value.Value, error)
}

// EncodeError reports that a value cannot be serialized. Type mirrors
// the Python exception class a CPython environment would raise.
type EncodeError struct {
	Type    string
	Message string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// DecodeError reports a malformed or incompatible byte stream.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "decoding pickle: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ValidProtocol reports whether protocol is a pickle protocol revision.
func ValidProtocol(protocol int) bool {
	return protocol >= 0 && protocol <= HighestProtocol
}
