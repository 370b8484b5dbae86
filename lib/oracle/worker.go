// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/pickle"
	"github.com/bureau-foundation/picklecompat/lib/value"
	"github.com/bureau-foundation/picklecompat/lib/version"
)

// ServeWorker reads one [Job] from r, round-trips its value through
// codec, and writes one [Result] to w. Round-trip failures are part of
// the result; the returned error covers only unreadable jobs and
// unwritable output.
func ServeWorker(r io.Reader, w io.Writer, codec pickle.Codec, runtimeName string) error {
	var job Job
	if err := json.NewDecoder(r).Decode(&job); err != nil {
		return fmt.Errorf("reading job: %w", err)
	}
	result := roundTrip(&job, codec)
	if result.Runtime == "" {
		result.Runtime = runtimeName
	}
	if err := json.NewEncoder(w).Encode(result); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}

func roundTrip(job *Job, codec pickle.Codec) *Result {
	result := &Result{}
	original, err := value.FromWire(job.Value)
	if err == nil {
		err = value.Validate(original)
	}
	if err != nil {
		return fail(result, StageConstruct, err)
	}
	result.Original = value.ToWire(original)

	payload, err := codec.Encode(original, job.Protocol)
	if err != nil {
		return fail(result, StageEncode, err)
	}
	result.Payload = payload

	decoded, err := codec.Decode(payload)
	if err != nil {
		return fail(result, StageDecode, err)
	}
	result.Decoded = value.ToWire(decoded)
	result.Stage = StageOK
	return result
}

func fail(result *Result, stage Stage, err error) *Result {
	result.Stage = stage
	var encodeError *pickle.EncodeError
	var decodeError *pickle.DecodeError
	switch {
	case errors.As(err, &encodeError):
		result.ErrorType = encodeError.Type
		result.Error = encodeError.Message
	case errors.As(err, &decodeError):
		result.ErrorType = "UnpicklingError"
		result.Error = decodeError.Err.Error()
	default:
		result.ErrorType = "ValueError"
		result.Error = err.Error()
	}
	return result
}

// GoRuntime names the in-binary worker in outcomes, e.g.
// "og-rek v1.2.0 (go1.25.6)".
func GoRuntime() string {
	return "og-rek " + version.Dependency(version.CodecModule) + " (" + runtime.Version() + ")"
}

// WorkerHandler adapts [ServeWorker] to an in-process environment.
func WorkerHandler(codec pickle.Codec) environment.Handler {
	return func(_ context.Context, stdin []byte, stdout, stderr io.Writer) int {
		if err := ServeWorker(bytes.NewReader(stdin), stdout, codec, GoRuntime()); err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}
}
