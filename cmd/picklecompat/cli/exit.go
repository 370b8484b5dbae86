// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. When a command handler returns an ExitError, the
// binary exits with the specified code without printing the error
// string; the command is expected to have already written its own
// output.
//
// `picklecompat run` returns ExitError{Code: 1} when any value
// diverges: the report is the output, and the exit status lets CI
// gate on compatibility.
//
// Setting Err makes the error printable again: the binary prints Err
// and exits with Code, which lets `run` keep exit status 1 for
// divergence and use 2 for runs that failed outright.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

// Unwrap returns the underlying failure, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit code. process.Fatal checks for this
// interface to distinguish "handled non-zero exit" from "unexpected
// error to display".
func (e *ExitError) ExitCode() int {
	return e.Code
}
