// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own exit status,
// such as the CLI's ExitError for "ran fine, but values diverged".
type exitCoder interface {
	ExitCode() int
}

// Fatal writes "error: err" to stderr and exits. The exit code is 1
// unless err is or wraps an error with an ExitCode method. An error
// that carries an exit code and wraps nothing has already been
// reported by the command, so it exits without a message.
func Fatal(err error) {
	os.Exit(report(os.Stderr, err))
}

func report(w io.Writer, err error) int {
	if coded, ok := err.(exitCoder); ok && errors.Unwrap(err) == nil {
		return coded.ExitCode()
	}
	code := 1
	var coded exitCoder
	if errors.As(err, &coded) {
		code = coded.ExitCode()
	}
	fmt.Fprintf(w, "error: %v\n", err)
	return code
}
