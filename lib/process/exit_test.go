// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError struct {
	code  int
	cause error
}

func (e *codedError) Error() string {
	if e.cause != nil {
		return e.cause.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}
func (e *codedError) ExitCode() int { return e.code }
func (e *codedError) Unwrap() error { return e.cause }

func TestReport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{name: "plain", err: errors.New("boom"), wantCode: 1, wantText: "error: boom\n"},
		{name: "already reported", err: &codedError{code: 3}, wantCode: 3, wantText: ""},
		{name: "coded with cause", err: &codedError{code: 2, cause: errors.New("no python")}, wantCode: 2, wantText: "error: no python\n"},
		{name: "wrapped coded", err: fmt.Errorf("run: %w", &codedError{code: 4}), wantCode: 4, wantText: "error: run: exit code 4\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var stderr bytes.Buffer
			if got := report(&stderr, test.err); got != test.wantCode {
				t.Errorf("exit code = %d, want %d", got, test.wantCode)
			}
			if got := stderr.String(); got != test.wantText {
				t.Errorf("stderr = %q, want %q", got, test.wantText)
			}
		})
	}
}
