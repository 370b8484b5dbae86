// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

// RequireReceive returns the next value from ch, failing the test if
// none arrives within timeout or ch is closed first. The optional
// message is a format string and its arguments.
//
//	report := testutil.RequireReceive(t, reports, 5*time.Second, "waiting for value %d", index)
func RequireReceive[T any](t testing.TB, ch <-chan T, timeout time.Duration, message ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case received, ok := <-ch:
		if !ok {
			t.Fatalf("%s: channel closed before a value arrived", describe(message))
		}
		return received
	case <-timer.C:
		t.Fatalf("%s: nothing received within %v", describe(message), timeout)
	}
	panic("unreachable")
}

// RequireClosed waits until ch is closed or yields a value.
//
//	testutil.RequireClosed(t, done, 5*time.Second, "run finished")
func RequireClosed(t testing.TB, ch <-chan struct{}, timeout time.Duration, message ...any) {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
	case <-timer.C:
		t.Fatalf("%s: channel still open after %v", describe(message), timeout)
	}
}

func describe(message []any) string {
	if len(message) == 0 {
		return "waiting on channel"
	}
	format, ok := message[0].(string)
	if !ok {
		return fmt.Sprint(message...)
	}
	return fmt.Sprintf(format, message[1:]...)
}
