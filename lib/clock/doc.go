// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that records timestamps or measures durations (run start times,
// per-cell durations in outcomes and reports) takes a Clock instead of
// calling time.Now directly. Production code passes Real(); tests pass
// Fake() and get identical durations on every run.
//
//	type Oracle struct {
//	    clock clock.Clock
//	}
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c.SetStep(5 * time.Millisecond) // every Now() moves 5ms forward
//
// Timeouts are not routed through Clock: they are context deadlines,
// because cancellation has to reach child processes.
package clock
