// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package environment is the execution boundary between the oracle
// and the runtimes under test.
//
// An [Environment] names one runtime: a CPython interpreter, a worker
// command that speaks the job protocol on stdin/stdout, or (in tests)
// an in-process handler. An [Invoker] runs a program inside an
// environment and hands back stdout, stderr and the exit code. Every
// invocation is an independent, bounded execution context: a crash or
// hang in one cell never leaks into another.
//
// [Subprocess] launches each invocation as a child process in its own
// process group and kills the whole group when the per-cell timeout
// expires. [InProcess] runs registered handlers in goroutines with
// panic recovery. [Router] dispatches on [Kind].
//
// Two sentinel errors carry the boundary conditions the oracle maps to
// outcome kinds: [ErrUnavailable] (the runtime cannot be located or
// launched) and [ErrTimeout] (the per-cell bound expired). A non-zero
// exit is not an error at this layer; it is reported in [Execution].
package environment
