// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/bureau-foundation/picklecompat/lib/clock"
)

// Handler is an in-process program: it reads stdin, writes its output,
// and returns an exit code. Handlers should return promptly once ctx
// is done.
type Handler func(ctx context.Context, stdin []byte, stdout, stderr io.Writer) int

// panicExitCode is reported when a handler panics, matching the exit
// status of a Go program that dies from an unrecovered panic.
const panicExitCode = 2

// InProcess runs registered handlers in goroutines. It isolates
// panics and enforces timeouts, but a handler that ignores
// cancellation keeps its goroutine until it returns; use [Subprocess]
// for untrusted runtimes.
type InProcess struct {
	clock clock.Clock

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewInProcess returns an InProcess invoker with no handlers.
func NewInProcess(clk clock.Clock) *InProcess {
	return &InProcess{clock: clk, handlers: make(map[string]Handler)}
}

// Register binds handler to the environment named name.
func (p *InProcess) Register(name string, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[name] = handler
}

func (p *InProcess) handler(env Environment) (Handler, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	handler, ok := p.handlers[env.Name]
	if !ok {
		return nil, fmt.Errorf("%w: no in-process handler registered for %s", ErrUnavailable, env.Name)
	}
	return handler, nil
}

// Probe reports whether a handler is registered for env.
func (p *InProcess) Probe(env Environment) error {
	_, err := p.handler(env)
	return err
}

type handlerResult struct {
	stdout, stderr []byte
	exitCode       int
}

// Invoke runs the handler registered for env. invocation.Args are
// ignored.
func (p *InProcess) Invoke(ctx context.Context, env Environment, invocation Invocation) (Execution, error) {
	handler, err := p.handler(env)
	if err != nil {
		return Execution{}, err
	}

	runContext := ctx
	if invocation.Timeout > 0 {
		var cancel context.CancelFunc
		runContext, cancel = context.WithTimeout(ctx, invocation.Timeout)
		defer cancel()
	}

	start := p.clock.Now()
	done := make(chan handlerResult, 1)
	go func() {
		var stdout, stderr bytes.Buffer
		result := handlerResult{}
		defer func() {
			if recovered := recover(); recovered != nil {
				fmt.Fprintf(&stderr, "panic: %v\n\n%s", recovered, debug.Stack())
				result.exitCode = panicExitCode
			}
			result.stdout = stdout.Bytes()
			result.stderr = stderr.Bytes()
			done <- result
		}()
		result.exitCode = handler(runContext, invocation.Stdin, &stdout, &stderr)
	}()

	select {
	case result := <-done:
		return Execution{
			Stdout:   result.stdout,
			Stderr:   result.stderr,
			ExitCode: result.exitCode,
			Duration: clock.Since(p.clock, start),
		}, nil
	case <-runContext.Done():
		execution := Execution{ExitCode: -1, Duration: clock.Since(p.clock, start)}
		if ctx.Err() != nil {
			return execution, ctx.Err()
		}
		return execution, fmt.Errorf("%w after %s", ErrTimeout, invocation.Timeout)
	}
}
