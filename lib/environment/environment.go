// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind selects how an environment is launched and which program it
// runs.
type Kind string

const (
	// KindPython is a CPython interpreter. It runs the embedded
	// harness passed with -c.
	KindPython Kind = "python"

	// KindWorker is any command that reads one job from stdin and
	// writes one result to stdout, by default `picklecompat worker`.
	KindWorker Kind = "worker"

	// KindInProcess is a handler registered with [InProcess].
	KindInProcess Kind = "inprocess"
)

// Environment identifies one runtime under test. Environments are
// fixed for the duration of a run.
type Environment struct {
	// Name is the label used in reports, e.g. "py3.8" or "go-ogorek".
	Name string `json:"name"`

	Kind Kind `json:"kind"`

	// Command is the argv prefix used to launch the runtime. Program
	// arguments from the invocation are appended.
	Command []string `json:"command,omitempty"`

	// Env holds extra environment variables for the child process,
	// for example PYTHONHASHSEED=0 to pin set iteration order.
	Env map[string]string `json:"env,omitempty"`
}

// Validate checks that e can be launched by some invoker.
func (e Environment) Validate() error {
	if e.Name == "" {
		return errors.New("environment name is required")
	}
	switch e.Kind {
	case KindPython, KindWorker:
		if len(e.Command) == 0 || e.Command[0] == "" {
			return fmt.Errorf("environment %s: command is required for kind %s", e.Name, e.Kind)
		}
	case KindInProcess:
	default:
		return fmt.Errorf("environment %s: unknown kind %q", e.Name, e.Kind)
	}
	return nil
}

// Invocation is one program run inside an environment.
type Invocation struct {
	// Args are appended to the environment's command, e.g.
	// ["-c", harnessSource] for a Python environment.
	Args []string

	// Stdin is fed to the program in full.
	Stdin []byte

	// Timeout bounds the invocation. Zero means no bound beyond ctx.
	Timeout time.Duration
}

// Execution is what an invocation produced.
type Execution struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int

	// Signal names the signal that terminated the program, if any.
	Signal string

	Duration time.Duration
}

var (
	// ErrUnavailable reports that the environment's runtime cannot be
	// located or launched.
	ErrUnavailable = errors.New("environment unavailable")

	// ErrTimeout reports that an invocation exceeded its timeout and
	// was killed.
	ErrTimeout = errors.New("invocation timed out")
)

// Invoker runs programs inside environments.
type Invoker interface {
	// Invoke runs one program. A program that ran to completion (with
	// any exit code) returns a nil error. Failures to launch wrap
	// ErrUnavailable; exceeding the timeout wraps ErrTimeout.
	Invoke(ctx context.Context, env Environment, invocation Invocation) (Execution, error)

	// Probe checks whether env could be launched, without running
	// anything. Errors wrap ErrUnavailable.
	Probe(env Environment) error
}

// Router dispatches to an Invoker per environment kind.
type Router struct {
	routes map[Kind]Invoker
}

// NewRouter returns a Router using routes.
func NewRouter(routes map[Kind]Invoker) *Router {
	copied := make(map[Kind]Invoker, len(routes))
	for kind, invoker := range routes {
		copied[kind] = invoker
	}
	return &Router{routes: copied}
}

func (r *Router) route(env Environment) (Invoker, error) {
	invoker, ok := r.routes[env.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no invoker for %s environment %s", ErrUnavailable, env.Kind, env.Name)
	}
	return invoker, nil
}

// Invoke implements [Invoker].
func (r *Router) Invoke(ctx context.Context, env Environment, invocation Invocation) (Execution, error) {
	invoker, err := r.route(env)
	if err != nil {
		return Execution{}, err
	}
	return invoker.Invoke(ctx, env, invocation)
}

// Probe implements [Invoker].
func (r *Router) Probe(env Environment) error {
	invoker, err := r.route(env)
	if err != nil {
		return err
	}
	return invoker.Probe(env)
}
