// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/picklecompat/lib/clock"
)

// waitDelay bounds how long Run waits for output pipes to drain after
// the process group has been killed.
const waitDelay = 2 * time.Second

// Subprocess launches each invocation as a child process.
type Subprocess struct {
	clock  clock.Clock
	logger *slog.Logger
}

// NewSubprocess returns a Subprocess invoker. A nil logger discards.
func NewSubprocess(clk clock.Clock, logger *slog.Logger) *Subprocess {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Subprocess{clock: clk, logger: logger}
}

// Probe resolves the environment's executable on PATH (or as a path).
func (s *Subprocess) Probe(env Environment) error {
	if len(env.Command) == 0 {
		return fmt.Errorf("%w: %s has no command", ErrUnavailable, env.Name)
	}
	if _, err := exec.LookPath(env.Command[0]); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, env.Name, err)
	}
	return nil
}

// Invoke runs env.Command followed by invocation.Args with
// invocation.Stdin on standard input. The child runs in its own process
// group; when the timeout or ctx expires, the whole group receives
// SIGKILL so grandchildren cannot outlive the cell.
func (s *Subprocess) Invoke(ctx context.Context, env Environment, invocation Invocation) (Execution, error) {
	if len(env.Command) == 0 {
		return Execution{}, fmt.Errorf("%w: %s has no command", ErrUnavailable, env.Name)
	}

	runContext := ctx
	if invocation.Timeout > 0 {
		var cancel context.CancelFunc
		runContext, cancel = context.WithTimeout(ctx, invocation.Timeout)
		defer cancel()
	}

	argv := append(append([]string{}, env.Command...), invocation.Args...)
	cmd := exec.CommandContext(runContext, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(invocation.Stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = waitDelay
	if len(env.Env) > 0 {
		cmd.Env = append(os.Environ(), sortedVariables(env.Env)...)
	}

	start := s.clock.Now()
	err := cmd.Run()
	execution := Execution{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: clock.Since(s.clock, start),
	}

	if errors.Is(runContext.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		s.logger.Debug("invocation timed out",
			"environment", env.Name,
			"timeout", invocation.Timeout,
		)
		execution.ExitCode = -1
		return execution, fmt.Errorf("%w after %s", ErrTimeout, invocation.Timeout)
	}
	if ctx.Err() != nil {
		return execution, ctx.Err()
	}
	if err == nil {
		return execution, nil
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		execution.ExitCode = exitError.ExitCode()
		if status, ok := exitError.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			execution.Signal = unix.SignalName(status.Signal())
		}
		return execution, nil
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return execution, fmt.Errorf("%w: %s: %v", ErrUnavailable, env.Name, err)
	}
	return execution, fmt.Errorf("running %s: %w", env.Name, err)
}

func sortedVariables(variables map[string]string) []string {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for index, name := range names {
		pairs[index] = name + "=" + variables[name]
	}
	return pairs
}
