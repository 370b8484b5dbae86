// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/picklecompat/lib/clock"
	"github.com/bureau-foundation/picklecompat/lib/compare"
	"github.com/bureau-foundation/picklecompat/lib/corpus"
	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/fingerprint"
	"github.com/bureau-foundation/picklecompat/lib/oracle"
	"github.com/bureau-foundation/picklecompat/lib/value"
)

// Evaluator evaluates one cell. *oracle.Oracle implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, v *value.Value, env environment.Environment, protocol int) oracle.Outcome
	Stability(ctx context.Context, v *value.Value, env environment.Environment, protocol int) oracle.Outcome
}

// Prober checks environment availability. environment.Invoker
// implementations satisfy it.
type Prober interface {
	Probe(env environment.Environment) error
}

// Observer is told about each value as soon as its row completes.
// Calls are serialized.
type Observer func(value corpus.TestValue, report compare.Report)

// RunnerConfig holds a Runner's collaborators.
type RunnerConfig struct {
	Evaluator Evaluator
	Prober    Prober

	// Observer is optional.
	Observer Observer

	Clock  clock.Clock
	Logger *slog.Logger
}

// Runner executes matrices. One Runner may execute several runs, but
// runs share nothing.
type Runner struct {
	evaluator Evaluator
	prober    Prober
	observer  Observer
	clock     clock.Clock
	logger    *slog.Logger
}

// NewRunner returns a Runner. Evaluator and Prober are required.
func NewRunner(config RunnerConfig) *Runner {
	if config.Evaluator == nil || config.Prober == nil {
		panic("matrix: RunnerConfig.Evaluator and RunnerConfig.Prober are required")
	}
	runner := &Runner{
		evaluator: config.Evaluator,
		prober:    config.Prober,
		observer:  config.Observer,
		clock:     config.Clock,
		logger:    config.Logger,
	}
	if runner.clock == nil {
		runner.clock = clock.Real()
	}
	if runner.logger == nil {
		runner.logger = slog.New(slog.DiscardHandler)
	}
	return runner
}

// Result is everything a run produced. Comparisons is indexed by value
// index.
type Result struct {
	Corpus       []corpus.TestValue
	Environments []environment.Environment
	Protocols    []int
	Axes         []compare.Axis
	Table        *Table
	Comparisons  []compare.Report

	// Unavailable maps each environment that failed its probe to the
	// probe error.
	Unavailable map[string]string

	Seed      uint64
	Stability bool
	Started   time.Time
	Duration  time.Duration
}

// TotalCells is |corpus| x |environments| x |protocols|.
func (r *Result) TotalCells() int {
	return len(r.Corpus) * len(r.Axes)
}

// Cell returns the cell for a value index and axis.
func (r *Result) Cell(valueIndex int, axis compare.Axis) Cell {
	return Cell{Value: valueIndex, Environment: axis.Environment, Protocol: axis.Protocol}
}

type job struct {
	value corpus.TestValue
	env   environment.Environment
	cell  Cell
}

// run is the mutable state of one Run call.
type run struct {
	*Runner
	config    Config
	values    []corpus.TestValue
	axes      []compare.Axis
	table     *Table
	registry  *fingerprint.Registry
	remaining []atomic.Int64
	reports   []compare.Report
	observe   sync.Mutex
	cancel    context.CancelCauseFunc
}

// Run evaluates every cell of values x config.Environments x
// config.Protocols. Values must be indexed contiguously from zero, as
// corpus.Generate produces them.
func (r *Runner) Run(ctx context.Context, values []corpus.TestValue, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matrix configuration: %w", err)
	}
	for position, testValue := range values {
		if testValue.Index != position {
			return nil, fmt.Errorf("corpus value %q has index %d at position %d", testValue.Label, testValue.Index, position)
		}
	}

	started := r.clock.Now()
	runContext, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	state := &run{
		Runner:    r,
		config:    config,
		values:    values,
		axes:      config.Axes(),
		table:     NewTable(),
		registry:  fingerprint.NewRegistry(),
		remaining: make([]atomic.Int64, len(values)),
		reports:   make([]compare.Report, len(values)),
		cancel:    cancel,
	}
	for index := range state.remaining {
		state.remaining[index].Store(int64(len(state.axes)))
	}

	unavailable := r.probe(config.Environments)
	r.logger.Info("matrix starting",
		"values", len(values),
		"environments", len(config.Environments),
		"protocols", config.Protocols,
		"cells", len(values)*len(state.axes),
		"unavailable", len(unavailable),
	)

	parallelism := max(config.Parallelism, 1)
	jobs := make(chan job)
	var workers sync.WaitGroup
	for range parallelism {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for next := range jobs {
				state.execute(runContext, next)
			}
		}()
	}

	state.feed(runContext, jobs, unavailable)
	close(jobs)
	workers.Wait()

	if err := context.Cause(runContext); err != nil {
		var collision *fingerprint.CollisionError
		if errors.As(err, &collision) {
			return nil, err
		}
		return nil, fmt.Errorf("matrix run interrupted: %w", err)
	}

	result := &Result{
		Corpus:       values,
		Environments: config.Environments,
		Protocols:    config.Protocols,
		Axes:         state.axes,
		Table:        state.table,
		Comparisons:  state.reports,
		Unavailable:  unavailable,
		Seed:         config.Seed,
		Stability:    config.Stability,
		Started:      started,
		Duration:     clock.Since(r.clock, started),
	}
	r.logger.Info("matrix complete",
		"cells", state.table.Len(),
		"duration", result.Duration,
	)
	return result, nil
}

func (r *Runner) probe(environments []environment.Environment) map[string]string {
	unavailable := make(map[string]string)
	for _, env := range environments {
		if err := r.prober.Probe(env); err != nil {
			r.logger.Warn("environment unavailable",
				"environment", env.Name,
				"error", err,
			)
			unavailable[env.Name] = err.Error()
		}
	}
	return unavailable
}

// feed dispatches cells value by value. Cells of unavailable
// environments are recorded directly.
func (s *run) feed(ctx context.Context, jobs chan<- job, unavailable map[string]string) {
	for _, testValue := range s.values {
		for _, env := range s.config.Environments {
			for _, protocol := range s.config.Protocols {
				cell := Cell{Value: testValue.Index, Environment: env.Name, Protocol: protocol}
				if reason, missing := unavailable[env.Name]; missing {
					s.finish(testValue, cell, oracle.Failed(oracle.KindUnavailable, reason))
					continue
				}
				select {
				case jobs <- job{value: testValue, env: env, cell: cell}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (s *run) execute(ctx context.Context, next job) {
	if ctx.Err() != nil {
		return
	}
	var outcome oracle.Outcome
	if s.config.Stability {
		outcome = s.evaluator.Stability(ctx, next.value.Value, next.env, next.cell.Protocol)
	} else {
		outcome = s.evaluator.Evaluate(ctx, next.value.Value, next.env, next.cell.Protocol)
	}
	if ctx.Err() != nil {
		return
	}
	if outcome.OK {
		if err := s.registry.Observe(outcome.Fingerprint, outcome.Canonical); err != nil {
			s.logger.Error("fingerprint collision",
				"value_index", next.cell.Value,
				"environment", next.cell.Environment,
				"protocol", next.cell.Protocol,
				"error", err,
			)
			s.cancel(err)
			return
		}
	}
	s.finish(next.value, next.cell, outcome)
}

// finish records an outcome and, for the last cell of a value, runs
// the comparison.
func (s *run) finish(testValue corpus.TestValue, cell Cell, outcome oracle.Outcome) {
	if err := s.table.Record(cell, outcome); err != nil {
		s.logger.Error("dropping outcome", "error", err)
		return
	}
	if s.remaining[cell.Value].Add(-1) != 0 {
		return
	}

	report := compare.Compare(cell.Value, s.axes, s.table.Row(cell.Value, s.axes))
	s.reports[cell.Value] = report
	if report.Status == compare.StatusDiverge {
		s.logger.Info("value diverged",
			"value_index", cell.Value,
			"label", testValue.Label,
			"divergences", len(report.Divergences),
		)
	}
	if s.observer != nil {
		s.observe.Lock()
		defer s.observe.Unlock()
		s.observer(testValue, report)
	}
}
