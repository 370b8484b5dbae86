// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/picklecompat/cmd/picklecompat/cli"
	"github.com/bureau-foundation/picklecompat/lib/clock"
	"github.com/bureau-foundation/picklecompat/lib/compare"
	"github.com/bureau-foundation/picklecompat/lib/config"
	"github.com/bureau-foundation/picklecompat/lib/corpus"
	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/matrix"
	"github.com/bureau-foundation/picklecompat/lib/oracle"
	"github.com/bureau-foundation/picklecompat/lib/report"
	"github.com/bureau-foundation/picklecompat/lib/resultstore"
	"github.com/bureau-foundation/picklecompat/lib/version"
)

type runParams struct {
	configParams
	Environments []string      `json:"environments" flag:"env,e" desc:"only run these configured environments"`
	Protocols    []int         `json:"protocols"    flag:"protocols,p" desc:"pickle protocols to exercise"`
	Seed         uint64        `json:"seed"         flag:"seed" desc:"corpus seed (default: config, then drawn from the clock)"`
	Random       int           `json:"random"       flag:"random" desc:"number of random values after the boundary partition"`
	Parallelism  int           `json:"parallelism"  flag:"parallelism,j" desc:"cells evaluated concurrently"`
	Timeout      time.Duration `json:"timeout"      flag:"timeout" desc:"per-cell timeout"`
	Stability    bool          `json:"stability"    flag:"stability" desc:"evaluate every cell twice and flag unstable encodings"`
	Report       string        `json:"report"       flag:"report,o" desc:"report file (default: stdout)"`
	Format       string        `json:"format"       flag:"format" desc:"report format: text or json"`
	Color        string        `json:"color"        flag:"color" desc:"color the text report: auto, always, or never"`
	Cells        bool          `json:"cells"        flag:"cells" desc:"list every cell in the text report"`
	Store        string        `json:"store"        flag:"store" desc:"SQLite archive to record the run in"`
	KeepPayloads bool          `json:"keep_payloads" flag:"keep-payloads" desc:"archive every cell's encoded bytes"`
}

// apply overrides cfg with every flag the user set.
func (p *runParams) apply(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("env") {
		var selected []environment.Environment
		for _, name := range p.Environments {
			index := slices.IndexFunc(cfg.Environments, func(env environment.Environment) bool { return env.Name == name })
			if index < 0 {
				return fmt.Errorf("--env %s: no such environment in the configuration", name)
			}
			selected = append(selected, cfg.Environments[index])
		}
		cfg.Environments = selected
	}
	if flags.Changed("protocols") {
		cfg.Protocols = p.Protocols
	}
	if flags.Changed("seed") {
		seed := p.Seed
		cfg.Corpus.Seed = &seed
	}
	if flags.Changed("random") {
		cfg.Corpus.Random = p.Random
	}
	if flags.Changed("parallelism") {
		cfg.Parallelism = p.Parallelism
	}
	if flags.Changed("timeout") {
		cfg.Timeout = config.Duration(p.Timeout)
	}
	if flags.Changed("stability") {
		cfg.Stability = p.Stability
	}
	if flags.Changed("report") {
		cfg.Output.Report = p.Report
	}
	if flags.Changed("format") {
		cfg.Output.Format = p.Format
	}
	if flags.Changed("color") {
		cfg.Output.Color = p.Color
	}
	if flags.Changed("cells") {
		cfg.Output.Cells = p.Cells
	}
	if flags.Changed("store") {
		cfg.Output.Store = p.Store
	}
	if flags.Changed("keep-payloads") {
		cfg.Output.KeepPayloads = p.KeepPayloads
	}
	return nil
}

func runCommand() *cli.Command {
	var (
		params runParams
		flags  *pflag.FlagSet
	)

	return &cli.Command{
		Name:    "run",
		Summary: "Run the compatibility matrix and report divergences",
		Description: `Generate the corpus, evaluate every (value, environment, protocol)
cell, and write the report. Flags override the matching config fields.

Exits 0 when no value diverges, 1 when at least one does, and 2 or
more on configuration or execution errors. Values that no two
environments could round-trip are reported as insufficient, not as
divergent.

When no seed is configured, one is drawn from the clock and printed in
the report; rerun with --seed to reproduce.`,
		Usage: "picklecompat run [flags]",
		Flags: func() *pflag.FlagSet {
			flags = cli.FlagsFromParams("run", &params)
			return flags
		},
		Examples: []cli.Example{
			{
				Description: "Compare two interpreters at the protocols both support",
				Command:     "picklecompat run -c matrix.yaml --env py3.7,py3.11 -p 2,3,4",
			},
			{
				Description: "Reproduce an earlier run and archive it",
				Command:     "picklecompat run --seed 1717171717 --store runs.db",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			if err := params.apply(flags, cfg); err != nil {
				return err
			}

			summary, err := executeRun(ctx, cfg, clock.Real(), logger, os.Stdout)
			if err != nil {
				return &cli.ExitError{Code: 2, Err: err}
			}
			if summary.Diverged() {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// executeRun runs the configured matrix, archives it when a store is
// configured, and writes the report. Reports that go to stdout are
// written to stdout.
func executeRun(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger, stdout io.Writer) (*report.Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var seed uint64
	if cfg.Corpus.Seed != nil {
		seed = *cfg.Corpus.Seed
	} else {
		seed = uint64(clk.Now().UnixNano())
		logger.Info("seed drawn from clock", "seed", seed)
	}

	values, err := loadCorpus(cfg, seed)
	if err != nil {
		return nil, err
	}

	// An unusable archive fails the run before any cell executes.
	var archiver runArchiver
	if cfg.Output.Store != "" {
		store, err := resultstore.Open(ctx, cfg.Output.Store, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		archiver = store
	}

	invoker := newInvoker(cfg.Environments, clk, logger)
	canonical, raw := cfg.Algorithms()
	evaluator := oracle.New(oracle.Config{
		Invoker:            invoker,
		CanonicalAlgorithm: canonical,
		RawAlgorithm:       raw,
		Timeout:            time.Duration(cfg.Timeout),
		Clock:              clk,
		Logger:             logger,
	})
	runner := matrix.NewRunner(matrix.RunnerConfig{
		Evaluator: evaluator,
		Prober:    invoker,
		Observer:  progressObserver(logger),
		Clock:     clk,
		Logger:    logger,
	})

	result, err := runner.Run(ctx, values, cfg.MatrixConfig(seed))
	if err != nil {
		return nil, err
	}

	return publish(ctx, cfg, result, archiver, stdout)
}

// runArchiver records a finished run. *resultstore.Store implements it.
type runArchiver interface {
	WriteRun(ctx context.Context, id string, result *matrix.Result, options resultstore.WriteOptions) error
}

// publish archives result when archiver is non-nil and writes the
// report. The report is written even when archiving fails; it then
// carries no run ID and the archive error is returned with the summary.
func publish(ctx context.Context, cfg *config.Config, result *matrix.Result, archiver runArchiver, stdout io.Writer) (*report.Summary, error) {
	summary := report.Aggregate(result)

	var archiveErr error
	if archiver != nil {
		runID := uuid.NewString()
		archiveErr = archiver.WriteRun(ctx, runID, result, resultstore.WriteOptions{
			KeepPayloads: cfg.Output.KeepPayloads,
			Version:      version.Info(),
		})
		if archiveErr == nil {
			summary.RunID = runID
		}
	}

	if err := writeReport(cfg.Output, summary, stdout); err != nil {
		return nil, errors.Join(err, archiveErr)
	}
	if archiveErr != nil {
		return summary, fmt.Errorf("archiving run: %w", archiveErr)
	}
	return summary, nil
}

// progressObserver logs each compared value at debug level. Divergent
// values are already logged by the runner.
func progressObserver(logger *slog.Logger) matrix.Observer {
	return func(testValue corpus.TestValue, comparison compare.Report) {
		if comparison.Status == compare.StatusDiverge {
			return
		}
		logger.Debug("value compared",
			"value_index", testValue.Index,
			"label", testValue.Label,
			"status", comparison.Status,
		)
	}
}

func loadCorpus(cfg *config.Config, seed uint64) ([]corpus.TestValue, error) {
	if cfg.Corpus.Snapshot == "" {
		return corpus.Generate(cfg.GeneratorConfig(seed)), nil
	}
	file, err := os.Open(cfg.Corpus.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("opening corpus snapshot: %w", err)
	}
	defer file.Close()
	return corpus.ReadSnapshot(file)
}

func writeReport(output config.OutputConfig, summary *report.Summary, stdout io.Writer) (err error) {
	writer := stdout
	terminal := isTerminal(stdout)
	if output.Report != "" && output.Report != "-" {
		file, createErr := os.Create(output.Report)
		if createErr != nil {
			return fmt.Errorf("creating report: %w", createErr)
		}
		defer func() {
			if closeErr := file.Close(); err == nil && closeErr != nil {
				err = fmt.Errorf("closing report: %w", closeErr)
			}
		}()
		writer = file
		terminal = false
	}

	var sink report.Sink
	switch output.Format {
	case config.FormatJSON:
		sink = report.NewJSONSink(writer)
	default:
		color := output.Color == config.ColorAlways || (output.Color == config.ColorAuto && terminal)
		sink = report.NewTextSink(writer, report.TextOptions{Color: color, Cells: output.Cells})
	}
	if err := sink.Write(summary); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
