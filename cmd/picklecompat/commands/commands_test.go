// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

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
	"github.com/bureau-foundation/picklecompat/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// inProcessConfig returns a small configuration whose environments are
// all served by the built-in og-rek worker.
func inProcessConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Environments = []environment.Environment{
		{Name: "og-a", Kind: environment.KindInProcess},
		{Name: "og-b", Kind: environment.KindInProcess},
	}
	cfg.Protocols = []int{4}
	cfg.Corpus.Random = 3
	cfg.Corpus.MaxDepth = 2
	seed := uint64(42)
	cfg.Corpus.Seed = &seed
	cfg.Parallelism = 2
	return cfg
}

func TestExecuteRunWritesReportAndArchive(t *testing.T) {
	t.Parallel()

	cfg := inProcessConfig(t)
	cfg.Output.Format = config.FormatJSON
	cfg.Output.Report = testutil.TempPath(t, "report.json")
	cfg.Output.Store = testutil.TempPath(t, "runs.db")
	cfg.Output.KeepPayloads = true

	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	var stdout bytes.Buffer
	summary, err := executeRun(ctx, cfg, clk, discardLogger(), &stdout)
	if err != nil {
		t.Fatalf("executeRun: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("report written to stdout as well as the report file: %q", stdout.String())
	}
	if summary.Seed != 42 {
		t.Errorf("got seed %d, want 42", summary.Seed)
	}
	if summary.Values == 0 {
		t.Fatal("summary has no values")
	}
	if got := summary.Agree + summary.Diverge + summary.Insufficient; got != summary.Values {
		t.Errorf("status counts sum to %d, want %d", got, summary.Values)
	}
	if summary.RunID == "" {
		t.Fatal("archived run has no ID")
	}

	var decoded report.Summary
	if err := json.Unmarshal(testutil.ReadFile(t, cfg.Output.Report), &decoded); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if decoded.RunID != summary.RunID || decoded.Values != summary.Values {
		t.Errorf("report has run %q with %d values, want %q with %d",
			decoded.RunID, decoded.Values, summary.RunID, summary.Values)
	}

	store, err := resultstore.Open(ctx, cfg.Output.Store, discardLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	run, err := store.Run(ctx, shortID(summary.RunID))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.Values != summary.Values || run.Diverge != summary.Diverge {
		t.Errorf("archived run has %d values and %d divergent, want %d and %d",
			run.Values, run.Diverge, summary.Values, summary.Diverge)
	}

	inspected, err := inspectCell(ctx, store, run.ID, matrix.Cell{Value: 0, Environment: "og-a", Protocol: 4})
	if err != nil {
		t.Fatalf("inspectCell: %v", err)
	}
	if !inspected.Outcome.Outcome.OK {
		t.Fatalf("cell 0 failed: %s", inspected.Outcome.Outcome.Message)
	}
	if len(inspected.Payload) == 0 {
		t.Fatal("payload not archived with KeepPayloads")
	}
	if inspected.Decoded != inspected.Value {
		t.Errorf("og-rek decoded %q, want %q", inspected.Decoded, inspected.Value)
	}

	var rendered bytes.Buffer
	writeInspection(&rendered, inspected)
	if !strings.Contains(rendered.String(), "og-rek reads it as: "+inspected.Value) {
		t.Errorf("inspection output missing decoded value:\n%s", rendered.String())
	}
}

func TestExecuteRunDrawsSeedFromClock(t *testing.T) {
	t.Parallel()

	cfg := inProcessConfig(t)
	cfg.Corpus.Seed = nil
	cfg.Corpus.Boundary = false
	cfg.Output.Format = config.FormatJSON

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var stdout bytes.Buffer
	summary, err := executeRun(context.Background(), cfg, clock.Fake(start), discardLogger(), &stdout)
	if err != nil {
		t.Fatalf("executeRun: %v", err)
	}
	if want := uint64(start.UnixNano()); summary.Seed != want {
		t.Errorf("got seed %d, want %d", summary.Seed, want)
	}
	if summary.RunID != "" {
		t.Errorf("run without a store got ID %q", summary.RunID)
	}
	if !strings.Contains(stdout.String(), `"seed"`) {
		t.Errorf("stdout does not hold the JSON report:\n%s", stdout.String())
	}
}

func TestExecuteRunRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := inProcessConfig(t)
	cfg.Protocols = []int{9}
	_, err := executeRun(context.Background(), cfg, clock.Real(), discardLogger(), io.Discard)
	var validation *config.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("got error %v, want *config.ValidationError", err)
	}
}

func TestExecuteRunRejectsUnusableStore(t *testing.T) {
	t.Parallel()

	cfg := inProcessConfig(t)
	cfg.Output.Report = testutil.TempPath(t, "report.txt")
	cfg.Output.Store = filepath.Join(t.TempDir(), "missing", "runs.db")

	summary, err := executeRun(context.Background(), cfg, clock.Real(), discardLogger(), io.Discard)
	if err == nil {
		t.Fatalf("executeRun with an unusable store succeeded: %+v", summary)
	}
	if _, statErr := os.Stat(cfg.Output.Report); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("report written although no cell ran: stat error %v", statErr)
	}
}

type failingArchiver struct{ calls int }

func (a *failingArchiver) WriteRun(context.Context, string, *matrix.Result, resultstore.WriteOptions) error {
	a.calls++
	return errors.New("database is locked")
}

// finishedRun runs cfg's matrix without writing anything.
func finishedRun(t *testing.T, cfg *config.Config) *matrix.Result {
	t.Helper()
	clk := clock.Real()
	invoker := newInvoker(cfg.Environments, clk, discardLogger())
	runner := matrix.NewRunner(matrix.RunnerConfig{
		Evaluator: oracle.New(oracle.Config{Invoker: invoker, Clock: clk}),
		Prober:    invoker,
	})
	result, err := runner.Run(context.Background(), corpus.Generate(cfg.GeneratorConfig(*cfg.Corpus.Seed)), cfg.MatrixConfig(*cfg.Corpus.Seed))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return result
}

func TestPublishWritesReportWhenArchiveFails(t *testing.T) {
	t.Parallel()

	cfg := inProcessConfig(t)
	cfg.Output.Format = config.FormatJSON
	cfg.Output.Report = testutil.TempPath(t, "report.json")
	result := finishedRun(t, cfg)

	archiver := &failingArchiver{}
	summary, err := publish(context.Background(), cfg, result, archiver, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "database is locked") {
		t.Fatalf("got error %v, want the archive failure", err)
	}
	if archiver.calls != 1 {
		t.Errorf("got %d archive attempts, want 1", archiver.calls)
	}
	if summary == nil {
		t.Fatal("no summary returned with the archive error")
	}
	if summary.RunID != "" {
		t.Errorf("unarchived run reported ID %q", summary.RunID)
	}

	var decoded report.Summary
	if err := json.Unmarshal(testutil.ReadFile(t, cfg.Output.Report), &decoded); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if decoded.Values != summary.Values || len(decoded.Cells) != summary.TotalCells {
		t.Errorf("report has %d values and %d cells, want %d and %d",
			decoded.Values, len(decoded.Cells), summary.Values, summary.TotalCells)
	}
}

func TestWriteReportFailures(t *testing.T) {
	t.Parallel()

	summary := &report.Summary{Seed: 1}
	output := config.OutputConfig{
		Report: filepath.Join(t.TempDir(), "missing", "report.txt"),
		Format: config.FormatText,
		Color:  config.ColorNever,
	}
	if err := writeReport(output, summary, io.Discard); err == nil {
		t.Error("writing a report into a missing directory succeeded")
	}

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	output.Report = "/dev/full"
	if err := writeReport(output, summary, io.Discard); err == nil {
		t.Error("writing a report to a full device succeeded")
	}
}

func TestProgressObserverSkipsDivergentValues(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	observe := progressObserver(logger)
	testValue := corpus.TestValue{Index: 3, Label: "dict two keys"}

	observe(testValue, compare.Report{ValueIndex: 3, Status: compare.StatusDiverge})
	if logs.Len() != 0 {
		t.Errorf("divergent value logged by the observer:\n%s", logs.String())
	}

	observe(testValue, compare.Report{ValueIndex: 3, Status: compare.StatusAgree})
	if !strings.Contains(logs.String(), "value compared") || !strings.Contains(logs.String(), "status=agree") {
		t.Errorf("agreeing value not logged:\n%s", logs.String())
	}
}

func TestRunParamsApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg *config.Config)
		wantErr string
	}{
		{
			name: "no flags keeps the config",
			check: func(t *testing.T, cfg *config.Config) {
				if len(cfg.Environments) != 2 || cfg.Corpus.Random != 3 {
					t.Errorf("config changed without flags: %d environments, %d random", len(cfg.Environments), cfg.Corpus.Random)
				}
			},
		},
		{
			name: "environment selection",
			args: []string{"-e", "og-b"},
			check: func(t *testing.T, cfg *config.Config) {
				if len(cfg.Environments) != 1 || cfg.Environments[0].Name != "og-b" {
					t.Errorf("got environments %v, want [og-b]", cfg.Environments)
				}
			},
		},
		{
			name: "matrix and corpus overrides",
			args: []string{"-p", "2,3", "--seed", "7", "--random", "0", "-j", "8", "--timeout", "3s", "--stability"},
			check: func(t *testing.T, cfg *config.Config) {
				if len(cfg.Protocols) != 2 || cfg.Protocols[0] != 2 || cfg.Protocols[1] != 3 {
					t.Errorf("got protocols %v, want [2 3]", cfg.Protocols)
				}
				if cfg.Corpus.Seed == nil || *cfg.Corpus.Seed != 7 {
					t.Errorf("got seed %v, want 7", cfg.Corpus.Seed)
				}
				if cfg.Corpus.Random != 0 {
					t.Errorf("got random %d, want 0", cfg.Corpus.Random)
				}
				if cfg.Parallelism != 8 {
					t.Errorf("got parallelism %d, want 8", cfg.Parallelism)
				}
				if time.Duration(cfg.Timeout) != 3*time.Second {
					t.Errorf("got timeout %s, want 3s", time.Duration(cfg.Timeout))
				}
				if !cfg.Stability {
					t.Error("stability not enabled")
				}
			},
		},
		{
			name: "output overrides",
			args: []string{"-o", "out.json", "--format", "json", "--color", "never", "--cells", "--store", "runs.db", "--keep-payloads"},
			check: func(t *testing.T, cfg *config.Config) {
				want := config.OutputConfig{
					Report:       "out.json",
					Format:       config.FormatJSON,
					Color:        config.ColorNever,
					Cells:        true,
					Store:        "runs.db",
					KeepPayloads: true,
				}
				if cfg.Output != want {
					t.Errorf("got output %+v, want %+v", cfg.Output, want)
				}
			},
		},
		{
			name:    "unknown environment",
			args:    []string{"--env", "py2.7"},
			wantErr: "no such environment",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			var params runParams
			flags := cli.FlagsFromParams("run", &params)
			if err := flags.Parse(test.args); err != nil {
				t.Fatalf("Parse: %v", err)
			}
			cfg := inProcessConfig(t)
			err := params.apply(flags, cfg)
			if test.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), test.wantErr) {
					t.Fatalf("got error %v, want one containing %q", err, test.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			test.check(t, cfg)
		})
	}
}

func TestWriteChanges(t *testing.T) {
	t.Parallel()

	var empty bytes.Buffer
	if err := writeChanges(&empty, nil); err != nil {
		t.Fatalf("writeChanges: %v", err)
	}
	if got := empty.String(); got != "No changes.\n" {
		t.Errorf("got %q, want %q", got, "No changes.\n")
	}

	var table bytes.Buffer
	changes := []resultstore.Change{{
		Label:  "tuple pair",
		Before: "ok 1a2b3c4d",
		After:  "decode_error",
	}}
	changes[0].Axis.Environment = "py3.9"
	changes[0].Axis.Protocol = 2
	if err := writeChanges(&table, changes); err != nil {
		t.Fatalf("writeChanges: %v", err)
	}
	for _, want := range []string{"LABEL", "tuple pair", "py3.9", "ok 1a2b3c4d", "decode_error"} {
		if !strings.Contains(table.String(), want) {
			t.Errorf("output missing %q:\n%s", want, table.String())
		}
	}
}

func TestAbbreviate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer rendering", 10, "a longe..."},
		{"你好世界你好世界", 6, "你好世..."},
	}
	for _, test := range tests {
		if got := abbreviate(test.input, test.limit); got != test.want {
			t.Errorf("abbreviate(%q, %d) = %q, want %q", test.input, test.limit, got, test.want)
		}
	}
}

func TestShortID(t *testing.T) {
	t.Parallel()

	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("got %q, want 01234567", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}
