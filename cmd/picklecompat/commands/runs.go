// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/picklecompat/cmd/picklecompat/cli"
	"github.com/bureau-foundation/picklecompat/lib/resultstore"
)

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:    "runs",
		Summary: "Browse archived runs",
		Description: `Runs recorded with --store are kept in a SQLite archive. Any unique
prefix of a run ID selects that run.`,
		Subcommands: []*cli.Command{
			runsListCommand(),
			runsShowCommand(),
		},
	}
}

func runsListCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		storeParams
	}

	return &cli.Command{
		Name:    "list",
		Summary: "List archived runs, newest first",
		Usage:   "picklecompat runs list [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			store, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(ctx)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(runs); done {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No archived runs.")
				return nil
			}
			return writeRunsTable(os.Stdout, runs)
		},
	}
}

func writeRunsTable(w io.Writer, runs []resultstore.Run) error {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "ID\tSTARTED\tVALUES\tAGREE\tDIVERGE\tINSUFFICIENT\tSEED\n")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			shortID(run.ID),
			run.Started.Local().Format(time.DateTime),
			run.Values,
			run.Agree,
			run.Diverge,
			run.Insufficient,
			run.Seed,
		)
	}
	return tw.Flush()
}

type runDetail struct {
	resultstore.Run
	Outcomes []resultstore.StoredOutcome `json:"outcomes"`
}

func runsShowCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		storeParams
		Failures bool `json:"failures" flag:"failures" desc:"only list cells that did not round-trip"`
	}

	return &cli.Command{
		Name:    "show",
		Summary: "Show one archived run and its cells",
		Usage:   "picklecompat runs show <run-id> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: picklecompat runs show <run-id>")
			}
			store, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Run(ctx, args[0])
			if err != nil {
				return err
			}
			outcomes, err := store.Outcomes(ctx, run.ID)
			if err != nil {
				return err
			}
			if params.Failures {
				kept := outcomes[:0]
				for _, stored := range outcomes {
					if !stored.Outcome.OK {
						kept = append(kept, stored)
					}
				}
				outcomes = kept
			}

			if done, err := params.EmitJSON(runDetail{Run: run, Outcomes: outcomes}); done {
				return err
			}
			return writeRunDetail(os.Stdout, run, outcomes)
		},
	}
}

func writeRunDetail(w io.Writer, run resultstore.Run, outcomes []resultstore.StoredOutcome) error {
	fmt.Fprintf(w, "Run:          %s\n", run.ID)
	fmt.Fprintf(w, "Started:      %s (%s)\n", run.Started.Local().Format(time.DateTime), run.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Seed:         %d\n", run.Seed)
	fmt.Fprintf(w, "Environments: %s\n", strings.Join(run.Environments, ", "))
	fmt.Fprintf(w, "Protocols:    %s\n", joinInts(run.Protocols))
	fmt.Fprintf(w, "Values:       %d (%d agree, %d diverge, %d insufficient)\n",
		run.Values, run.Agree, run.Diverge, run.Insufficient)
	if run.Version != "" {
		fmt.Fprintf(w, "Version:      %s\n", run.Version)
	}
	if len(outcomes) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "VALUE\tLABEL\tENVIRONMENT\tPROTOCOL\tRESULT\n")
	for _, stored := range outcomes {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			stored.Value,
			stored.Label,
			stored.Environment,
			stored.Protocol,
			outcomeSummary(stored),
		)
	}
	return tw.Flush()
}

// outcomeSummary renders a cell's result in one column.
func outcomeSummary(stored resultstore.StoredOutcome) string {
	outcome := stored.Outcome
	if !outcome.OK {
		return string(outcome.Kind)
	}
	summary := "ok " + outcome.Fingerprint.Short()
	if !outcome.Equivalent {
		summary += " (not equivalent)"
	}
	if outcome.Stability != "" {
		summary += " " + string(outcome.Stability)
	}
	return summary
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinInts(numbers []int) string {
	parts := make([]string, len(numbers))
	for index, number := range numbers {
		parts[index] = fmt.Sprint(number)
	}
	return strings.Join(parts, ", ")
}
