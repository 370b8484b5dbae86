// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/picklecompat/lib/oracle"
)

// TextOptions controls the human-readable report.
type TextOptions struct {
	// Color styles headings and verdicts with ANSI escapes.
	Color bool

	// Cells appends the full cell enumeration.
	Cells bool
}

// TextSink writes a columnar report for terminals and log files.
type TextSink struct {
	writer  io.Writer
	options TextOptions

	heading      func(string) string
	agree        func(string) string
	diverge      func(string) string
	insufficient func(string) string
}

// NewTextSink returns a TextSink writing to w.
func NewTextSink(w io.Writer, options TextOptions) *TextSink {
	sink := &TextSink{writer: w, options: options}
	plain := func(s string) string { return s }
	sink.heading, sink.agree, sink.diverge, sink.insufficient = plain, plain, plain, plain
	if options.Color {
		// Forced: w is often a file, where detection finds no color.
		renderer := lipgloss.NewRenderer(w, termenv.WithProfile(termenv.ANSI256))
		renderer.SetColorProfile(termenv.ANSI256)
		sink.heading = paint(renderer.NewStyle().Bold(true))
		sink.agree = paint(renderer.NewStyle().Foreground(lipgloss.Color("114")))
		sink.diverge = paint(renderer.NewStyle().Foreground(lipgloss.Color("196")).Bold(true))
		sink.insufficient = paint(renderer.NewStyle().Foreground(lipgloss.Color("220")))
	}
	return sink
}

func paint(style lipgloss.Style) func(string) string {
	return func(text string) string { return style.Render(text) }
}

func (s *TextSink) Write(summary *Summary) error {
	out := bufio.NewWriter(s.writer)

	fmt.Fprintln(out, s.heading("Serialization compatibility report"))
	if summary.RunID != "" {
		fmt.Fprintf(out, "run:       %s\n", summary.RunID)
	}
	fmt.Fprintf(out, "started:   %s\n", summary.Started.UTC().Format(time.RFC3339))
	fmt.Fprintf(out, "seed:      %d\n", summary.Seed)
	fmt.Fprintf(out, "values:    %d\n", summary.Values)
	fmt.Fprintf(out, "cells:     %d\n", summary.TotalCells)
	fmt.Fprintf(out, "duration:  %s\n", roundDuration(summary.Duration))
	fmt.Fprintf(out, "verdict:   %s, %s, %s\n\n",
		s.agree(fmt.Sprintf("%d agree", summary.Agree)),
		s.diverge(fmt.Sprintf("%d diverge", summary.Diverge)),
		s.insufficient(fmt.Sprintf("%d insufficient", summary.Insufficient)),
	)

	fmt.Fprintln(out, s.heading("Environments"))
	table := tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
	fmt.Fprintln(table, "ENVIRONMENT\tRUNTIME\tCELLS\tSUCCESS\tFAILURE\tMISMATCH\tMEAN\tMAX\tFAILURES")
	for _, environment := range summary.Environments {
		runtime := environment.Runtime
		if environment.Unavailable != "" {
			runtime = "unavailable"
		}
		fmt.Fprintf(table, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\t%s\n",
			environment.Name, dash(runtime),
			environment.Cells, environment.Success, environment.Failure, environment.Mismatch,
			roundDuration(environment.MeanDuration), roundDuration(environment.MaxDuration),
			formatKinds(environment.ByKind),
		)
	}
	table.Flush()
	fmt.Fprintln(out)

	fmt.Fprintln(out, s.heading("Protocols"))
	table = tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
	fmt.Fprintln(table, "PROTOCOL\tCELLS\tSUCCESS\tFAILURE\tMISMATCH\tFAILURES")
	for _, protocol := range summary.Protocols {
		fmt.Fprintf(table, "%d\t%d\t%d\t%d\t%d\t%s\n",
			protocol.Protocol, protocol.Cells, protocol.Success, protocol.Failure, protocol.Mismatch,
			formatKinds(protocol.ByKind),
		)
	}
	table.Flush()
	fmt.Fprintln(out)

	fmt.Fprintln(out, s.heading("Classes"))
	table = tabwriter.NewWriter(out, 2, 0, 3, ' ', 0)
	fmt.Fprintln(table, "CLASS\tVALUES\tAGREE\tDIVERGE\tINSUFFICIENT\tFAILED\tNOT-EQUIVALENT\tUNSTABLE")
	for _, class := range summary.Classes {
		fmt.Fprintf(table, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			class.Class, class.Values, class.Agree, class.Diverge, class.Insufficient,
			class.FailedCells, class.NotEquivalentCells, class.UnstableCells,
		)
	}
	table.Flush()
	for _, class := range summary.Classes {
		if len(class.Messages) == 0 {
			continue
		}
		fmt.Fprintf(out, "\n%s errors:\n", class.Class)
		for _, message := range class.Messages {
			fmt.Fprintf(out, "  %s\n", firstLine(message))
		}
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, s.heading("Divergent values"))
	if len(summary.Divergent) == 0 {
		fmt.Fprintln(out, "  none")
	}
	for _, divergent := range summary.Divergent {
		reference := "-"
		if divergent.Report.Reference != nil {
			reference = divergent.Report.Reference.String()
		}
		fmt.Fprintf(out, "  #%d %s [%s] %s against %s\n",
			divergent.Index, divergent.Label, divergent.Class, s.diverge(string(divergent.Report.Status)), reference)
		for _, divergence := range divergent.Report.Divergences {
			fmt.Fprintf(out, "      %-16s %-11s got %s, want %s\n",
				divergence.Axis, divergence.Reason, divergence.Got, divergence.Want)
		}
	}

	if s.options.Cells {
		fmt.Fprintln(out)
		fmt.Fprintln(out, s.heading("Cells"))
		table = tabwriter.NewWriter(out, 2, 0, 2, ' ', 0)
		fmt.Fprintln(table, "VALUE\tLABEL\tENVIRONMENT\tPROTOCOL\tRESULT\tFINGERPRINT\tSIZE\tDURATION")
		for _, cell := range summary.Cells {
			fmt.Fprintf(table, "%d\t%s\t%s\t%d\t%s\t%s\t%d\t%s\n",
				cell.Value, cell.Label, cell.Environment, cell.Protocol,
				describeOutcome(cell), cell.Outcome.Fingerprint.Short(),
				cell.Outcome.EncodedSize, roundDuration(cell.Outcome.Duration),
			)
		}
		table.Flush()
	}

	if err := out.Flush(); err != nil {
		return fmt.Errorf("writing text report: %w", err)
	}
	return nil
}

func describeOutcome(cell Cell) string {
	outcome := cell.Outcome
	switch {
	case !outcome.OK:
		return string(outcome.Kind)
	case cell.Mismatch:
		return "mismatch"
	case !outcome.Equivalent:
		return "ok (not equivalent)"
	case outcome.Stability == oracle.StabilityUnstable:
		return "ok (unstable)"
	}
	return "ok"
}

func formatKinds(kinds map[oracle.ErrorKind]int) string {
	if len(kinds) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(kinds))
	for _, kind := range oracle.ErrorKinds {
		if count := kinds[kind]; count > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", kind, count))
		}
	}
	return strings.Join(parts, " ")
}

func roundDuration(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(time.Millisecond)
	}
	return d.Round(time.Microsecond)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
