// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/bureau-foundation/picklecompat/cmd/picklecompat/cli"
	"github.com/bureau-foundation/picklecompat/lib/resultstore"
)

func compareCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		storeParams
	}

	return &cli.Command{
		Name:    "compare",
		Summary: "Show cells whose result changed between two archived runs",
		Description: `Match the cells of two archived runs by value label, environment, and
protocol, and list every cell whose result differs. A cell present in
only one run is shown as absent on the other side.

Both runs should come from the same corpus (same seed or snapshot);
labels are what tie values together across runs.`,
		Usage:  "picklecompat compare <before> <after> [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Compare two runs by ID prefix",
				Command:     "picklecompat compare --store runs.db 1f3a 9c2e",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: picklecompat compare <before> <after>")
			}
			store, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			changes, err := store.Diff(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(changes); done {
				return err
			}
			return writeChanges(os.Stdout, changes)
		},
	}
}

func writeChanges(w io.Writer, changes []resultstore.Change) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, "No changes.")
		return err
	}
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "LABEL\tENVIRONMENT\tPROTOCOL\tBEFORE\tAFTER\n")
	for _, change := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			change.Label,
			change.Axis.Environment,
			change.Axis.Protocol,
			change.Before,
			change.After,
		)
	}
	return tw.Flush()
}
