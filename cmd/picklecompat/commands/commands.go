// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the picklecompat command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/picklecompat/cmd/picklecompat/cli"
	"github.com/bureau-foundation/picklecompat/lib/version"
)

// Root builds and returns the complete picklecompat command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "picklecompat",
		Description: `picklecompat: cross-version pickle compatibility testing.

Generates a corpus of Python values, round-trips each one through every
configured runtime at every configured pickle protocol, and reports the
values whose decoded form differs between runtimes.`,
		Subcommands: []*cli.Command{
			runCommand(),
			corpusCommand(),
			runsCommand(),
			compareCommand(),
			inspectCommand(),
			workerCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Printf("picklecompat %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Run the default matrix: local python3 against the built-in og-rek worker",
				Command:     "picklecompat run",
			},
			{
				Description: "Run a configured matrix and archive the results",
				Command:     "picklecompat run --config matrix.yaml --store runs.db",
			},
			{
				Description: "Show what changed between the last two archived runs",
				Command:     "picklecompat compare --store runs.db 1f3a 9c2e",
			},
		},
	}
}
