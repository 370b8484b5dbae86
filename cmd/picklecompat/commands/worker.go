// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/picklecompat/cmd/picklecompat/cli"
	"github.com/bureau-foundation/picklecompat/lib/oracle"
	"github.com/bureau-foundation/picklecompat/lib/pickle"
)

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:    "worker",
		Summary: "Round-trip one job from stdin with the og-rek codec",
		Description: `Read one JSON job from stdin, encode its value with og-rek at the
requested protocol, decode it again, and write one JSON result to
stdout. This is the harness protocol the Python environments speak, so
a worker environment pointing at this command puts og-rek in the
matrix next to CPython.`,
		Usage: "picklecompat worker < job.json",
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			return oracle.ServeWorker(os.Stdin, os.Stdout, pickle.Ogorek{}, oracle.GoRuntime())
		},
	}
}
