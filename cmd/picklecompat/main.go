// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// picklecompat tests whether Python pickle payloads mean the same thing
// across interpreter versions, platforms, and alternative codecs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/picklecompat/cmd/picklecompat/commands"
	"github.com/bureau-foundation/picklecompat/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return commands.Root().Execute(ctx, os.Args[1:])
}
