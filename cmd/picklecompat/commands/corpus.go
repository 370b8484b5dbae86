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

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/picklecompat/cmd/picklecompat/cli"
	"github.com/bureau-foundation/picklecompat/lib/corpus"
	"github.com/bureau-foundation/picklecompat/lib/value"
)

func corpusCommand() *cli.Command {
	return &cli.Command{
		Name:    "corpus",
		Summary: "List or snapshot the value corpus",
		Description: `The corpus is the boundary partition (curated edge cases for each
equivalence class) followed by seeded random trees. The same seed
always produces the same corpus.`,
		Subcommands: []*cli.Command{
			corpusListCommand(),
			corpusSnapshotCommand(),
		},
	}
}

type corpusParams struct {
	configParams
	Seed     uint64 `json:"seed"     flag:"seed" desc:"corpus seed (default: config, then 0)"`
	Random   int    `json:"random"   flag:"random" desc:"number of random values (default: config)"`
	Depth    int    `json:"depth"    flag:"depth" desc:"maximum nesting depth of random values (default: config)"`
	Boundary bool   `json:"boundary" flag:"boundary" default:"true" desc:"include the boundary partition"`
}

// generate builds the corpus from the configuration. Flags the user
// set take precedence over the matching config fields.
func (p *corpusParams) generate(flags *pflag.FlagSet) ([]corpus.TestValue, error) {
	cfg, err := p.load()
	if err != nil {
		return nil, err
	}
	var seed uint64
	if cfg.Corpus.Seed != nil {
		seed = *cfg.Corpus.Seed
	}
	if flags.Changed("seed") {
		seed = p.Seed
	}
	if flags.Changed("random") {
		cfg.Corpus.Random = p.Random
	}
	if flags.Changed("depth") {
		cfg.Corpus.MaxDepth = p.Depth
	}
	if flags.Changed("boundary") {
		cfg.Corpus.Boundary = p.Boundary
	}
	if cfg.Corpus.Random < 0 || cfg.Corpus.MaxDepth < 0 {
		return nil, fmt.Errorf("--random and --depth must not be negative")
	}
	return corpus.Generate(cfg.GeneratorConfig(seed)), nil
}

type corpusEntry struct {
	Index     int    `json:"index"`
	Class     string `json:"class"`
	Label     string `json:"label"`
	Canonical string `json:"canonical"`
}

func corpusListCommand() *cli.Command {
	var (
		params struct {
			cli.JSONOutput
			corpusParams
		}
		flags *pflag.FlagSet
	)

	return &cli.Command{
		Name:    "list",
		Summary: "List corpus values with their canonical renderings",
		Usage:   "picklecompat corpus list [flags]",
		Flags: func() *pflag.FlagSet {
			flags = cli.FlagsFromParams("list", &params)
			return flags
		},
		Examples: []cli.Example{
			{
				Description: "Show only the boundary partition",
				Command:     "picklecompat corpus list --random 0",
			},
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			values, err := params.generate(flags)
			if err != nil {
				return err
			}
			entries := corpusEntries(values)
			if done, err := params.EmitJSON(entries); done {
				return err
			}
			return writeCorpusTable(os.Stdout, entries)
		},
	}
}

func corpusEntries(values []corpus.TestValue) []corpusEntry {
	entries := make([]corpusEntry, len(values))
	for index, testValue := range values {
		entries[index] = corpusEntry{
			Index:     testValue.Index,
			Class:     testValue.Class,
			Label:     testValue.Label,
			Canonical: value.Canonical(testValue.Value),
		}
	}
	return entries
}

func writeCorpusTable(w io.Writer, entries []corpusEntry) error {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "INDEX\tCLASS\tLABEL\tVALUE\n")
	for _, entry := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", entry.Index, entry.Class, entry.Label, abbreviate(entry.Canonical, 60))
	}
	return tw.Flush()
}

func corpusSnapshotCommand() *cli.Command {
	var (
		params struct {
			corpusParams
			Output string `json:"output" flag:"output,o" desc:"snapshot file to write (required)"`
		}
		flags *pflag.FlagSet
	)

	return &cli.Command{
		Name:    "snapshot",
		Summary: "Write the corpus to a snapshot file",
		Description: `Write the corpus to a CBOR file. Point corpus.snapshot at it and
later runs, including runs from later picklecompat versions, test
exactly the same values.`,
		Usage: "picklecompat corpus snapshot -o corpus.cbor [flags]",
		Flags: func() *pflag.FlagSet {
			flags = cli.FlagsFromParams("snapshot", &params)
			return flags
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if params.Output == "" {
				return fmt.Errorf("--output is required")
			}
			values, err := params.generate(flags)
			if err != nil {
				return err
			}
			if err := writeSnapshot(params.Output, values); err != nil {
				return err
			}
			logger.Info("corpus snapshot written", "path", params.Output, "values", len(values))
			return nil
		},
	}
}

func writeSnapshot(path string, values []corpus.TestValue) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("closing snapshot: %w", closeErr)
		}
	}()
	return corpus.WriteSnapshot(file, values)
}

// abbreviate shortens s to at most limit runes.
func abbreviate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
