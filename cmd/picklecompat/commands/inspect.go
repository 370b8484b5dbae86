// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/bureau-foundation/picklecompat/cmd/picklecompat/cli"
	"github.com/bureau-foundation/picklecompat/lib/matrix"
	"github.com/bureau-foundation/picklecompat/lib/pickle"
	"github.com/bureau-foundation/picklecompat/lib/resultstore"
	"github.com/bureau-foundation/picklecompat/lib/value"
)

type inspection struct {
	Cell      matrix.Cell                `json:"cell"`
	Label     string                     `json:"label"`
	Class     string                     `json:"class"`
	Value     string                     `json:"value"`
	Outcome   *resultstore.StoredOutcome `json:"outcome"`
	Payload   []byte                     `json:"payload,omitempty"`
	Decoded   string                     `json:"decoded,omitempty"`
	DecodeErr string                     `json:"decode_error,omitempty"`
}

func inspectCommand() *cli.Command {
	var params struct {
		cli.JSONOutput
		storeParams
	}

	return &cli.Command{
		Name:    "inspect",
		Summary: "Show one archived cell, its payload, and how og-rek reads it",
		Description: `Print the value, outcome, and encoded bytes of one archived cell.
Payloads are archived only when the run used --keep-payloads. When the
payload is present it is also decoded with the built-in og-rek codec,
which often shows what a foreign runtime produced.`,
		Usage:  "picklecompat inspect <run-id> <value-index> <environment> <protocol> [flags]",
		Params: func() any { return &params },
		Examples: []cli.Example{
			{
				Description: "Look at how py3.7 encoded value 12 at protocol 2",
				Command:     "picklecompat inspect --store runs.db 1f3a 12 py3.7 2",
			},
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 4 {
				return fmt.Errorf("usage: picklecompat inspect <run-id> <value-index> <environment> <protocol>")
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid value index %q: %w", args[1], err)
			}
			protocol, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("invalid protocol %q: %w", args[3], err)
			}
			cell := matrix.Cell{Value: index, Environment: args[2], Protocol: protocol}

			store, err := params.open(ctx, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := inspectCell(ctx, store, args[0], cell)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(result); done {
				return err
			}
			writeInspection(os.Stdout, result)
			return nil
		},
	}
}

// inspectCell gathers everything the archive holds about one cell.
func inspectCell(ctx context.Context, store *resultstore.Store, runID string, cell matrix.Cell) (*inspection, error) {
	testValue, err := store.Value(ctx, runID, cell.Value)
	if err != nil {
		return nil, err
	}
	result := &inspection{
		Cell:  cell,
		Label: testValue.Label,
		Class: testValue.Class,
		Value: value.Canonical(testValue.Value),
	}

	outcomes, err := store.Outcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	for index := range outcomes {
		if outcomes[index].Cell == cell {
			result.Outcome = &outcomes[index]
			break
		}
	}
	if result.Outcome == nil {
		return nil, fmt.Errorf("run %s has no cell %s", runID, cell)
	}

	payload, err := store.Payload(ctx, runID, cell)
	if errors.Is(err, resultstore.ErrNoPayload) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Payload = payload
	decoded, err := pickle.Ogorek{}.Decode(payload)
	if err != nil {
		result.DecodeErr = err.Error()
	} else {
		result.Decoded = value.Canonical(decoded)
	}
	return result, nil
}

func writeInspection(w io.Writer, result *inspection) {
	fmt.Fprintf(w, "Cell:    %s\n", result.Cell)
	fmt.Fprintf(w, "Value:   %s [%s]\n", result.Label, result.Class)
	fmt.Fprintf(w, "         %s\n", result.Value)
	fmt.Fprintf(w, "Result:  %s\n", outcomeSummary(*result.Outcome))
	outcome := result.Outcome.Outcome
	if outcome.Runtime != "" {
		fmt.Fprintf(w, "Runtime: %s\n", outcome.Runtime)
	}
	if outcome.Message != "" {
		fmt.Fprintf(w, "Message: %s\n", outcome.Message)
	}
	if !outcome.Fingerprint.IsZero() {
		fmt.Fprintf(w, "Decoded fingerprint: %s\n", outcome.Fingerprint)
	}
	if !outcome.RawFingerprint.IsZero() {
		fmt.Fprintf(w, "Payload fingerprint: %s\n", outcome.RawFingerprint)
	}

	if result.Payload == nil {
		fmt.Fprintln(w, "\nPayload not archived (rerun with --keep-payloads to keep every payload).")
		return
	}
	fmt.Fprintf(w, "\nPayload (%d bytes):\n%s", len(result.Payload), hex.Dump(result.Payload))
	if result.DecodeErr != "" {
		fmt.Fprintf(w, "og-rek cannot decode the payload: %s\n", result.DecodeErr)
		return
	}
	fmt.Fprintf(w, "og-rek reads it as: %s\n", result.Decoded)
}
