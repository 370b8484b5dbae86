// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/picklecompat/lib/clock"
	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/fingerprint"
	"github.com/bureau-foundation/picklecompat/lib/value"
)

// DefaultTimeout bounds one cell when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// stderrTail is how much of a crashed environment's stderr is kept in
// the outcome message.
const stderrTail = 512

// Config holds the oracle's collaborators and settings.
type Config struct {
	Invoker environment.Invoker

	// CanonicalAlgorithm digests canonical renderings. Default sha256.
	CanonicalAlgorithm fingerprint.Algorithm

	// RawAlgorithm digests payload bytes. Default blake3.
	RawAlgorithm fingerprint.Algorithm

	// Timeout bounds each invocation. Default [DefaultTimeout].
	Timeout time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Oracle evaluates matrix cells. It is safe for concurrent use.
type Oracle struct {
	invoker   environment.Invoker
	canonical fingerprint.Algorithm
	raw       fingerprint.Algorithm
	timeout   time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

// New returns an Oracle, filling defaults for unset Config fields.
// Invoker is required.
func New(config Config) *Oracle {
	if config.Invoker == nil {
		panic("oracle: Config.Invoker is required")
	}
	oracle := &Oracle{
		invoker:   config.Invoker,
		canonical: config.CanonicalAlgorithm,
		raw:       config.RawAlgorithm,
		timeout:   config.Timeout,
		clock:     config.Clock,
		logger:    config.Logger,
	}
	if oracle.canonical == "" {
		oracle.canonical = fingerprint.SHA256
	}
	if oracle.raw == "" {
		oracle.raw = fingerprint.BLAKE3
	}
	if oracle.timeout <= 0 {
		oracle.timeout = DefaultTimeout
	}
	if oracle.clock == nil {
		oracle.clock = clock.Real()
	}
	if oracle.logger == nil {
		oracle.logger = slog.New(slog.DiscardHandler)
	}
	return oracle
}

// Evaluate round-trips v through env under protocol. Every failure is
// reported in the returned Outcome; Evaluate has no error return.
func (o *Oracle) Evaluate(ctx context.Context, v *value.Value, env environment.Environment, protocol int) Outcome {
	start := o.clock.Now()
	outcome := o.evaluate(ctx, v, env, protocol)
	if outcome.Duration == 0 {
		outcome.Duration = clock.Since(o.clock, start)
	}
	if !outcome.OK {
		o.logger.Debug("cell failed",
			"environment", env.Name,
			"protocol", protocol,
			"kind", outcome.Kind,
			"message", outcome.Message,
		)
	}
	return outcome
}

func (o *Oracle) evaluate(ctx context.Context, v *value.Value, env environment.Environment, protocol int) Outcome {
	stdin, err := json.Marshal(Job{Protocol: protocol, Value: value.ToWire(v)})
	if err != nil {
		return Failed(KindCrash, fmt.Sprintf("encoding job: %v", err))
	}

	execution, err := o.invoker.Invoke(ctx, env, environment.Invocation{
		Args:    programArgs(env),
		Stdin:   stdin,
		Timeout: o.timeout,
	})
	switch {
	case errors.Is(err, environment.ErrUnavailable):
		return Failed(KindUnavailable, err.Error())
	case errors.Is(err, environment.ErrTimeout):
		outcome := Failed(KindTimeout, err.Error())
		outcome.Duration = execution.Duration
		return outcome
	case err != nil:
		return Failed(KindCrash, err.Error())
	}

	outcome := o.interpret(execution)
	outcome.Duration = execution.Duration
	return outcome
}

// interpret turns a completed execution into an outcome.
func (o *Oracle) interpret(execution environment.Execution) Outcome {
	if execution.ExitCode != 0 {
		status := fmt.Sprintf("exit status %d", execution.ExitCode)
		if execution.Signal != "" {
			status = "killed by " + execution.Signal
		}
		if tail := tail(execution.Stderr); tail != "" {
			status += ": " + tail
		}
		return Failed(KindCrash, status)
	}

	var result Result
	decoder := json.NewDecoder(bytes.NewReader(execution.Stdout))
	if err := decoder.Decode(&result); err != nil {
		return Failed(KindCrash, fmt.Sprintf("malformed environment output: %v", err))
	}

	var outcome Outcome
	switch result.Stage {
	case StageOK:
		outcome = o.success(&result)
	case StageConstruct:
		outcome = Failed(KindCrash, "constructing value: "+result.failure())
	case StageEncode:
		outcome = Failed(KindEncodeError, result.failure())
	case StageDecode:
		outcome = Failed(KindDecodeError, result.failure())
	default:
		outcome = Failed(KindCrash, fmt.Sprintf("malformed environment output: unknown stage %q", result.Stage))
	}
	outcome.Runtime = result.Runtime
	if len(result.Payload) > 0 && outcome.Payload == nil {
		outcome.Payload = result.Payload
		outcome.EncodedSize = len(result.Payload)
	}
	return outcome
}

func (o *Oracle) success(result *Result) Outcome {
	original, err := value.FromWire(result.Original)
	if err != nil {
		return Failed(KindCrash, fmt.Sprintf("malformed original description: %v", err))
	}
	decoded, err := value.FromWire(result.Decoded)
	if err != nil {
		return Failed(KindCrash, fmt.Sprintf("malformed decoded description: %v", err))
	}

	digest, rendering := fingerprint.Canonical(o.canonical, decoded)
	return Outcome{
		OK:             true,
		Fingerprint:    digest,
		RawFingerprint: fingerprint.Sum(o.raw, result.Payload),
		Equivalent:     value.Canonical(original) == rendering,
		EncodedSize:    len(result.Payload),
		Payload:        result.Payload,
		Canonical:      rendering,
	}
}

// Stability evaluates the cell twice and reports whether both runs
// produced byte-identical payloads. The first run's outcome is
// returned with Stability set; it is StabilityUnknown when either run
// failed.
func (o *Oracle) Stability(ctx context.Context, v *value.Value, env environment.Environment, protocol int) Outcome {
	first := o.Evaluate(ctx, v, env, protocol)
	if !first.OK {
		first.Stability = StabilityUnknown
		return first
	}
	second := o.Evaluate(ctx, v, env, protocol)
	switch {
	case !second.OK:
		first.Stability = StabilityUnknown
	case first.RawFingerprint == second.RawFingerprint:
		first.Stability = StabilityStable
	default:
		first.Stability = StabilityUnstable
	}
	return first
}

func tail(stderr []byte) string {
	text := strings.TrimSpace(string(stderr))
	if len(text) > stderrTail {
		text = "..." + text[len(text)-stderrTail:]
	}
	return text
}
