// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"os/exec"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/picklecompat/lib/clock"
	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/fingerprint"
	"github.com/bureau-foundation/picklecompat/lib/pickle"
	"github.com/bureau-foundation/picklecompat/lib/value"
)

func inProcess(name string) environment.Environment {
	return environment.Environment{Name: name, Kind: environment.KindInProcess}
}

// newOracle returns an oracle whose in-process invoker serves the
// og-rek worker under each of names, plus the invoker for registering
// extra handlers.
func newOracle(t *testing.T, names ...string) (*Oracle, *environment.InProcess) {
	t.Helper()
	invoker := environment.NewInProcess(clock.Real())
	for _, name := range names {
		invoker.Register(name, WorkerHandler(pickle.Ogorek{}))
	}
	return New(Config{Invoker: invoker, Timeout: 5 * time.Second}), invoker
}

// respond registers a handler that always writes result.
func respond(invoker *environment.InProcess, name string, result Result) {
	invoker.Register(name, func(_ context.Context, _ []byte, stdout, _ io.Writer) int {
		json.NewEncoder(stdout).Encode(result)
		return 0
	})
}

func TestDictAgreesAcrossEnvironments(t *testing.T) {
	t.Parallel()

	oracle, _ := newOracle(t, "go-a", "go-b")
	dict := value.Dict(value.Pair("a", value.Int(1)), value.Pair("b", value.Int(2)))

	first := oracle.Evaluate(context.Background(), dict, inProcess("go-a"), 4)
	second := oracle.Evaluate(context.Background(), dict, inProcess("go-b"), 4)
	for _, outcome := range []Outcome{first, second} {
		if !outcome.OK {
			t.Fatalf("outcome failed: %s: %s", outcome.Kind, outcome.Message)
		}
		if !outcome.Equivalent {
			t.Errorf("Equivalent = false for %s", outcome.Canonical)
		}
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	want := fingerprint.Sum(fingerprint.SHA256, []byte(`{"a": 1, "b": 2}`))
	if first.Fingerprint != want {
		t.Errorf("Fingerprint = %s, want %s", first.Fingerprint, want)
	}
	if first.RawFingerprint.Algorithm != fingerprint.BLAKE3 {
		t.Errorf("RawFingerprint algorithm = %q, want blake3", first.RawFingerprint.Algorithm)
	}
	if first.EncodedSize == 0 || first.EncodedSize != len(first.Payload) {
		t.Errorf("EncodedSize = %d, payload %d bytes", first.EncodedSize, len(first.Payload))
	}
	if !strings.Contains(first.Runtime, "og-rek") {
		t.Errorf("Runtime = %q, want og-rek", first.Runtime)
	}
}

func TestFrozenSetRoundTripIsIdempotent(t *testing.T) {
	t.Parallel()

	oracle, _ := newOracle(t, "go")
	frozen := value.FrozenSet(value.Int(1), value.Int(2), value.Int(3))
	first := oracle.Evaluate(context.Background(), frozen, inProcess("go"), 2)
	second := oracle.Evaluate(context.Background(), frozen, inProcess("go"), 2)
	if !first.OK || !second.OK {
		t.Fatalf("outcomes failed: %+v, %+v", first, second)
	}
	if first.Canonical != "frozenset({1, 2, 3})" {
		t.Errorf("Canonical = %q, want frozenset({1, 2, 3})", first.Canonical)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("repeated evaluation changed fingerprint: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
}

func TestSocketIsEncodeError(t *testing.T) {
	t.Parallel()

	oracle, _ := newOracle(t, "go")
	outcome := oracle.Evaluate(context.Background(), value.Handle("socket"), inProcess("go"), 4)
	if outcome.OK {
		t.Fatal("socket handle round-tripped")
	}
	if outcome.Kind != KindEncodeError {
		t.Errorf("Kind = %s, want %s", outcome.Kind, KindEncodeError)
	}
	if want := "TypeError: cannot pickle 'socket' object"; outcome.Message != want {
		t.Errorf("Message = %q, want %q", outcome.Message, want)
	}
	if !outcome.Fingerprint.IsZero() {
		t.Errorf("failed outcome carries fingerprint %s", outcome.Fingerprint)
	}
}

func TestLargeListRoundTrip(t *testing.T) {
	t.Parallel()

	items := make([]*value.Value, 1024)
	for index := range items {
		items[index] = value.Int(int64(index))
	}
	list := value.List(items...)

	oracle, _ := newOracle(t, "go")
	outcome := oracle.Evaluate(context.Background(), list, inProcess("go"), 3)
	if !outcome.OK || !outcome.Equivalent {
		t.Fatalf("outcome = %+v, want equivalent success", outcome)
	}
	if outcome.Canonical != value.Canonical(list) {
		t.Errorf("decoded rendering differs from original")
	}
}

func TestUnavailableEnvironment(t *testing.T) {
	t.Parallel()

	oracle, _ := newOracle(t)
	outcome := oracle.Evaluate(context.Background(), value.Int(1), inProcess("missing"), 4)
	if outcome.Kind != KindUnavailable {
		t.Errorf("Kind = %s, want %s", outcome.Kind, KindUnavailable)
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	invoker := environment.NewInProcess(clock.Real())
	invoker.Register("hang", func(ctx context.Context, _ []byte, _, _ io.Writer) int {
		<-ctx.Done()
		return 1
	})
	oracle := New(Config{Invoker: invoker, Timeout: 50 * time.Millisecond})
	outcome := oracle.Evaluate(context.Background(), value.Int(1), inProcess("hang"), 4)
	if outcome.Kind != KindTimeout {
		t.Errorf("Kind = %s (%s), want %s", outcome.Kind, outcome.Message, KindTimeout)
	}
}

func TestCrashes(t *testing.T) {
	t.Parallel()

	oracle, invoker := newOracle(t)
	invoker.Register("exit", func(_ context.Context, _ []byte, _, stderr io.Writer) int {
		io.WriteString(stderr, "Traceback (most recent call last):\nMemoryError\n")
		return 3
	})
	invoker.Register("garbage", func(_ context.Context, _ []byte, stdout, _ io.Writer) int {
		io.WriteString(stdout, "not json")
		return 0
	})
	invoker.Register("panic", func(context.Context, []byte, io.Writer, io.Writer) int {
		panic("worker bug")
	})
	respond(invoker, "construct", Result{Stage: StageConstruct, ErrorType: "ValueError", Error: "cannot construct opaque value"})
	respond(invoker, "stage", Result{Stage: "teleport"})
	respond(invoker, "undescribed", Result{Stage: StageOK, Payload: []byte{0x80, 0x04, '.'}})

	tests := []struct {
		environment string
		message     string
	}{
		{"exit", "exit status 3: Traceback (most recent call last):\nMemoryError"},
		{"garbage", "malformed environment output"},
		{"panic", "exit status 2"},
		{"construct", "constructing value: ValueError: cannot construct opaque value"},
		{"stage", `unknown stage "teleport"`},
		{"undescribed", "malformed original description"},
	}
	for _, test := range tests {
		t.Run(test.environment, func(t *testing.T) {
			t.Parallel()
			outcome := oracle.Evaluate(context.Background(), value.Int(1), inProcess(test.environment), 4)
			if outcome.Kind != KindCrash {
				t.Fatalf("Kind = %s, want %s", outcome.Kind, KindCrash)
			}
			if !strings.Contains(outcome.Message, test.message) {
				t.Errorf("Message = %q, want it to contain %q", outcome.Message, test.message)
			}
		})
	}
}

func TestDecodeErrorFromEnvironment(t *testing.T) {
	t.Parallel()

	oracle, invoker := newOracle(t)
	respond(invoker, "broken", Result{
		Stage:     StageDecode,
		ErrorType: "UnpicklingError",
		Error:     "invalid load key, '\\x00'.",
		Payload:   []byte{0, 1, 2},
		Runtime:   "CPython 3.7.17",
	})
	outcome := oracle.Evaluate(context.Background(), value.Int(1), inProcess("broken"), 4)
	if outcome.Kind != KindDecodeError {
		t.Errorf("Kind = %s, want %s", outcome.Kind, KindDecodeError)
	}
	if outcome.Runtime != "CPython 3.7.17" {
		t.Errorf("Runtime = %q, want CPython 3.7.17", outcome.Runtime)
	}
	if outcome.EncodedSize != 3 {
		t.Errorf("EncodedSize = %d, want 3", outcome.EncodedSize)
	}
}

func TestNotEquivalentWhenDecodedDiffers(t *testing.T) {
	t.Parallel()

	oracle, invoker := newOracle(t)
	respond(invoker, "lossy", Result{
		Stage:    StageOK,
		Payload:  []byte("payload"),
		Original: value.ToWire(value.Tuple(value.Int(1))),
		Decoded:  value.ToWire(value.List(value.Int(1))),
	})
	outcome := oracle.Evaluate(context.Background(), value.Tuple(value.Int(1)), inProcess("lossy"), 4)
	if !outcome.OK {
		t.Fatalf("outcome failed: %s", outcome.Message)
	}
	if outcome.Equivalent {
		t.Error("Equivalent = true for tuple decoded as list")
	}
	if outcome.Canonical != "[1]" {
		t.Errorf("Canonical = %q, want [1]", outcome.Canonical)
	}
}

func TestDurationComesFromExecution(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	fake.SetStep(7 * time.Millisecond)
	invoker := environment.NewInProcess(fake)
	invoker.Register("go", WorkerHandler(pickle.Ogorek{}))
	oracle := New(Config{Invoker: invoker, Clock: fake})

	outcome := oracle.Evaluate(context.Background(), value.Str("timed"), inProcess("go"), 4)
	if outcome.Duration != 7*time.Millisecond {
		t.Errorf("Duration = %v, want 7ms", outcome.Duration)
	}
}

func TestStability(t *testing.T) {
	t.Parallel()

	oracle, invoker := newOracle(t, "go")
	var calls atomic.Int64
	invoker.Register("drifting", func(_ context.Context, _ []byte, stdout, _ io.Writer) int {
		node := value.ToWire(value.Int(1))
		payload := []byte{byte(calls.Add(1))}
		json.NewEncoder(stdout).Encode(Result{Stage: StageOK, Payload: payload, Original: node, Decoded: node})
		return 0
	})

	tests := []struct {
		name        string
		environment string
		value       *value.Value
		want        Stability
	}{
		{"deterministic codec", "go", value.Dict(value.Pair("a", value.Int(1))), StabilityStable},
		{"drifting payload", "drifting", value.Int(1), StabilityUnstable},
		{"encode failure", "go", value.Handle("lock"), StabilityUnknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			outcome := oracle.Stability(context.Background(), test.value, inProcess(test.environment), 4)
			if outcome.Stability != test.want {
				t.Errorf("Stability = %q, want %q", outcome.Stability, test.want)
			}
		})
	}
}

func TestWorkerRejectsUnreadableJob(t *testing.T) {
	t.Parallel()

	var output strings.Builder
	err := ServeWorker(strings.NewReader("{"), &output, pickle.Ogorek{}, "test")
	if err == nil {
		t.Fatal("ServeWorker accepted a truncated job")
	}
	if output.Len() != 0 {
		t.Errorf("ServeWorker wrote %q for an unreadable job", output.String())
	}
}

func TestWorkerConstructStage(t *testing.T) {
	t.Parallel()

	job := `{"protocol": 4, "value": {"k": "singleton", "v": "Nothing"}}`
	var output strings.Builder
	if err := ServeWorker(strings.NewReader(job), &output, pickle.Ogorek{}, "test"); err != nil {
		t.Fatalf("ServeWorker: %v", err)
	}
	var result Result
	if err := json.Unmarshal([]byte(output.String()), &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Stage != StageConstruct {
		t.Errorf("Stage = %q, want construct", result.Stage)
	}
	if result.Runtime != "test" {
		t.Errorf("Runtime = %q, want test", result.Runtime)
	}
}

// TestPythonHarness runs the embedded harness under a real interpreter
// when one is installed.
func TestPythonHarness(t *testing.T) {
	t.Parallel()

	interpreter, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not installed")
	}
	python := environment.Environment{Name: "python3", Kind: environment.KindPython, Command: []string{interpreter}}
	worker := inProcess("go")

	inProcessInvoker := environment.NewInProcess(clock.Real())
	inProcessInvoker.Register("go", WorkerHandler(pickle.Ogorek{}))
	router := environment.NewRouter(map[environment.Kind]environment.Invoker{
		environment.KindPython:    environment.NewSubprocess(clock.Real(), nil),
		environment.KindInProcess: inProcessInvoker,
	})
	oracle := New(Config{Invoker: router, Timeout: 30 * time.Second})

	agreeing := []*value.Value{
		value.Dict(value.Pair("a", value.Int(1)), value.Pair("b", value.Int(2))),
		value.FrozenSet(value.Int(1), value.Int(2), value.Int(3)),
		value.Tuple(value.Float(math.Copysign(0, -1)), value.Float(1e-300), value.Str("你好"), value.Bytes([]byte{0, 255})),
		value.Complex(3, 4),
		value.Global("builtins.len"),
		value.Reduced("builtins.range", value.Int(0), value.Int(5), value.Int(1)),
		value.Reduced("__main__.Coordinate", value.Int(3), value.Int(4)),
	}
	for _, v := range agreeing {
		fromPython := oracle.Evaluate(context.Background(), v, python, 3)
		fromGo := oracle.Evaluate(context.Background(), v, worker, 3)
		if !fromPython.OK {
			t.Errorf("python %s: %s: %s", v, fromPython.Kind, fromPython.Message)
			continue
		}
		if !fromPython.Equivalent {
			t.Errorf("python %s: decoded %s", v, fromPython.Canonical)
		}
		if fromPython.Fingerprint != fromGo.Fingerprint {
			t.Errorf("%s: python rendered %s, go rendered %s", v, fromPython.Canonical, fromGo.Canonical)
		}
	}

	// The interpreter decides how these reduce, so only its own round
	// trip is checked.
	for _, v := range []*value.Value{
		value.Reduced("pathlib.PurePosixPath", value.Str("/"), value.Str("tmp")),
		value.Reduced("os.stat_result", value.Tuple(value.Int(1), value.Int(2), value.Int(3), value.Int(4), value.Int(5),
			value.Int(6), value.Int(7), value.Int(8), value.Int(9), value.Int(10))),
	} {
		outcome := oracle.Evaluate(context.Background(), v, python, 2)
		if !outcome.OK || !outcome.Equivalent {
			t.Errorf("python %s: %s %s, decoded %s", v, outcome.Kind, outcome.Message, outcome.Canonical)
		}
		if !strings.Contains(outcome.Canonical, "(") || strings.HasPrefix(outcome.Canonical, "<opaque") {
			t.Errorf("python %s: decoded %s, want a reduced rendering", v, outcome.Canonical)
		}
	}

	recursive := oracle.Evaluate(context.Background(), value.Recursive(value.Int(1)), python, 4)
	if !recursive.OK || recursive.Canonical != "[1, [...]]" {
		t.Errorf("recursive list = %+v, want [1, [...]]", recursive)
	}

	socket := oracle.Evaluate(context.Background(), value.Handle("socket"), python, 4)
	if socket.Kind != KindEncodeError {
		t.Errorf("socket Kind = %s (%s), want %s", socket.Kind, socket.Message, KindEncodeError)
	}
}
