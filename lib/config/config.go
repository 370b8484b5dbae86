// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/picklecompat/lib/corpus"
	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/fingerprint"
	"github.com/bureau-foundation/picklecompat/lib/matrix"
)

// EnvVar names the environment variable [Load] reads the config path
// from.
const EnvVar = "PICKLECOMPAT_CONFIG"

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Color modes for the text report.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config is the complete configuration of one run. It is static for
// the run's duration.
type Config struct {
	// Environments are the runtimes under test, in report order.
	Environments []environment.Environment `yaml:"environments" json:"environments"`

	// Protocols are the pickle protocol revisions exercised in every
	// environment.
	Protocols []int `yaml:"protocols" json:"protocols"`

	Corpus CorpusConfig `yaml:"corpus" json:"corpus"`

	// Timeout bounds each oracle invocation.
	// Default: 10s
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// Parallelism is the number of cells evaluated concurrently. Zero
	// means one.
	Parallelism int `yaml:"parallelism" json:"parallelism"`

	// Stability evaluates every cell twice and flags cells whose
	// encoded bytes differ between the two.
	Stability bool `yaml:"stability" json:"stability"`

	Fingerprint FingerprintConfig `yaml:"fingerprint" json:"fingerprint"`

	Output OutputConfig `yaml:"output" json:"output"`
}

// CorpusConfig selects the values under test.
type CorpusConfig struct {
	// Boundary includes the curated boundary partition.
	// Default: true
	Boundary bool `yaml:"boundary" json:"boundary"`

	// Random is the number of random trees appended after the
	// boundary partition.
	// Default: 50
	Random int `yaml:"random" json:"random"`

	// MaxDepth bounds random tree nesting.
	// Default: 4
	MaxDepth int `yaml:"max_depth" json:"max_depth"`

	// Seed fixes the random generator. When nil, a seed is drawn at
	// run start and recorded in the report.
	Seed *uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Snapshot, when set, replaces generation with a corpus snapshot
	// file written by `picklecompat corpus snapshot`.
	Snapshot string `yaml:"snapshot,omitempty" json:"snapshot,omitempty"`
}

// FingerprintConfig names the digest algorithms.
type FingerprintConfig struct {
	// Canonical digests the canonical rendering of decoded values.
	// Default: sha256
	Canonical string `yaml:"canonical" json:"canonical"`

	// Raw digests encoded payload bytes for stability checks.
	// Default: blake3
	Raw string `yaml:"raw" json:"raw"`
}

// OutputConfig says where a run's results go. Paths are run-scoped;
// nothing is written to a fixed location.
type OutputConfig struct {
	// Report is the report file. Empty or "-" means stdout.
	Report string `yaml:"report" json:"report"`

	// Format is "text" or "json".
	// Default: text
	Format string `yaml:"format" json:"format"`

	// Color is "auto", "always", or "never". Auto colors only when the
	// report goes to a terminal.
	// Default: auto
	Color string `yaml:"color" json:"color"`

	// Cells lists every cell in the text report, not only summaries.
	Cells bool `yaml:"cells" json:"cells"`

	// Store is the SQLite archive the run is written to. Empty
	// disables archiving.
	Store string `yaml:"store" json:"store"`

	// KeepPayloads archives every successful cell's encoded bytes.
	KeepPayloads bool `yaml:"keep_payloads" json:"keep_payloads"`
}

// Duration is a time.Duration written as a string such as "10s".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns the default configuration: the python3 on PATH and
// this binary's own og-rek worker, across every protocol.
func Default() *Config {
	worker := "picklecompat"
	if executable, err := os.Executable(); err == nil {
		worker = executable
	}

	return &Config{
		Environments: []environment.Environment{
			{
				Name:    "python3",
				Kind:    environment.KindPython,
				Command: []string{"python3"},
				Env:     map[string]string{"PYTHONHASHSEED": "0"},
			},
			{
				Name:    "go-ogorek",
				Kind:    environment.KindWorker,
				Command: []string{worker, "worker"},
			},
		},
		Protocols: []int{0, 1, 2, 3, 4, 5},
		Corpus: CorpusConfig{
			Boundary: true,
			Random:   50,
			MaxDepth: 4,
		},
		Timeout:     Duration(10 * time.Second),
		Parallelism: 4,
		Fingerprint: FingerprintConfig{
			Canonical: string(fingerprint.SHA256),
			Raw:       string(fingerprint.BLAKE3),
		},
		Output: OutputConfig{
			Format: FormatText,
			Color:  ColorAuto,
		},
	}
}

// Load loads configuration from the file named by PICKLECOMPAT_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a picklecompat config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over [Default]. A list in
// the file replaces the default list entirely.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) expandVariables() {
	for index := range c.Environments {
		env := &c.Environments[index]
		for position, arg := range env.Command {
			env.Command[position] = expandVars(arg)
		}
		for name, value := range env.Env {
			env.Env[name] = expandVars(value)
		}
	}
	c.Corpus.Snapshot = expandVars(c.Corpus.Snapshot)
	c.Output.Report = expandVars(c.Output.Report)
	c.Output.Store = expandVars(c.Output.Store)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the process
// environment. An unset or empty variable without a default expands to
// the empty string.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	messages := make([]string, len(e.Problems))
	for index, problem := range e.Problems {
		messages[index] = problem.Error()
	}
	return "invalid configuration: " + strings.Join(messages, "; ")
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error { return e.Problems }

// Validate checks the configuration. It returns a *ValidationError
// naming every problem, not only the first.
func (c *Config) Validate() error {
	var errs []error

	if err := c.MatrixConfig(0).Validate(); err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			errs = append(errs, joined.Unwrap()...)
		} else {
			errs = append(errs, err)
		}
	}

	if !c.Corpus.Boundary && c.Corpus.Random == 0 && c.Corpus.Snapshot == "" {
		errs = append(errs, errors.New("corpus is empty: enable corpus.boundary, set corpus.random, or name a corpus.snapshot"))
	}
	if c.Corpus.Random < 0 {
		errs = append(errs, fmt.Errorf("corpus.random must not be negative, got %d", c.Corpus.Random))
	}
	if c.Corpus.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("corpus.max_depth must not be negative, got %d", c.Corpus.MaxDepth))
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", time.Duration(c.Timeout)))
	}

	if _, err := fingerprint.ParseAlgorithm(c.Fingerprint.Canonical); err != nil {
		errs = append(errs, fmt.Errorf("fingerprint.canonical: %w", err))
	}
	if _, err := fingerprint.ParseAlgorithm(c.Fingerprint.Raw); err != nil {
		errs = append(errs, fmt.Errorf("fingerprint.raw: %w", err))
	}

	if c.Output.Format != FormatText && c.Output.Format != FormatJSON {
		errs = append(errs, fmt.Errorf("output.format must be %q or %q, got %q", FormatText, FormatJSON, c.Output.Format))
	}
	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("output.color must be one of auto, always, never; got %q", c.Output.Color))
	}

	if len(errs) > 0 {
		return &ValidationError{Problems: errs}
	}
	return nil
}

// MatrixConfig resolves the matrix settings for a run with the given
// seed.
func (c *Config) MatrixConfig(seed uint64) matrix.Config {
	return matrix.Config{
		Environments: c.Environments,
		Protocols:    c.Protocols,
		Parallelism:  c.Parallelism,
		Stability:    c.Stability,
		Seed:         seed,
	}
}

// GeneratorConfig resolves the corpus generator settings for a run
// with the given seed. It ignores Snapshot; callers load snapshots
// themselves.
func (c *Config) GeneratorConfig(seed uint64) corpus.Config {
	return corpus.Config{
		Boundary: c.Corpus.Boundary,
		Random:   c.Corpus.Random,
		MaxDepth: c.Corpus.MaxDepth,
		Seed:     seed,
	}
}

// Algorithms returns the parsed canonical and raw fingerprint
// algorithms. It assumes the configuration has been validated.
func (c *Config) Algorithms() (canonical, raw fingerprint.Algorithm) {
	canonical, _ = fingerprint.ParseAlgorithm(c.Fingerprint.Canonical)
	raw, _ = fingerprint.ParseAlgorithm(c.Fingerprint.Raw)
	return canonical, raw
}
