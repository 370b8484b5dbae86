// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/fingerprint"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if len(cfg.Environments) != 2 {
		t.Fatalf("expected 2 default environments, got %d", len(cfg.Environments))
	}
	if cfg.Environments[0].Kind != environment.KindPython || cfg.Environments[1].Kind != environment.KindWorker {
		t.Errorf("expected python then worker, got %s then %s", cfg.Environments[0].Kind, cfg.Environments[1].Kind)
	}
	if got := cfg.Environments[1].Command; len(got) != 2 || got[1] != "worker" {
		t.Errorf("expected worker command to end in \"worker\", got %v", got)
	}
	if time.Duration(cfg.Timeout) != 10*time.Second {
		t.Errorf("expected timeout=10s, got %s", time.Duration(cfg.Timeout))
	}
	canonical, raw := cfg.Algorithms()
	if canonical != fingerprint.SHA256 || raw != fingerprint.BLAKE3 {
		t.Errorf("expected sha256/blake3, got %s/%s", canonical, raw)
	}
	if cfg.Corpus.Seed != nil {
		t.Errorf("expected no default seed, got %d", *cfg.Corpus.Seed)
	}
}

func TestLoad_RequiresConfigVariable(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when PICKLECOMPAT_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "PICKLECOMPAT_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_WithConfigVariable(t *testing.T) {
	configPath := writeConfig(t, "picklecompat.yaml", `
protocols: [2, 3]
parallelism: 8
`)
	t.Setenv(EnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(cfg.Protocols) != 2 || cfg.Protocols[1] != 3 {
		t.Errorf("expected protocols=[2 3], got %v", cfg.Protocols)
	}
	if cfg.Parallelism != 8 {
		t.Errorf("expected parallelism=8, got %d", cfg.Parallelism)
	}
	if len(cfg.Environments) != 2 {
		t.Errorf("expected default environments to survive, got %d", len(cfg.Environments))
	}
}

func TestLoadFile_YAML(t *testing.T) {
	configPath := writeConfig(t, "picklecompat.yaml", `
environments:
  - name: py3.8
    kind: python
    command: [/opt/python3.8/bin/python3]
    env:
      PYTHONHASHSEED: "0"
  - name: py3.11
    kind: python
    command: [python3.11]

protocols: [4, 5]

corpus:
  boundary: false
  random: 200
  max_depth: 6
  seed: 18446744073709551615

timeout: 2500ms
stability: true

fingerprint:
  canonical: blake2b
  raw: sha256

output:
  report: report.json
  format: json
  color: never
  store: runs.db
  keep_payloads: true
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if len(cfg.Environments) != 2 {
		t.Fatalf("expected 2 environments, got %d", len(cfg.Environments))
	}
	py38 := cfg.Environments[0]
	if py38.Name != "py3.8" || py38.Command[0] != "/opt/python3.8/bin/python3" || py38.Env["PYTHONHASHSEED"] != "0" {
		t.Errorf("unexpected first environment: %+v", py38)
	}
	if cfg.Corpus.Boundary || cfg.Corpus.Random != 200 || cfg.Corpus.MaxDepth != 6 {
		t.Errorf("unexpected corpus config: %+v", cfg.Corpus)
	}
	if cfg.Corpus.Seed == nil || *cfg.Corpus.Seed != 18446744073709551615 {
		t.Errorf("expected seed=2^64-1, got %v", cfg.Corpus.Seed)
	}
	if time.Duration(cfg.Timeout) != 2500*time.Millisecond {
		t.Errorf("expected timeout=2.5s, got %s", time.Duration(cfg.Timeout))
	}
	if !cfg.Stability {
		t.Error("expected stability=true")
	}
	canonical, raw := cfg.Algorithms()
	if canonical != fingerprint.BLAKE2b || raw != fingerprint.SHA256 {
		t.Errorf("expected blake2b/sha256, got %s/%s", canonical, raw)
	}
	if cfg.Output.Format != FormatJSON || cfg.Output.Color != ColorNever || !cfg.Output.KeepPayloads {
		t.Errorf("unexpected output config: %+v", cfg.Output)
	}

	matrixConfig := cfg.MatrixConfig(42)
	if matrixConfig.Seed != 42 || !matrixConfig.Stability || len(matrixConfig.Axes()) != 4 {
		t.Errorf("unexpected matrix config: %+v", matrixConfig)
	}
	generator := cfg.GeneratorConfig(42)
	if generator.Boundary || generator.Random != 200 || generator.Seed != 42 {
		t.Errorf("unexpected generator config: %+v", generator)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	configPath := writeConfig(t, "picklecompat.jsonc", `{
	// Only the worker, at the protocols og-rek writes natively.
	"environments": [
		{"name": "go", "kind": "worker", "command": ["picklecompat", "worker"]},
	],
	"protocols": [2, 3, 4],
	"timeout": "30s",
	"corpus": {"random": 10}, /* boundary stays on */
}`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(cfg.Environments) != 1 || cfg.Environments[0].Name != "go" {
		t.Errorf("unexpected environments: %+v", cfg.Environments)
	}
	if time.Duration(cfg.Timeout) != 30*time.Second {
		t.Errorf("expected timeout=30s, got %s", time.Duration(cfg.Timeout))
	}
	if !cfg.Corpus.Boundary || cfg.Corpus.Random != 10 {
		t.Errorf("unexpected corpus config: %+v", cfg.Corpus)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
	if _, err := LoadFile(writeConfig(t, "bad.yaml", "timeout: soon\n")); err == nil {
		t.Error("expected error for unparseable timeout")
	}
	if _, err := LoadFile(writeConfig(t, "bad.json", `{"protocols": "all"}`)); err == nil {
		t.Error("expected error for mistyped protocols")
	}
}

func TestVariableExpansion(t *testing.T) {
	t.Setenv("PYTHON_ROOT", "/opt/python")
	t.Setenv("RUN_DIR", "")

	configPath := writeConfig(t, "picklecompat.yaml", `
environments:
  - name: py
    kind: python
    command: ["${PYTHON_ROOT}/bin/python3", "-X", "${PYTHON_MODE:-dev}"]
    env:
      PYTHONPATH: ${PYTHON_ROOT}/lib
output:
  store: ${RUN_DIR:-/tmp}/runs.db
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	command := cfg.Environments[0].Command
	if command[0] != "/opt/python/bin/python3" || command[2] != "dev" {
		t.Errorf("unexpected expanded command: %v", command)
	}
	if got := cfg.Environments[0].Env["PYTHONPATH"]; got != "/opt/python/lib" {
		t.Errorf("expected PYTHONPATH=/opt/python/lib, got %s", got)
	}
	if cfg.Output.Store != "/tmp/runs.db" {
		t.Errorf("expected store=/tmp/runs.db, got %s", cfg.Output.Store)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   []string
	}{
		{
			name:   "no environments",
			modify: func(c *Config) { c.Environments = nil },
			want:   []string{"no environments configured"},
		},
		{
			name:   "bad protocol",
			modify: func(c *Config) { c.Protocols = []int{6} },
			want:   []string{"invalid protocol 6"},
		},
		{
			name: "empty corpus",
			modify: func(c *Config) {
				c.Corpus.Boundary = false
				c.Corpus.Random = 0
			},
			want: []string{"corpus is empty"},
		},
		{
			name:   "zero timeout",
			modify: func(c *Config) { c.Timeout = 0 },
			want:   []string{"timeout must be positive"},
		},
		{
			name:   "unknown algorithm",
			modify: func(c *Config) { c.Fingerprint.Raw = "md5" },
			want:   []string{"fingerprint.raw"},
		},
		{
			name: "several problems",
			modify: func(c *Config) {
				c.Output.Format = "html"
				c.Output.Color = "sometimes"
				c.Corpus.MaxDepth = -1
			},
			want: []string{"output.format", "output.color", "corpus.max_depth"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)

			err := cfg.Validate()
			var validationError *ValidationError
			if !errors.As(err, &validationError) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(validationError.Problems) != len(test.want) {
				t.Errorf("expected %d problems, got %d: %v", len(test.want), len(validationError.Problems), err)
			}
			for _, fragment := range test.want {
				if !strings.Contains(err.Error(), fragment) {
					t.Errorf("expected error to mention %q, got %v", fragment, err)
				}
			}
		})
	}
}
