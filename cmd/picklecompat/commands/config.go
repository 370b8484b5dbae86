// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"log/slog"
	"os"

	"github.com/bureau-foundation/picklecompat/lib/clock"
	"github.com/bureau-foundation/picklecompat/lib/config"
	"github.com/bureau-foundation/picklecompat/lib/environment"
	"github.com/bureau-foundation/picklecompat/lib/oracle"
	"github.com/bureau-foundation/picklecompat/lib/pickle"
)

// configParams is embedded by commands that read the run
// configuration.
type configParams struct {
	Config string `json:"config" flag:"config,c" desc:"config file (default: $PICKLECOMPAT_CONFIG, then built-in defaults)"`
}

// load resolves the configuration: --config, then PICKLECOMPAT_CONFIG,
// then [config.Default].
func (p *configParams) load() (*config.Config, error) {
	if p.Config != "" {
		return config.LoadFile(p.Config)
	}
	if os.Getenv(config.EnvVar) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// newInvoker routes python and worker environments to subprocesses and
// serves every in-process environment with the og-rek worker.
func newInvoker(environments []environment.Environment, clk clock.Clock, logger *slog.Logger) *environment.Router {
	inProcess := environment.NewInProcess(clk)
	for _, env := range environments {
		if env.Kind == environment.KindInProcess {
			inProcess.Register(env.Name, oracle.WorkerHandler(pickle.Ogorek{}))
		}
	}
	subprocess := environment.NewSubprocess(clk, logger)
	return environment.NewRouter(map[environment.Kind]environment.Invoker{
		environment.KindPython:    subprocess,
		environment.KindWorker:    subprocess,
		environment.KindInProcess: inProcess,
	})
}
