// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/picklecompat/lib/resultstore"
)

// storeParams is embedded by commands that read the run archive.
type storeParams struct {
	configParams
	Store string `json:"store" flag:"store" desc:"SQLite run archive (default: output.store from the config)"`
}

// open opens the archive named by --store, falling back to the
// configured output.store.
func (p *storeParams) open(ctx context.Context, logger *slog.Logger) (*resultstore.Store, error) {
	path := p.Store
	if path == "" {
		cfg, err := p.load()
		if err != nil {
			return nil, err
		}
		path = cfg.Output.Store
	}
	if path == "" {
		return nil, fmt.Errorf("no run archive: pass --store or set output.store in the config")
	}
	return resultstore.Open(ctx, path, logger)
}
