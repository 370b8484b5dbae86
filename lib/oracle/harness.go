// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package oracle

import (
	_ "embed"

	"github.com/bureau-foundation/picklecompat/lib/environment"
)

// HarnessSource is the Python program run by python environments. It
// is passed with -c so nothing is written to disk, which also makes it
// the __main__ module that pickle resolves record classes and
// __main__.top_level_func against.
//
//go:embed harness.py
var HarnessSource string

// programArgs returns the arguments appended to env.Command.
func programArgs(env environment.Environment) []string {
	if env.Kind == environment.KindPython {
		return []string{"-c", HarnessSource}
	}
	return nil
}
