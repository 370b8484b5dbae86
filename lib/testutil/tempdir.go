// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempPath returns name joined to a fresh per-test directory. The file
// itself is not created; the directory is removed when the test
// completes.
//
//	store, err := resultstore.Open(ctx, testutil.TempPath(t, "runs.db"), nil)
func TempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// ReadFile returns the contents of path, failing the test if it cannot
// be read.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return data
}
