// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	savedCommit, savedDirty, savedTime := GitCommit, GitDirty, BuildTime
	t.Cleanup(func() { GitCommit, GitDirty, BuildTime = savedCommit, savedDirty, savedTime })

	GitCommit, GitDirty, BuildTime = "abc1234", "true", "2026-05-04T12:00:00Z"
	if got, want := Info(), Version+" (abc1234-dirty, 2026-05-04T12:00:00Z)"; got != want {
		t.Errorf("Info() = %q, want %q", got, want)
	}

	GitDirty = "false"
	if got := Info(); strings.Contains(got, "dirty") {
		t.Errorf("Info() = %q, want no dirty marker", got)
	}
}

func TestFullNamesCodec(t *testing.T) {
	full := Full()
	for _, fragment := range []string{"Go: go", "Platform: ", "og-rek: "} {
		if !strings.Contains(full, fragment) {
			t.Errorf("Full() = %q, missing %q", full, fragment)
		}
	}
}

func TestDependencyUnknownModule(t *testing.T) {
	if got := Dependency("example.com/not/linked"); got != "unknown" {
		t.Errorf("Dependency() = %q, want unknown", got)
	}
}
