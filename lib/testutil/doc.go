// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for picklecompat
// packages.
//
// [RequireReceive] and [RequireClosed] bound channel waits with a real
// timer so a hung run fails the test instead of the test binary. They
// are the only place in the test suite where wall-clock timeouts are
// used; everything else runs on lib/clock.
//
// [TempPath] returns a path inside a per-test directory for files a
// test expects the code under test to create, such as SQLite archives
// and report files. [ReadFile] reads such a file back.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as run IDs in a shared archive.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no picklecompat-internal dependencies.
package testutil
