// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the binary entrypoint helper for
// picklecompat. [Fatal] is the one place raw output happens after the
// command tree returns: it reports the error on stderr when the
// structured logger may not be initialized, and turns it into the
// process exit code.
package process
