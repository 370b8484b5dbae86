// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package oracle runs one value through one environment and reduces
// the round trip to an [Outcome].
//
// The oracle never touches a pickle implementation directly. It sends
// a [Job] (protocol plus the value's wire tree) to the environment and
// reads back a [Result]: the encoded payload and descriptions of the
// original and decoded graphs, or the stage that failed. Python
// environments run the embedded [HarnessSource]; worker environments
// run [ServeWorker] over a Go [pickle.Codec].
//
// An Outcome carries two digests. The canonical fingerprint digests
// the decoded value's canonical rendering and is what environments are
// compared on. The raw fingerprint digests the payload bytes and
// drives the stability check, which re-encodes the same value and
// expects byte-identical output.
package oracle
