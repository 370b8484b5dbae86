// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pickle is the codec boundary: encode a [value.Value] to
// pickle bytes under a protocol, and decode pickle bytes back to a
// value. The oracle never looks inside the bytes; it only compares
// what comes back out.
//
// [Ogorek] implements [Codec] over github.com/kisielk/og-rek. It is
// the codec behind the worker environment, so a matrix can include a
// Go implementation of the format alongside CPython interpreters, and
// it is used by `picklecompat inspect` to decode stored payloads.
//
// Types og-rek has no native form for are written as reconstructor
// calls that CPython also understands: builtins.set, builtins.frozenset,
// builtins.dict (from a list of pairs, which keeps insertion order),
// builtins.complex, and for records a call of the record's class in
// __main__ with a dict of its fields. Graphs containing cycles, live
// handles, or opaque values fail with an [EncodeError].
package pickle
