// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fingerprint reduces outcomes to fixed-size digests.
//
// Each successful cell carries two fingerprints. The canonical
// fingerprint digests the UTF-8 bytes of [value.Canonical] applied to
// the decoded value; it is what cells are compared by across
// environments and protocols, because the byte stream is allowed to
// differ between protocol revisions while the logical value is not.
// The raw fingerprint digests the encoded bytes themselves and is used
// only to check that one environment encodes the same value
// identically twice.
//
// Three algorithms are available: SHA-256 (the canonical default),
// BLAKE3 (the raw default, fast on the multi-megabyte payloads the
// corpus produces) and BLAKE2b-256. All produce 32 bytes.
//
// A [Registry] watches every canonical digest in a run. Two different
// renderings with the same digest would make comparisons meaningless,
// so the registry reports that as a [CollisionError] and the run stops.
package fingerprint
