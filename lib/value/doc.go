// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package value models the object graphs that flow through a
// compatibility run: the values the corpus generates, the values an
// environment reports back after decoding, and everything in between.
//
// A [Value] is a tagged node. Scalars carry their payload inline;
// containers hold pointers to child values, so a graph may share
// children or refer back to an ancestor (a list that contains itself).
// The model follows Python's pickle type lattice because pickle is the
// codec under test, but nothing here encodes or decodes pickle bytes.
//
// Two derived forms exist for every graph:
//
//   - [Canonical] renders a deterministic, repr-like string. Fingerprints
//     are digests of this string, so two graphs with equal renderings
//     are treated as the same logical value.
//   - [ToWire] and [FromWire] convert to and from [Node], the tree sent
//     to environments as JSON (and stored in corpus snapshots as CBOR).
//     Repeated containers become ref nodes so cycles survive the trip.
package value
