// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package corpus generates the values a compatibility run evaluates.
//
// A corpus has two parts. The boundary partition is a fixed,
// hand-enumerated list covering each equivalence class of pickle's
// type lattice: integer and float edges, text and binary sizes,
// container size tiers, records, recursion, singletons, and handles
// that cannot be pickled at all. The random part is a seeded stream of
// bounded-depth object trees drawn from a weighted type distribution.
//
// Every [TestValue] is identified by its position in the corpus, never
// by structural equality: two equal trees generated independently are
// tracked as separate values. The same [Config] always produces the
// same corpus, and generation never fails.
package corpus
