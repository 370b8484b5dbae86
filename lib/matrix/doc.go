// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package matrix drives every corpus value through every configured
// environment and protocol.
//
// A run validates its [Config], probes each environment once, and then
// feeds cells to a bounded pool of workers. Cells for one value are
// dispatched together; when the last cell of a value lands in the
// [Table], the value is compared across axes immediately and the
// optional [Observer] is told. Environments that fail the probe never
// see a cell: their rows are filled with environment_unavailable
// outcomes up front.
//
// Per-cell failures are outcomes, not errors. Run returns an error only
// for invalid configuration, cancellation, or a fingerprint collision.
package matrix
