// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package report folds a finished matrix into a [Summary] and writes
// it through a [Sink].
//
// [Aggregate] is a pure function of the run result: the same result
// always produces the same summary, with environments and protocols in
// configured order, classes in corpus order, and cells enumerated
// value by value. Every configured cell appears exactly once, failures
// included.
package report
