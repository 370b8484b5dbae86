// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by every package
// that persists structured data: corpus snapshots and the value trees
// kept in the result store.
//
// JSON is reserved for surfaces a person or another runtime reads:
// environment job and result messages, CLI --json output, and the JSON
// report sink. CBOR is used for artifacts this tool writes for itself.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same corpus always produces the same snapshot bytes and snapshots can
// be compared with cmp(1).
//
//	data, err := codec.Marshal(tree)
//	err = codec.Unmarshal(data, &tree)
//
//	encoder := codec.NewEncoder(file)
//	decoder := codec.NewDecoder(file)
//
// Types that cross both formats (for example [value.Node]) carry only
// `json` tags; fxamacker/cbor falls back to them when `cbor` tags are
// absent.
package codec
