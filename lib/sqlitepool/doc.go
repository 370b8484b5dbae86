// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases with the pragmas every
// picklecompat archive uses.
//
// It is a thin layer over zombiezen.com/go/sqlite's sqlitex.Pool.
// Callers [Pool.Take] a connection, run SQL with sqlitex.Execute, and
// [Pool.Put] it back. A connection belongs to one goroutine between
// Take and Put.
//
// Every connection gets:
//
//   - journal_mode=WAL, so readers (the runs and compare commands) never
//     block the writer archiving a run.
//   - synchronous=NORMAL. A run is only archived after it completes,
//     and a lost archive can be regenerated from the same seed.
//   - busy_timeout=5000.
//   - foreign_keys=ON: outcome rows reference their run.
//   - temp_store=MEMORY.
//
// [Config.Schema], when set, is executed once by Open before the pool
// is returned, so every later connection sees the tables.
package sqlitepool
