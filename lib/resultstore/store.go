// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package resultstore archives finished runs in SQLite so they can be
// listed, inspected, and compared later.
//
// A run is written once, in a single IMMEDIATE transaction, after the
// matrix completes; the archive never feeds back into a running
// matrix. Each cell is one row keyed by (run_id, value_index,
// environment, protocol), so a duplicate outcome is rejected by the
// primary key. Corpus values are stored as CBOR wire trees and encoded
// payloads, when kept, are compressed with zstd or lz4.
package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/picklecompat/lib/codec"
	"github.com/bureau-foundation/picklecompat/lib/compare"
	"github.com/bureau-foundation/picklecompat/lib/corpus"
	"github.com/bureau-foundation/picklecompat/lib/fingerprint"
	"github.com/bureau-foundation/picklecompat/lib/matrix"
	"github.com/bureau-foundation/picklecompat/lib/oracle"
	"github.com/bureau-foundation/picklecompat/lib/sqlitepool"
	"github.com/bureau-foundation/picklecompat/lib/value"
)

var (
	// ErrRunNotFound is returned when no run matches an ID or prefix.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRun is returned when an ID prefix matches several
	// runs.
	ErrAmbiguousRun = errors.New("run ID prefix is ambiguous")

	// ErrNoPayload is returned for cells whose payload was not kept.
	ErrNoPayload = errors.New("payload not stored")
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	started      TEXT NOT NULL,
	duration     INTEGER NOT NULL,
	seed         INTEGER NOT NULL,
	environments TEXT NOT NULL,
	protocols    TEXT NOT NULL,
	value_count  INTEGER NOT NULL,
	agree        INTEGER NOT NULL,
	diverge      INTEGER NOT NULL,
	insufficient INTEGER NOT NULL,
	stability    INTEGER NOT NULL,
	version      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_values (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	value_index INTEGER NOT NULL,
	label       TEXT NOT NULL,
	class       TEXT NOT NULL,
	tree        BLOB NOT NULL,
	status      TEXT NOT NULL,
	PRIMARY KEY (run_id, value_index)
);

CREATE TABLE IF NOT EXISTS outcomes (
	run_id              TEXT NOT NULL REFERENCES runs(id),
	value_index         INTEGER NOT NULL,
	environment         TEXT NOT NULL,
	protocol            INTEGER NOT NULL,
	ok                  INTEGER NOT NULL,
	kind                TEXT NOT NULL,
	message             TEXT NOT NULL,
	fingerprint         TEXT NOT NULL,
	raw_fingerprint     TEXT NOT NULL,
	equivalent          INTEGER NOT NULL,
	encoded_size        INTEGER NOT NULL,
	runtime             TEXT NOT NULL,
	duration            INTEGER NOT NULL,
	stability           TEXT NOT NULL,
	payload             BLOB,
	payload_compression TEXT,
	PRIMARY KEY (run_id, value_index, environment, protocol)
);

CREATE INDEX IF NOT EXISTS run_values_by_label ON run_values (run_id, label);
`

// Store is an open archive. It is safe for concurrent use.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

// Open opens or creates the archive at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := sqlitepool.Open(ctx, sqlitepool.Config{
		Path:   path,
		Schema: schema,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("result store: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the archive.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Run is the archived header of one run.
type Run struct {
	ID           string        `json:"id"`
	Started      time.Time     `json:"started"`
	Duration     time.Duration `json:"duration"`
	Seed         uint64        `json:"seed"`
	Environments []string      `json:"environments"`
	Protocols    []int         `json:"protocols"`
	Values       int           `json:"values"`
	Agree        int           `json:"agree"`
	Diverge      int           `json:"diverge"`
	Insufficient int           `json:"insufficient"`
	Stability    bool          `json:"stability"`

	// Version is the picklecompat build that produced the run.
	Version string `json:"version"`
}

// WriteOptions controls what WriteRun archives.
type WriteOptions struct {
	// KeepPayloads stores every successful cell's encoded bytes.
	KeepPayloads bool

	Version string
}

// WriteRun archives result under id.
func (s *Store) WriteRun(ctx context.Context, id string, result *matrix.Result, options WriteOptions) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("result store: write run: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("result store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	if err = insertRun(conn, id, result, options); err != nil {
		return err
	}
	for _, testValue := range result.Corpus {
		if err = insertValue(conn, id, testValue, result.Comparisons[testValue.Index].Status); err != nil {
			return err
		}
		for _, axis := range result.Axes {
			cell := result.Cell(testValue.Index, axis)
			outcome, ok := result.Table.Outcome(cell)
			if !ok {
				continue
			}
			if err = insertOutcome(conn, id, cell, outcome, options.KeepPayloads); err != nil {
				return err
			}
		}
	}

	s.logger.Info("run archived",
		"run_id", id,
		"values", len(result.Corpus),
		"cells", result.Table.Len(),
		"path", s.pool.Path(),
	)
	return nil
}

func insertRun(conn *sqlite.Conn, id string, result *matrix.Result, options WriteOptions) error {
	names := make([]string, len(result.Environments))
	for index, env := range result.Environments {
		names[index] = env.Name
	}
	environments, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("result store: marshal environments: %w", err)
	}
	protocols, err := json.Marshal(result.Protocols)
	if err != nil {
		return fmt.Errorf("result store: marshal protocols: %w", err)
	}

	var agree, diverge, insufficient int
	for _, report := range result.Comparisons {
		switch report.Status {
		case compare.StatusAgree:
			agree++
		case compare.StatusDiverge:
			diverge++
		default:
			insufficient++
		}
	}

	err = sqlitex.Execute(conn, `INSERT INTO runs
		(id, started, duration, seed, environments, protocols, value_count,
		 agree, diverge, insufficient, stability, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			id,
			result.Started.UTC().Format(time.RFC3339Nano),
			int64(result.Duration),
			int64(result.Seed),
			string(environments),
			string(protocols),
			len(result.Corpus),
			agree,
			diverge,
			insufficient,
			boolInt(result.Stability),
			options.Version,
		},
	})
	if err != nil {
		return fmt.Errorf("result store: insert run %s: %w", id, err)
	}
	return nil
}

func insertValue(conn *sqlite.Conn, runID string, testValue corpus.TestValue, status compare.Status) error {
	tree, err := codec.Marshal(value.ToWire(testValue.Value))
	if err != nil {
		return fmt.Errorf("result store: encode value %d: %w", testValue.Index, err)
	}
	err = sqlitex.Execute(conn, `INSERT INTO run_values
		(run_id, value_index, label, class, tree, status)
		VALUES (?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{runID, testValue.Index, testValue.Label, testValue.Class, tree, string(status)},
	})
	if err != nil {
		return fmt.Errorf("result store: insert value %d: %w", testValue.Index, err)
	}
	return nil
}

func insertOutcome(conn *sqlite.Conn, runID string, cell matrix.Cell, outcome oracle.Outcome, keepPayload bool) error {
	var payload, compression any
	if keepPayload && len(outcome.Payload) > 0 {
		tag, data := compressPayload(outcome.Payload)
		payload, compression = data, string(tag)
	}
	err := sqlitex.Execute(conn, `INSERT INTO outcomes
		(run_id, value_index, environment, protocol, ok, kind, message,
		 fingerprint, raw_fingerprint, equivalent, encoded_size, runtime,
		 duration, stability, payload, payload_compression)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			runID,
			cell.Value,
			cell.Environment,
			cell.Protocol,
			boolInt(outcome.OK),
			string(outcome.Kind),
			outcome.Message,
			outcome.Fingerprint.String(),
			outcome.RawFingerprint.String(),
			boolInt(outcome.Equivalent),
			outcome.EncodedSize,
			outcome.Runtime,
			int64(outcome.Duration),
			string(outcome.Stability),
			payload,
			compression,
		},
	})
	if err != nil {
		return fmt.Errorf("result store: insert outcome %s: %w", cell, err)
	}
	return nil
}

const runColumns = `id, started, duration, seed, environments, protocols,
	value_count, agree, diverge, insufficient, stability, version`

// Runs lists archived runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("result store: list runs: %w", err)
	}
	defer s.pool.Put(conn)

	runs := []Run{}
	err = sqlitex.Execute(conn, `SELECT `+runColumns+` FROM runs ORDER BY started DESC, id`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			run, err := scanRun(stmt)
			if err != nil {
				return err
			}
			runs = append(runs, run)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("result store: list runs: %w", err)
	}
	return runs, nil
}

// Run returns the run whose ID equals or starts with idOrPrefix.
func (s *Store) Run(ctx context.Context, idOrPrefix string) (Run, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("result store: find run: %w", err)
	}
	defer s.pool.Put(conn)
	return findRun(conn, idOrPrefix)
}

func findRun(conn *sqlite.Conn, idOrPrefix string) (Run, error) {
	if idOrPrefix == "" {
		return Run{}, fmt.Errorf("%w: empty run ID", ErrRunNotFound)
	}
	var matches []Run
	err := sqlitex.Execute(conn, `SELECT `+runColumns+` FROM runs
		WHERE substr(id, 1, ?) = ? ORDER BY id LIMIT 2`, &sqlitex.ExecOptions{
		Args: []any{len(idOrPrefix), idOrPrefix},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			run, err := scanRun(stmt)
			if err != nil {
				return err
			}
			matches = append(matches, run)
			return nil
		},
	})
	if err != nil {
		return Run{}, fmt.Errorf("result store: find run %s: %w", idOrPrefix, err)
	}
	for _, run := range matches {
		if run.ID == idOrPrefix {
			return run, nil
		}
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	}
	return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousRun, idOrPrefix)
}

func scanRun(stmt *sqlite.Stmt) (Run, error) {
	run := Run{
		ID:           stmt.ColumnText(0),
		Duration:     time.Duration(stmt.ColumnInt64(2)),
		Seed:         uint64(stmt.ColumnInt64(3)),
		Values:       stmt.ColumnInt(6),
		Agree:        stmt.ColumnInt(7),
		Diverge:      stmt.ColumnInt(8),
		Insufficient: stmt.ColumnInt(9),
		Stability:    stmt.ColumnInt(10) != 0,
		Version:      stmt.ColumnText(11),
	}
	started, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(1))
	if err != nil {
		return Run{}, fmt.Errorf("run %s: parse start time: %w", run.ID, err)
	}
	run.Started = started
	if err := json.Unmarshal([]byte(stmt.ColumnText(4)), &run.Environments); err != nil {
		return Run{}, fmt.Errorf("run %s: unmarshal environments: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(stmt.ColumnText(5)), &run.Protocols); err != nil {
		return Run{}, fmt.Errorf("run %s: unmarshal protocols: %w", run.ID, err)
	}
	return run, nil
}

// StoredOutcome is one archived cell.
type StoredOutcome struct {
	matrix.Cell
	Label       string         `json:"label"`
	Class       string         `json:"class"`
	Outcome     oracle.Outcome `json:"outcome"`
	Compression Compression    `json:"compression,omitempty"`
}

// Outcomes returns every archived cell of a run ordered by value
// index, environment, and protocol. Payloads are not loaded.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]StoredOutcome, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("result store: outcomes: %w", err)
	}
	defer s.pool.Put(conn)

	run, err := findRun(conn, runID)
	if err != nil {
		return nil, err
	}

	outcomes := []StoredOutcome{}
	err = sqlitex.Execute(conn, `SELECT o.value_index, o.environment, o.protocol,
			v.label, v.class, o.ok, o.kind, o.message, o.fingerprint,
			o.raw_fingerprint, o.equivalent, o.encoded_size, o.runtime,
			o.duration, o.stability, o.payload_compression
		FROM outcomes o JOIN run_values v
			ON v.run_id = o.run_id AND v.value_index = o.value_index
		WHERE o.run_id = ?
		ORDER BY o.value_index, o.environment, o.protocol`, &sqlitex.ExecOptions{
		Args: []any{run.ID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stored, err := scanOutcome(stmt)
			if err != nil {
				return err
			}
			outcomes = append(outcomes, stored)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("result store: outcomes of %s: %w", run.ID, err)
	}
	return outcomes, nil
}

func scanOutcome(stmt *sqlite.Stmt) (StoredOutcome, error) {
	stored := StoredOutcome{
		Cell: matrix.Cell{
			Value:       stmt.ColumnInt(0),
			Environment: stmt.ColumnText(1),
			Protocol:    stmt.ColumnInt(2),
		},
		Label: stmt.ColumnText(3),
		Class: stmt.ColumnText(4),
		Outcome: oracle.Outcome{
			OK:          stmt.ColumnInt(5) != 0,
			Kind:        oracle.ErrorKind(stmt.ColumnText(6)),
			Message:     stmt.ColumnText(7),
			Equivalent:  stmt.ColumnInt(10) != 0,
			EncodedSize: stmt.ColumnInt(11),
			Runtime:     stmt.ColumnText(12),
			Duration:    time.Duration(stmt.ColumnInt64(13)),
			Stability:   oracle.Stability(stmt.ColumnText(14)),
		},
	}
	if !stmt.ColumnIsNull(15) {
		stored.Compression = Compression(stmt.ColumnText(15))
	}
	var err error
	if stored.Outcome.Fingerprint, err = fingerprint.Parse(stmt.ColumnText(8)); err != nil {
		return StoredOutcome{}, err
	}
	if stored.Outcome.RawFingerprint, err = fingerprint.Parse(stmt.ColumnText(9)); err != nil {
		return StoredOutcome{}, err
	}
	return stored, nil
}

// Payload returns the decompressed encoded bytes of one cell.
func (s *Store) Payload(ctx context.Context, runID string, cell matrix.Cell) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("result store: payload: %w", err)
	}
	defer s.pool.Put(conn)

	run, err := findRun(conn, runID)
	if err != nil {
		return nil, err
	}

	var (
		found       bool
		data        []byte
		compression Compression
		size        int
	)
	err = sqlitex.Execute(conn, `SELECT payload, payload_compression, encoded_size FROM outcomes
		WHERE run_id = ? AND value_index = ? AND environment = ? AND protocol = ?`, &sqlitex.ExecOptions{
		Args: []any{run.ID, cell.Value, cell.Environment, cell.Protocol},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			if stmt.ColumnIsNull(0) {
				return nil
			}
			data = make([]byte, stmt.ColumnLen(0))
			stmt.ColumnBytes(0, data)
			compression = Compression(stmt.ColumnText(1))
			size = stmt.ColumnInt(2)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("result store: payload %s: %w", cell, err)
	}
	if !found {
		return nil, fmt.Errorf("result store: run %s has no cell %s", run.ID, cell)
	}
	if data == nil {
		return nil, fmt.Errorf("%w for %s in run %s", ErrNoPayload, cell, run.ID)
	}
	payload, err := decompressPayload(compression, data, size)
	if err != nil {
		return nil, fmt.Errorf("result store: payload %s: %w", cell, err)
	}
	return payload, nil
}

// Value returns an archived corpus value.
func (s *Store) Value(ctx context.Context, runID string, index int) (corpus.TestValue, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return corpus.TestValue{}, fmt.Errorf("result store: value: %w", err)
	}
	defer s.pool.Put(conn)

	run, err := findRun(conn, runID)
	if err != nil {
		return corpus.TestValue{}, err
	}

	var (
		found bool
		tree  []byte
	)
	testValue := corpus.TestValue{Index: index}
	err = sqlitex.Execute(conn, `SELECT label, class, tree FROM run_values WHERE run_id = ? AND value_index = ?`, &sqlitex.ExecOptions{
		Args: []any{run.ID, index},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			found = true
			testValue.Label = stmt.ColumnText(0)
			testValue.Class = stmt.ColumnText(1)
			tree = make([]byte, stmt.ColumnLen(2))
			stmt.ColumnBytes(2, tree)
			return nil
		},
	})
	if err != nil {
		return corpus.TestValue{}, fmt.Errorf("result store: value %d: %w", index, err)
	}
	if !found {
		return corpus.TestValue{}, fmt.Errorf("result store: run %s has no value %d", run.ID, index)
	}

	var node value.Node
	if err := codec.Unmarshal(tree, &node); err != nil {
		return corpus.TestValue{}, fmt.Errorf("result store: decode value %d: %w", index, err)
	}
	if testValue.Value, err = value.FromWire(&node); err != nil {
		return corpus.TestValue{}, fmt.Errorf("result store: decode value %d: %w", index, err)
	}
	return testValue, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

