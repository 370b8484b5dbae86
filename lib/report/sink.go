// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// Sink writes a summary somewhere. Sinks are handed their writer at
// construction, so output locations are scoped to the run that created
// them.
type Sink interface {
	Write(summary *Summary) error
}

// JSONSink writes the summary as one indented JSON document.
type JSONSink struct {
	writer io.Writer
}

// NewJSONSink returns a JSONSink writing to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{writer: w}
}

func (s *JSONSink) Write(summary *Summary) error {
	encoder := json.NewEncoder(s.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		return fmt.Errorf("writing JSON report: %w", err)
	}
	return nil
}

// MultiSink writes to every sink in order and stops at the first
// error.
type MultiSink []Sink

func (m MultiSink) Write(summary *Summary) error {
	for _, sink := range m {
		if err := sink.Write(summary); err != nil {
			return err
		}
	}
	return nil
}
