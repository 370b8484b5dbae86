// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fingerprint

import (
	"fmt"
	"sync"
)

// CollisionError reports two different canonical renderings sharing
// one digest.
type CollisionError struct {
	Digest Digest
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("fingerprint collision on %s: %s vs %s", e.Digest, abbreviate(e.First), abbreviate(e.Second))
}

func abbreviate(rendering string) string {
	const limit = 80
	if len(rendering) <= limit {
		return fmt.Sprintf("%q", rendering)
	}
	return fmt.Sprintf("%q... (%d bytes)", rendering[:limit], len(rendering))
}

// Registry remembers the rendering behind every digest it has seen.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	renderings map[Digest]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{renderings: make(map[Digest]string)}
}

// Observe records that digest was computed from rendering. It returns
// a *CollisionError if digest was previously computed from a
// different rendering.
func (r *Registry) Observe(digest Digest, rendering string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if previous, seen := r.renderings[digest]; seen {
		if previous != rendering {
			return &CollisionError{Digest: digest, First: previous, Second: rendering}
		}
		return nil
	}
	r.renderings[digest] = rendering
	return nil
}

// Len returns the number of distinct digests observed.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.renderings)
}
