// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for the todo client components.
//
// The logger is a thin layer over log/slog with three destinations:
package logging

import "sync"

// DefaultRecentSize is the capacity NewRecent uses for a non-positive size.
const DefaultRecentSize = 200

// Recent is a Sink that keeps the newest entries in a fixed-size ring.
// Safe for concurrent use.
type Recent struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

var _ Sink = (*Recent)(nil)

// NewRecent creates a ring holding up to size entries.
func NewRecent(size int) *Recent {
	if size <= 0 {
		size = DefaultRecentSize
	}
	return &Recent{entries: make([]Entry, size)}
}

// Record implements Sink.
func (r *Recent) Record(entry Entry) {
	r.mu.Lock()
	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// Entries returns up to limit entries at or above min, oldest first. A
// non-positive limit returns all of them.
func (r *Recent) Entries(min Level, limit int) []Entry {
	r.mu.Lock()
	ordered := make([]Entry, 0, len(r.entries))
	if r.full {
		ordered = append(ordered, r.entries[r.next:]...)
	}
	ordered = append(ordered, r.entries[:r.next]...)
	r.mu.Unlock()

	out := ordered[:0]
	for _, e := range ordered {
		if e.Level >= min {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
