// Package trace keeps the request/response history shown by the dev
// inspector.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/cartoway/router-demo/internal/routing"
)

// DefaultCapacity is the number of entries kept when none is configured.
const DefaultCapacity = 200

// Log collects routing.TraceEntry values. An entry whose ID is already known
// is updated in place, so a pending entry becomes success or error without
// moving. Once capacity is reached the oldest entry is dropped.
//
// Log is safe for concurrent use; Record may be passed directly as a
// routing.TraceFunc.
type Log struct {
	mu       sync.Mutex
	capacity int
	entries  []routing.TraceEntry
	index    map[string]int
}

// NewLog creates a Log. A non-positive capacity selects DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		index:    make(map[string]int),
	}
}

// Record inserts or updates entry.
func (l *Log) Record(entry routing.TraceEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i, ok := l.index[entry.ID]; ok {
		l.entries[i] = entry
		return
	}
	if len(l.entries) == l.capacity {
		delete(l.index, l.entries[0].ID)
		l.entries = l.entries[1:]
		for id, i := range l.index {
			l.index[id] = i - 1
		}
	}
	l.index[entry.ID] = len(l.entries)
	l.entries = append(l.entries, entry)
}

// All returns a copy of every entry, oldest first.
func (l *Log) All() []routing.TraceEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]routing.TraceEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Latest returns one entry per mode: the most recent attempt, positioned
// where that mode first appeared.
func (l *Log) Latest() []routing.TraceEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos := make(map[routing.TransportMode]int)
	out := make([]routing.TraceEntry, 0)
	for _, e := range l.entries {
		if i, ok := pos[e.Mode]; ok {
			out[i] = e
			continue
		}
		pos[e.Mode] = len(out)
		out = append(out, e)
	}
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset drops every entry.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	clear(l.index)
}

// Export writes every entry to w as an indented JSON array.
func (l *Log) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l.All()); err != nil {
		return fmt.Errorf("trace: export: %w", err)
	}
	return nil
}
