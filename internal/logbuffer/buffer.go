/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logbuffer keeps the most recent log lines in memory so operators
// can inspect slot triggers and music requests without shell access.
package logbuffer

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 5000

// Entry is one captured log line.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Show      string         `json:"show,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Buffer is a fixed-size ring of entries, oldest overwritten first.
type Buffer struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	count   int
}

// New creates a buffer holding at most capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{entries: make([]Entry, capacity)}
}

// Add appends an entry, evicting the oldest when full.
func (b *Buffer) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = entry
	b.head = (b.head + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// snapshot returns entries oldest first. Callers must hold the read lock.
func (b *Buffer) snapshot() []Entry {
	out := make([]Entry, b.count)
	start := 0
	if b.count == len(b.entries) {
		start = b.head
	}
	for i := range out {
		out[i] = b.entries[(start+i)%len(b.entries)]
	}
	return out
}

// Query filters captured entries.
type Query struct {
	Level     string
	Component string
	Show      string
	Search    string // case-insensitive match on message, component and string fields
	Since     time.Time
	Limit     int // 0 returns every match
	Newest    bool
}

// Find returns entries matching q. With Newest set the most recent come first
// and Limit keeps the newest matches.
func (b *Buffer) Find(q Query) []Entry {
	b.mu.RLock()
	all := b.snapshot()
	b.mu.RUnlock()

	search := strings.ToLower(q.Search)
	matched := make([]Entry, 0, len(all))
	for _, e := range all {
		if q.Level != "" && e.Level != q.Level {
			continue
		}
		if q.Component != "" && e.Component != q.Component {
			continue
		}
		if q.Show != "" && e.Show != q.Show {
			continue
		}
		if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
			continue
		}
		if search != "" && !e.contains(search) {
			continue
		}
		matched = append(matched, e)
	}

	if q.Newest {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		if q.Newest {
			matched = matched[:q.Limit]
		} else {
			matched = matched[len(matched)-q.Limit:]
		}
	}
	return matched
}

func (e Entry) contains(lowered string) bool {
	if strings.Contains(strings.ToLower(e.Message), lowered) ||
		strings.Contains(strings.ToLower(e.Component), lowered) {
		return true
	}
	for _, v := range e.Fields {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), lowered) {
			return true
		}
	}
	return false
}

// Stats summarizes the buffer contents.
type Stats struct {
	Capacity   int            `json:"capacity"`
	Count      int            `json:"count"`
	LevelCount map[string]int `json:"levelCount"`
	Components []string       `json:"components"`
}

// Stats counts entries per level and lists the components seen, sorted.
func (b *Buffer) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := Stats{
		Capacity:   len(b.entries),
		Count:      b.count,
		LevelCount: make(map[string]int),
		Components: []string{},
	}
	seen := make(map[string]bool)
	for _, e := range b.snapshot() {
		stats.LevelCount[e.Level]++
		if e.Component != "" && !seen[e.Component] {
			seen[e.Component] = true
			stats.Components = append(stats.Components, e.Component)
		}
	}
	sort.Strings(stats.Components)
	return stats
}

// Writer tees zerolog JSON output into a Buffer before passing it on.
type Writer struct {
	buffer *Buffer
	next   io.Writer
}

// NewWriter captures every JSON line written and forwards it to next.
func NewWriter(buffer *Buffer, next io.Writer) *Writer {
	return &Writer{buffer: buffer, next: next}
}

// Write implements io.Writer. Lines that are not JSON objects are forwarded
// but not captured.
func (w *Writer) Write(p []byte) (int, error) {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err == nil {
		w.buffer.Add(entryFrom(fields))
	}
	if w.next == nil {
		return len(p), nil
	}
	return w.next.Write(p)
}

func entryFrom(fields map[string]any) Entry {
	e := Entry{Timestamp: time.Now()}
	take := func(key string) string {
		s, _ := fields[key].(string)
		delete(fields, key)
		return s
	}
	e.Level = take("level")
	e.Message = take("message")
	e.Component = take("component")
	e.Show = take("show")

	switch ts := fields["time"].(type) {
	case float64:
		e.Timestamp = time.Unix(int64(ts), 0)
	case string:
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
	}
	delete(fields, "time")

	if len(fields) > 0 {
		e.Fields = fields
	}
	return e
}
