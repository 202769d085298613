/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package state keeps the show timer's recent slot triggers in memory.
package state

import (
	"sync"
	"time"
)

// DefaultCapacity bounds how many triggers are retained.
const DefaultCapacity = 128

// Outcome describes what happened when a slot came due.
type Outcome string

const (
	OutcomePlayed Outcome = "played"
	OutcomeFailed Outcome = "failed"
	OutcomeNoAds  Outcome = "no_eligible_ads"
)

// Trigger records one slot that came due during a show.
type Trigger struct {
	ShowName    string    `json:"showName"`
	Position    int       `json:"position"`
	Duration    int       `json:"duration"`
	SlotType    string    `json:"slotType"`
	AdID        string    `json:"adId,omitempty"`
	Company     string    `json:"companyName,omitempty"`
	Outcome     Outcome   `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	TriggeredAt time.Time `json:"triggeredAt"`
}

// Store is a bounded, concurrency-safe log of triggers, oldest first.
type Store struct {
	mu       sync.RWMutex
	capacity int
	recent   []Trigger
}

// NewStore creates a trigger log holding at most capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{capacity: capacity, recent: make([]Trigger, 0, capacity)}
}

// Add appends a trigger, evicting the oldest when full.
func (s *Store) Add(t Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) == s.capacity {
		copy(s.recent, s.recent[1:])
		s.recent = s.recent[:len(s.recent)-1]
	}
	s.recent = append(s.recent, t)
}

// Recent returns up to limit of the newest triggers, oldest first. limit <= 0 returns all.
func (s *Store) Recent(limit int) []Trigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.recent
	if limit > 0 && len(src) > limit {
		src = src[len(src)-limit:]
	}
	out := make([]Trigger, len(src))
	copy(out, src)
	return out
}

// Prune removes entries triggered at or before cutoff.
func (s *Store) Prune(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := s.recent[:0]
	for _, t := range s.recent {
		if t.TriggeredAt.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	s.recent = filtered
}
