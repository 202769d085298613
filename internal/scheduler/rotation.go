/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import "github.com/friendsincode/airtime/internal/models"

// Selector is a round-robin cursor shared by every slot and show.
// It is not safe for concurrent use; Timer guards it with its own lock.
type Selector struct {
	index uint64
}

// Select returns eligible[index mod len] and advances the cursor.
// With no eligible ads nothing is selected and the cursor stays put.
func (s *Selector) Select(eligible []models.Advertisement) (models.Advertisement, bool) {
	if len(eligible) == 0 {
		return models.Advertisement{}, false
	}
	ad := eligible[s.index%uint64(len(eligible))]
	s.index++
	return ad, true
}

// Index returns the number of selections made since the last Reset.
func (s *Selector) Index() uint64 {
	return s.index
}

// Reset returns the cursor to zero.
func (s *Selector) Reset() {
	s.index = 0
}
