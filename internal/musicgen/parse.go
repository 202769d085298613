/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package musicgen turns listener requests into generated songs, one at a time.
package musicgen

import "strings"

// Vocabularies matched against request messages, in priority order.
var (
	Genres      = []string{"jazz", "rock", "pop", "techno", "classical", "hip hop", "r&b", "funk", "blues", "reggae", "country", "metal"}
	Moods       = []string{"happy", "sad", "upbeat", "chill", "energetic", "romantic", "peaceful", "intense", "dreamy", "dark"}
	Instruments = []string{"piano", "guitar", "drums", "bass", "violin", "saxophone", "trumpet", "synth", "flute", "cello"}
)

// Parsed is what a free-text message says about the wanted song.
type Parsed struct {
	Genre       string
	Mood        string
	Instruments []string
}

// ParseRequestMessage finds vocabulary words anywhere in msg, ignoring case.
// Genre and mood take the first match in vocabulary order, not text order;
// instruments collect every match. Matching is plain substring containment,
// so "rock" also matches inside "rocket".
func ParseRequestMessage(msg string) Parsed {
	lower := strings.ToLower(msg)

	var p Parsed
	p.Genre = firstContained(lower, Genres)
	p.Mood = firstContained(lower, Moods)
	for _, instrument := range Instruments {
		if strings.Contains(lower, instrument) {
			p.Instruments = append(p.Instruments, instrument)
		}
	}
	return p
}

func firstContained(text string, vocabulary []string) string {
	for _, word := range vocabulary {
		if strings.Contains(text, word) {
			return word
		}
	}
	return ""
}
