/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package musicgen

import (
	"strings"

	"github.com/friendsincode/airtime/internal/models"
)

// WeightedPrompt is one steering prompt for the music model.
type WeightedPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// Prompt weights for listener-supplied hints.
const (
	genreWeight      = 2.5
	moodWeight       = 2.0
	instrumentWeight = 1.5
)

// Show styles, detected from the show name.
const (
	StyleMorning   = "morning"
	StyleTech      = "tech"
	StyleMidday    = "midday"
	StyleScience   = "science"
	StyleEvening   = "evening"
	StyleNight     = "night"
	StyleOvernight = "overnight"
)

var styleMarkers = []struct {
	marker string
	style  string
}{
	{"Morning", StyleMorning},
	{"Tech", StyleTech},
	{"Midday", StyleMidday},
	{"Science", StyleScience},
	{"Evening", StyleEvening},
	{"Night Owl", StyleNight},
	{"Overnight", StyleOvernight},
}

var stylePrompts = map[string][]WeightedPrompt{
	StyleMorning:   {{"Upbeat", 2.0}, {"Bright Tones", 1.5}, {"Acoustic Instruments", 1.0}, {"Indie Pop", 1.0}},
	StyleTech:      {{"Minimal Techno", 2.0}, {"Synth Pads", 1.5}, {"EDM", 1.0}, {"Glitch Hop", 0.5}},
	StyleMidday:    {{"Funk", 1.5}, {"Groove", 1.5}, {"Contemporary R&B", 1.0}, {"Danceable", 1.0}},
	StyleScience:   {{"Ambient", 2.0}, {"Experimental", 1.5}, {"Ethereal Ambience", 1.0}, {"Spacey Synths", 1.0}},
	StyleEvening:   {{"Smooth Pianos", 1.5}, {"Jazz Fusion", 1.5}, {"Chill", 1.0}, {"Lo-Fi Hip Hop", 1.0}},
	StyleNight:     {{"Deep House", 2.0}, {"Trance", 1.5}, {"Dreamy", 1.0}, {"Psychedelic", 0.5}},
	StyleOvernight: {{"Ambient", 2.0}, {"Subdued Melody", 1.5}, {"Lo-fi", 1.0}, {"Chill", 1.0}},
}

// ShowStyle returns the style for a show name, or "" when none matches.
// Markers are case-sensitive and checked in a fixed order.
func ShowStyle(showName string) string {
	for _, m := range styleMarkers {
		if strings.Contains(showName, m.marker) {
			return m.style
		}
	}
	return ""
}

// BuildPrompts assembles the weighted prompts for a request: the show's base
// style, then genre, mood, each instrument, and for dedications an emotional lift.
func BuildPrompts(req models.MusicRequest) []WeightedPrompt {
	var prompts []WeightedPrompt
	if style := ShowStyle(req.ShowName); style != "" {
		prompts = append(prompts, stylePrompts[style]...)
	}
	if req.Genre != "" {
		prompts = append(prompts, WeightedPrompt{Text: req.Genre, Weight: genreWeight})
	}
	if req.Mood != "" {
		prompts = append(prompts, WeightedPrompt{Text: req.Mood, Weight: moodWeight})
	}
	for _, instrument := range req.Instruments {
		prompts = append(prompts, WeightedPrompt{Text: instrument, Weight: instrumentWeight})
	}
	if req.Kind == models.RequestKindDedication {
		prompts = append(prompts,
			WeightedPrompt{Text: "Emotional", Weight: 1.5},
			WeightedPrompt{Text: "Romantic", Weight: 1.0},
		)
	}
	return prompts
}

// GenerationMode trades fidelity against variety.
type GenerationMode string

const (
	ModeQuality   GenerationMode = "QUALITY"
	ModeDiversity GenerationMode = "DIVERSITY"
)

// Config holds the model parameters used for a show.
type Config struct {
	BPM         int            `json:"bpm"`
	Temperature float64        `json:"temperature"`
	Guidance    float64        `json:"guidance"`
	Density     float64        `json:"density"`
	Brightness  float64        `json:"brightness"`
	Mode        GenerationMode `json:"musicGenerationMode"`
}

var styleConfigs = map[string]Config{
	StyleMorning:   {BPM: 120, Temperature: 0.8, Guidance: 4.0, Density: 0.6, Brightness: 0.8, Mode: ModeQuality},
	StyleTech:      {BPM: 128, Temperature: 1.2, Guidance: 4.5, Density: 0.8, Brightness: 0.7, Mode: ModeDiversity},
	StyleMidday:    {BPM: 110, Temperature: 1.0, Guidance: 4.0, Density: 0.7, Brightness: 0.7, Mode: ModeQuality},
	StyleEvening:   {BPM: 90, Temperature: 0.9, Guidance: 3.5, Density: 0.5, Brightness: 0.5, Mode: ModeQuality},
	StyleNight:     {BPM: 125, Temperature: 1.1, Guidance: 4.0, Density: 0.9, Brightness: 0.6, Mode: ModeDiversity},
	StyleOvernight: {BPM: 85, Temperature: 0.7, Guidance: 3.0, Density: 0.3, Brightness: 0.3, Mode: ModeQuality},
}

// ShowMusicConfig returns the parameters for a show. Shows without a
// dedicated config, science included, fall back to the midday settings.
func ShowMusicConfig(showName string) Config {
	if cfg, ok := styleConfigs[ShowStyle(showName)]; ok {
		return cfg
	}
	return styleConfigs[StyleMidday]
}
