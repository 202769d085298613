/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AdStatus is the lifecycle state of an advertisement.
type AdStatus string

const (
	AdStatusScheduled AdStatus = "scheduled"
	AdStatusPlaying   AdStatus = "playing"
	AdStatusCompleted AdStatus = "completed"
)

// PackageType selects the announcement framing and price of an ad.
type PackageType string

const (
	PackageStandard PackageType = "standard"
	PackageBranded  PackageType = "branded"
)

// Valid reports whether p is a known package type.
func (p PackageType) Valid() bool {
	return p == PackageStandard || p == PackageBranded
}

// ContentKind tags the variant held by AdContent.
type ContentKind string

const (
	ContentScript ContentKind = "script"
	ContentAudio  ContentKind = "audio"
)

// AdDurations lists the bookable ad lengths in seconds.
var AdDurations = []int{10, 20, 30}

// ValidAdDuration reports whether seconds is a bookable ad length.
func ValidAdDuration(seconds int) bool {
	for _, d := range AdDurations {
		if d == seconds {
			return true
		}
	}
	return false
}

// ErrInvalidContent is returned when ad content is empty or of an unknown kind.
var ErrInvalidContent = errors.New("invalid advertisement content")

// AdContent is either a live-read script or a pre-recorded audio locator, never both.
type AdContent struct {
	kind  ContentKind
	value string
}

// Script returns script content to be read by the speech collaborator.
func Script(text string) AdContent {
	return AdContent{kind: ContentScript, value: text}
}

// Audio returns content pointing at a pre-recorded audio file.
func Audio(locator string) AdContent {
	return AdContent{kind: ContentAudio, value: locator}
}

// NewAdContent builds content from the wire representation used by the booking API.
func NewAdContent(kind ContentKind, script, audioURL string) (AdContent, error) {
	switch kind {
	case ContentScript:
		if script == "" {
			return AdContent{}, fmt.Errorf("%w: script ad requires adScript", ErrInvalidContent)
		}
		if audioURL != "" {
			return AdContent{}, fmt.Errorf("%w: script ad must not carry audioUrl", ErrInvalidContent)
		}
		return Script(script), nil
	case ContentAudio:
		if audioURL == "" {
			return AdContent{}, fmt.Errorf("%w: audio ad requires audioUrl", ErrInvalidContent)
		}
		if script != "" {
			return AdContent{}, fmt.Errorf("%w: audio ad must not carry adScript", ErrInvalidContent)
		}
		return Audio(audioURL), nil
	default:
		return AdContent{}, fmt.Errorf("%w: unknown ad type %q", ErrInvalidContent, kind)
	}
}

// Kind returns the content variant.
func (c AdContent) Kind() ContentKind { return c.kind }

// ScriptText returns the script and true for script content.
func (c AdContent) ScriptText() (string, bool) {
	return c.value, c.kind == ContentScript
}

// AudioLocator returns the audio locator and true for audio content.
func (c AdContent) AudioLocator() (string, bool) {
	return c.value, c.kind == ContentAudio
}

// IsZero reports whether no content was set.
func (c AdContent) IsZero() bool { return c.kind == "" }

// Advertisement is a booked ad spot for a show.
type Advertisement struct {
	ID            string
	CompanyName   string
	Content       AdContent
	SelectedShow  string
	Duration      int // seconds
	PackageType   PackageType
	Amount        float64
	BrandCategory string
	CreatedAt     time.Time
	Status        AdStatus
}

type advertisementWire struct {
	ID            string      `json:"id"`
	CompanyName   string      `json:"companyName"`
	AdType        ContentKind `json:"adType"`
	AdScript      string      `json:"adScript,omitempty"`
	AudioURL      string      `json:"audioUrl,omitempty"`
	SelectedShow  string      `json:"selectedShow"`
	Duration      int         `json:"duration"`
	PackageType   PackageType `json:"packageType"`
	Amount        float64     `json:"amount"`
	BrandCategory string      `json:"brandCategory,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
	Status        AdStatus    `json:"status"`
}

// MarshalJSON flattens the content union into adType/adScript/audioUrl.
func (a Advertisement) MarshalJSON() ([]byte, error) {
	w := advertisementWire{
		ID:            a.ID,
		CompanyName:   a.CompanyName,
		AdType:        a.Content.kind,
		SelectedShow:  a.SelectedShow,
		Duration:      a.Duration,
		PackageType:   a.PackageType,
		Amount:        a.Amount,
		BrandCategory: a.BrandCategory,
		CreatedAt:     a.CreatedAt,
		Status:        a.Status,
	}
	switch a.Content.kind {
	case ContentScript:
		w.AdScript = a.Content.value
	case ContentAudio:
		w.AudioURL = a.Content.value
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the content union and rejects records carrying the wrong field.
func (a *Advertisement) UnmarshalJSON(data []byte) error {
	var w advertisementWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	content, err := NewAdContent(w.AdType, w.AdScript, w.AudioURL)
	if err != nil {
		return fmt.Errorf("advertisement %s: %w", w.ID, err)
	}
	*a = Advertisement{
		ID:            w.ID,
		CompanyName:   w.CompanyName,
		Content:       content,
		SelectedShow:  w.SelectedShow,
		Duration:      w.Duration,
		PackageType:   w.PackageType,
		Amount:        w.Amount,
		BrandCategory: w.BrandCategory,
		CreatedAt:     w.CreatedAt,
		Status:        w.Status,
	}
	return nil
}
