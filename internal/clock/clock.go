/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package clock holds the ad clocks (per-show slot templates) and the time source
// used by everything that waits on wall-clock time.
package clock

import "time"

// SlotType classifies what kind of spot an ad slot carries.
type SlotType string

const (
	SlotBrand   SlotType = "brand"
	SlotProduct SlotType = "product"
	SlotSponsor SlotType = "sponsor"
)

// SlotLabel is the human-readable placement of a slot within a show.
type SlotLabel string

const (
	LabelBeginning SlotLabel = "beginning"
	LabelMiddle    SlotLabel = "middle"
	LabelEnd       SlotLabel = "end"
	LabelAfterShow SlotLabel = "after show"
)

// AdSlot is one catalog-defined opportunity for an ad to air.
type AdSlot struct {
	Position  int       `json:"position" yaml:"position"` // minutes into the show
	Duration  int       `json:"duration" yaml:"duration"` // seconds
	Type      SlotType  `json:"type" yaml:"type"`
	Label     SlotLabel `json:"label,omitempty" yaml:"label,omitempty"`
	Available bool      `json:"available" yaml:"-"`
}

// ShowAdSchedule is the immutable slot layout for one show-duration bucket.
type ShowAdSchedule struct {
	Bucket       string   `json:"bucket" yaml:"bucket"`
	ShowDuration int      `json:"showDuration" yaml:"show_duration"` // minutes
	TotalAdTime  int      `json:"totalAdTime" yaml:"total_ad_time"`  // minutes
	Slots        []AdSlot `json:"adSlots" yaml:"slots"`
}

// SlotPlan is a slot placed on the wall clock for a show that started at a known time.
type SlotPlan struct {
	AdSlot
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

// Timer is a pending AfterFunc callback.
type Timer interface {
	Stop() bool
}

// Source abstracts wall-clock time so timers can be driven in tests.
type Source interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// System is the real wall clock.
type System struct{}

// Now returns the current local time.
func (System) Now() time.Time { return time.Now() }

// AfterFunc runs f in its own goroutine after d.
func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
