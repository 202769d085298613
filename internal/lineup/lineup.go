/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package lineup holds the station's recurring show schedule. Each show
// recurs by an RRULE and runs for a fixed number of minutes.
package lineup

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // lineups name zones; containers often lack zoneinfo

	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a lineup that cannot be built.
var ErrInvalid = errors.New("invalid lineup")

// anchorDate is the DTSTART date for every rule. Rules carry the time of day
// in BYHOUR and BYMINUTE.
var anchorDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Show is one entry in the lineup.
type Show struct {
	Name     string `json:"name" yaml:"name"`
	Duration int    `json:"duration" yaml:"duration"` // minutes
	RRule    string `json:"rrule" yaml:"rrule"`
}

// Occurrence is one airing of a show.
type Occurrence struct {
	Show     string    `json:"show"`
	Duration int       `json:"duration"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

// Contains reports whether t falls inside the occurrence.
func (o Occurrence) Contains(t time.Time) bool {
	return !t.Before(o.StartsAt) && t.Before(o.EndsAt)
}

type entry struct {
	show Show
	rule *rrule.RRule
}

// Lineup is an immutable set of recurring shows in one time zone.
type Lineup struct {
	loc     *time.Location
	entries []entry
}

// File is the YAML layout accepted by Load.
type File struct {
	Timezone string `yaml:"timezone"`
	Shows    []Show `yaml:"shows"`
}

// New validates shows and parses their rules in loc.
func New(shows []Show, loc *time.Location) (*Lineup, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(shows) == 0 {
		return nil, fmt.Errorf("%w: no shows", ErrInvalid)
	}

	anchor := time.Date(anchorDate.Year(), anchorDate.Month(), anchorDate.Day(), 0, 0, 0, 0, loc)
	seen := make(map[string]bool, len(shows))
	l := &Lineup{loc: loc, entries: make([]entry, 0, len(shows))}
	for _, s := range shows {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("%w: show name is required", ErrInvalid)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: duplicate show %q", ErrInvalid, s.Name)
		}
		seen[s.Name] = true
		if s.Duration <= 0 {
			return nil, fmt.Errorf("%w: %s: duration must be positive", ErrInvalid, s.Name)
		}

		rule, err := rrule.StrToRRule(s.RRule)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, s.Name, err)
		}
		rule.DTStart(anchor)
		l.entries = append(l.entries, entry{show: s, rule: rule})
	}
	return l, nil
}

// Load reads a lineup from a YAML file. An empty timezone means UTC.
func Load(path string) (*Lineup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lineup: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	loc := time.UTC
	if f.Timezone != "" {
		if loc, err = time.LoadLocation(f.Timezone); err != nil {
			return nil, fmt.Errorf("%w: timezone: %v", ErrInvalid, err)
		}
	}
	return New(f.Shows, loc)
}

// Default is the station's built-in daily lineup.
func Default(loc *time.Location) *Lineup {
	daily := func(hour int) string {
		return fmt.Sprintf("FREQ=DAILY;BYHOUR=%d;BYMINUTE=0;BYSECOND=0", hour)
	}
	l, err := New([]Show{
		{Name: "Morning Vibes with AI Alex", Duration: 180, RRule: daily(6)},
		{Name: "Tech Talk with Neural Nancy", Duration: 120, RRule: daily(9)},
		{Name: "Midday Mix with Digital Dave", Duration: 180, RRule: daily(11)},
		{Name: "Science Hour with Synthetic Sam", Duration: 120, RRule: daily(14)},
		{Name: "Evening Groove with Virtual Vicky", Duration: 180, RRule: daily(16)},
		{Name: "Night Owl with Algorithmic Andy", Duration: 180, RRule: daily(19)},
		{Name: "Overnight Automation", Duration: 480, RRule: daily(22)},
	}, loc)
	if err != nil {
		panic(err)
	}
	return l
}

// Location is the lineup's time zone.
func (l *Lineup) Location() *time.Location {
	return l.loc
}

// Shows returns every show in definition order.
func (l *Lineup) Shows() []Show {
	out := make([]Show, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.show
	}
	return out
}

// Duration returns the configured length of a show in minutes.
func (l *Lineup) Duration(name string) (int, bool) {
	for _, e := range l.entries {
		if e.show.Name == name {
			return e.show.Duration, true
		}
	}
	return 0, false
}

// OnAir returns the occurrence covering now. When occurrences overlap the
// one that started most recently wins.
func (l *Lineup) OnAir(now time.Time) (Occurrence, bool) {
	now = now.In(l.loc)
	var best Occurrence
	found := false
	for _, e := range l.entries {
		start := e.rule.Before(now, true)
		if start.IsZero() {
			continue
		}
		occ := occurrence(e.show, start)
		if !occ.Contains(now) {
			continue
		}
		if !found || occ.StartsAt.After(best.StartsAt) {
			best, found = occ, true
		}
	}
	return best, found
}

// Between lists occurrences starting in [from, to], earliest first.
func (l *Lineup) Between(from, to time.Time) []Occurrence {
	from, to = from.In(l.loc), to.In(l.loc)
	var out []Occurrence
	for _, e := range l.entries {
		for _, start := range e.rule.Between(from, to, true) {
			out = append(out, occurrence(e.show, start))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].Show < out[j].Show
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}

func occurrence(s Show, start time.Time) Occurrence {
	return Occurrence{
		Show:     s.Name,
		Duration: s.Duration,
		StartsAt: start,
		EndsAt:   start.Add(time.Duration(s.Duration) * time.Minute),
	}
}
