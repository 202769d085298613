/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package clocktest provides a manually advanced clock.Source for tests.
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/friendsincode/airtime/internal/clock"
)

// Fake is a clock.Source whose time only moves when Advance or Set is called.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	owner   *Fake
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

// New returns a fake clock starting at now.
func New(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc registers f to run synchronously once the fake time reaches now+d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) clock.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{owner: f, at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves time forward by d and runs due callbacks in deadline order.
func (f *Fake) Advance(d time.Duration) {
	f.Set(f.Now().Add(d))
}

// Set moves time to t and runs due callbacks in deadline order.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	var due []*fakeTimer
	remaining := f.timers[:0]
	for _, timer := range f.timers {
		if timer.stopped {
			continue
		}
		if !timer.at.After(t) {
			timer.fired = true
			due = append(due, timer)
			continue
		}
		remaining = append(remaining, timer)
	}
	f.timers = remaining
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, timer := range due {
		timer.fn()
	}
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, timer := range f.timers {
		if !timer.stopped {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
