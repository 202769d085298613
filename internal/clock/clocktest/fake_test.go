/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clocktest

import (
	"testing"
	"time"
)

func TestFakeRunsDueTimersInOrder(t *testing.T) {
	f := New(time.Unix(0, 0))
	var order []int
	f.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	f.AfterFunc(time.Second, func() { order = append(order, 1) })
	stopped := f.AfterFunc(time.Second, func() { order = append(order, 99) })
	if !stopped.Stop() {
		t.Fatal("expected Stop to report a pending timer")
	}

	f.Advance(500 * time.Millisecond)
	if len(order) != 0 {
		t.Fatalf("timers fired early: %v", order)
	}
	f.Advance(2 * time.Second)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected firing order: %v", order)
	}
	if f.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", f.Pending())
	}
}
