/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package leadership

import (
	"context"
	"errors"
	"testing"
	"time"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestGroupSingleRunnerPassesThrough(t *testing.T) {
	r := &countingRunner{}
	if Group(r) != Runner(r) {
		t.Fatal("expected a lone runner to be returned unchanged")
	}
}

func TestGroupStopsTogether(t *testing.T) {
	started := make(chan struct{}, 2)
	block := runnerFunc(func(ctx context.Context) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Group(block, block).Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(time.Second):
			t.Fatal("runners did not start")
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil after cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("group did not stop")
	}
}

func TestGroupFailureStopsSiblings(t *testing.T) {
	boom := errors.New("boom")
	failing := runnerFunc(func(context.Context) error { return boom })
	sibling := runnerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- Group(failing, sibling).Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sibling kept running after failure")
	}
}
