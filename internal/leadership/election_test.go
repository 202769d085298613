/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package leadership

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testConfig(id string) ElectionConfig {
	return ElectionConfig{
		ElectionKey:   "test:leader",
		LeaseDuration: time.Second,
		RetryInterval: 20 * time.Millisecond,
		InstanceID:    id,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSingleLeader(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	a := NewElectionWithClient(client, testConfig("a"), zerolog.Nop())
	b := NewElectionWithClient(client, testConfig("b"), zerolog.Nop())

	if err := a.Start(ctx); err != nil {
		t.Fatalf("start a: %v", err)
	}
	waitFor(t, a.IsLeader)

	if err := b.Start(ctx); err != nil {
		t.Fatalf("start b: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if b.IsLeader() {
		t.Fatal("two leaders at once")
	}

	leader, err := b.GetLeader(ctx)
	if err != nil || leader != "a" {
		t.Fatalf("leader = %q err=%v, want a", leader, err)
	}

	if err := a.Stop(); err != nil {
		t.Fatalf("stop a: %v", err)
	}
	waitFor(t, b.IsLeader)

	if err := b.Stop(); err != nil {
		t.Fatalf("stop b: %v", err)
	}
	if err := b.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

type countingRunner struct {
	started chan struct{}
	stopped chan struct{}
}

func (r *countingRunner) Run(ctx context.Context) error {
	r.started <- struct{}{}
	<-ctx.Done()
	r.stopped <- struct{}{}
	return ctx.Err()
}

func TestLeaderAwareRunsWorkerWhileLeader(t *testing.T) {
	mr, client := newTestClient(t)

	runner := &countingRunner{started: make(chan struct{}, 4), stopped: make(chan struct{}, 4)}
	election := NewElectionWithClient(client, testConfig("solo"), zerolog.Nop())
	gate := NewLeaderAware("test", runner, election, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gate.Run(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never started")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gate did not stop")
	}

	select {
	case <-runner.stopped:
	default:
		t.Fatal("worker not stopped before Run returned")
	}
	if gate.Running() {
		t.Fatal("worker still marked running")
	}
	if mr.Exists("test:leader") {
		t.Fatal("lease not released on shutdown")
	}
}

func TestNewElectionOwnsItsClient(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig("solo")
	cfg.RedisAddr = mr.Addr()

	e, err := NewElection(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewElection: %v", err)
	}
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, e.IsLeader)
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if mr.Exists(cfg.ElectionKey) {
		t.Fatalf("expected lease released on stop")
	}

	cfg.RedisAddr = "127.0.0.1:1"
	if _, err := NewElection(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected dial failure")
	}
}
