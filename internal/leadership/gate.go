/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package leadership

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Runner is a blocking background worker that stops when its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// LeaderAware runs a worker only while this instance holds the lease.
type LeaderAware struct {
	runner   Runner
	election *Election
	logger   zerolog.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewLeaderAware wraps runner so it follows election's leadership.
func NewLeaderAware(name string, runner Runner, election *Election, logger zerolog.Logger) *LeaderAware {
	return &LeaderAware{
		runner:   runner,
		election: election,
		logger:   logger.With().Str("component", "leader_aware").Str("worker", name).Logger(),
	}
}

// Run campaigns for leadership and starts or stops the worker as it changes.
// It blocks until ctx is cancelled, then stops the worker before releasing the lease.
func (l *LeaderAware) Run(ctx context.Context) error {
	if err := l.election.Start(ctx); err != nil {
		return err
	}
	defer func() {
		l.stopRunner()
		if err := l.election.Stop(); err != nil {
			l.logger.Error().Err(err).Msg("failed to stop election")
		}
	}()

	if l.election.IsLeader() {
		l.startRunner(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case isLeader := <-l.election.LeaderCh():
			if isLeader {
				l.logger.Info().Msg("became leader, starting worker")
				l.startRunner(ctx)
			} else {
				l.logger.Warn().Msg("lost leadership, stopping worker")
				l.stopRunner()
			}
		}
	}
}

// Running reports whether the wrapped worker is active on this instance.
func (l *LeaderAware) Running() bool {
	return l.running.Load()
}

func (l *LeaderAware) startRunner(parent context.Context) {
	if l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	l.running.Store(true)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.running.Store(false)

		l.logger.Info().Msg("worker started")
		if err := l.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error().Err(err).Msg("worker exited with error")
		}
		l.logger.Info().Msg("worker stopped")
	}()
}

func (l *LeaderAware) stopRunner() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	l.cancel = nil
	l.wg.Wait()
}

// group runs several workers as one Runner.
type group []Runner

// Group combines runners so they start and stop together. Run returns once
// every runner has returned, with the first error seen.
func Group(runners ...Runner) Runner {
	if len(runners) == 1 {
		return runners[0]
	}
	return group(runners)
}

func (g group) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(g))
	for _, r := range g {
		go func(r Runner) {
			err := r.Run(ctx)
			// One worker exiting early takes the rest down with it.
			cancel()
			errs <- err
		}(r)
	}

	var first error
	for range g {
		if err := <-errs; err != nil && first == nil && !errors.Is(err, context.Canceled) {
			first = err
		}
	}
	return first
}
