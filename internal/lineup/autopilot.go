/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/clock"
)

// ShowTimer is the part of the show timer the autopilot drives.
type ShowTimer interface {
	StartAt(ctx context.Context, showName string, showDuration int, startedAt time.Time) error
	Stop()
	Live() (showName string, startedAt time.Time, ok bool)
}

// Autopilot starts and stops shows as the lineup turns over. It acts only at
// occurrence boundaries: an operator who stops or replaces a show keeps
// control until the next one begins.
type Autopilot struct {
	lineup   *Lineup
	timer    ShowTimer
	clk      clock.Source
	interval time.Duration
	logger   zerolog.Logger

	current Occurrence
	owns    bool
}

// NewAutopilot checks the lineup every interval.
func NewAutopilot(l *Lineup, timer ShowTimer, clk clock.Source, interval time.Duration, logger zerolog.Logger) *Autopilot {
	if clk == nil {
		clk = clock.System{}
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Autopilot{
		lineup:   l,
		timer:    timer,
		clk:      clk,
		interval: interval,
		logger:   logger.With().Str("component", "autopilot").Logger(),
	}
}

// Run follows the lineup until ctx is cancelled, then stops the show it
// started if that show is still on air.
func (a *Autopilot) Run(ctx context.Context) error {
	a.logger.Info().Dur("interval", a.interval).Msg("autopilot started")
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		a.Step(ctx)
		select {
		case <-ctx.Done():
			a.release()
			a.logger.Info().Msg("autopilot stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Step reconciles the timer with the lineup once.
func (a *Autopilot) Step(ctx context.Context) {
	now := a.clk.Now()
	occ, onAir := a.lineup.OnAir(now)

	if !onAir {
		a.release()
		return
	}
	if a.owns && a.current.Show == occ.Show && a.current.StartsAt.Equal(occ.StartsAt) {
		return
	}

	if err := a.timer.StartAt(ctx, occ.Show, occ.Duration, occ.StartsAt); err != nil {
		a.logger.Error().Err(err).Str("show", occ.Show).Msg("autopilot failed to start show")
		return
	}
	a.current, a.owns = occ, true
	a.logger.Info().
		Str("show", occ.Show).
		Time("starts_at", occ.StartsAt).
		Time("ends_at", occ.EndsAt).
		Msg("autopilot started show")
}

// release stops the autopilot's show if it is still the one on air.
func (a *Autopilot) release() {
	if !a.owns {
		return
	}
	a.owns = false
	name, startedAt, live := a.timer.Live()
	if live && name == a.current.Show && startedAt.Equal(a.current.StartsAt) {
		a.timer.Stop()
		a.logger.Info().Str("show", name).Msg("autopilot ended show")
	}
}
