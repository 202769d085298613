/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package speech defines the on-air speech and audio collaborators and their
// standalone and NATS-backed implementations.
package speech

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Labels shown by the speech collaborator for each kind of announcement.
const (
	LabelAdvertisement = "Advertisement"
	LabelMusicRequest  = "Music Request"
)

// ErrUnavailable is returned when the collaborator cannot be reached.
var ErrUnavailable = errors.New("speech collaborator unavailable")

// Speaker reads text on air. It returns once the announcement has finished or failed.
type Speaker interface {
	Speak(ctx context.Context, text string, announce, interrupt bool, label string) error
}

// AudioPlayer plays pre-recorded audio. It returns once playback has finished or failed.
type AudioPlayer interface {
	PlayAudio(ctx context.Context, locator string) error
}

// LogSpeaker writes announcements to the log instead of a speech engine.
// Delay simulates the time an announcement takes to air.
type LogSpeaker struct {
	Delay  time.Duration
	logger zerolog.Logger
}

// NewLogSpeaker creates a log-only speaker and audio player.
func NewLogSpeaker(delay time.Duration, logger zerolog.Logger) *LogSpeaker {
	return &LogSpeaker{
		Delay:  delay,
		logger: logger.With().Str("component", "speech").Logger(),
	}
}

// Speak logs the announcement and waits Delay.
func (s *LogSpeaker) Speak(ctx context.Context, text string, announce, interrupt bool, label string) error {
	s.logger.Info().
		Str("label", label).
		Bool("announce", announce).
		Bool("interrupt", interrupt).
		Str("text", text).
		Msg("speaking")
	return s.wait(ctx)
}

// PlayAudio logs the locator and waits Delay.
func (s *LogSpeaker) PlayAudio(ctx context.Context, locator string) error {
	s.logger.Info().Str("locator", locator).Msg("playing audio")
	return s.wait(ctx)
}

func (s *LogSpeaker) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
