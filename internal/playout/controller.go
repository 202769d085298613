/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playout airs advertisements through the speech collaborator and
// drives them through scheduled, playing and completed.
package playout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/clock"
	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/speech"
	"github.com/friendsincode/airtime/internal/telemetry"
)

// persistTimeout bounds status writes made after the caller's context is gone.
const persistTimeout = 10 * time.Second

// StatusStore persists advertisement status transitions.
type StatusStore interface {
	SetAdvertisementStatus(ctx context.Context, id string, status models.AdStatus) (models.Advertisement, error)
}

type pendingAd struct {
	timer clock.Timer
	ad    models.Advertisement
}

// Controller plays one advertisement at a time on behalf of the show timer.
type Controller struct {
	store   StatusStore
	speaker speech.Speaker
	audio   speech.AudioPlayer
	clk     clock.Source
	bus     *events.Bus
	logger  zerolog.Logger

	mu      sync.Mutex
	pending map[string]pendingAd
	closed  bool
	wg      sync.WaitGroup
}

// NewController creates a playback controller.
func NewController(st StatusStore, speaker speech.Speaker, audio speech.AudioPlayer, clk clock.Source, bus *events.Bus, logger zerolog.Logger) *Controller {
	if clk == nil {
		clk = clock.System{}
	}
	return &Controller{
		store:   st,
		speaker: speaker,
		audio:   audio,
		clk:     clk,
		bus:     bus,
		logger:  logger.With().Str("component", "playout").Logger(),
		pending: make(map[string]pendingAd),
	}
}

// Announcement returns the on-air text for a script ad. ok is false for audio ads.
func Announcement(ad models.Advertisement) (text string, ok bool) {
	script, ok := ad.Content.ScriptText()
	if !ok {
		return "", false
	}
	if ad.PackageType == models.PackageBranded {
		return fmt.Sprintf("This hour is brought to you by %s. %s", ad.CompanyName, script), true
	}
	return fmt.Sprintf("A message from our sponsor, %s: %s", ad.CompanyName, script), true
}

// PlayAdvertisement marks ad playing, airs it and waits for the collaborator.
// On success the ad becomes completed once its nominal duration has elapsed,
// however long the announcement itself took. On any failure, including a
// failed status write, the ad is returned to scheduled and the error returned.
func (c *Controller) PlayAdvertisement(ctx context.Context, ad models.Advertisement) error {
	kind := string(ad.Content.Kind())

	if _, err := c.store.SetAdvertisementStatus(ctx, ad.ID, models.AdStatusPlaying); err != nil {
		c.failed(ad, err)
		return fmt.Errorf("mark advertisement playing: %w", err)
	}
	c.publish(events.EventAdPlaying, ad, nil)

	if err := c.air(ctx, ad); err != nil {
		c.revert(ctx, ad)
		c.failed(ad, err)
		return fmt.Errorf("air advertisement %s: %w", ad.ID, err)
	}

	c.scheduleCompletion(ad)
	telemetry.AdPlaybacksTotal.WithLabelValues(kind, "success").Inc()
	c.logger.Info().
		Str("ad", ad.ID).
		Str("company", ad.CompanyName).
		Str("kind", kind).
		Int("duration", ad.Duration).
		Msg("advertisement aired")
	return nil
}

func (c *Controller) air(ctx context.Context, ad models.Advertisement) error {
	if text, ok := Announcement(ad); ok {
		return c.speaker.Speak(ctx, text, true, false, speech.LabelAdvertisement)
	}
	if locator, ok := ad.Content.AudioLocator(); ok {
		return c.audio.PlayAudio(ctx, locator)
	}
	return models.ErrInvalidContent
}

func (c *Controller) revert(ctx context.Context, ad models.Advertisement) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if _, err := c.store.SetAdvertisementStatus(ctx, ad.ID, models.AdStatusScheduled); err != nil {
		c.logger.Error().Err(err).Str("ad", ad.ID).Msg("failed to revert advertisement to scheduled")
	}
}

func (c *Controller) failed(ad models.Advertisement, err error) {
	telemetry.AdPlaybacksTotal.WithLabelValues(string(ad.Content.Kind()), "failure").Inc()
	c.logger.Warn().Err(err).Str("ad", ad.ID).Str("company", ad.CompanyName).Msg("advertisement playback failed")
	c.publish(events.EventAdPlaybackFailed, ad, err)
}

func (c *Controller) scheduleCompletion(ad models.Advertisement) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.complete(ad)
		return
	}
	c.wg.Add(1)
	timer := c.clk.AfterFunc(time.Duration(ad.Duration)*time.Second, func() {
		defer c.wg.Done()
		c.mu.Lock()
		delete(c.pending, ad.ID)
		c.mu.Unlock()
		c.complete(ad)
	})
	c.pending[ad.ID] = pendingAd{timer: timer, ad: ad}
	c.mu.Unlock()
}

func (c *Controller) complete(ad models.Advertisement) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := c.store.SetAdvertisementStatus(ctx, ad.ID, models.AdStatusCompleted); err != nil {
		c.logger.Error().Err(err).Str("ad", ad.ID).Msg("failed to mark advertisement completed")
		return
	}
	c.publish(events.EventAdCompleted, ad, nil)
	c.logger.Debug().Str("ad", ad.ID).Msg("advertisement completed")
}

// Pending returns how many aired ads are still occupying their slot.
func (c *Controller) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close completes every ad still waiting out its duration and waits for
// callbacks already running. Later successes complete immediately.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	var early []models.Advertisement
	for id, p := range c.pending {
		if p.timer.Stop() {
			early = append(early, p.ad)
			c.wg.Done()
		}
		delete(c.pending, id)
	}
	c.mu.Unlock()

	for _, ad := range early {
		c.complete(ad)
	}
	c.wg.Wait()
}

func (c *Controller) publish(eventType events.EventType, ad models.Advertisement, err error) {
	if c.bus == nil {
		return
	}
	payload := events.Payload{
		"id":          ad.ID,
		"companyName": ad.CompanyName,
		"duration":    ad.Duration,
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.bus.Publish(eventType, payload)
}
