/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler runs the show timer: while a show is live it polls the
// schedule, detects due ad slots and hands the rotated ad to playout.
package scheduler

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/airtime/internal/clock"
	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/scheduler/state"
	"github.com/friendsincode/airtime/internal/telemetry"
)

const (
	// DefaultTickInterval is the wall-clock poll period of a running show.
	DefaultTickInterval = 10 * time.Second

	// TriggerWindow is how close, in minutes, elapsed time must be to a slot position.
	TriggerWindow = 0.2

	// RetriggerGuard is the minimum gap between two ad triggers.
	RetriggerGuard = 30 * time.Second
)

// ErrInvalidShow is returned by Start for an empty name or non-positive duration.
var ErrInvalidShow = errors.New("invalid show")

// State is the timer's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// AdSource returns the ads eligible for a slot of a show.
type AdSource interface {
	EligibleForSlot(showName string, slotDuration int) []models.Advertisement
}

// Player airs one advertisement.
type Player interface {
	PlayAdvertisement(ctx context.Context, ad models.Advertisement) error
}

// Status is a snapshot of the timer for reporting.
type Status struct {
	State          State                 `json:"state"`
	ShowName       string                `json:"showName,omitempty"`
	ShowDuration   int                   `json:"showDuration,omitempty"`
	StartedAt      *time.Time            `json:"startedAt,omitempty"`
	ElapsedMinutes float64               `json:"elapsedMinutes"`
	LastPlayedAt   *time.Time            `json:"lastPlayedAt,omitempty"`
	RotationIndex  uint64                `json:"rotationIndex"`
	Schedule       *clock.ShowAdSchedule `json:"schedule,omitempty"`
	RecentTriggers []state.Trigger       `json:"recentTriggers"`
}

// Timer is the show timer. The zero value is not usable; use New.
type Timer struct {
	ads      AdSource
	player   Player
	clk      clock.Source
	bus      *events.Bus
	history  *state.Store
	interval time.Duration
	logger   zerolog.Logger

	// lifecycle serializes Start and Stop so exactly one loop owns cancel/done.
	lifecycle sync.Mutex

	mu           sync.Mutex
	state        State
	showName     string
	showDuration int
	startedAt    time.Time
	schedule     clock.ShowAdSchedule
	elapsed      float64
	lastPlayed   time.Time
	rotation     Selector
	generation   uint64

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an idle timer.
func New(ads AdSource, player Player, clk clock.Source, bus *events.Bus, history *state.Store, interval time.Duration, logger zerolog.Logger) *Timer {
	if clk == nil {
		clk = clock.System{}
	}
	if history == nil {
		history = state.NewStore(state.DefaultCapacity)
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Timer{
		ads:      ads,
		player:   player,
		clk:      clk,
		bus:      bus,
		history:  history,
		interval: interval,
		logger:   logger.With().Str("component", "show_timer").Logger(),
		state:    StateIdle,
	}
}

// Start puts showName on air and begins polling. A loop already running is
// cancelled first; the rotation cursor and last-played time carry over.
// The loop lives until Stop is called or ctx is cancelled.
func (t *Timer) Start(ctx context.Context, showName string, showDuration int) error {
	return t.StartAt(ctx, showName, showDuration, time.Time{})
}

// StartAt is Start for a show that began at startedAt, so a show joined in
// progress keeps its slots aligned. A zero startedAt means now.
func (t *Timer) StartAt(ctx context.Context, showName string, showDuration int, startedAt time.Time) error {
	showName = strings.TrimSpace(showName)
	if showName == "" {
		return errors.Join(ErrInvalidShow, errors.New("show name is required"))
	}
	if showDuration <= 0 {
		return errors.Join(ErrInvalidShow, errors.New("show duration must be positive"))
	}

	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.haltLoop()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.mu.Lock()
	previous := t.showName
	t.state = StateRunning
	t.showName = showName
	t.showDuration = showDuration
	if startedAt.IsZero() {
		startedAt = t.clk.Now()
	}
	t.startedAt = startedAt
	t.schedule = clock.ScheduleFor(showDuration)
	t.elapsed = 0
	t.generation++
	t.cancel = cancel
	t.done = done
	bucket := t.schedule.Bucket
	t.mu.Unlock()

	go t.loop(loopCtx, done)

	telemetry.ShowLive.Set(1)
	t.logger.Info().
		Str("show", showName).
		Int("duration_minutes", showDuration).
		Str("bucket", bucket).
		Str("replaced", previous).
		Msg("show started")
	if t.bus != nil {
		t.bus.Publish(events.EventShowStart, events.Payload{
			"showName":     showName,
			"showDuration": showDuration,
			"startedAt":    startedAt,
		})
	}
	return nil
}

// Stop cancels the poll loop and waits for it to exit, then resets the
// elapsed cursor, last-played time and rotation index. Stopping an idle
// timer is a no-op apart from the reset.
func (t *Timer) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.haltLoop()

	t.mu.Lock()
	wasRunning := t.state == StateRunning
	showName := t.showName
	t.state = StateIdle
	t.showName = ""
	t.showDuration = 0
	t.startedAt = time.Time{}
	t.schedule = clock.ShowAdSchedule{}
	t.elapsed = 0
	t.lastPlayed = time.Time{}
	t.rotation.Reset()
	t.generation++
	t.mu.Unlock()

	if !wasRunning {
		return
	}
	telemetry.ShowLive.Set(0)
	t.logger.Info().Str("show", showName).Msg("show stopped")
	if t.bus != nil {
		t.bus.Publish(events.EventShowEnd, events.Payload{"showName": showName})
	}
}

// haltLoop cancels the running loop, if any, and waits until it has returned.
func (t *Timer) haltLoop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Timer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick evaluates the schedule once at the current time. At most one slot
// triggers per tick: the first in catalog order whose position is within
// TriggerWindow of elapsed time, provided RetriggerGuard has passed since the
// last trigger. An idle timer does nothing.
func (t *Timer) Tick(ctx context.Context) {
	telemetry.ShowTimerTicksTotal.Inc()

	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}

	now := t.clk.Now()
	t.elapsed = now.Sub(t.startedAt).Minutes()
	slot, due := t.dueSlot(now)
	if !due {
		t.mu.Unlock()
		return
	}

	showName := t.showName
	generation := t.generation
	eligible := t.ads.EligibleForSlot(showName, slot.Duration)
	ad, ok := t.rotation.Select(eligible)
	if !ok {
		t.mu.Unlock()
		t.record(slot, showName, models.Advertisement{}, state.OutcomeNoAds, nil, now)
		t.logger.Debug().
			Str("show", showName).
			Int("position", slot.Position).
			Int("duration", slot.Duration).
			Msg("slot due but no eligible ads")
		return
	}
	t.lastPlayed = now
	t.mu.Unlock()

	t.logger.Info().
		Str("show", showName).
		Int("position", slot.Position).
		Str("slot_type", string(slot.Type)).
		Str("ad", ad.ID).
		Str("company", ad.CompanyName).
		Msg("ad slot triggered")

	spanCtx, span := telemetry.StartSpan(ctx, "scheduler", "slot.trigger",
		attribute.String("show", showName),
		attribute.Int("position", slot.Position),
		attribute.String("ad", ad.ID),
	)
	err := t.player.PlayAdvertisement(spanCtx, ad)
	telemetry.EndSpan(span, err)

	t.mu.Lock()
	if t.generation == generation {
		t.lastPlayed = t.clk.Now()
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn().Err(err).Str("ad", ad.ID).Msg("ad playback failed")
		t.record(slot, showName, ad, state.OutcomeFailed, err, now)
		return
	}
	t.record(slot, showName, ad, state.OutcomePlayed, nil, now)
}

// dueSlot must be called with t.mu held.
func (t *Timer) dueSlot(now time.Time) (clock.AdSlot, bool) {
	if !t.lastPlayed.IsZero() && now.Sub(t.lastPlayed) <= RetriggerGuard {
		return clock.AdSlot{}, false
	}
	for _, slot := range t.schedule.Slots {
		if math.Abs(t.elapsed-float64(slot.Position)) < TriggerWindow {
			return slot, true
		}
	}
	return clock.AdSlot{}, false
}

func (t *Timer) record(slot clock.AdSlot, showName string, ad models.Advertisement, outcome state.Outcome, err error, at time.Time) {
	trigger := state.Trigger{
		ShowName:    showName,
		Position:    slot.Position,
		Duration:    slot.Duration,
		SlotType:    string(slot.Type),
		AdID:        ad.ID,
		Company:     ad.CompanyName,
		Outcome:     outcome,
		TriggeredAt: at,
	}
	if err != nil {
		trigger.Error = err.Error()
	}
	t.history.Add(trigger)
	telemetry.SlotTriggersTotal.WithLabelValues(string(slot.Type), string(outcome)).Inc()

	if t.bus != nil {
		t.bus.Publish(events.EventSlotTrigger, events.Payload{
			"showName": showName,
			"position": slot.Position,
			"duration": slot.Duration,
			"slotType": string(slot.Type),
			"adId":     ad.ID,
			"outcome":  string(outcome),
		})
	}
}

// Live reports the show on air and when it started.
func (t *Timer) Live() (string, time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return "", time.Time{}, false
	}
	return t.showName, t.startedAt, true
}

// Status returns a snapshot including the most recent triggers.
func (t *Timer) Status() Status {
	t.mu.Lock()
	st := Status{
		State:         t.state,
		ShowName:      t.showName,
		ShowDuration:  t.showDuration,
		RotationIndex: t.rotation.Index(),
	}
	if t.state == StateRunning {
		started := t.startedAt
		st.StartedAt = &started
		st.ElapsedMinutes = t.clk.Now().Sub(t.startedAt).Minutes()
		schedule := t.schedule
		st.Schedule = &schedule
	}
	if !t.lastPlayed.IsZero() {
		last := t.lastPlayed
		st.LastPlayedAt = &last
	}
	t.mu.Unlock()

	st.RecentTriggers = t.history.Recent(20)
	return st
}

// snapshot exposes cursor state to tests in this package.
func (t *Timer) snapshot() (elapsed float64, lastPlayed time.Time, rotation uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.elapsed, t.lastPlayed, t.rotation.Index()
}
