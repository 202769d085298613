/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package musicgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/speech"
	"github.com/friendsincode/airtime/internal/store"
	"github.com/friendsincode/airtime/internal/telemetry"
)

// Queue defaults.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// persistTimeout bounds status writes made after the loop's context is gone.
const persistTimeout = 10 * time.Second

// ErrInvalidRequest marks a submission rejected before it was queued.
var ErrInvalidRequest = errors.New("invalid music request")

// Queue is the part of the booking store the processor works on.
type Queue interface {
	AddMusicRequest(ctx context.Context, req models.MusicRequest) (models.MusicRequest, error)
	ClaimNextPending(ctx context.Context) (models.MusicRequest, bool, error)
	UpdateMusicRequest(ctx context.Context, id string, fn func(*models.MusicRequest) error) (models.MusicRequest, error)
	RecoverInterrupted(ctx context.Context) (int, error)
	PendingCount() int
}

// Options tunes the processor loop.
type Options struct {
	// MaxAttempts is how many failed generations move a request to failed.
	MaxAttempts int
	// RetryDelay is the pause between cycles while work remains. Zero disables it.
	RetryDelay time.Duration
	// IdlePoll re-checks an empty queue for requests queued by other
	// instances. Zero waits for Submit only.
	IdlePoll time.Duration
}

// DefaultOptions returns the production queue settings.
func DefaultOptions() Options {
	return Options{MaxAttempts: DefaultMaxAttempts, RetryDelay: DefaultRetryDelay}
}

// Submission is a new listener request.
type Submission struct {
	Kind        models.RequestKind `json:"type"`
	UserName    string             `json:"userName"`
	Message     string             `json:"message"`
	ShowName    string             `json:"showName"`
	DedicatedTo string             `json:"dedicatedTo,omitempty"`
}

// Processor generates queued music requests strictly one at a time, oldest first.
type Processor struct {
	queue     Queue
	speaker   speech.Speaker
	audio     speech.AudioPlayer
	generator Generator
	bus       *events.Bus
	opts      Options
	logger    zerolog.Logger

	wake chan struct{}
}

// NewProcessor creates a request queue processor. audio may be nil when the
// generator airs tracks itself.
func NewProcessor(q Queue, speaker speech.Speaker, audio speech.AudioPlayer, gen Generator, bus *events.Bus, opts Options, logger zerolog.Logger) *Processor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	if opts.IdlePoll < 0 {
		opts.IdlePoll = 0
	}
	return &Processor{
		queue:     q,
		speaker:   speaker,
		audio:     audio,
		generator: gen,
		bus:       bus,
		opts:      opts,
		logger:    logger.With().Str("component", "music_queue").Logger(),
		wake:      make(chan struct{}, 1),
	}
}

// Submit validates and queues a request, parsing the message for genre, mood
// and instruments, then wakes the loop.
func (p *Processor) Submit(ctx context.Context, sub Submission) (models.MusicRequest, error) {
	if sub.Kind == "" {
		sub.Kind = models.RequestKindRequest
	}
	var missing []string
	if strings.TrimSpace(sub.UserName) == "" {
		missing = append(missing, "userName")
	}
	if strings.TrimSpace(sub.Message) == "" {
		missing = append(missing, "message")
	}
	if strings.TrimSpace(sub.ShowName) == "" {
		missing = append(missing, "showName")
	}
	if sub.Kind == models.RequestKindDedication && strings.TrimSpace(sub.DedicatedTo) == "" {
		missing = append(missing, "dedicatedTo")
	}
	if len(missing) > 0 {
		return models.MusicRequest{}, fmt.Errorf("%w: missing required fields: %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if sub.Kind != models.RequestKindRequest && sub.Kind != models.RequestKindDedication {
		return models.MusicRequest{}, fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, sub.Kind)
	}

	parsed := ParseRequestMessage(sub.Message)
	req, err := p.queue.AddMusicRequest(ctx, models.MusicRequest{
		Kind:        sub.Kind,
		UserName:    strings.TrimSpace(sub.UserName),
		Message:     sub.Message,
		Genre:       parsed.Genre,
		Mood:        parsed.Mood,
		Instruments: parsed.Instruments,
		DedicatedTo: sub.DedicatedTo,
		ShowName:    sub.ShowName,
	})
	if err != nil {
		return models.MusicRequest{}, fmt.Errorf("queue music request: %w", err)
	}

	p.logger.Info().
		Str("request", req.ID).
		Str("type", string(req.Kind)).
		Str("user", req.UserName).
		Str("genre", req.Genre).
		Str("mood", req.Mood).
		Msg("music request queued")
	p.publish(events.EventMusicRequested, req)
	p.Wake()
	return req, nil
}

// Wake nudges an idle loop to look for pending work.
func (p *Processor) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run processes the queue until ctx is cancelled. Requests left generating by
// a previous run are returned to pending first.
func (p *Processor) Run(ctx context.Context) error {
	if n, err := p.queue.RecoverInterrupted(ctx); err != nil {
		p.logger.Error().Err(err).Msg("failed to recover interrupted requests")
	} else if n > 0 {
		p.logger.Info().Int("count", n).Msg("recovered interrupted music requests")
	}

	p.logger.Info().Msg("music queue started")
	for {
		worked := p.Cycle(ctx)
		if ctx.Err() != nil {
			p.logger.Info().Msg("music queue stopped")
			return nil
		}

		if worked {
			if !sleep(ctx, p.opts.RetryDelay) {
				p.logger.Info().Msg("music queue stopped")
				return nil
			}
			continue
		}

		if !p.idle(ctx) {
			p.logger.Info().Msg("music queue stopped")
			return nil
		}
	}
}

// idle blocks until Submit wakes the loop or IdlePoll elapses. It returns
// false once ctx is done.
func (p *Processor) idle(ctx context.Context) bool {
	var poll <-chan time.Time
	if p.opts.IdlePoll > 0 {
		timer := time.NewTimer(p.opts.IdlePoll)
		defer timer.Stop()
		poll = timer.C
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.wake:
	case <-poll:
	}
	return true
}

// Cycle handles at most one request. It reports whether there was anything to do.
func (p *Processor) Cycle(ctx context.Context) bool {
	req, ok, err := p.queue.ClaimNextPending(ctx)
	switch {
	case errors.Is(err, store.ErrBusy):
		p.logger.Warn().Msg("a request is already generating, waiting")
		return true
	case err != nil:
		p.logger.Error().Err(err).Msg("failed to claim next music request")
		return true
	case !ok:
		telemetry.MusicQueueDepth.Set(0)
		return false
	}

	telemetry.MusicQueueDepth.Set(float64(p.queue.PendingCount()))
	p.publish(events.EventMusicGenerating, req)

	start := time.Now()
	spanCtx, span := telemetry.StartSpan(ctx, "musicgen", "music.generate",
		attribute.String("request", req.ID),
		attribute.String("show", req.ShowName),
	)
	err = p.generate(spanCtx, &req)
	telemetry.EndSpan(span, err)
	telemetry.MusicGenerationDuration.Observe(time.Since(start).Seconds())

	if err == nil {
		p.finish(ctx, req)
		return true
	}
	if ctx.Err() != nil {
		p.requeue(ctx, req)
		return true
	}
	p.retryOrFail(ctx, req, err)
	return true
}

func (p *Processor) generate(ctx context.Context, req *models.MusicRequest) error {
	prompts := BuildPrompts(*req)
	cfg := ShowMusicConfig(req.ShowName)

	if err := p.speaker.Speak(ctx, Announcement(*req), true, false, speech.LabelMusicRequest); err != nil {
		return fmt.Errorf("announce: %w", err)
	}

	track, err := p.generator.Generate(ctx, *req, prompts, cfg)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	if track.URL == "" || p.audio == nil {
		return nil
	}

	updated, err := p.queue.UpdateMusicRequest(ctx, req.ID, func(r *models.MusicRequest) error {
		r.Status = models.RequestPlaying
		r.TrackURL = track.URL
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark playing: %w", err)
	}
	*req = updated

	if err := p.audio.PlayAudio(ctx, track.URL); err != nil {
		return fmt.Errorf("play track: %w", err)
	}
	return nil
}

func (p *Processor) finish(ctx context.Context, req models.MusicRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	done, err := p.queue.UpdateMusicRequest(ctx, req.ID, func(r *models.MusicRequest) error {
		r.Status = models.RequestCompleted
		r.LastError = ""
		return nil
	})
	if err != nil {
		p.logger.Error().Err(err).Str("request", req.ID).Msg("failed to mark music request completed")
		p.retryOrFail(ctx, req, err)
		return
	}
	telemetry.MusicGenerationsTotal.WithLabelValues("completed").Inc()
	p.logger.Info().Str("request", req.ID).Msg("music request completed")
	p.publish(events.EventMusicCompleted, done)
}

// requeue returns an interrupted request to pending without spending an attempt.
func (p *Processor) requeue(ctx context.Context, req models.MusicRequest) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if _, err := p.queue.UpdateMusicRequest(ctx, req.ID, func(r *models.MusicRequest) error {
		r.Status = models.RequestPending
		return nil
	}); err != nil {
		p.logger.Error().Err(err).Str("request", req.ID).Msg("failed to requeue interrupted music request")
		return
	}
	p.logger.Info().Str("request", req.ID).Msg("music request interrupted, returned to pending")
}

func (p *Processor) retryOrFail(ctx context.Context, req models.MusicRequest, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	updated, err := p.queue.UpdateMusicRequest(ctx, req.ID, func(r *models.MusicRequest) error {
		r.Attempts++
		r.LastError = cause.Error()
		if r.Attempts >= p.opts.MaxAttempts {
			r.Status = models.RequestFailed
		} else {
			r.Status = models.RequestPending
		}
		return nil
	})
	if err != nil {
		p.logger.Error().Err(err).Str("request", req.ID).Msg("failed to record music request failure")
		return
	}

	if updated.Status == models.RequestFailed {
		telemetry.MusicGenerationsTotal.WithLabelValues("failed").Inc()
		p.logger.Error().Err(cause).Str("request", req.ID).Int("attempts", updated.Attempts).Msg("music request failed permanently")
		p.publish(events.EventMusicFailed, updated)
		return
	}
	telemetry.MusicGenerationsTotal.WithLabelValues("retry").Inc()
	p.logger.Warn().Err(cause).Str("request", req.ID).Int("attempts", updated.Attempts).Msg("music request failed, will retry")
}

func (p *Processor) publish(eventType events.EventType, req models.MusicRequest) {
	if p.bus == nil {
		return
	}
	payload := events.Payload{
		"id":       req.ID,
		"type":     string(req.Kind),
		"userName": req.UserName,
		"showName": req.ShowName,
		"status":   string(req.Status),
		"attempts": req.Attempts,
	}
	if req.LastError != "" {
		payload["error"] = req.LastError
	}
	p.bus.Publish(eventType, payload)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
