/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package musicgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/speech"
)

// SubjectGenerate is the NATS subject served by the music generation worker.
const SubjectGenerate = "airtime.music.generate"

// DefaultSimulatedDuration is how long SimulatedGenerator takes per request.
const DefaultSimulatedDuration = 5 * time.Second

// Track is a generated song. An empty URL means the generator airs the song itself.
type Track struct {
	URL      string
	Duration time.Duration
}

// Generator produces a song for a request. It must return promptly when ctx is cancelled.
type Generator interface {
	Generate(ctx context.Context, req models.MusicRequest, prompts []WeightedPrompt, cfg Config) (Track, error)
}

// SimulatedGenerator waits a fixed time and produces nothing to play.
type SimulatedGenerator struct {
	Delay  time.Duration
	logger zerolog.Logger
}

// NewSimulatedGenerator creates a generator for deployments without a music model.
func NewSimulatedGenerator(delay time.Duration, logger zerolog.Logger) *SimulatedGenerator {
	if delay < 0 {
		delay = 0
	}
	return &SimulatedGenerator{
		Delay:  delay,
		logger: logger.With().Str("component", "musicgen_simulated").Logger(),
	}
}

// Generate logs the prompts and waits Delay.
func (g *SimulatedGenerator) Generate(ctx context.Context, req models.MusicRequest, prompts []WeightedPrompt, cfg Config) (Track, error) {
	g.logger.Info().
		Str("request", req.ID).
		Interface("prompts", prompts).
		Int("bpm", cfg.BPM).
		Str("mode", string(cfg.Mode)).
		Msg("generating music")

	if g.Delay == 0 {
		return Track{}, ctx.Err()
	}
	timer := time.NewTimer(g.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Track{}, ctx.Err()
	case <-timer.C:
		return Track{}, nil
	}
}

// GenerateRequest is the body sent on SubjectGenerate.
type GenerateRequest struct {
	RequestID string           `json:"requestId"`
	Kind      string           `json:"type"`
	ShowName  string           `json:"showName"`
	Prompts   []WeightedPrompt `json:"prompts"`
	Config    Config           `json:"config"`
}

// GenerateReply is the worker's answer once a track is ready.
type GenerateReply struct {
	OK              bool    `json:"ok"`
	Error           string  `json:"error,omitempty"`
	TrackURL        string  `json:"trackUrl,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

// NATSGenerator delegates generation to a worker over NATS request/reply.
type NATSGenerator struct {
	conn    speech.Requester
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNATSGenerator creates a generator on an established connection.
func NewNATSGenerator(conn speech.Requester, timeout time.Duration, logger zerolog.Logger) *NATSGenerator {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &NATSGenerator{
		conn:    conn,
		timeout: timeout,
		logger:  logger.With().Str("component", "musicgen_nats").Logger(),
	}
}

// Generate sends the prompts to the worker and waits for the finished track.
func (g *NATSGenerator) Generate(ctx context.Context, req models.MusicRequest, prompts []WeightedPrompt, cfg Config) (Track, error) {
	data, err := json.Marshal(GenerateRequest{
		RequestID: req.ID,
		Kind:      string(req.Kind),
		ShowName:  req.ShowName,
		Prompts:   prompts,
		Config:    cfg,
	})
	if err != nil {
		return Track{}, fmt.Errorf("encode generate request: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	msg, err := g.conn.RequestWithContext(ctx, SubjectGenerate, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return Track{}, fmt.Errorf("no music generation worker on %s", SubjectGenerate)
		}
		return Track{}, fmt.Errorf("generate request: %w", err)
	}

	var reply GenerateReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return Track{}, fmt.Errorf("decode generate reply: %w", err)
	}
	if !reply.OK {
		if reply.Error == "" {
			reply.Error = "worker reported failure"
		}
		return Track{}, fmt.Errorf("generate: %s", reply.Error)
	}

	g.logger.Debug().Str("request", req.ID).Str("track", reply.TrackURL).Msg("track generated")
	return Track{
		URL:      reply.TrackURL,
		Duration: time.Duration(reply.DurationSeconds * float64(time.Second)),
	}, nil
}
