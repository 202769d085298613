/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Request subjects served by the external speech worker.
const (
	SubjectSpeak     = "airtime.speech.speak"
	SubjectPlayAudio = "airtime.audio.play"
)

// DefaultRequestTimeout bounds a request when the caller's context has no deadline.
const DefaultRequestTimeout = 2 * time.Minute

// SpeakRequest is the body sent on SubjectSpeak.
type SpeakRequest struct {
	Text      string `json:"text"`
	Announce  bool   `json:"announce"`
	Interrupt bool   `json:"interrupt"`
	Label     string `json:"label"`
}

// PlayAudioRequest is the body sent on SubjectPlayAudio.
type PlayAudioRequest struct {
	Locator string `json:"locator"`
}

// Reply is what the worker sends back once the announcement or audio has finished.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Requester is the subset of *nats.Conn used for request/reply.
type Requester interface {
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// NATSSpeaker delegates speech and audio to a worker over NATS request/reply.
type NATSSpeaker struct {
	conn    Requester
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNATSSpeaker creates a speaker on an established connection.
func NewNATSSpeaker(conn Requester, timeout time.Duration, logger zerolog.Logger) *NATSSpeaker {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &NATSSpeaker{
		conn:    conn,
		timeout: timeout,
		logger:  logger.With().Str("component", "speech_nats").Logger(),
	}
}

// Speak sends the announcement and waits for the worker's reply.
func (s *NATSSpeaker) Speak(ctx context.Context, text string, announce, interrupt bool, label string) error {
	return s.request(ctx, SubjectSpeak, SpeakRequest{
		Text:      text,
		Announce:  announce,
		Interrupt: interrupt,
		Label:     label,
	})
}

// PlayAudio asks the worker to play locator and waits for its reply.
func (s *NATSSpeaker) PlayAudio(ctx context.Context, locator string) error {
	return s.request(ctx, SubjectPlayAudio, PlayAudioRequest{Locator: locator})
}

func (s *NATSSpeaker) request(ctx context.Context, subject string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", subject, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := s.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return fmt.Errorf("%w: no responders on %s", ErrUnavailable, subject)
		}
		return fmt.Errorf("%s request: %w", subject, err)
	}

	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("decode %s reply: %w", subject, err)
	}
	if !reply.OK {
		if reply.Error == "" {
			reply.Error = "worker reported failure"
		}
		return fmt.Errorf("%s: %s", subject, reply.Error)
	}

	s.logger.Debug().Str("subject", subject).Dur("took", time.Since(start)).Msg("request completed")
	return nil
}
