/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package speech

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

func TestLogSpeakerHonoursCancellation(t *testing.T) {
	s := NewLogSpeaker(time.Hour, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Speak(ctx, "hello", true, false, LabelAdvertisement); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLogSpeakerWithoutDelay(t *testing.T) {
	s := NewLogSpeaker(0, zerolog.Nop())
	if err := s.PlayAudio(context.Background(), "https://cdn.example.com/a.mp3"); err != nil {
		t.Fatalf("play audio: %v", err)
	}
}

type fakeRequester struct {
	subject string
	body    []byte
	reply   string
	err     error
}

func (f *fakeRequester) RequestWithContext(_ context.Context, subj string, data []byte) (*nats.Msg, error) {
	f.subject = subj
	f.body = data
	if f.err != nil {
		return nil, f.err
	}
	return &nats.Msg{Subject: subj, Data: []byte(f.reply)}, nil
}

func TestNATSSpeakerSpeak(t *testing.T) {
	conn := &fakeRequester{reply: `{"ok":true}`}
	s := NewNATSSpeaker(conn, time.Second, zerolog.Nop())

	if err := s.Speak(context.Background(), "A message from our sponsor", true, false, LabelAdvertisement); err != nil {
		t.Fatalf("speak: %v", err)
	}
	if conn.subject != SubjectSpeak {
		t.Fatalf("subject = %s", conn.subject)
	}
	var req SpeakRequest
	if err := json.Unmarshal(conn.body, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if !req.Announce || req.Interrupt || req.Label != LabelAdvertisement {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestNATSSpeakerErrors(t *testing.T) {
	tests := []struct {
		name    string
		conn    *fakeRequester
		wantErr string
		is      error
	}{
		{"worker failure", &fakeRequester{reply: `{"ok":false,"error":"voice not found"}`}, "voice not found", nil},
		{"bad reply", &fakeRequester{reply: `not json`}, "decode", nil},
		{"no responders", &fakeRequester{err: nats.ErrNoResponders}, "", ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewNATSSpeaker(tt.conn, time.Second, zerolog.Nop())
			err := s.PlayAudio(context.Background(), "s3://spots/a.mp3")
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Fatalf("expected %v, got %v", tt.is, err)
			}
			if tt.wantErr != "" && !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
