/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package webhooks posts station events to configured HTTP endpoints so
// sponsors and operators can react to ads airing and requests finishing.
package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/eventbus"
	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/telemetry"
)

// DefaultEvents are delivered when no event filter is configured.
var DefaultEvents = []events.EventType{
	events.EventAdBooked,
	events.EventAdCancelled,
	events.EventAdCompleted,
	events.EventAdPlaybackFailed,
	events.EventMusicCompleted,
	events.EventMusicFailed,
	events.EventShowStart,
	events.EventShowEnd,
}

// Payload is the JSON body posted to each target.
type Payload struct {
	Event     events.EventType `json:"event"`
	Timestamp time.Time        `json:"timestamp"`
	Data      events.Payload   `json:"data"`
}

// Service forwards bus events to webhook targets.
type Service struct {
	bus     *events.Bus
	targets []string
	secret  []byte
	types   []events.EventType
	client  *http.Client
	now     func() time.Time
	logger  zerolog.Logger

	inflight sync.WaitGroup
}

// NewService validates the event filter. An empty filter selects DefaultEvents.
func NewService(bus *events.Bus, targets []string, secret string, eventNames []string, logger zerolog.Logger) (*Service, error) {
	types := DefaultEvents
	if len(eventNames) > 0 {
		types = make([]events.EventType, 0, len(eventNames))
		for _, name := range eventNames {
			t := events.EventType(name)
			if !known(t) {
				return nil, fmt.Errorf("unknown webhook event %q", name)
			}
			types = append(types, t)
		}
	}

	return &Service{
		bus:     bus,
		targets: targets,
		secret:  []byte(secret),
		types:   types,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
		logger:  logger.With().Str("component", "webhooks").Logger(),
	}, nil
}

func known(t events.EventType) bool {
	for _, st := range events.StreamTypes {
		if st == t {
			return true
		}
	}
	return false
}

type delivery struct {
	eventType events.EventType
	payload   events.Payload
}

// Run delivers events until ctx is cancelled, then waits for in-flight posts.
// Events relayed from another node are skipped; that node delivers them.
func (s *Service) Run(ctx context.Context) error {
	subs := make([]events.Subscriber, len(s.types))
	for i, t := range s.types {
		subs[i] = s.bus.Subscribe(t)
	}
	defer func() {
		for i, t := range s.types {
			s.bus.Unsubscribe(t, subs[i])
		}
	}()

	merged := make(chan delivery, 16)
	for i, t := range s.types {
		go func(t events.EventType, sub events.Subscriber) {
			for {
				select {
				case <-ctx.Done():
					return
				case payload, ok := <-sub:
					if !ok {
						return
					}
					select {
					case merged <- delivery{eventType: t, payload: payload}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(t, subs[i])
	}

	s.logger.Info().Int("targets", len(s.targets)).Int("events", len(s.types)).Msg("webhook service started")

	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			s.logger.Info().Msg("webhook service stopped")
			return nil
		case d := <-merged:
			if _, remote := d.payload[eventbus.OriginKey]; remote {
				continue
			}
			s.fire(d.eventType, d.payload)
		}
	}
}

func (s *Service) fire(eventType events.EventType, data events.Payload) {
	body, err := json.Marshal(Payload{Event: eventType, Timestamp: s.now().UTC(), Data: data})
	if err != nil {
		s.logger.Error().Err(err).Str("event", string(eventType)).Msg("failed to marshal webhook payload")
		return
	}

	for _, target := range s.targets {
		s.inflight.Add(1)
		go func(target string) {
			defer s.inflight.Done()
			// Deliveries finish even while shutting down.
			ctx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
			defer cancel()
			s.Send(ctx, target, eventType, body)
		}(target)
	}
}

// Send posts one signed body to target. It returns the response status, or 0
// when the request never completed.
func (s *Service) Send(ctx context.Context, target string, eventType events.EventType, body []byte) int {
	logger := s.logger.With().Str("url", target).Str("event", string(eventType)).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		logger.Error().Err(err).Msg("failed to create webhook request")
		telemetry.WebhookDeliveriesTotal.WithLabelValues(string(eventType), "error").Inc()
		return 0
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Airtime-Webhook/1.0")
	req.Header.Set("X-Airtime-Event", string(eventType))
	req.Header.Set("X-Airtime-Delivery", uuid.NewString())
	req.Header.Set("X-Airtime-Timestamp", strconv.FormatInt(s.now().Unix(), 10))
	if len(s.secret) > 0 {
		req.Header.Set("X-Airtime-Signature", Sign(body, s.secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("webhook delivery failed")
		telemetry.WebhookDeliveriesTotal.WithLabelValues(string(eventType), "error").Inc()
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		logger.Debug().Int("status", resp.StatusCode).Msg("webhook delivered")
		telemetry.WebhookDeliveriesTotal.WithLabelValues(string(eventType), "delivered").Inc()
	} else {
		logger.Warn().Int("status", resp.StatusCode).Msg("webhook returned error status")
		telemetry.WebhookDeliveriesTotal.WithLabelValues(string(eventType), "rejected").Inc()
	}
	return resp.StatusCode
}

// Sign returns the X-Airtime-Signature value for body.
func Sign(body, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
