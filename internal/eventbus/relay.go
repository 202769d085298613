/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays the local event bus to other instances over Redis
// pub/sub or NATS so every node's websocket clients see the same stream.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/events"
)

// SubjectPrefix namespaces relayed events on both transports.
const SubjectPrefix = "airtime.events."

// OriginKey is added to payloads republished from another node. Events that
// carry it are never relayed again.
const OriginKey = "origin"

const publishTimeout = 2 * time.Second

// Transport moves encoded events between nodes.
type Transport interface {
	Publish(ctx context.Context, eventType events.EventType, data []byte) error
	// Subscribe delivers every relayed event until the returned stop func is called.
	Subscribe(ctx context.Context, handle func(data []byte)) (stop func() error, err error)
	Close() error
}

type message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Relay forwards local events out and remote events in.
type Relay struct {
	bus       *events.Bus
	transport Transport
	nodeID    string
	types     []events.EventType
	logger    zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopSub func() error
	wg      sync.WaitGroup
}

// NewRelay creates a relay for the given event types. An empty nodeID gets a
// random one.
func NewRelay(bus *events.Bus, transport Transport, nodeID string, types []events.EventType, logger zerolog.Logger) *Relay {
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	return &Relay{
		bus:       bus,
		transport: transport,
		nodeID:    nodeID,
		types:     append([]events.EventType(nil), types...),
		logger:    logger.With().Str("component", "event_relay").Str("node_id", nodeID).Logger(),
	}
}

// Start subscribes to the transport and the local bus. It returns once both
// subscriptions are in place.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return errors.New("relay already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	stop, err := r.transport.Subscribe(runCtx, r.receive)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe transport: %w", err)
	}
	r.cancel = cancel
	r.stopSub = stop

	for _, eventType := range r.types {
		sub := r.bus.Subscribe(eventType)
		r.wg.Add(1)
		go r.forward(runCtx, eventType, sub)
	}

	r.logger.Info().Int("event_types", len(r.types)).Msg("event relay started")
	return nil
}

// Stop unsubscribes everything and waits for the forwarders to exit.
func (r *Relay) Stop() error {
	r.mu.Lock()
	cancel, stop := r.cancel, r.stopSub
	r.cancel, r.stopSub = nil, nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	r.wg.Wait()
	var errs []error
	if stop != nil {
		errs = append(errs, stop())
	}
	errs = append(errs, r.transport.Close())
	r.logger.Info().Msg("event relay stopped")
	return errors.Join(errs...)
}

func (r *Relay) forward(ctx context.Context, eventType events.EventType, sub events.Subscriber) {
	defer r.wg.Done()
	defer r.bus.Unsubscribe(eventType, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			if _, remote := payload[OriginKey]; remote {
				continue
			}
			r.publish(ctx, eventType, payload)
		}
	}
}

func (r *Relay) publish(ctx context.Context, eventType events.EventType, payload events.Payload) {
	data, err := json.Marshal(message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    r.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		r.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to encode event")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.transport.Publish(pubCtx, eventType, data); err != nil {
		r.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("failed to relay event")
	}
}

func (r *Relay) receive(data []byte) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		r.logger.Warn().Err(err).Msg("dropping undecodable relayed event")
		return
	}
	if msg.NodeID == r.nodeID {
		return
	}

	payload := make(events.Payload, len(msg.Payload)+1)
	for k, v := range msg.Payload {
		payload[k] = v
	}
	payload[OriginKey] = msg.NodeID
	r.bus.Publish(msg.EventType, payload)

	r.logger.Debug().
		Str("event_type", string(msg.EventType)).
		Str("source_node", msg.NodeID).
		Msg("delivered relayed event")
}
