/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	ws "nhooyr.io/websocket"

	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/telemetry"
)

const pingInterval = 15 * time.Second

type streamedEvent struct {
	Type    events.EventType `json:"type"`
	Payload events.Payload   `json:"payload"`
}

// handleEvents streams bus events to a websocket client. ?types=a,b narrows
// the stream; unknown types are ignored.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = events.StreamTypes
	}

	// Subscribe before the upgrade so nothing published after the client's
	// handshake completes is missed.
	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	// Reads are discarded; CloseRead cancels ctx when the client goes away.
	ctx, cancel := context.WithCancel(conn.CloseRead(r.Context()))
	defer cancel()

	merged := make(chan streamedEvent, 16)
	for i, eventType := range eventTypes {
		go forward(ctx, eventType, subscribers[i], merged)
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				return
			}
		case evt := <-merged:
			if err := writeEvent(ctx, conn, evt); err != nil {
				a.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func forward(ctx context.Context, eventType events.EventType, sub events.Subscriber, out chan<- streamedEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			select {
			case out <- streamedEvent{Type: eventType, Payload: payload}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *ws.Conn, evt streamedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, data)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	known := make(map[events.EventType]struct{}, len(events.StreamTypes))
	for _, t := range events.StreamTypes {
		known[t] = struct{}{}
	}

	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		t := events.EventType(strings.TrimSpace(part))
		if _, ok := known[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
