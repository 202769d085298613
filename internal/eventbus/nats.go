/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/friendsincode/airtime/internal/events"
)

// NATSConn is the part of *nats.Conn the transport uses.
type NATSConn interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Flush() error
}

// NATSTransport relays events on subjects airtime.events.<type>.
type NATSTransport struct {
	conn NATSConn
}

// NewNATSTransport wraps a connection owned by the caller.
func NewNATSTransport(conn NATSConn) *NATSTransport {
	return &NATSTransport{conn: conn}
}

// Publish sends data on the event type's subject.
func (t *NATSTransport) Publish(_ context.Context, eventType events.EventType, data []byte) error {
	return t.conn.Publish(SubjectPrefix+string(eventType), data)
}

// Subscribe listens on every relayed subject. The subscription is flushed to
// the server before returning.
func (t *NATSTransport) Subscribe(_ context.Context, handle func(data []byte)) (func() error, error) {
	sub, err := t.conn.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		handle(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s>: %w", SubjectPrefix, err)
	}
	if err := t.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription: %w", err)
	}
	return sub.Unsubscribe, nil
}

// Close is a no-op; the connection belongs to the caller.
func (t *NATSTransport) Close() error { return nil }
