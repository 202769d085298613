/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/friendsincode/airtime/internal/events"
)

// RedisTransport relays events over Redis pub/sub, one channel per event type.
type RedisTransport struct {
	client    *redis.Client
	ownClient bool
	wg        sync.WaitGroup
}

// NewRedisTransport dials Redis and verifies the connection.
func NewRedisTransport(ctx context.Context, addr, password string, db int) (*RedisTransport, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisTransport{client: client, ownClient: true}, nil
}

// NewRedisTransportFromClient wraps an existing client. Close leaves it open.
func NewRedisTransportFromClient(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

// Publish sends data on the event type's channel.
func (t *RedisTransport) Publish(ctx context.Context, eventType events.EventType, data []byte) error {
	return t.client.Publish(ctx, SubjectPrefix+string(eventType), data).Err()
}

// Subscribe pattern-subscribes to every relayed channel and waits for Redis
// to confirm before returning.
func (t *RedisTransport) Subscribe(ctx context.Context, handle func(data []byte)) (func() error, error) {
	pubsub := t.client.PSubscribe(ctx, SubjectPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("psubscribe: %w", err)
	}

	ch := pubsub.Channel()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !strings.HasPrefix(msg.Channel, SubjectPrefix) {
					continue
				}
				handle([]byte(msg.Payload))
			}
		}
	}()

	return func() error {
		err := pubsub.Close()
		t.wg.Wait()
		return err
	}, nil
}

// Close releases the client when the transport dialled it.
func (t *RedisTransport) Close() error {
	if !t.ownClient {
		return nil
	}
	return t.client.Close()
}
