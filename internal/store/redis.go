/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces booking keys in a shared Redis.
const DefaultRedisPrefix = "airtime:store:"

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisPersistence stores each collection under one Redis string key.
type RedisPersistence struct {
	client *redis.Client
	prefix string
}

// NewRedisPersistence connects and pings Redis.
func NewRedisPersistence(cfg RedisConfig) (*RedisPersistence, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return NewRedisPersistenceFromClient(client, cfg.Prefix), nil
}

// NewRedisPersistenceFromClient wraps an existing client.
func NewRedisPersistenceFromClient(client *redis.Client, prefix string) *RedisPersistence {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisPersistence{client: client, prefix: prefix}
}

// Load reads the value for key.
func (p *RedisPersistence) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := p.client.Get(ctx, p.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	return data, true, nil
}

// Save writes the value for key without expiry.
func (p *RedisPersistence) Save(ctx context.Context, key string, data []byte) error {
	if err := p.client.Set(ctx, p.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Update watches the key and writes fn's result in a MULTI transaction,
// retrying when another client changed the key first.
func (p *RedisPersistence) Update(ctx context.Context, key string, fn UpdateFunc) error {
	full := p.prefix + key
	return retryConflicts(ctx, key, func() error {
		err := p.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, full).Bytes()
			found := true
			switch {
			case errors.Is(err, redis.Nil):
				found = false
			case err != nil:
				return fmt.Errorf("load %s: %w", key, err)
			}

			next, err := fn(current, found)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, full, next, 0)
				return nil
			})
			return err
		}, full)
		if errors.Is(err, redis.TxFailedErr) {
			return errConflict
		}
		return err
	})
}

// Close closes the Redis connection.
func (p *RedisPersistence) Close() error {
	return p.client.Close()
}
