/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package ratelimit throttles public submissions with a Redis fixed window
// shared by every instance.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultPrefix namespaces counters in a shared Redis.
const DefaultPrefix = "airtime:ratelimit"

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindow allows limit hits per key in each window.
type FixedWindow struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewFixedWindow uses client for counters. limit and window must be positive.
func NewFixedWindow(client *redis.Client, prefix string, limit int, window time.Duration) (*FixedWindow, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = DefaultPrefix
	}
	return &FixedWindow{client: client, prefix: prefix, limit: limit, window: window, now: time.Now}, nil
}

// Allow counts a hit for key. It returns how long until the window resets.
func (l *FixedWindow) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	windowMs := l.window.Milliseconds()
	nowMs := l.now().UTC().UnixMilli()
	slot := nowMs / windowMs
	resetIn := time.Duration((slot+1)*windowMs-nowMs) * time.Millisecond

	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, resetIn, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return count <= int64(l.limit), resetIn, nil
}

// Middleware rejects requests over the limit with 429. Requests are keyed
// by path and client address. Redis errors let the request through.
func Middleware(l *FixedWindow, logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "ratelimit").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.URL.Path + "|" + clientIP(r)
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			allowed, resetIn, err := l.Allow(ctx, key)
			cancel()
			if err != nil {
				logger.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				secs := int(resetIn.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"too many requests"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP expects RemoteAddr already rewritten by chi's RealIP middleware.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
