/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package leadership elects one instance to own singleton background work
// (the music request queue) using a Redis lease.
package leadership

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/telemetry"
)

const (
	defaultElectionKey     = "airtime:leader:music-queue"
	defaultLeaseDuration   = 15 * time.Second
	defaultRenewalInterval = 5 * time.Second
	defaultRetryInterval   = 2 * time.Second
)

// releaseScript deletes the lease only if this instance still holds it.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// Election manages distributed leader election using Redis
type Election struct {
	client     *redis.Client
	ownsClient bool
	logger     zerolog.Logger
	config     ElectionConfig

	isLeader atomic.Bool
	leaderCh chan bool

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// ElectionConfig configures leader election behavior
type ElectionConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// ElectionKey is the Redis key holding the current leader's instance ID.
	ElectionKey string

	// LeaseDuration is how long the lease survives without renewal.
	LeaseDuration time.Duration

	// RetryInterval is how often every instance tries to acquire or renew.
	// It must stay well below LeaseDuration.
	RetryInterval time.Duration

	InstanceID string
}

func (c *ElectionConfig) applyDefaults() {
	if c.ElectionKey == "" {
		c.ElectionKey = defaultElectionKey
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = defaultLeaseDuration
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.RetryInterval >= c.LeaseDuration {
		c.RetryInterval = c.LeaseDuration / 3
	}
	if c.InstanceID == "" {
		c.InstanceID = uuid.NewString()
	}
}

// NewElection connects to Redis and creates an election manager.
func NewElection(config ElectionConfig, logger zerolog.Logger) (*Election, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	e := NewElectionWithClient(client, config, logger)
	e.ownsClient = true
	e.logger.Info().
		Str("redis_addr", config.RedisAddr).
		Str("instance_id", e.config.InstanceID).
		Msg("connected to Redis for leader election")
	return e, nil
}

// NewElectionWithClient creates an election manager on an existing client.
// The caller keeps ownership of the client.
func NewElectionWithClient(client *redis.Client, config ElectionConfig, logger zerolog.Logger) *Election {
	config.applyDefaults()
	return &Election{
		client:   client,
		logger:   logger.With().Str("component", "leader_election").Logger(),
		config:   config,
		leaderCh: make(chan bool, 1),
	}
}

// InstanceID returns this instance's identity in the election.
func (e *Election) InstanceID() string {
	return e.config.InstanceID
}

// Start begins campaigning. The first attempt runs immediately.
func (e *Election) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return fmt.Errorf("election already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})

	e.logger.Info().
		Str("instance_id", e.config.InstanceID).
		Dur("lease_duration", e.config.LeaseDuration).
		Msg("starting leader election")

	go e.campaignLoop(ctx)
	return nil
}

// Stop ends the campaign and releases the lease if held. Safe to call more than once.
func (e *Election) Stop() error {
	var err error
	e.stopOnce.Do(func() {
		e.logger.Info().Msg("stopping leader election")

		e.mu.Lock()
		cancel, done := e.cancel, e.done
		e.mu.Unlock()
		if cancel != nil {
			cancel()
			<-done
		}

		if e.isLeader.Load() {
			ctx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelRelease()
			if relErr := e.releaseLock(ctx); relErr != nil {
				e.logger.Error().Err(relErr).Msg("failed to release leadership lock")
			}
			e.updateLeadershipStatus(false)
		}

		if e.ownsClient {
			err = e.client.Close()
		}
	})
	return err
}

// IsLeader returns whether this instance is currently the leader
func (e *Election) IsLeader() bool {
	return e.isLeader.Load()
}

// LeaderCh returns a channel that receives leadership status changes
func (e *Election) LeaderCh() <-chan bool {
	return e.leaderCh
}

// GetLeader returns the current leader instance ID, or "" when none holds the lease.
func (e *Election) GetLeader(ctx context.Context) (string, error) {
	leaderID, err := e.client.Get(ctx, e.config.ElectionKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get leader: %w", err)
	}
	return leaderID, nil
}

func (e *Election) campaignLoop(ctx context.Context) {
	defer close(e.done)

	ticker := time.NewTicker(e.config.RetryInterval)
	defer ticker.Stop()

	e.attemptLeadership(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.attemptLeadership(ctx)
		}
	}
}

func (e *Election) attemptLeadership(ctx context.Context) {
	acquired, err := e.acquireLock(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.logger.Error().Err(err).Msg("failed to acquire leadership lock")
		e.updateLeadershipStatus(false)
		return
	}

	if acquired && !e.isLeader.Load() {
		e.logger.Info().Str("instance_id", e.config.InstanceID).Msg("acquired leadership")
	}
	if !acquired && e.isLeader.Load() {
		e.logger.Warn().Str("instance_id", e.config.InstanceID).Msg("lost leadership")
	}
	e.updateLeadershipStatus(acquired)
}

// acquireLock takes the lease with SET NX, or renews it when this instance already holds it.
func (e *Election) acquireLock(ctx context.Context) (bool, error) {
	ok, err := e.client.SetNX(ctx, e.config.ElectionKey, e.config.InstanceID, e.config.LeaseDuration).Result()
	if err != nil {
		return false, fmt.Errorf("set lock: %w", err)
	}
	if ok {
		return true, nil
	}

	current, err := e.client.Get(ctx, e.config.ElectionKey).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get current leader: %w", err)
	}
	if current != e.config.InstanceID {
		return false, nil
	}

	if err := e.client.Expire(ctx, e.config.ElectionKey, e.config.LeaseDuration).Err(); err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	return true, nil
}

func (e *Election) releaseLock(ctx context.Context) error {
	if err := e.client.Eval(ctx, releaseScript, []string{e.config.ElectionKey}, e.config.InstanceID).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	e.logger.Info().Msg("released leadership lock")
	return nil
}

func (e *Election) updateLeadershipStatus(isLeader bool) {
	if e.isLeader.Swap(isLeader) == isLeader {
		return
	}

	id := e.config.InstanceID
	if isLeader {
		telemetry.LeaderElectionStatus.WithLabelValues(id).Set(1)
		telemetry.LeaderElectionChanges.WithLabelValues(id, "acquired").Inc()
	} else {
		telemetry.LeaderElectionStatus.WithLabelValues(id).Set(0)
		telemetry.LeaderElectionChanges.WithLabelValues(id, "lost").Inc()
	}

	// Keep only the latest status if nobody drained the previous one.
	select {
	case <-e.leaderCh:
	default:
	}
	select {
	case e.leaderCh <- isLeader:
	default:
	}
}
