/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AIRTIME_JWT_SIGNING_KEY", "supersecret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Persistence != PersistenceMemory {
		t.Fatalf("expected memory persistence, got %q", cfg.Persistence)
	}
	if cfg.TickInterval != 10*time.Second {
		t.Fatalf("expected 10s tick, got %v", cfg.TickInterval)
	}
	if cfg.MusicMaxAttempts != 3 || cfg.MusicRetryDelay != 2*time.Second {
		t.Fatalf("unexpected music retry defaults: %d %v", cfg.MusicMaxAttempts, cfg.MusicRetryDelay)
	}
	if cfg.SimulatedGeneration != 5*time.Second {
		t.Fatalf("expected 5s simulated generation, got %v", cfg.SimulatedGeneration)
	}
	if cfg.HTTPAddr() != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %q", cfg.HTTPAddr())
	}
	if cfg.NeedsNATS() || cfg.NeedsRedis() {
		t.Fatalf("defaults should need neither NATS nor Redis")
	}
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("AIRTIME_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("AIRTIME_PERSISTENCE", "database")
	t.Setenv("AIRTIME_DB_BACKEND", "postgres")
	t.Setenv("AIRTIME_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("AIRTIME_TICK_INTERVAL_SECONDS", "0.5")
	t.Setenv("AIRTIME_SPEECH_BACKEND", "NATS")
	t.Setenv("AIRTIME_NATS_URL", "nats://localhost:4222")
	t.Setenv("AIRTIME_LEADER_ELECTION_ENABLED", "yes")
	t.Setenv("AIRTIME_WEBHOOK_URLS", "https://sponsor.example.com/hook, ,http://ops.internal:9000/airtime")
	t.Setenv("AIRTIME_WEBHOOK_EVENTS", "ad.completed,music.failed")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBBackend != DatabasePostgres || cfg.DBDSN == "" {
		t.Fatalf("unexpected db config: %q %q", cfg.DBBackend, cfg.DBDSN)
	}
	if cfg.TickInterval != 500*time.Millisecond {
		t.Fatalf("expected 500ms tick, got %v", cfg.TickInterval)
	}
	if cfg.SpeechBackend != BackendNATS || !cfg.NeedsNATS() {
		t.Fatalf("expected nats speech backend")
	}
	if !cfg.LeaderElectionEnabled || !cfg.NeedsRedis() {
		t.Fatalf("expected leader election to require redis")
	}
	if len(cfg.WebhookURLs) != 2 || cfg.WebhookURLs[1] != "http://ops.internal:9000/airtime" {
		t.Fatalf("unexpected webhook urls: %v", cfg.WebhookURLs)
	}
	if len(cfg.WebhookEvents) != 2 || cfg.WebhookEvents[0] != "ad.completed" {
		t.Fatalf("unexpected webhook events: %v", cfg.WebhookEvents)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt key", map[string]string{"AIRTIME_JWT_SIGNING_KEY": ""}},
		{"unknown persistence", map[string]string{"AIRTIME_PERSISTENCE": "ftp"}},
		{"s3 without bucket", map[string]string{"AIRTIME_PERSISTENCE": "s3"}},
		{"database without dsn", map[string]string{"AIRTIME_PERSISTENCE": "database"}},
		{"unknown db backend", map[string]string{"AIRTIME_PERSISTENCE": "database", "AIRTIME_DB_DSN": "x", "AIRTIME_DB_BACKEND": "oracle"}},
		{"nats speech without url", map[string]string{"AIRTIME_SPEECH_BACKEND": "nats"}},
		{"nats relay without url", map[string]string{"AIRTIME_EVENT_RELAY": "nats"}},
		{"unknown generator", map[string]string{"AIRTIME_GENERATOR_BACKEND": "magic"}},
		{"unknown relay", map[string]string{"AIRTIME_EVENT_RELAY": "kafka"}},
		{"zero tick", map[string]string{"AIRTIME_TICK_INTERVAL_SECONDS": "0"}},
		{"zero attempts", map[string]string{"AIRTIME_MUSIC_MAX_ATTEMPTS": "0"}},
		{"webhook without scheme", map[string]string{"AIRTIME_WEBHOOK_URLS": "sponsor.example.com/hook"}},
		{"negative rate limit", map[string]string{"AIRTIME_RATE_LIMIT_PER_MINUTE": "-1"}},
		{"leader election on memory persistence", map[string]string{"AIRTIME_LEADER_ELECTION_ENABLED": "true"}},
		{"negative store refresh", map[string]string{"AIRTIME_STORE_REFRESH_SECONDS": "-1"}},
		{"sample rate above one", map[string]string{"AIRTIME_TRACING_SAMPLE_RATE": "1.5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AIRTIME_JWT_SIGNING_KEY", "supersecret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected load to fail")
			}
		})
	}
}

func TestLoadS3Persistence(t *testing.T) {
	t.Setenv("AIRTIME_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("AIRTIME_PERSISTENCE", "s3")
	t.Setenv("AIRTIME_S3_BUCKET", "station-state")
	t.Setenv("AIRTIME_S3_ENDPOINT", "http://minio:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Persistence != PersistenceS3 || cfg.S3Bucket != "station-state" || cfg.S3Endpoint != "http://minio:9000" {
		t.Fatalf("unexpected s3 config: %+v", cfg)
	}
	if cfg.S3Region != "us-east-1" {
		t.Errorf("expected default region, got %q", cfg.S3Region)
	}
	if cfg.NeedsRedis() {
		t.Error("s3 persistence should not need redis")
	}
}

func TestRateLimitNeedsRedis(t *testing.T) {
	t.Setenv("AIRTIME_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("AIRTIME_RATE_LIMIT_PER_MINUTE", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.RateLimitPerMinute != 5 || !cfg.NeedsRedis() {
		t.Fatalf("expected rate limit to require redis, got %+v", cfg)
	}
}
