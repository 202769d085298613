/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseBackend selects the SQL driver used for database persistence.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// PersistenceKind selects where the booking store keeps its collections.
type PersistenceKind string

const (
	PersistenceMemory   PersistenceKind = "memory"
	PersistenceDatabase PersistenceKind = "database"
	PersistenceRedis    PersistenceKind = "redis"
	PersistenceS3       PersistenceKind = "s3"
)

// Collaborator backends for speech and music generation.
const (
	BackendLog       = "log"
	BackendSimulated = "simulated"
	BackendNATS      = "nats"
)

// Event relay transports.
const (
	RelayNone  = "none"
	RelayRedis = "redis"
	RelayNATS  = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string // empty serves /metrics on the main listener

	Persistence PersistenceKind
	DBBackend   DatabaseBackend
	DBDSN       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	S3Bucket          string
	S3Region          string
	S3Prefix          string
	S3Endpoint        string // S3-compatible endpoint such as MinIO
	S3AccessKeyID     string
	S3SecretAccessKey string

	NATSURL             string
	SpeechBackend       string
	GeneratorBackend    string
	CollaboratorTimeout time.Duration
	SimulatedSpeechTime time.Duration
	SimulatedGeneration time.Duration
	EventRelay          string

	JWTSigningKey string

	WebhookURLs   []string
	WebhookSecret string
	WebhookEvents []string // empty delivers every event type

	RateLimitPerMinute int // public submissions per client and minute; 0 disables

	TickInterval     time.Duration
	MusicRetryDelay  time.Duration
	MusicMaxAttempts int

	LineupFile string // YAML lineup; empty uses the built-in daily lineup
	Autopilot  bool   // start and stop shows from the lineup

	// Multi-instance configuration
	LeaderElectionEnabled bool
	InstanceID            string
	StoreRefresh          time.Duration // re-read shared persistence; 0 disables

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("AIRTIME_ENV", "development"),
		HTTPBind:    getEnv("AIRTIME_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("AIRTIME_HTTP_PORT", 8080),
		MetricsBind: getEnv("AIRTIME_METRICS_BIND", ""),

		Persistence: PersistenceKind(getEnv("AIRTIME_PERSISTENCE", string(PersistenceMemory))),
		DBBackend:   DatabaseBackend(getEnv("AIRTIME_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("AIRTIME_DB_DSN", ""),

		RedisAddr:     getEnv("AIRTIME_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("AIRTIME_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("AIRTIME_REDIS_DB", 0),
		RedisPrefix:   getEnv("AIRTIME_REDIS_PREFIX", ""),

		S3Bucket:          getEnv("AIRTIME_S3_BUCKET", ""),
		S3Region:          getEnv("AIRTIME_S3_REGION", "us-east-1"),
		S3Prefix:          getEnv("AIRTIME_S3_PREFIX", ""),
		S3Endpoint:        getEnv("AIRTIME_S3_ENDPOINT", ""),
		S3AccessKeyID:     getEnv("AIRTIME_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("AIRTIME_S3_SECRET_ACCESS_KEY", ""),

		NATSURL:             getEnv("AIRTIME_NATS_URL", ""),
		SpeechBackend:       strings.ToLower(getEnv("AIRTIME_SPEECH_BACKEND", BackendLog)),
		GeneratorBackend:    strings.ToLower(getEnv("AIRTIME_GENERATOR_BACKEND", BackendSimulated)),
		CollaboratorTimeout: getEnvSeconds("AIRTIME_COLLABORATOR_TIMEOUT_SECONDS", 120),
		SimulatedSpeechTime: getEnvSeconds("AIRTIME_SIMULATED_SPEECH_SECONDS", 0),
		SimulatedGeneration: getEnvSeconds("AIRTIME_SIMULATED_GENERATION_SECONDS", 5),
		EventRelay:          strings.ToLower(getEnv("AIRTIME_EVENT_RELAY", RelayNone)),

		JWTSigningKey: getEnv("AIRTIME_JWT_SIGNING_KEY", ""),

		WebhookURLs:   getEnvList("AIRTIME_WEBHOOK_URLS"),
		WebhookSecret: getEnv("AIRTIME_WEBHOOK_SECRET", ""),
		WebhookEvents: getEnvList("AIRTIME_WEBHOOK_EVENTS"),

		RateLimitPerMinute: getEnvInt("AIRTIME_RATE_LIMIT_PER_MINUTE", 0),

		TickInterval:     getEnvSeconds("AIRTIME_TICK_INTERVAL_SECONDS", 10),
		MusicRetryDelay:  getEnvSeconds("AIRTIME_MUSIC_RETRY_DELAY_SECONDS", 2),
		MusicMaxAttempts: getEnvInt("AIRTIME_MUSIC_MAX_ATTEMPTS", 3),

		LineupFile: getEnv("AIRTIME_LINEUP_FILE", ""),
		Autopilot:  getEnvBool("AIRTIME_AUTOPILOT", false),

		LeaderElectionEnabled: getEnvBool("AIRTIME_LEADER_ELECTION_ENABLED", false),
		InstanceID:            getEnv("AIRTIME_INSTANCE_ID", ""),
		StoreRefresh:          getEnvSeconds("AIRTIME_STORE_REFRESH_SECONDS", 5),

		TracingEnabled:    getEnvBool("AIRTIME_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("AIRTIME_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("AIRTIME_TRACING_SAMPLE_RATE", 1.0),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Persistence {
	case PersistenceMemory, PersistenceRedis:
	case PersistenceDatabase:
		if c.DBBackend != DatabasePostgres && c.DBBackend != DatabaseMySQL && c.DBBackend != DatabaseSQLite {
			return fmt.Errorf("unsupported database backend %q", c.DBBackend)
		}
		if c.DBDSN == "" {
			return fmt.Errorf("AIRTIME_DB_DSN must be provided when AIRTIME_PERSISTENCE=database")
		}
	case PersistenceS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("AIRTIME_S3_BUCKET must be provided when AIRTIME_PERSISTENCE=s3")
		}
	default:
		return fmt.Errorf("unsupported persistence %q", c.Persistence)
	}

	if c.JWTSigningKey == "" {
		return fmt.Errorf("AIRTIME_JWT_SIGNING_KEY must be provided")
	}

	if c.SpeechBackend != BackendLog && c.SpeechBackend != BackendNATS {
		return fmt.Errorf("unsupported speech backend %q", c.SpeechBackend)
	}
	if c.GeneratorBackend != BackendSimulated && c.GeneratorBackend != BackendNATS {
		return fmt.Errorf("unsupported generator backend %q", c.GeneratorBackend)
	}
	if c.EventRelay != RelayNone && c.EventRelay != RelayRedis && c.EventRelay != RelayNATS {
		return fmt.Errorf("unsupported event relay %q", c.EventRelay)
	}
	if c.NeedsNATS() && c.NATSURL == "" {
		return fmt.Errorf("AIRTIME_NATS_URL must be provided when a NATS backend is selected")
	}

	for _, raw := range c.WebhookURLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid webhook url %q", raw)
		}
	}

	if c.LeaderElectionEnabled && c.Persistence == PersistenceMemory {
		return fmt.Errorf("AIRTIME_LEADER_ELECTION_ENABLED requires shared persistence, not %q", PersistenceMemory)
	}
	if c.StoreRefresh < 0 {
		return fmt.Errorf("AIRTIME_STORE_REFRESH_SECONDS must not be negative")
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("AIRTIME_RATE_LIMIT_PER_MINUTE must not be negative")
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("AIRTIME_TICK_INTERVAL_SECONDS must be positive")
	}
	if c.MusicRetryDelay < 0 {
		return fmt.Errorf("AIRTIME_MUSIC_RETRY_DELAY_SECONDS must not be negative")
	}
	if c.MusicMaxAttempts < 1 {
		return fmt.Errorf("AIRTIME_MUSIC_MAX_ATTEMPTS must be at least 1")
	}
	if c.CollaboratorTimeout <= 0 {
		return fmt.Errorf("AIRTIME_COLLABORATOR_TIMEOUT_SECONDS must be positive")
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("AIRTIME_TRACING_SAMPLE_RATE must be between 0 and 1")
	}
	return nil
}

// NeedsNATS reports whether any component talks to NATS.
func (c *Config) NeedsNATS() bool {
	return c.SpeechBackend == BackendNATS || c.GeneratorBackend == BackendNATS || c.EventRelay == RelayNATS
}

// NeedsRedis reports whether any component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Persistence == PersistenceRedis || c.EventRelay == RelayRedis || c.LeaderElectionEnabled ||
		c.RateLimitPerMinute > 0
}

// HTTPAddr is the main listener address.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvSeconds(key string, def float64) time.Duration {
	return time.Duration(getEnvFloat(key, def) * float64(time.Second))
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return def
}
