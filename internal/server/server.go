/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration into the running station: persistence,
// collaborators, the show timer, the music queue and the HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/airtime/internal/api"
	"github.com/friendsincode/airtime/internal/clock"
	"github.com/friendsincode/airtime/internal/config"
	"github.com/friendsincode/airtime/internal/db"
	"github.com/friendsincode/airtime/internal/eventbus"
	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/leadership"
	"github.com/friendsincode/airtime/internal/lineup"
	"github.com/friendsincode/airtime/internal/logbuffer"
	"github.com/friendsincode/airtime/internal/musicgen"
	"github.com/friendsincode/airtime/internal/playout"
	"github.com/friendsincode/airtime/internal/ratelimit"
	"github.com/friendsincode/airtime/internal/scheduler"
	"github.com/friendsincode/airtime/internal/scheduler/state"
	"github.com/friendsincode/airtime/internal/speech"
	"github.com/friendsincode/airtime/internal/store"
	"github.com/friendsincode/airtime/internal/telemetry"
	"github.com/friendsincode/airtime/internal/underwriting"
	"github.com/friendsincode/airtime/internal/webhooks"
)

const startupTimeout = 15 * time.Second

// voice is a collaborator that both speaks and plays audio.
type voice interface {
	speech.Speaker
	speech.AudioPlayer
}

// Server bundles HTTP and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db    *gorm.DB
	redis *redis.Client
	nats  *nats.Conn

	bus         *events.Bus
	store       *store.Store
	ads         *underwriting.Service
	controller  *playout.Controller
	timer       *scheduler.Timer
	music       *musicgen.Processor
	lineup      *lineup.Lineup
	autopilot   *lineup.Autopilot
	workers     leadership.Runner
	leader      *leadership.LeaderAware
	relay       *eventbus.Relay
	webhooks    *webhooks.Service
	api         *api.API
	logs        *logbuffer.Buffer

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// Option adjusts a Server before its dependencies are built.
type Option func(*Server)

// WithLogBuffer serves buf to operators at /api/v1/logs.
func WithLogBuffer(buf *logbuffer.Buffer) Option {
	return func(s *Server) { s.logs = buf }
}

// New builds every dependency, loads persisted state and starts background workers.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("airtime-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Websocket streams manage their own lifetime.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(30 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.closeResources()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		// WriteTimeout stays 0 for websocket streams; the middleware timeout covers the rest.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		srv.metricsServer = &http.Server{
			Addr:              cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return srv, nil
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	logger = logger.With().Str("component", "http").Logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if s.cfg.NeedsRedis() {
		client := redis.NewClient(&redis.Options{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPassword,
			DB:       s.cfg.RedisDB,
		})
		s.DeferClose(client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		s.redis = client
	}

	if s.cfg.NeedsNATS() {
		nc, err := nats.Connect(s.cfg.NATSURL,
			nats.Name("airtime"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				s.logger.Warn().Err(err).Msg("nats disconnected")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				s.logger.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
			}),
		)
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		s.nats = nc
		s.DeferClose(nc.Drain)
	}

	persist, err := s.persistence()
	if err != nil {
		return err
	}
	s.store = store.New(persist, s.logger)
	if err := s.store.Load(ctx); err != nil {
		return fmt.Errorf("load booking store: %w", err)
	}

	var v voice
	switch s.cfg.SpeechBackend {
	case config.BackendNATS:
		v = speech.NewNATSSpeaker(s.nats, s.cfg.CollaboratorTimeout, s.logger)
	default:
		v = speech.NewLogSpeaker(s.cfg.SimulatedSpeechTime, s.logger)
	}

	var gen musicgen.Generator
	switch s.cfg.GeneratorBackend {
	case config.BackendNATS:
		gen = musicgen.NewNATSGenerator(s.nats, s.cfg.CollaboratorTimeout, s.logger)
	default:
		gen = musicgen.NewSimulatedGenerator(s.cfg.SimulatedGeneration, s.logger)
	}

	s.ads = underwriting.NewService(s.store, s.bus, s.logger)
	s.controller = playout.NewController(s.store, v, v, clock.System{}, s.bus, s.logger)
	s.timer = scheduler.New(s.ads, s.controller, clock.System{}, s.bus, state.NewStore(state.DefaultCapacity), s.cfg.TickInterval, s.logger)
	s.ads.SetLiveShow(s.timer)

	opts := musicgen.Options{
		MaxAttempts: s.cfg.MusicMaxAttempts,
		RetryDelay:  s.cfg.MusicRetryDelay,
	}
	if s.sharedStore() {
		opts.IdlePoll = s.cfg.StoreRefresh
	}
	s.music = musicgen.NewProcessor(s.store, v, v, gen, s.bus, opts, s.logger)

	if s.cfg.LineupFile != "" {
		l, err := lineup.Load(s.cfg.LineupFile)
		if err != nil {
			return fmt.Errorf("load lineup: %w", err)
		}
		s.lineup = l
	} else {
		s.lineup = lineup.Default(time.Local)
	}

	workers := []leadership.Runner{s.music}
	if s.cfg.Autopilot {
		s.autopilot = lineup.NewAutopilot(s.lineup, s.timer, clock.System{}, s.cfg.TickInterval, s.logger)
		workers = append(workers, s.autopilot)
	}
	s.workers = leadership.Group(workers...)

	if s.cfg.LeaderElectionEnabled {
		election := leadership.NewElectionWithClient(s.redis, leadership.ElectionConfig{
			InstanceID: s.cfg.InstanceID,
		}, s.logger)
		s.leader = leadership.NewLeaderAware("station_workers", s.workers, election, s.logger)
		s.workers = s.leader
		s.logger.Info().Str("instance_id", election.InstanceID()).Bool("autopilot", s.cfg.Autopilot).Msg("leader election enabled for station workers")
	}

	switch s.cfg.EventRelay {
	case config.RelayRedis:
		s.relay = eventbus.NewRelay(s.bus, eventbus.NewRedisTransportFromClient(s.redis), s.cfg.InstanceID, events.StreamTypes, s.logger)
	case config.RelayNATS:
		s.relay = eventbus.NewRelay(s.bus, eventbus.NewNATSTransport(s.nats), s.cfg.InstanceID, events.StreamTypes, s.logger)
	}

	s.api = api.New(s.ads, s.store, s.timer, s.music, s.bus, []byte(s.cfg.JWTSigningKey), s.logger)
	if s.leader != nil {
		s.api.SetLeaderCheck(s.leader.Running)
	}
	s.api.SetLineup(s.lineup)
	if s.logs != nil {
		s.api.SetLogBuffer(s.logs)
	}
	if s.cfg.RateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewFixedWindow(s.redis, ratelimit.DefaultPrefix, s.cfg.RateLimitPerMinute, time.Minute)
		if err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
		s.api.SetSubmissionLimit(ratelimit.Middleware(limiter, s.logger))
	}

	if len(s.cfg.WebhookURLs) > 0 {
		hooks, err := webhooks.NewService(s.bus, s.cfg.WebhookURLs, s.cfg.WebhookSecret, s.cfg.WebhookEvents, s.logger)
		if err != nil {
			return fmt.Errorf("webhooks: %w", err)
		}
		s.webhooks = hooks
	}
	return nil
}

func (s *Server) persistence() (store.Persistence, error) {
	switch s.cfg.Persistence {
	case config.PersistenceDatabase:
		database, err := db.Connect(s.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		s.db = database
		s.DeferClose(func() error { return db.Close(database) })
		return store.NewGormPersistence(database), nil
	case config.PersistenceRedis:
		return store.NewRedisPersistenceFromClient(s.redis, s.cfg.RedisPrefix), nil
	case config.PersistenceS3:
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		persist, err := store.NewS3Persistence(ctx, store.S3Config{
			Region:          s.cfg.S3Region,
			Bucket:          s.cfg.S3Bucket,
			Prefix:          s.cfg.S3Prefix,
			Endpoint:        s.cfg.S3Endpoint,
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 persistence: %w", err)
		}
		return persist, nil
	default:
		s.logger.Warn().Msg("using in-memory persistence; bookings are lost on restart")
		return store.NewMemoryPersistence(), nil
	}
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer is the dedicated metrics listener, or nil when metrics are
// served on the main router.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Close drains workers, stops the show and releases owned resources in reverse order.
// Workers go first so the autopilot cannot restart a show after it stops.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.controller != nil {
		s.controller.Close()
	}
	return s.closeResources()
}

func (s *Server) closeResources() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.relay != nil {
		if err := s.relay.Start(ctx); err != nil {
			s.logger.Error().Err(err).Msg("event relay failed to start; events stay local")
			s.relay = nil
		}
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.workers.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("station workers exited")
		}
	}()

	if s.webhooks != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			_ = s.webhooks.Run(ctx)
		}()
	}

	if s.sharedStore() && s.cfg.StoreRefresh > 0 {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.refreshStore(ctx, s.cfg.StoreRefresh)
		}()
	}

	if s.db != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				db.UpdateConnectionMetrics(s.db)
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}
}

// sharedStore reports whether other instances may write the same persistence.
func (s *Server) sharedStore() bool {
	return s.cfg.Persistence != config.PersistenceMemory
}

// refreshStore re-reads shared persistence so reads on this instance pick up
// bookings and requests written elsewhere.
func (s *Server) refreshStore(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := s.store.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("refresh booking store")
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
	if s.relay != nil {
		if err := s.relay.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("event relay stop")
		}
	}
}

func (s *Server) configureRoutes() {
	if s.cfg.MetricsBind == "" {
		s.router.Handle("/metrics", telemetry.Handler())
	}
	s.api.Routes(s.router)
}
