/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the booking, music request and show control endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/auth"
	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/lineup"
	"github.com/friendsincode/airtime/internal/logbuffer"
	"github.com/friendsincode/airtime/internal/musicgen"
	"github.com/friendsincode/airtime/internal/scheduler"
	"github.com/friendsincode/airtime/internal/store"
	"github.com/friendsincode/airtime/internal/underwriting"
	"github.com/friendsincode/airtime/internal/version"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// API exposes HTTP handlers.
type API struct {
	ads       *underwriting.Service
	store     *store.Store
	timer     *scheduler.Timer
	music     *musicgen.Processor
	bus       *events.Bus
	jwtSecret []byte
	now       func() time.Time
	isLeader  func() bool
	logs      *logbuffer.Buffer
	lineup    *lineup.Lineup
	throttle  func(http.Handler) http.Handler
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(ads *underwriting.Service, st *store.Store, timer *scheduler.Timer, music *musicgen.Processor, bus *events.Bus, jwtSecret []byte, logger zerolog.Logger) *API {
	return &API{
		ads:       ads,
		store:     st,
		timer:     timer,
		music:     music,
		bus:       bus,
		jwtSecret: jwtSecret,
		now:       time.Now,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// SetLeaderCheck makes health responses report whether this instance
// currently runs the music queue.
func (a *API) SetLeaderCheck(fn func() bool) {
	a.isLeader = fn
}

// SetLogBuffer exposes recent log lines to operators. Call before Routes.
func (a *API) SetLogBuffer(buf *logbuffer.Buffer) {
	a.logs = buf
}

// SetLineup publishes the show lineup and lets slot lookups default to a
// show's scheduled length. Call before Routes.
func (a *API) SetLineup(l *lineup.Lineup) {
	a.lineup = l
}

// SetSubmissionLimit wraps the public booking and request endpoints.
// Call before Routes.
func (a *API) SetSubmissionLimit(mw func(http.Handler) http.Handler) {
	a.throttle = mw
}

func (a *API) submissions(h http.HandlerFunc) http.Handler {
	if a.throttle == nil {
		return h
	}
	return a.throttle(h)
}

// Routes registers every endpoint on r.
func (a *API) Routes(r chi.Router) {
	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/advertising", func(r chi.Router) {
			r.Get("/", a.handleAdvertisingList)
			r.Method(http.MethodPost, "/", a.submissions(a.handleAdvertisingCreate))
			r.Get("/slots", a.handleAdvertisingSlots)
			r.Get("/schedule", a.handleAdvertisingSchedule)
			r.Get("/pricing", a.handleAdvertisingPricing)
			r.Delete("/{id}", a.handleAdvertisingDelete)
		})

		r.Route("/music-requests", func(r chi.Router) {
			r.Get("/", a.handleMusicRequestsList)
			r.Method(http.MethodPost, "/", a.submissions(a.handleMusicRequestsCreate))
		})

		r.Get("/shows/current", a.handleShowCurrent)
		if a.lineup != nil {
			r.Get("/shows/lineup", a.handleShowLineup)
		}
		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))
			pr.Use(auth.RequireRole(auth.RoleOperator))
			pr.Post("/shows/start", a.handleShowStart)
			pr.Post("/shows/stop", a.handleShowStop)
			if a.logs != nil {
				pr.Get("/logs", a.handleLogs)
			}
		})

		r.Get("/events", a.handleEvents)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":       "ok",
		"version":      version.Version,
		"show":         a.timer.Status().State,
		"pendingMusic": a.store.PendingCount(),
	}
	if a.isLeader != nil {
		resp["leader"] = a.isLeader()
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
