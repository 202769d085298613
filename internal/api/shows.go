/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/airtime/internal/auth"
	"github.com/friendsincode/airtime/internal/scheduler"
)

type showStartRequest struct {
	ShowName     string `json:"showName"`
	ShowDuration int    `json:"showDuration"`
}

func (a *API) handleShowStart(w http.ResponseWriter, r *http.Request) {
	var req showStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// The show outlives the request; Stop or server shutdown ends it.
	err := a.timer.Start(context.WithoutCancel(r.Context()), req.ShowName, req.ShowDuration)
	if errors.Is(err, scheduler.ErrInvalidShow) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("show start failed")
		writeError(w, http.StatusInternalServerError, "failed to start show")
		return
	}

	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		a.logger.Info().Str("user_id", claims.UserID).Str("show", req.ShowName).Msg("show started by operator")
	}
	writeJSON(w, http.StatusOK, a.timer.Status())
}

func (a *API) handleShowStop(w http.ResponseWriter, r *http.Request) {
	a.timer.Stop()
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		a.logger.Info().Str("user_id", claims.UserID).Msg("show stopped by operator")
	}
	writeJSON(w, http.StatusOK, a.timer.Status())
}

func (a *API) handleShowCurrent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.timer.Status())
}

const maxLineupDays = 14

// handleShowLineup lists the recurring shows, what is on air now and the
// occurrences in the next ?days=N days (default 1).
func (a *API) handleShowLineup(w http.ResponseWriter, r *http.Request) {
	days := 1
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLineupDays {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 14")
			return
		}
		days = n
	}

	now := a.now()
	resp := map[string]any{
		"timezone": a.lineup.Location().String(),
		"shows":    a.lineup.Shows(),
		"upcoming": a.lineup.Between(now, now.Add(time.Duration(days)*24*time.Hour)),
	}
	if occ, ok := a.lineup.OnAir(now); ok {
		resp["onAir"] = occ
	}
	writeJSON(w, http.StatusOK, resp)
}
