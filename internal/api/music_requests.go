/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/musicgen"
)

func (a *API) handleMusicRequestsList(w http.ResponseWriter, r *http.Request) {
	show := strings.TrimSpace(r.URL.Query().Get("show"))
	status := models.RequestStatus(strings.TrimSpace(r.URL.Query().Get("status")))

	requests := make([]models.MusicRequest, 0)
	for _, req := range a.store.MusicRequests() {
		if show != "" && req.ShowName != show {
			continue
		}
		if status != "" && req.Status != status {
			continue
		}
		requests = append(requests, req)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"requests": requests,
		"pending":  a.store.PendingCount(),
	})
}

func (a *API) handleMusicRequestsCreate(w http.ResponseWriter, r *http.Request) {
	var sub musicgen.Submission
	if !decodeJSON(w, r, &sub) {
		return
	}

	req, err := a.music.Submit(r.Context(), sub)
	switch {
	case errors.Is(err, musicgen.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.logger.Error().Err(err).Msg("music request failed")
		writeError(w, http.StatusInternalServerError, "failed to queue music request")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"request": req,
	})
}
