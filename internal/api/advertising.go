/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/airtime/internal/clock"
	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/store"
	"github.com/friendsincode/airtime/internal/underwriting"
)

func (a *API) handleAdvertisingList(w http.ResponseWriter, r *http.Request) {
	if show := strings.TrimSpace(r.URL.Query().Get("show")); show != "" {
		ads := a.ads.AdvertisementsForShow(show)
		if ads == nil {
			ads = []models.Advertisement{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"advertisements": ads})
		return
	}

	ads := a.ads.Advertisements()
	if ads == nil {
		ads = []models.Advertisement{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"advertisements": ads,
		"stats":          a.ads.Stats(),
	})
}

func (a *API) handleAdvertisingCreate(w http.ResponseWriter, r *http.Request) {
	var req underwriting.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ad, err := a.ads.Book(r.Context(), req)
	switch {
	case errors.Is(err, underwriting.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		a.logger.Error().Err(err).Msg("booking failed")
		writeError(w, http.StatusInternalServerError, "failed to process advertisement")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"advertisement": ad,
	})
}

func (a *API) handleAdvertisingDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := a.ads.Cancel(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "advertisement not found")
		return
	case err != nil:
		a.logger.Error().Err(err).Str("ad", id).Msg("cancel failed")
		writeError(w, http.StatusInternalServerError, "failed to cancel advertisement")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAdvertisingSlots(w http.ResponseWriter, r *http.Request) {
	show := strings.TrimSpace(r.URL.Query().Get("show"))
	if show == "" {
		writeError(w, http.StatusBadRequest, "show required")
		return
	}
	var duration int
	if r.URL.Query().Get("duration") == "" && a.lineup != nil {
		duration, _ = a.lineup.Duration(show)
	}
	if duration == 0 {
		var ok bool
		if duration, ok = queryDuration(w, r); !ok {
			return
		}
	}

	schedule := clock.ScheduleFor(duration)
	slots := a.ads.AvailableSlots(show, duration, a.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"show":        show,
		"bucket":      schedule.Bucket,
		"totalAdTime": schedule.TotalAdTime,
		"slots":       slots,
	})
}

func (a *API) handleAdvertisingSchedule(w http.ResponseWriter, r *http.Request) {
	duration, ok := queryDuration(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schedule": clock.ScheduleFor(duration),
		"plan":     clock.Compile(duration, a.now()),
	})
}

func (a *API) handleAdvertisingPricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pricing": underwriting.RateCard()})
}

func queryDuration(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("duration")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "duration required")
		return 0, false
	}
	duration, err := strconv.Atoi(raw)
	if err != nil || duration <= 0 {
		writeError(w, http.StatusBadRequest, "duration must be a positive number of minutes")
		return 0, false
	}
	return duration, true
}
