/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/airtime/internal/logbuffer"
)

const defaultLogLimit = 200

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := logbuffer.Query{
		Level:     q.Get("level"),
		Component: q.Get("component"),
		Show:      q.Get("show"),
		Search:    q.Get("search"),
		Limit:     defaultLogLimit,
		Newest:    true,
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		query.Limit = n
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
		query.Since = since
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": a.logs.Find(query),
		"stats":   a.logs.Stats(),
	})
}
