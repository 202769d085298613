/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/auth"
	"github.com/friendsincode/airtime/internal/config"
	"github.com/friendsincode/airtime/internal/logbuffer"
	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/scheduler"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:         "test",
		HTTPBind:            "127.0.0.1",
		HTTPPort:            0,
		Persistence:         config.PersistenceMemory,
		SpeechBackend:       config.BackendLog,
		GeneratorBackend:    config.BackendSimulated,
		EventRelay:          config.RelayNone,
		CollaboratorTimeout: time.Second,
		JWTSigningKey:       "test-secret",
		TickInterval:        time.Hour,
		MusicRetryDelay:     10 * time.Millisecond,
		MusicMaxAttempts:    3,
	}
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestServer_MemoryEndToEnd(t *testing.T) {
	srv, err := New(testConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()
	h := srv.Handler()

	rr := postJSON(t, h, "/api/v1/advertising", map[string]any{
		"companyName":   "TechCorp",
		"adScript":      "Upgrade today.",
		"selectedShow":  "Tech Talk with Neural Nancy",
		"adType":        "script",
		"duration":      10,
		"brandCategory": "technology",
		"amount":        0.05,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("booking: %d %s", rr.Code, rr.Body.String())
	}

	rr = postJSON(t, h, "/api/v1/music-requests", map[string]any{
		"type":     "request",
		"userName": "sam",
		"message":  "chill jazz",
		"showName": "Tech Talk with Neural Nancy",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("music request: %d %s", rr.Code, rr.Body.String())
	}

	// The simulated generator completes immediately with a zero delay.
	waitFor(t, func() bool {
		reqs := srv.store.MusicRequests()
		return len(reqs) == 1 && reqs[0].Status == models.RequestCompleted
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "airtime_") {
		t.Fatalf("expected airtime metrics, got %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers on every route")
	}
}

func TestServer_RedisPersistenceSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Persistence = config.PersistenceRedis
	cfg.RedisAddr = mr.Addr()
	cfg.EventRelay = config.RelayRedis
	cfg.LeaderElectionEnabled = true

	first, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rr := postJSON(t, first.Handler(), "/api/v1/advertising", map[string]any{
		"companyName":   "Acme",
		"audioUrl":      "https://cdn.example.com/acme.mp3",
		"selectedShow":  "Night Owl with Algorithmic Andy",
		"adType":        "audio",
		"duration":      30,
		"brandCategory": "automotive",
		"amount":        50,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("booking: %d %s", rr.Code, rr.Body.String())
	}
	waitFor(t, first.leader.Running)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	first.Handler().ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), `"leader":true`) {
		t.Fatalf("expected leader flag in health, got %s", rec.Body.String())
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New after restart: %v", err)
	}
	defer second.Close()
	ads := second.store.Advertisements()
	if len(ads) != 1 || ads[0].CompanyName != "Acme" {
		t.Fatalf("expected booking to survive restart, got %+v", ads)
	}
}

func TestServer_InstancesSharingRedisSeeEachOthersBookings(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Persistence = config.PersistenceRedis
	cfg.RedisAddr = mr.Addr()
	cfg.StoreRefresh = 20 * time.Millisecond

	first, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New first: %v", err)
	}
	defer first.Close()
	second, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close()

	for i, h := range []http.Handler{first.Handler(), second.Handler()} {
		rr := postJSON(t, h, "/api/v1/advertising", map[string]any{
			"companyName":   fmt.Sprintf("Sponsor %d", i),
			"adScript":      "Drive safe tonight.",
			"selectedShow":  "Night Owl with Algorithmic Andy",
			"adType":        "script",
			"duration":      30,
			"brandCategory": "automotive",
			"amount":        50,
		})
		if rr.Code != http.StatusOK {
			t.Fatalf("booking %d: %d %s", i, rr.Code, rr.Body.String())
		}
	}

	waitFor(t, func() bool { return len(first.store.Advertisements()) == 2 })
	waitFor(t, func() bool { return len(second.store.Advertisements()) == 2 })
}

func TestServer_FailsWhenRedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Persistence = config.PersistenceRedis
	cfg.RedisAddr = "127.0.0.1:1"
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected startup to fail without redis")
	}
}

func TestServer_WebhooksAndLogs(t *testing.T) {
	hooks := make(chan string, 32)
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case hooks <- r.Header.Get("X-Airtime-Event"):
		default:
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer target.Close()

	cfg := testConfig()
	cfg.WebhookURLs = []string{target.URL}
	cfg.WebhookEvents = []string{"ad.booked"}
	buf := logbuffer.New(100)
	logger := zerolog.New(logbuffer.NewWriter(buf, nil))

	srv, err := New(cfg, logger, WithLogBuffer(buf))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()
	h := srv.Handler()

	booking := map[string]any{
		"companyName":   "Acme Outdoors",
		"adScript":      "Gear up.",
		"selectedShow":  "Tech Talk with Neural Nancy",
		"adType":        "script",
		"duration":      20,
		"brandCategory": "technology",
		"amount":        30,
	}
	// The webhook worker subscribes in the background; book until it hears one.
	deadline := time.After(3 * time.Second)
	for heard := false; !heard; {
		if rr := postJSON(t, h, "/api/v1/advertising", booking); rr.Code != http.StatusOK {
			t.Fatalf("booking: %d %s", rr.Code, rr.Body.String())
		}
		select {
		case ev := <-hooks:
			if ev != "ad.booked" {
				t.Fatalf("unexpected webhook event %q", ev)
			}
			heard = true
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("no webhook delivered")
		}
	}

	token, err := auth.Issue([]byte(cfg.JWTSigningKey), auth.Claims{UserID: "op", Roles: []string{auth.RoleOperator}}, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs?component=webhooks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("logs: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "webhook service started") {
		t.Fatalf("expected webhook startup line in logs, got %s", rec.Body.String())
	}
}

func TestServer_AutopilotRunsLineup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lineup.yaml")
	data := `shows:
  - name: Round The Clock
    duration: 60
    rrule: FREQ=HOURLY;BYMINUTE=0;BYSECOND=0
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write lineup: %v", err)
	}

	cfg := testConfig()
	cfg.LineupFile = path
	cfg.Autopilot = true

	srv, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	waitFor(t, func() bool {
		st := srv.timer.Status()
		return st.State == scheduler.StateRunning && st.ShowName == "Round The Clock"
	})

	if err := srv.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if st := srv.timer.Status(); st.State != scheduler.StateIdle {
		t.Fatalf("expected idle timer after close, got %s", st.State)
	}
}

func TestServer_RejectsBadLineupFile(t *testing.T) {
	cfg := testConfig()
	cfg.LineupFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := New(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing lineup file")
	}
}

func TestServer_RateLimitsPublicSubmissions(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	cfg.RateLimitPerMinute = 1

	srv, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Close()
	h := srv.Handler()

	body := map[string]any{
		"type":     "request",
		"userName": "sam",
		"message":  "lofi beats",
		"showName": "Midday Mix with DJ Turing",
	}
	if rr := postJSON(t, h, "/api/v1/music-requests", body); rr.Code != http.StatusOK {
		t.Fatalf("first request: %d %s", rr.Code, rr.Body.String())
	}
	rr := postJSON(t, h, "/api/v1/music-requests", body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}

	// Reads are never throttled.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/music-requests", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
}
