/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/friendsincode/airtime/internal/logbuffer"
)

func TestSetupProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("production", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("component", "show_timer").Msg("show started")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["message"] != "show started" || entry["service"] != "airtime" || entry["component"] != "show_timer" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestSetupDevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("development", &buf)

	logger.Debug().Msg("slot due but no eligible ads")
	if !strings.Contains(buf.String(), "slot due but no eligible ads") {
		t.Fatalf("expected debug line in console output, got %q", buf.String())
	}
}

func TestSetupWithBufferCapturesDevelopmentLines(t *testing.T) {
	buf := logbuffer.New(10)
	var out bytes.Buffer
	logger := setup("development", &out, buf)

	logger.Debug().Str("component", "music_queue").Msg("request claimed")

	if !strings.Contains(out.String(), "request claimed") {
		t.Fatalf("expected console output, got %q", out.String())
	}
	got := buf.Find(logbuffer.Query{Component: "music_queue"})
	if len(got) != 1 || got[0].Message != "request claimed" || got[0].Level != "debug" {
		t.Fatalf("unexpected captured entries: %+v", got)
	}
}
