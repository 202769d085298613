/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewAdContent(t *testing.T) {
	tests := []struct {
		name    string
		kind    ContentKind
		script  string
		audio   string
		wantErr bool
	}{
		{"script", ContentScript, "Buy now.", "", false},
		{"audio", ContentAudio, "", "https://cdn.example.com/a.mp3", false},
		{"script missing text", ContentScript, "", "https://cdn.example.com/a.mp3", true},
		{"audio missing url", ContentAudio, "Buy now.", "", true},
		{"script with audio url", ContentScript, "Buy now.", "https://cdn.example.com/a.mp3", true},
		{"audio with script", ContentAudio, "Buy now.", "https://cdn.example.com/a.mp3", true},
		{"unknown kind", ContentKind("video"), "x", "y", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewAdContent(tt.kind, tt.script, tt.audio)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidContent) {
					t.Fatalf("expected ErrInvalidContent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Kind() != tt.kind {
				t.Fatalf("kind = %q, want %q", c.Kind(), tt.kind)
			}
		})
	}
}

func TestAdvertisementWireCarriesOneContentField(t *testing.T) {
	ad := Advertisement{
		ID:           "ad-1",
		CompanyName:  "Acme",
		Content:      Audio("https://cdn.example.com/acme.mp3"),
		SelectedShow: "Night Owl with Algorithmic Andy",
		Duration:     30,
		PackageType:  PackageStandard,
		Status:       AdStatusScheduled,
	}
	data, err := json.Marshal(ad)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)
	if !strings.Contains(body, `"adType":"audio"`) || !strings.Contains(body, `"audioUrl"`) {
		t.Fatalf("missing audio fields: %s", body)
	}
	if strings.Contains(body, "adScript") {
		t.Fatalf("audio ad should not carry a script: %s", body)
	}
}

func TestAdvertisementRejectsMismatchedRecord(t *testing.T) {
	var ad Advertisement
	err := json.Unmarshal([]byte(`{"id":"ad-9","adType":"script","audioUrl":"https://x"}`), &ad)
	if !errors.Is(err, ErrInvalidContent) {
		t.Fatalf("expected ErrInvalidContent, got %v", err)
	}
}

func TestValidAdDuration(t *testing.T) {
	for _, d := range []int{10, 20, 30} {
		if !ValidAdDuration(d) {
			t.Errorf("%d should be valid", d)
		}
	}
	for _, d := range []int{0, 15, 60} {
		if ValidAdDuration(d) {
			t.Errorf("%d should be invalid", d)
		}
	}
}
