/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestWriteCatalogYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCatalog(&buf, "yaml"); err != nil {
		t.Fatalf("writeCatalog: %v", err)
	}

	var doc struct {
		Schedules []struct {
			Bucket string `yaml:"bucket"`
			Slots  []struct {
				Position int    `yaml:"position"`
				Label    string `yaml:"label"`
			} `yaml:"slots"`
		} `yaml:"schedules"`
		RateCard []rateRow           `yaml:"rate_card"`
		Affinity map[string][]string `yaml:"brand_affinity"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Schedules) != 3 {
		t.Fatalf("expected 3 schedules, got %d", len(doc.Schedules))
	}
	if got := len(doc.Schedules[2].Slots); got != 8 {
		t.Errorf("expected 8 slots in longest bucket, got %d", got)
	}
	if doc.Schedules[0].Slots[0].Label != "beginning" {
		t.Errorf("first slot label = %q", doc.Schedules[0].Slots[0].Label)
	}
	if len(doc.RateCard) != 3 {
		t.Errorf("expected 3 rate card rows, got %d", len(doc.RateCard))
	}
	if len(doc.Affinity) == 0 {
		t.Error("expected brand affinities")
	}
}

func TestWriteCatalogJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCatalog(&buf, "json"); err != nil {
		t.Fatalf("writeCatalog: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"schedules", "rateCard", "brandAffinity"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("missing %q", key)
		}
	}
}

func TestWriteCatalogUnknownFormat(t *testing.T) {
	err := writeCatalog(&bytes.Buffer{}, "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}
