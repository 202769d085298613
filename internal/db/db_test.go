/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"context"
	"testing"

	"github.com/friendsincode/airtime/internal/config"
	"github.com/friendsincode/airtime/internal/store"
)

func TestConnectSQLiteMigratesAndPersists(t *testing.T) {
	cfg := &config.Config{
		Environment: "test",
		DBBackend:   config.DatabaseSQLite,
		DBDSN:       "file::memory:?cache=shared",
	}
	database, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = Close(database) })

	p := store.NewGormPersistence(database)
	ctx := context.Background()
	if err := p.Save(ctx, store.KeyAdvertisements, []byte(`[]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := p.Save(ctx, store.KeyAdvertisements, []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	data, ok, err := p.Load(ctx, store.KeyAdvertisements)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if string(data) != `[{"id":"a"}]` {
		t.Fatalf("unexpected value %s", data)
	}

	UpdateConnectionMetrics(database)
}

func TestConnectRejectsUnknownBackend(t *testing.T) {
	if _, err := Connect(&config.Config{DBBackend: "oracle", DBDSN: "x"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
