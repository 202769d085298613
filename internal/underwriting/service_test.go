/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package underwriting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/store"
)

const (
	techTalk      = "Tech Talk with Neural Nancy"
	eveningGroove = "Evening Groove with Virtual Vicky"
)

type fixedLive struct {
	name      string
	startedAt time.Time
	ok        bool
}

func (f fixedLive) Live() (string, time.Time, bool) { return f.name, f.startedAt, f.ok }

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	st := store.New(store.NewMemoryPersistence(), zerolog.Nop())
	bus := events.NewBus()
	return NewService(st, bus, zerolog.Nop()), bus
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func booking(show string, duration int, category string) BookingRequest {
	return BookingRequest{
		CompanyName:   "Acme",
		AdScript:      "Buy widgets.",
		SelectedShow:  show,
		AdType:        "script",
		Duration:      intPtr(duration),
		Amount:        floatPtr(30),
		BrandCategory: category,
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*BookingRequest)
	}{
		{"company", func(r *BookingRequest) { r.CompanyName = "" }},
		{"show", func(r *BookingRequest) { r.SelectedShow = "" }},
		{"ad type", func(r *BookingRequest) { r.AdType = "" }},
		{"amount", func(r *BookingRequest) { r.Amount = nil }},
		{"zero amount", func(r *BookingRequest) { r.Amount = floatPtr(0) }},
		{"negative amount", func(r *BookingRequest) { r.Amount = floatPtr(-5) }},
		{"duration", func(r *BookingRequest) { r.Duration = nil }},
		{"brand category", func(r *BookingRequest) { r.BrandCategory = "" }},
		{"bad duration", func(r *BookingRequest) { r.Duration = intPtr(15) }},
		{"bad package", func(r *BookingRequest) { r.PackageType = "platinum" }},
		{"script without text", func(r *BookingRequest) { r.AdScript = "" }},
		{"audio without url", func(r *BookingRequest) { r.AdType = "audio" }},
		{"script with audio url", func(r *BookingRequest) { r.AudioURL = "https://cdn.example.com/acme.mp3" }},
		{"audio with script", func(r *BookingRequest) {
			r.AdType = "audio"
			r.AudioURL = "https://cdn.example.com/acme.mp3"
		}},
		{"unknown ad type", func(r *BookingRequest) { r.AdType = "video" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := booking(techTalk, 10, "technology")
			tt.mutate(&req)
			if _, err := Validate(req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestValidateDefaultsPackage(t *testing.T) {
	ad, err := Validate(booking(techTalk, 10, "technology"))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ad.PackageType != models.PackageStandard {
		t.Fatalf("package = %s, want standard", ad.PackageType)
	}
	if text, ok := ad.Content.ScriptText(); !ok || text != "Buy widgets." {
		t.Fatalf("unexpected content %+v", ad.Content)
	}
}

func TestBookRejectedLeavesStoreEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	req := booking(techTalk, 10, "technology")
	req.CompanyName = ""
	if _, err := svc.Book(context.Background(), req); err == nil {
		t.Fatal("expected error")
	}
	if len(svc.Advertisements()) != 0 {
		t.Fatal("rejected booking mutated the store")
	}
}

func TestBookPublishesEvent(t *testing.T) {
	svc, bus := newTestService(t)
	sub := bus.Subscribe(events.EventAdBooked)

	ad, err := svc.Book(context.Background(), booking(techTalk, 10, "technology"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	select {
	case p := <-sub:
		if p["id"] != ad.ID {
			t.Fatalf("event id = %v, want %s", p["id"], ad.ID)
		}
	default:
		t.Fatal("no booking event published")
	}
}

func TestBookedStandardTenSecondPrice(t *testing.T) {
	svc, _ := newTestService(t)
	ad, err := svc.Book(context.Background(), booking(techTalk, 10, "technology"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	price, ok := Price(ad.Duration, ad.PackageType)
	if !ok || price != 0.05 {
		t.Fatalf("price = %v ok=%v, want 0.05", price, ok)
	}
}

func TestAffinityMakesAdEligibleForOtherShow(t *testing.T) {
	svc, _ := newTestService(t)
	ad, err := svc.Book(context.Background(), booking(eveningGroove, 10, "technology"))
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	eligible := svc.AdvertisementsForShow(techTalk)
	if len(eligible) != 1 || eligible[0].ID != ad.ID {
		t.Fatalf("expected ad eligible for %s via affinity, got %+v", techTalk, eligible)
	}
	if got := svc.AdvertisementsForShow("Night Owl with Algorithmic Andy"); len(got) != 0 {
		t.Fatalf("ad leaked into unrelated show: %+v", got)
	}
}

func TestEligibilityIgnoresNonScheduled(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	ad, _ := svc.Book(ctx, booking(techTalk, 20, "business"))
	if _, err := svc.store.SetAdvertisementStatus(ctx, ad.ID, models.AdStatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if got := svc.EligibleForSlot(techTalk, 20); len(got) != 0 {
		t.Fatalf("completed ad still eligible: %+v", got)
	}
}

func TestAvailableSlotsDropsFullyBookedDuration(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	for i := 0; i < MaxAdsPerSlot; i++ {
		if _, err := svc.Book(ctx, booking(techTalk, 10, "technology")); err != nil {
			t.Fatalf("book: %v", err)
		}
	}

	slots := svc.AvailableSlots(techTalk, 60, time.Now())
	for _, slot := range slots {
		if slot.Duration == 10 {
			t.Fatalf("fully booked 10s slot returned: %+v", slot)
		}
		if !slot.Available {
			t.Fatalf("returned slot not marked available: %+v", slot)
		}
	}
	if len(slots) != 5 {
		t.Fatalf("expected 5 non-10s slots in 60min bucket, got %d", len(slots))
	}
}

func TestAvailableSlotsDropsPassedSlotsOfLiveShow(t *testing.T) {
	svc, _ := newTestService(t)
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.SetLiveShow(fixedLive{name: techTalk, startedAt: start, ok: true})

	now := start.Add(26 * time.Minute)
	slots := svc.AvailableSlots(techTalk, 60, now)
	elapsed := now.Sub(start).Minutes()
	for _, slot := range slots {
		if float64(slot.Position) < elapsed {
			t.Fatalf("passed slot returned: %+v", slot)
		}
	}
	if len(slots) == 0 || slots[0].Position != 35 {
		t.Fatalf("expected first remaining slot at 35, got %+v", slots)
	}

	other := svc.AvailableSlots(eveningGroove, 60, now)
	if len(other) != 7 {
		t.Fatalf("show not on air should keep all 7 slots, got %d", len(other))
	}
}

func TestAvailableSlotsLabels(t *testing.T) {
	svc, _ := newTestService(t)
	slots := svc.AvailableSlots(techTalk, 30, time.Now())
	want := []string{"beginning", "middle", "end", "end"}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, slot := range slots {
		if string(slot.Label) != want[i] {
			t.Errorf("slot %d label = %s, want %s", i, slot.Label, want[i])
		}
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, _ := svc.Book(ctx, booking(techTalk, 10, "technology"))
	audio := booking(eveningGroove, 30, "food")
	audio.AdType = "audio"
	audio.AdScript = ""
	audio.AudioURL = "https://cdn.example.com/a.mp3"
	audio.Amount = floatPtr(100)
	if _, err := svc.Book(ctx, audio); err != nil {
		t.Fatalf("book audio: %v", err)
	}
	if _, err := svc.store.SetAdvertisementStatus(ctx, first.ID, models.AdStatusCompleted); err != nil {
		t.Fatalf("set status: %v", err)
	}

	stats := svc.Stats()
	if stats.TotalAds != 2 || stats.ScheduledAds != 1 || stats.CompletedAds != 1 {
		t.Fatalf("unexpected counts %+v", stats)
	}
	if stats.Revenue != 130 {
		t.Fatalf("revenue = %v, want 130", stats.Revenue)
	}
	if stats.AdsByShow[techTalk] != 1 || stats.AdsByShow[eveningGroove] != 1 {
		t.Fatalf("unexpected adsByShow %v", stats.AdsByShow)
	}
	if stats.AdsByType["script"] != 1 || stats.AdsByType["audio"] != 1 {
		t.Fatalf("unexpected adsByType %v", stats.AdsByType)
	}
}

func TestCancelUnknown(t *testing.T) {
	svc, _ := newTestService(t)
	if err := svc.Cancel(context.Background(), "ad_missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
