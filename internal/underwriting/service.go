/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package underwriting handles ad bookings: validation, show eligibility,
// slot availability and the sponsor rate card.
package underwriting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/clock"
	"github.com/friendsincode/airtime/internal/events"
	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/store"
)

// MaxAdsPerSlot caps how many scheduled ads of one duration a show can hold.
const MaxAdsPerSlot = 3

// ErrValidation marks a booking rejected before any state changed.
var ErrValidation = errors.New("invalid booking")

// LiveShow reports the show currently on air, if any.
type LiveShow interface {
	Live() (showName string, startedAt time.Time, ok bool)
}

// BookingRequest is the client-supplied form of a new advertisement.
// Duration and Amount are pointers so that absent fields are reported as missing.
type BookingRequest struct {
	CompanyName   string   `json:"companyName"`
	AdScript      string   `json:"adScript,omitempty"`
	AudioURL      string   `json:"audioUrl,omitempty"`
	SelectedShow  string   `json:"selectedShow"`
	AdType        string   `json:"adType"`
	PackageType   string   `json:"packageType,omitempty"`
	Duration      *int     `json:"duration"`
	Amount        *float64 `json:"amount"`
	BrandCategory string   `json:"brandCategory"`
}

// Stats aggregates the whole advertisement collection.
type Stats struct {
	TotalAds     int            `json:"totalAds"`
	ScheduledAds int            `json:"scheduledAds"`
	CompletedAds int            `json:"completedAds"`
	Revenue      float64        `json:"revenue"`
	AdsByShow    map[string]int `json:"adsByShow"`
	AdsByType    map[string]int `json:"adsByType"`
}

// Service handles ad bookings on top of the booking store.
type Service struct {
	store  *store.Store
	bus    *events.Bus
	logger zerolog.Logger

	mu   sync.RWMutex
	live LiveShow
}

// NewService creates a new underwriting service.
func NewService(st *store.Store, bus *events.Bus, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		bus:    bus,
		logger: logger.With().Str("component", "underwriting").Logger(),
	}
}

// SetLiveShow attaches the source of on-air state used to skip past slots.
func (s *Service) SetLiveShow(live LiveShow) {
	s.mu.Lock()
	s.live = live
	s.mu.Unlock()
}

// Validate checks a booking request and converts it into an advertisement
// ready to be stored.
func Validate(req BookingRequest) (models.Advertisement, error) {
	var missing []string
	if strings.TrimSpace(req.CompanyName) == "" {
		missing = append(missing, "companyName")
	}
	if strings.TrimSpace(req.SelectedShow) == "" {
		missing = append(missing, "selectedShow")
	}
	if req.AdType == "" {
		missing = append(missing, "adType")
	}
	if req.Amount == nil || *req.Amount == 0 {
		missing = append(missing, "amount")
	}
	if req.Duration == nil {
		missing = append(missing, "duration")
	}
	if strings.TrimSpace(req.BrandCategory) == "" {
		missing = append(missing, "brandCategory")
	}
	if len(missing) > 0 {
		return models.Advertisement{}, fmt.Errorf("%w: missing required fields: %s", ErrValidation, strings.Join(missing, ", "))
	}

	if !models.ValidAdDuration(*req.Duration) {
		return models.Advertisement{}, fmt.Errorf("%w: duration must be one of 10, 20 or 30 seconds", ErrValidation)
	}
	if *req.Amount < 0 {
		return models.Advertisement{}, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	pkg := models.PackageStandard
	if req.PackageType != "" {
		pkg = models.PackageType(req.PackageType)
		if !pkg.Valid() {
			return models.Advertisement{}, fmt.Errorf("%w: unknown packageType %q", ErrValidation, req.PackageType)
		}
	}

	content, err := models.NewAdContent(models.ContentKind(req.AdType), req.AdScript, req.AudioURL)
	if err != nil {
		return models.Advertisement{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return models.Advertisement{
		CompanyName:   strings.TrimSpace(req.CompanyName),
		Content:       content,
		SelectedShow:  req.SelectedShow,
		Duration:      *req.Duration,
		PackageType:   pkg,
		Amount:        *req.Amount,
		BrandCategory: req.BrandCategory,
	}, nil
}

// Book validates and stores a new advertisement with status scheduled.
func (s *Service) Book(ctx context.Context, req BookingRequest) (models.Advertisement, error) {
	ad, err := Validate(req)
	if err != nil {
		return models.Advertisement{}, err
	}

	ad, err = s.store.AddAdvertisement(ctx, ad)
	if err != nil {
		return models.Advertisement{}, fmt.Errorf("book advertisement: %w", err)
	}

	s.logger.Info().
		Str("ad", ad.ID).
		Str("company", ad.CompanyName).
		Str("show", ad.SelectedShow).
		Int("duration", ad.Duration).
		Msg("advertisement booked")
	s.publish(events.EventAdBooked, ad)
	return ad, nil
}

// Cancel removes a booking.
func (s *Service) Cancel(ctx context.Context, id string) error {
	if err := s.store.DeleteAdvertisement(ctx, id); err != nil {
		return fmt.Errorf("cancel advertisement: %w", err)
	}
	s.logger.Info().Str("ad", id).Msg("advertisement cancelled")
	if s.bus != nil {
		s.bus.Publish(events.EventAdCancelled, events.Payload{"id": id})
	}
	return nil
}

// Advertisements returns the full collection.
func (s *Service) Advertisements() []models.Advertisement {
	return s.store.Advertisements()
}

// AdvertisementsForShow returns scheduled ads booked for the show directly or
// through brand affinity, in booking order.
func (s *Service) AdvertisementsForShow(showName string) []models.Advertisement {
	var out []models.Advertisement
	for _, ad := range s.store.Advertisements() {
		if ad.Status == models.AdStatusScheduled && MatchesShow(ad, showName) {
			out = append(out, ad)
		}
	}
	return out
}

// EligibleForSlot narrows AdvertisementsForShow to ads of exactly the slot's duration.
func (s *Service) EligibleForSlot(showName string, slotDuration int) []models.Advertisement {
	var out []models.Advertisement
	for _, ad := range s.AdvertisementsForShow(showName) {
		if ad.Duration == slotDuration {
			out = append(out, ad)
		}
	}
	return out
}

// AvailableSlots returns the bookable slots of the show's schedule in catalog
// order. A slot is dropped when it has already passed for the show on air or
// when MaxAdsPerSlot ads of its duration are already booked.
func (s *Service) AvailableSlots(showName string, showDuration int, now time.Time) []clock.AdSlot {
	schedule := clock.ScheduleFor(showDuration)
	booked := s.AdvertisementsForShow(showName)

	elapsed, onAir := s.elapsedFor(showName, now)

	available := make([]clock.AdSlot, 0, len(schedule.Slots))
	for _, slot := range schedule.Slots {
		slot.Label = clock.LabelFor(slot.Position, showDuration)

		if onAir && elapsed > float64(slot.Position) {
			continue
		}
		count := 0
		for _, ad := range booked {
			if ad.Duration == slot.Duration {
				count++
			}
		}
		if count >= MaxAdsPerSlot {
			continue
		}

		slot.Available = true
		available = append(available, slot)
	}
	return available
}

func (s *Service) elapsedFor(showName string, now time.Time) (float64, bool) {
	s.mu.RLock()
	live := s.live
	s.mu.RUnlock()
	if live == nil {
		return 0, false
	}
	name, startedAt, ok := live.Live()
	if !ok || name != showName {
		return 0, false
	}
	return now.Sub(startedAt).Minutes(), true
}

// Stats aggregates counts and revenue over every booking regardless of status.
func (s *Service) Stats() Stats {
	stats := Stats{
		AdsByShow: make(map[string]int),
		AdsByType: make(map[string]int),
	}
	for _, ad := range s.store.Advertisements() {
		stats.TotalAds++
		switch ad.Status {
		case models.AdStatusScheduled:
			stats.ScheduledAds++
		case models.AdStatusCompleted:
			stats.CompletedAds++
		}
		stats.Revenue += ad.Amount
		stats.AdsByShow[ad.SelectedShow]++
		stats.AdsByType[string(ad.Content.Kind())]++
	}
	return stats
}

func (s *Service) publish(eventType events.EventType, ad models.Advertisement) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(eventType, events.Payload{
		"id":           ad.ID,
		"companyName":  ad.CompanyName,
		"selectedShow": ad.SelectedShow,
		"duration":     ad.Duration,
		"status":       string(ad.Status),
	})
}
