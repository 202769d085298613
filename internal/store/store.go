/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store is the booking store: the single owner of advertisement and
// music request records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/airtime/internal/models"
	"github.com/friendsincode/airtime/internal/telemetry"
)

var (
	// ErrNotFound is returned when no record has the requested ID.
	ErrNotFound = errors.New("record not found")

	// ErrPersist wraps failures of the persistence backend. The in-memory
	// collection is left unchanged when it is returned.
	ErrPersist = errors.New("persist booking store")

	// ErrBusy is returned by ClaimNextPending while another request is generating.
	ErrBusy = errors.New("a music request is already generating")

	// errUnchanged ends a mutation that found nothing to write.
	errUnchanged = errors.New("collection unchanged")
)

// Store holds both collections. Every mutation re-reads its collection from
// persistence and writes it back atomically, so several instances sharing one
// backend never overwrite each other's records. The local snapshot serves
// reads and is replaced whenever a mutation or Refresh sees newer data.
type Store struct {
	persist Persistence
	logger  zerolog.Logger
	now     func() time.Time

	adsMu sync.RWMutex
	ads   []models.Advertisement

	reqMu sync.RWMutex
	reqs  []models.MusicRequest
}

// New creates an empty store backed by persist.
func New(persist Persistence, logger zerolog.Logger) *Store {
	return &Store{
		persist: persist,
		logger:  logger.With().Str("component", "store").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the timestamp source used for createdAt/updatedAt.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}

// Load reads both collections from persistence. Missing keys mean an empty collection.
func (s *Store) Load(ctx context.Context) error {
	ads, reqs, err := s.refresh(ctx)
	if err != nil {
		return err
	}
	s.logger.Info().Int("advertisements", ads).Int("music_requests", reqs).Msg("booking store loaded")
	return nil
}

// Refresh replaces the local snapshot with what persistence holds now.
func (s *Store) Refresh(ctx context.Context) error {
	_, _, err := s.refresh(ctx)
	return err
}

func (s *Store) refresh(ctx context.Context) (int, int, error) {
	var ads []models.Advertisement
	if err := s.loadKey(ctx, KeyAdvertisements, &ads); err != nil {
		return 0, 0, err
	}
	var reqs []models.MusicRequest
	if err := s.loadKey(ctx, KeyMusicRequests, &reqs); err != nil {
		return 0, 0, err
	}

	s.adsMu.Lock()
	s.ads = ads
	s.adsMu.Unlock()

	s.reqMu.Lock()
	s.reqs = reqs
	s.reqMu.Unlock()
	return len(ads), len(reqs), nil
}

func (s *Store) loadKey(ctx context.Context, key string, out any) error {
	data, ok, err := s.persist.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if !ok || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// rejected carries an error raised by a mutation itself rather than the backend.
type rejected struct{ err error }

func (r rejected) Error() string { return r.err.Error() }
func (r rejected) Unwrap() error { return r.err }

// mutate applies fn to the stored collection under key inside one atomic
// backend update. fresh reports whether latest reflects what is stored:
// true after a write, and after fn rejected a collection it had read.
func mutate[T any](ctx context.Context, s *Store, key string, fn func([]T) ([]T, error)) (latest []T, fresh bool, err error) {
	err = s.persist.Update(ctx, key, func(current []byte, found bool) ([]byte, error) {
		var records []T
		if found && len(current) > 0 {
			if err := json.Unmarshal(current, &records); err != nil {
				return nil, rejected{fmt.Errorf("decode %s: %w", key, err)}
			}
		}
		latest, fresh = records, true

		next, err := fn(append([]T(nil), records...))
		if err != nil {
			return nil, rejected{err}
		}
		data, err := json.Marshal(next)
		if err != nil {
			return nil, rejected{fmt.Errorf("encode %s: %w", key, err)}
		}
		latest = next
		return data, nil
	})

	var rej rejected
	switch {
	case err == nil:
		telemetry.PersistenceSavesTotal.WithLabelValues(key, "ok").Inc()
		return latest, true, nil
	case errors.As(err, &rej):
		if errors.Is(rej.err, errUnchanged) {
			return latest, fresh, nil
		}
		return latest, fresh, rej.err
	default:
		telemetry.PersistenceSavesTotal.WithLabelValues(key, "error").Inc()
		s.logger.Error().Err(err).Str("key", key).Msg("persistence save failed")
		return nil, false, fmt.Errorf("%w: %v", ErrPersist, err)
	}
}

func (s *Store) mutateAds(ctx context.Context, fn func([]models.Advertisement) ([]models.Advertisement, error)) error {
	s.adsMu.Lock()
	defer s.adsMu.Unlock()
	latest, fresh, err := mutate(ctx, s, KeyAdvertisements, fn)
	if fresh {
		s.ads = latest
	}
	return err
}

func (s *Store) mutateRequests(ctx context.Context, fn func([]models.MusicRequest) ([]models.MusicRequest, error)) error {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()
	latest, fresh, err := mutate(ctx, s, KeyMusicRequests, fn)
	if fresh {
		s.reqs = latest
	}
	return err
}

// --- Advertisements ---

// AddAdvertisement assigns an ID, creation time and scheduled status, then stores the ad.
func (s *Store) AddAdvertisement(ctx context.Context, ad models.Advertisement) (models.Advertisement, error) {
	ad.ID = "ad_" + uuid.NewString()
	ad.CreatedAt = s.now()
	ad.Status = models.AdStatusScheduled

	err := s.mutateAds(ctx, func(ads []models.Advertisement) ([]models.Advertisement, error) {
		return append(ads, ad), nil
	})
	if err != nil {
		return models.Advertisement{}, err
	}
	return ad, nil
}

// Advertisements returns a snapshot of every ad in insertion order.
func (s *Store) Advertisements() []models.Advertisement {
	s.adsMu.RLock()
	defer s.adsMu.RUnlock()
	return append([]models.Advertisement(nil), s.ads...)
}

// Advertisement returns one ad by ID.
func (s *Store) Advertisement(id string) (models.Advertisement, error) {
	s.adsMu.RLock()
	defer s.adsMu.RUnlock()
	for _, ad := range s.ads {
		if ad.ID == id {
			return ad, nil
		}
	}
	return models.Advertisement{}, ErrNotFound
}

// UpdateAdvertisement applies fn to a copy of the stored ad and writes the
// result. If fn returns an error nothing is changed. fn may run more than
// once when another instance writes concurrently.
func (s *Store) UpdateAdvertisement(ctx context.Context, id string, fn func(*models.Advertisement) error) (models.Advertisement, error) {
	var updated models.Advertisement
	err := s.mutateAds(ctx, func(ads []models.Advertisement) ([]models.Advertisement, error) {
		for i := range ads {
			if ads[i].ID != id {
				continue
			}
			next := ads[i]
			if err := fn(&next); err != nil {
				return nil, err
			}
			next.ID = id
			ads[i] = next
			updated = next
			return ads, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return models.Advertisement{}, err
	}
	return updated, nil
}

// SetAdvertisementStatus moves an ad to status.
func (s *Store) SetAdvertisementStatus(ctx context.Context, id string, status models.AdStatus) (models.Advertisement, error) {
	return s.UpdateAdvertisement(ctx, id, func(ad *models.Advertisement) error {
		ad.Status = status
		return nil
	})
}

// DeleteAdvertisement removes an ad.
func (s *Store) DeleteAdvertisement(ctx context.Context, id string) error {
	return s.mutateAds(ctx, func(ads []models.Advertisement) ([]models.Advertisement, error) {
		next := make([]models.Advertisement, 0, len(ads))
		for _, ad := range ads {
			if ad.ID != id {
				next = append(next, ad)
			}
		}
		if len(next) == len(ads) {
			return nil, ErrNotFound
		}
		return next, nil
	})
}

// --- Music requests ---

// AddMusicRequest assigns an ID, timestamps and pending status, then stores the request.
func (s *Store) AddMusicRequest(ctx context.Context, req models.MusicRequest) (models.MusicRequest, error) {
	now := s.now()
	req.ID = "music_" + uuid.NewString()
	req.CreatedAt = now
	req.UpdatedAt = now
	req.Status = models.RequestPending
	req.Attempts = 0

	err := s.mutateRequests(ctx, func(reqs []models.MusicRequest) ([]models.MusicRequest, error) {
		return append(reqs, req), nil
	})
	if err != nil {
		return models.MusicRequest{}, err
	}
	return req, nil
}

// MusicRequests returns a snapshot of every request in insertion order.
func (s *Store) MusicRequests() []models.MusicRequest {
	s.reqMu.RLock()
	defer s.reqMu.RUnlock()
	out := make([]models.MusicRequest, len(s.reqs))
	for i, r := range s.reqs {
		r.Instruments = append([]string(nil), r.Instruments...)
		out[i] = r
	}
	return out
}

// MusicRequest returns one request by ID.
func (s *Store) MusicRequest(id string) (models.MusicRequest, error) {
	s.reqMu.RLock()
	defer s.reqMu.RUnlock()
	for _, r := range s.reqs {
		if r.ID == id {
			return r, nil
		}
	}
	return models.MusicRequest{}, ErrNotFound
}

// UpdateMusicRequest applies fn to a copy of the stored request and writes the result.
func (s *Store) UpdateMusicRequest(ctx context.Context, id string, fn func(*models.MusicRequest) error) (models.MusicRequest, error) {
	var updated models.MusicRequest
	err := s.mutateRequests(ctx, func(reqs []models.MusicRequest) ([]models.MusicRequest, error) {
		for i := range reqs {
			if reqs[i].ID != id {
				continue
			}
			next := reqs[i]
			if err := fn(&next); err != nil {
				return nil, err
			}
			next.ID = id
			next.UpdatedAt = s.now()
			reqs[i] = next
			updated = next
			return reqs, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return models.MusicRequest{}, err
	}
	return updated, nil
}

// ClaimNextPending moves the first pending request (insertion order) to generating.
// It returns ok=false when nothing is pending and ErrBusy when a request is
// already generating. The check and the claim happen in one atomic update of
// the shared collection, so at most one request is ever generating.
func (s *Store) ClaimNextPending(ctx context.Context) (models.MusicRequest, bool, error) {
	var claimed models.MusicRequest
	ok := false
	err := s.mutateRequests(ctx, func(reqs []models.MusicRequest) ([]models.MusicRequest, error) {
		ok = false
		idx := -1
		for i, r := range reqs {
			if r.Status == models.RequestGenerating {
				return nil, ErrBusy
			}
			if idx < 0 && r.Status == models.RequestPending {
				idx = i
			}
		}
		if idx < 0 {
			return nil, errUnchanged
		}
		claimed = reqs[idx]
		claimed.Status = models.RequestGenerating
		claimed.UpdatedAt = s.now()
		reqs[idx] = claimed
		ok = true
		return reqs, nil
	})
	if err != nil {
		return models.MusicRequest{}, false, err
	}
	if !ok {
		return models.MusicRequest{}, false, nil
	}
	return claimed, true, nil
}

// PendingCount returns how many requests are waiting.
func (s *Store) PendingCount() int {
	s.reqMu.RLock()
	defer s.reqMu.RUnlock()
	n := 0
	for _, r := range s.reqs {
		if r.Status == models.RequestPending {
			n++
		}
	}
	return n
}

// RecoverInterrupted returns requests left in generating (e.g. after a crash) to pending.
func (s *Store) RecoverInterrupted(ctx context.Context) (int, error) {
	n := 0
	err := s.mutateRequests(ctx, func(reqs []models.MusicRequest) ([]models.MusicRequest, error) {
		n = 0
		for i := range reqs {
			if reqs[i].Status == models.RequestGenerating {
				reqs[i].Status = models.RequestPending
				reqs[i].UpdatedAt = s.now()
				n++
			}
		}
		if n == 0 {
			return nil, errUnchanged
		}
		return reqs, nil
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Warn().Int("count", n).Msg("interrupted music requests returned to pending")
	}
	return n, nil
}

// DeleteMusicRequest removes a request.
func (s *Store) DeleteMusicRequest(ctx context.Context, id string) error {
	return s.mutateRequests(ctx, func(reqs []models.MusicRequest) ([]models.MusicRequest, error) {
		next := make([]models.MusicRequest, 0, len(reqs))
		for _, r := range reqs {
			if r.ID != id {
				next = append(next, r)
			}
		}
		if len(next) == len(reqs) {
			return nil, ErrNotFound
		}
		return next, nil
	})
}
