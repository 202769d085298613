/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Persistence keys, one per collection.
const (
	KeyAdvertisements = "airtime_advertisements"
	KeyMusicRequests  = "airtime_music_requests"
)

// maxUpdateAttempts bounds optimistic retries when writers race on one key.
const maxUpdateAttempts = 10

// errConflict marks a conditional write that lost to another writer.
var errConflict = errors.New("concurrent write")

// UpdateFunc maps the stored value to its replacement. found is false when
// the key has never been written. Returning an error aborts the update and
// the error is passed back to the caller unchanged.
type UpdateFunc func(current []byte, found bool) ([]byte, error)

// Persistence is the key-value backend behind the booking store.
// Load reports ok=false when the key has never been written.
//
// Update is an atomic read-modify-write: fn sees the latest stored value and
// its result is written only if nobody else wrote the key in between. fn may
// be called again with a fresher value after a lost race.
type Persistence interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// retryConflicts runs attempt until it stops reporting errConflict.
func retryConflicts(ctx context.Context, key string, attempt func() error) error {
	for i := 0; i < maxUpdateAttempts; i++ {
		err := attempt()
		if !errors.Is(err, errConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("update %s: %w after %d attempts", key, errConflict, maxUpdateAttempts)
}

// MemoryPersistence keeps collections in process memory.
type MemoryPersistence struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryPersistence creates an empty in-memory backend.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{data: make(map[string][]byte)}
}

// Load returns a copy of the stored value.
func (m *MemoryPersistence) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Save replaces the stored value.
func (m *MemoryPersistence) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	return nil
}

// Update runs fn under the write lock.
func (m *MemoryPersistence) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, found := m.data[key]
	next, err := fn(append([]byte(nil), current...), found)
	if err != nil {
		return err
	}
	m.data[key] = append([]byte(nil), next...)
	return nil
}
