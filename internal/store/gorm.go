/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/airtime/internal/models"
)

// GormPersistence stores each collection as one row of the airtime_kv table.
type GormPersistence struct {
	db *gorm.DB
}

// NewGormPersistence wraps an already migrated database.
func NewGormPersistence(db *gorm.DB) *GormPersistence {
	return &GormPersistence{db: db}
}

// Load reads the row for key.
func (p *GormPersistence) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var rec models.KVRecord
	err := p.db.WithContext(ctx).First(&rec, "record_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	return rec.Value, true, nil
}

// Save upserts the row for key.
func (p *GormPersistence) Save(ctx context.Context, key string, data []byte) error {
	now := time.Now().UTC()
	rec := models.KVRecord{Key: key, Value: data, Version: 1, UpdatedAt: now}
	err := p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "record_key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      data,
			"updated_at": now,
			"version":    gorm.Expr("airtime_kv.version + 1"),
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Update writes fn's result only if the row's version is unchanged since it
// was read. A first write inserts the row and loses to a concurrent insert.
func (p *GormPersistence) Update(ctx context.Context, key string, fn UpdateFunc) error {
	db := p.db.WithContext(ctx)
	return retryConflicts(ctx, key, func() error {
		var rec models.KVRecord
		err := db.First(&rec, "record_key = ?", key).Error
		found := true
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			found = false
		case err != nil:
			return fmt.Errorf("load %s: %w", key, err)
		}

		next, err := fn(rec.Value, found)
		if err != nil {
			return err
		}
		now := time.Now().UTC()

		if !found {
			res := db.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.KVRecord{Key: key, Value: next, Version: 1, UpdatedAt: now})
			if res.Error != nil {
				return fmt.Errorf("save %s: %w", key, res.Error)
			}
			if res.RowsAffected == 0 {
				return errConflict
			}
			return nil
		}

		res := db.Model(&models.KVRecord{}).
			Where("record_key = ? AND version = ?", key, rec.Version).
			Updates(map[string]any{"value": next, "version": rec.Version + 1, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("save %s: %w", key, res.Error)
		}
		if res.RowsAffected == 0 {
			return errConflict
		}
		return nil
	})
}
