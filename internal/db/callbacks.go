/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/airtime/internal/telemetry"
)

const startTimeKey = "airtime:start_time"

// RegisterCallbacks times every query, create, update and delete.
func RegisterCallbacks(database *gorm.DB) error {
	cb := database.Callback()
	steps := []struct {
		operation string
		before    func(string, func(*gorm.DB)) error
		after     func(string, func(*gorm.DB)) error
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
	}
	for _, step := range steps {
		if err := step.before("telemetry:before_"+step.operation, beforeCallback); err != nil {
			return err
		}
		if err := step.after("telemetry:after_"+step.operation, afterCallback(step.operation)); err != nil {
			return err
		}
	}
	return nil
}

func beforeCallback(tx *gorm.DB) {
	tx.InstanceSet(startTimeKey, time.Now())
}

func afterCallback(operation string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		value, ok := tx.InstanceGet(startTimeKey)
		if !ok {
			return
		}
		start, ok := value.(time.Time)
		if !ok {
			return
		}

		table := tx.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())

		if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, "query_error").Inc()
		}
	}
}

// UpdateConnectionMetrics publishes the pool's open connection count.
func UpdateConnectionMetrics(database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	telemetry.DatabaseConnectionsActive.Set(float64(sqlDB.Stats().OpenConnections))
}
