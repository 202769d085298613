/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// KVRecord stores one serialized collection of the booking store. Version
// increases with every write and guards conditional updates.
type KVRecord struct {
	Key       string `gorm:"column:record_key;type:varchar(128);primaryKey"`
	Value     []byte `gorm:"not null"`
	Version   int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (KVRecord) TableName() string {
	return "airtime_kv"
}
