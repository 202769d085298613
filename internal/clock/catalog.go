/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

// Bucket names.
const (
	Bucket30  = "30min"
	Bucket60  = "60min"
	Bucket120 = "120min"
)

// Each bucket ends with a sponsor slot at position == show duration, which airs after the show.
var catalog = map[string]ShowAdSchedule{
	Bucket30: {
		Bucket:       Bucket30,
		ShowDuration: 30,
		TotalAdTime:  2,
		Slots: []AdSlot{
			{Position: 5, Duration: 10, Type: SlotBrand},
			{Position: 15, Duration: 20, Type: SlotProduct},
			{Position: 25, Duration: 10, Type: SlotBrand},
			{Position: 30, Duration: 30, Type: SlotSponsor},
		},
	},
	Bucket60: {
		Bucket:       Bucket60,
		ShowDuration: 60,
		TotalAdTime:  5,
		Slots: []AdSlot{
			{Position: 5, Duration: 10, Type: SlotBrand},
			{Position: 15, Duration: 30, Type: SlotProduct},
			{Position: 25, Duration: 20, Type: SlotProduct},
			{Position: 35, Duration: 30, Type: SlotSponsor},
			{Position: 45, Duration: 20, Type: SlotProduct},
			{Position: 55, Duration: 10, Type: SlotBrand},
			{Position: 60, Duration: 30, Type: SlotSponsor},
		},
	},
	Bucket120: {
		Bucket:       Bucket120,
		ShowDuration: 120,
		TotalAdTime:  5,
		Slots: []AdSlot{
			{Position: 5, Duration: 10, Type: SlotBrand},
			{Position: 20, Duration: 30, Type: SlotProduct},
			{Position: 40, Duration: 20, Type: SlotProduct},
			{Position: 60, Duration: 30, Type: SlotSponsor},
			{Position: 80, Duration: 20, Type: SlotProduct},
			{Position: 100, Duration: 30, Type: SlotProduct},
			{Position: 115, Duration: 10, Type: SlotBrand},
			{Position: 120, Duration: 30, Type: SlotSponsor},
		},
	},
}

// BucketFor returns the bucket name for a show length in minutes.
func BucketFor(showDurationMinutes int) string {
	switch {
	case showDurationMinutes >= 120:
		return Bucket120
	case showDurationMinutes >= 60:
		return Bucket60
	default:
		return Bucket30
	}
}

// ScheduleFor returns the ad clock for a show length. The returned slot slice is a copy.
func ScheduleFor(showDurationMinutes int) ShowAdSchedule {
	s := catalog[BucketFor(showDurationMinutes)]
	s.Slots = append([]AdSlot(nil), s.Slots...)
	return s
}

// Schedules returns every bucket, shortest first.
func Schedules() []ShowAdSchedule {
	return []ShowAdSchedule{ScheduleFor(30), ScheduleFor(60), ScheduleFor(120)}
}

// LabelFor names a slot's placement relative to the actual show length.
// The checks run in order, so a slot at exactly showDuration reads as "end"
// unless the show is longer than five minutes past it.
func LabelFor(position, showDuration int) SlotLabel {
	switch {
	case position <= 5:
		return LabelBeginning
	case position >= showDuration-5:
		return LabelEnd
	case position == showDuration:
		return LabelAfterShow
	default:
		return LabelMiddle
	}
}
