/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package clock

import "time"

// Compile places every slot of the show's ad clock on the wall clock, in catalog order.
func Compile(showDurationMinutes int, startedAt time.Time) []SlotPlan {
	schedule := ScheduleFor(showDurationMinutes)
	plans := make([]SlotPlan, 0, len(schedule.Slots))
	for _, slot := range schedule.Slots {
		slot.Label = LabelFor(slot.Position, showDurationMinutes)
		startsAt := startedAt.Add(time.Duration(slot.Position) * time.Minute)
		plans = append(plans, SlotPlan{
			AdSlot:   slot,
			StartsAt: startsAt,
			EndsAt:   startsAt.Add(time.Duration(slot.Duration) * time.Second),
		})
	}
	return plans
}
