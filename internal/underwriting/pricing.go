/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package underwriting

import "github.com/friendsincode/airtime/internal/models"

// PriceTier is the rate card row for one ad duration.
type PriceTier struct {
	Duration int     `json:"duration"`
	Standard float64 `json:"standard"`
	Branded  float64 `json:"branded"`
}

var rateCard = []PriceTier{
	{Duration: 10, Standard: 0.05, Branded: 50},
	{Duration: 20, Standard: 30, Branded: 60},
	{Duration: 30, Standard: 50, Branded: 100},
}

// Price returns the rate for an ad of the given duration and package.
// ok is false for durations or packages outside the rate card.
func Price(duration int, pkg models.PackageType) (float64, bool) {
	for _, tier := range rateCard {
		if tier.Duration != duration {
			continue
		}
		switch pkg {
		case models.PackageStandard:
			return tier.Standard, true
		case models.PackageBranded:
			return tier.Branded, true
		}
		return 0, false
	}
	return 0, false
}

// RateCard returns a copy of the full pricing table.
func RateCard() []PriceTier {
	return append([]PriceTier(nil), rateCard...)
}
