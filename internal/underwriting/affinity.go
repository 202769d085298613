/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package underwriting

import (
	"slices"
	"sort"

	"github.com/friendsincode/airtime/internal/models"
)

// brandAffinity maps a brand category to the shows whose audience fits it.
var brandAffinity = map[string][]string{
	"technology":    {"Tech Talk with Neural Nancy", "Science Hour with Synthetic Sam"},
	"lifestyle":     {"Morning Vibes with AI Alex", "Evening Groove with Virtual Vicky"},
	"entertainment": {"Midday Mix with Digital Dave", "Night Owl with Algorithmic Andy"},
	"business":      {"Tech Talk with Neural Nancy", "Morning Vibes with AI Alex"},
	"health":        {"Morning Vibes with AI Alex", "Science Hour with Synthetic Sam"},
	"food":          {"Midday Mix with Digital Dave", "Evening Groove with Virtual Vicky"},
	"automotive":    {"Night Owl with Algorithmic Andy", "Midday Mix with Digital Dave"},
	"fashion":       {"Evening Groove with Virtual Vicky", "Morning Vibes with AI Alex"},
}

// AffinityShows returns the shows matched to a brand category, or nil.
func AffinityShows(category string) []string {
	shows, ok := brandAffinity[category]
	if !ok {
		return nil
	}
	return append([]string(nil), shows...)
}

// BrandCategories lists the known categories in alphabetical order.
func BrandCategories() []string {
	out := make([]string, 0, len(brandAffinity))
	for c := range brandAffinity {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// MatchesShow reports whether ad is booked for showName directly or through
// its brand category. Status is not considered.
func MatchesShow(ad models.Advertisement, showName string) bool {
	if ad.SelectedShow == showName {
		return true
	}
	return slices.Contains(brandAffinity[ad.BrandCategory], showName)
}
