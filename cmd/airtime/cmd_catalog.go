/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/airtime/internal/clock"
	"github.com/friendsincode/airtime/internal/underwriting"
)

var catalogFormat string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the ad slot catalog, rate card and brand affinities",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCatalog(cmd.OutOrStdout(), catalogFormat)
	},
}

func init() {
	catalogCmd.Flags().StringVar(&catalogFormat, "format", "yaml", "Output format: yaml or json")
	rootCmd.AddCommand(catalogCmd)
}

type catalogDoc struct {
	Schedules []clock.ShowAdSchedule `json:"schedules" yaml:"schedules"`
	RateCard  []rateRow              `json:"rateCard" yaml:"rate_card"`
	Affinity  map[string][]string    `json:"brandAffinity" yaml:"brand_affinity"`
}

type rateRow struct {
	Duration int     `json:"duration" yaml:"duration"`
	Standard float64 `json:"standard" yaml:"standard"`
	Branded  float64 `json:"branded" yaml:"branded"`
}

func buildCatalog() catalogDoc {
	doc := catalogDoc{
		Schedules: clock.Schedules(),
		Affinity:  make(map[string][]string),
	}
	for _, schedule := range doc.Schedules {
		for i := range schedule.Slots {
			schedule.Slots[i].Label = clock.LabelFor(schedule.Slots[i].Position, schedule.ShowDuration)
		}
	}
	for _, tier := range underwriting.RateCard() {
		doc.RateCard = append(doc.RateCard, rateRow(tier))
	}
	for _, category := range underwriting.BrandCategories() {
		doc.Affinity[category] = underwriting.AffinityShows(category)
	}
	return doc
}

func writeCatalog(w io.Writer, format string) error {
	doc := buildCatalog()
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
