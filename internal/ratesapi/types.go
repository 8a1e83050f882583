package ratesapi

import (
	"encoding/json"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
)

// rawRow is one row as returned by the REST endpoint. Rates are numeric
// columns that some deployments expose as strings, so they are kept raw.
type rawRow struct {
	Region     string          `json:"region"`
	Currency   string          `json:"currency"`
	TariffType string          `json:"tariff_type"`
	Single     json.RawMessage `json:"single_rate_per_kwh"`
	Day        json.RawMessage `json:"day_rate_per_kwh"`
	Peak       json.RawMessage `json:"peak_rate_per_kwh"`
	Night      json.RawMessage `json:"night_rate_per_kwh"`
	DayStart   *string         `json:"day_start"`
	PeakStart  *string         `json:"peak_start"`
	NightStart *string         `json:"night_start"`
	UpdatedAt  *string         `json:"updated_at"`
}

func (r rawRow) toRow() config.RateRow {
	row := config.RateRow{
		Region:     r.Region,
		Currency:   r.Currency,
		TariffType: r.TariffType,
		Single:     parseRate(r.Single),
		Day:        parseRate(r.Day),
		Peak:       parseRate(r.Peak),
		Night:      parseRate(r.Night),
		DayStart:   deref(r.DayStart),
		PeakStart:  deref(r.PeakStart),
		NightStart: deref(r.NightStart),
	}
	if r.UpdatedAt != nil {
		if t, err := time.Parse(time.RFC3339Nano, *r.UpdatedAt); err == nil {
			row.UpdatedAt = t.UTC()
		}
	}
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
