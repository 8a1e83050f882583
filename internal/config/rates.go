package config

import (
	"math"
	"strings"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
)

// RateRow is one electricity_rates record, as stored locally or fetched from
// the remote rates table. Nil rates and empty or malformed boundary times
// mean "not set" and leave the fallback in place.
type RateRow struct {
	Region     string    `json:"region" yaml:"region"`
	Currency   string    `json:"currency" yaml:"currency"`
	TariffType string    `json:"tariff_type" yaml:"tariff_type"`
	Single     *float64  `json:"single_rate_per_kwh,omitempty" yaml:"single_rate_per_kwh,omitempty"`
	Day        *float64  `json:"day_rate_per_kwh,omitempty" yaml:"day_rate_per_kwh,omitempty"`
	Peak       *float64  `json:"peak_rate_per_kwh,omitempty" yaml:"peak_rate_per_kwh,omitempty"`
	Night      *float64  `json:"night_rate_per_kwh,omitempty" yaml:"night_rate_per_kwh,omitempty"`
	DayStart   string    `json:"day_start,omitempty" yaml:"day_start,omitempty"`
	PeakStart  string    `json:"peak_start,omitempty" yaml:"peak_start,omitempty"`
	NightStart string    `json:"night_start,omitempty" yaml:"night_start,omitempty"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// Rate sources reported on RateSet.Source.
const (
	RateSourceFallback = "fallback"
	RateSourceStore    = "store"
)

// RateSet is a fully resolved set of tariff rates and period boundaries.
type RateSet struct {
	Region     string  `json:"region"`
	Currency   string  `json:"currency"`
	TariffType string  `json:"tariff_type"`
	Single     float64 `json:"single_rate_per_kwh"`
	Day        float64 `json:"day_rate_per_kwh"`
	Peak       float64 `json:"peak_rate_per_kwh"`
	Night      float64 `json:"night_rate_per_kwh"`
	DayStart   int     `json:"day_start_min"`
	PeakStart  int     `json:"peak_start_min"`
	NightStart int     `json:"night_start_min"`
	Source     string  `json:"source"`
}

// NormalizeTariffType maps user input such as "Multi" or " single " onto the
// canonical lower-case tariff name. Unknown names are returned trimmed and
// lower-cased so the engine can reject them.
func NormalizeTariffType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FallbackRates returns the rate set built purely from configuration.
// tariffType and currency default to the configured values when empty.
func FallbackRates(cfg Config, tariffType, currency string) RateSet {
	if tariffType == "" {
		tariffType = cfg.Tariff.Type
	}
	if currency == "" {
		currency = cfg.General.Currency
	}
	tariffType = NormalizeTariffType(tariffType)

	rs := RateSet{
		Region:     cfg.General.Region,
		Currency:   currency,
		TariffType: tariffType,
		Single:     cfg.Tariff.SinglePerKWh,
		Day:        cfg.Tariff.DayPerKWh,
		Peak:       cfg.Tariff.PeakPerKWh,
		Night:      cfg.Tariff.NightPerKWh,
		DayStart:   engine.DefaultDayStart,
		PeakStart:  engine.DefaultPeakStart,
		NightStart: engine.DefaultNightStart,
		Source:     RateSourceFallback,
	}
	setClock(&rs.DayStart, cfg.Tariff.DayStart)
	setClock(&rs.PeakStart, cfg.Tariff.PeakStart)
	setClock(&rs.NightStart, cfg.Tariff.NightStart)
	return rs
}

// Apply overrides rs field by field with the usable values in row. Row
// boundaries that would leave day, peak and night out of order are ignored
// as a set, and the second result is false when that happened.
func (rs RateSet) Apply(row RateRow) (RateSet, bool) {
	setRate(&rs.Single, row.Single)
	setRate(&rs.Day, row.Day)
	setRate(&rs.Peak, row.Peak)
	setRate(&rs.Night, row.Night)

	next := rs
	setClock(&next.DayStart, row.DayStart)
	setClock(&next.PeakStart, row.PeakStart)
	setClock(&next.NightStart, row.NightStart)
	ok := next.BoundariesOrdered()
	if ok {
		rs = next
	}
	rs.Source = RateSourceStore
	return rs, ok
}

// BoundariesOrdered reports whether 00:00 <= day <= peak <= night <= 24:00.
func (rs RateSet) BoundariesOrdered() bool {
	return rs.DayStart >= 0 && rs.DayStart <= rs.PeakStart &&
		rs.PeakStart <= rs.NightStart && rs.NightStart <= 24*60
}

// Tariff builds the engine tariff for rs.
func (rs RateSet) Tariff() engine.TariffConfig {
	t := engine.TariffConfig{Type: rs.TariffType}
	switch engine.TariffType(NormalizeTariffType(rs.TariffType)) {
	case engine.TariffSingle:
		single := rs.Single
		t.SingleRate = &single
	case engine.TariffMulti:
		day, peak, night := rs.Day, rs.Peak, rs.Night
		t.DayRate, t.PeakRate, t.NightRate = &day, &peak, &night
		t = t.WithBoundaries(rs.DayStart, rs.PeakStart, rs.NightStart)
	}
	return t
}

func setRate(dst *float64, v *float64) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return
	}
	*dst = *v
}

func setClock(dst *int, v string) {
	if strings.TrimSpace(v) == "" {
		return
	}
	if m, err := engine.ParseClock(v); err == nil {
		*dst = m
	}
}
