package pipeline

import (
	"sort"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
)

// TariffSplit totals the minutes and cost attributed to each tariff period.
// Single-tariff calculations report all their minutes under night; they are
// counted separately in SingleMinutes so the split stays meaningful.
type TariffSplit struct {
	MinutesDay    float64 `json:"minutes_day" yaml:"minutes_day"`
	MinutesPeak   float64 `json:"minutes_peak" yaml:"minutes_peak"`
	MinutesNight  float64 `json:"minutes_night" yaml:"minutes_night"`
	SingleMinutes float64 `json:"single_tariff_minutes" yaml:"single_tariff_minutes"`
	Costed        int     `json:"costed_calculations" yaml:"costed_calculations"`
	CostErrors    int     `json:"cost_errors" yaml:"cost_errors"`
}

// CurrencyCost holds the cost total for one currency.
type CurrencyCost struct {
	Currency      string  `json:"currency" yaml:"currency"`
	EnergyKWh     float64 `json:"energy_kwh" yaml:"energy_kwh"`
	EnergyCost    float64 `json:"energy_cost" yaml:"energy_cost"`
	AvgRatePerKWh float64 `json:"avg_rate_per_kwh" yaml:"avg_rate_per_kwh"`
	Calculations  int     `json:"calculations" yaml:"calculations"`
}

// AggregateCostBreakdown splits costed calculations by tariff period and by
// currency. Currencies are ordered by cost, highest first.
func AggregateCostBreakdown(calcs []model.Calculation, since, until time.Time) (TariffSplit, []CurrencyCost) {
	filtered := FilterByTime(calcs, since, until)

	var split TariffSplit
	byCurrency := make(map[string]*CurrencyCost)

	for _, c := range filtered {
		if c.CostError != "" {
			split.CostErrors++
		}
		if c.Cost == nil {
			continue
		}
		split.Costed++
		if c.Cost.Convention == engine.ConventionSingleAsNight {
			split.SingleMinutes += c.Cost.MinutesNight
		} else {
			split.MinutesDay += c.Cost.MinutesDay
			split.MinutesPeak += c.Cost.MinutesPeak
			split.MinutesNight += c.Cost.MinutesNight
		}

		row, ok := byCurrency[c.Cost.Currency]
		if !ok {
			row = &CurrencyCost{Currency: c.Cost.Currency}
			byCurrency[c.Cost.Currency] = row
		}
		row.Calculations++
		row.EnergyKWh += c.TotalEnergyKWh
		row.EnergyCost += c.Cost.EnergyCost
	}

	rows := make([]CurrencyCost, 0, len(byCurrency))
	for _, row := range byCurrency {
		if row.EnergyKWh > 0 {
			row.AvgRatePerKWh = row.EnergyCost / row.EnergyKWh
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].EnergyCost > rows[j].EnergyCost
	})
	return split, rows
}
