// Package pipeline wraps the engine with catalog and rate resolution, runs
// batches, and aggregates stored calculations.
package pipeline

import (
	"sort"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
)

// Aggregate computes summary statistics from calculations created within
// [since, until). Zero bounds are open.
func Aggregate(calcs []model.Calculation, since, until time.Time) model.SummaryStats {
	filtered := FilterByTime(calcs, since, until)

	stats := model.SummaryStats{CostByCurrency: make(map[string]float64)}
	activeDays := make(map[string]struct{})
	batches := make(map[string]struct{})
	var efficiencySum int

	for _, c := range filtered {
		stats.Calculations++
		stats.RemovedMassKg += c.RemovedMaterialWeightKg
		stats.ProcessMinutes += c.ProcessTimeMinutes
		stats.ProcessingEnergyKWh += c.ProcessingEnergyKWh
		stats.IdleEnergyKWh += c.IdleEnergyKWh
		stats.TotalEnergyKWh += c.TotalEnergyKWh
		stats.TotalCarbonKg += c.TotalCarbonKg
		efficiencySum += c.EfficiencyScore

		if c.Cost != nil {
			stats.CostByCurrency[c.Cost.Currency] += c.Cost.EnergyCost
			stats.CostedCount++
		}
		if c.BatchID != "" {
			batches[c.BatchID] = struct{}{}
		}
		if !c.CreatedAt.IsZero() {
			activeDays[c.CreatedAt.Local().Format("2006-01-02")] = struct{}{}
		}
	}

	stats.ActiveDays = len(activeDays)
	stats.Batches = len(batches)

	if stats.Calculations > 0 {
		n := float64(stats.Calculations)
		stats.AvgEfficiency = float64(efficiencySum) / n
		stats.EnergyPerCalc = stats.TotalEnergyKWh / n
	}
	if stats.TotalEnergyKWh > 0 {
		stats.IdleSharePct = stats.IdleEnergyKWh / stats.TotalEnergyKWh * 100
	}
	if stats.RemovedMassKg > 0 {
		stats.CarbonPerKgCut = stats.TotalCarbonKg / stats.RemovedMassKg
	}

	// Per-active-day rates
	if stats.ActiveDays > 0 {
		days := float64(stats.ActiveDays)
		stats.EnergyPerDay = stats.TotalEnergyKWh / days
		stats.CarbonPerDay = stats.TotalCarbonKg / days
		stats.CalcsPerDay = float64(stats.Calculations) / days
	}

	return stats
}

// AggregateDays computes per-day statistics, most recent first. When both
// bounds are set, days without calculations are filled in as zeros.
func AggregateDays(calcs []model.Calculation, since, until time.Time) []model.DailyStats {
	filtered := FilterByTime(calcs, since, until)

	dayMap := make(map[string]*model.DailyStats)
	getDay := func(key string) *model.DailyStats {
		ds, ok := dayMap[key]
		if !ok {
			t, _ := time.ParseInLocation("2006-01-02", key, time.Local)
			ds = &model.DailyStats{Date: t, CostByCurrency: make(map[string]float64)}
			dayMap[key] = ds
		}
		return ds
	}

	for _, c := range filtered {
		if c.CreatedAt.IsZero() {
			continue
		}
		ds := getDay(c.CreatedAt.Local().Format("2006-01-02"))
		ds.Calculations++
		ds.TotalEnergyKWh += c.TotalEnergyKWh
		ds.IdleEnergyKWh += c.IdleEnergyKWh
		ds.TotalCarbonKg += c.TotalCarbonKg
		if c.Cost != nil {
			ds.CostByCurrency[c.Cost.Currency] += c.Cost.EnergyCost
		}
	}

	if !since.IsZero() && !until.IsZero() {
		day := time.Date(since.Year(), since.Month(), since.Day(), 0, 0, 0, 0, time.Local)
		for day.Before(until) {
			getDay(day.Format("2006-01-02"))
			day = day.AddDate(0, 0, 1)
		}
	}

	days := make([]model.DailyStats, 0, len(dayMap))
	for _, ds := range dayMap {
		days = append(days, *ds)
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// AggregateMachines computes per-machine statistics, highest carbon first.
func AggregateMachines(calcs []model.Calculation, since, until time.Time) []model.MachineStats {
	filtered := FilterByTime(calcs, since, until)

	byMachine := make(map[string]*model.MachineStats)
	var totalCarbon float64

	for _, c := range filtered {
		ms, ok := byMachine[c.MachineID]
		if !ok {
			ms = &model.MachineStats{MachineID: c.MachineID}
			byMachine[c.MachineID] = ms
		}
		ms.Calculations++
		ms.ProcessMinutes += c.ProcessTimeMinutes
		ms.IdleEnergyKWh += c.IdleEnergyKWh
		ms.TotalEnergyKWh += c.TotalEnergyKWh
		ms.TotalCarbonKg += c.TotalCarbonKg
		totalCarbon += c.TotalCarbonKg
	}

	out := make([]model.MachineStats, 0, len(byMachine))
	for _, ms := range byMachine {
		if totalCarbon > 0 {
			ms.SharePercent = ms.TotalCarbonKg / totalCarbon * 100
		}
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCarbonKg != out[j].TotalCarbonKg {
			return out[i].TotalCarbonKg > out[j].TotalCarbonKg
		}
		return out[i].MachineID < out[j].MachineID
	})
	return out
}

// AggregateMaterials computes per-material statistics, highest carbon first.
func AggregateMaterials(calcs []model.Calculation, since, until time.Time) []model.MaterialStats {
	filtered := FilterByTime(calcs, since, until)

	byMaterial := make(map[string]*model.MaterialStats)
	var totalCarbon float64

	for _, c := range filtered {
		ms, ok := byMaterial[c.MaterialID]
		if !ok {
			ms = &model.MaterialStats{MaterialID: c.MaterialID}
			byMaterial[c.MaterialID] = ms
		}
		ms.Calculations++
		ms.RemovedMassKg += c.RemovedMaterialWeightKg
		ms.TotalEnergyKWh += c.TotalEnergyKWh
		ms.TotalCarbonKg += c.TotalCarbonKg
		totalCarbon += c.TotalCarbonKg
	}

	out := make([]model.MaterialStats, 0, len(byMaterial))
	for _, ms := range byMaterial {
		if totalCarbon > 0 {
			ms.SharePercent = ms.TotalCarbonKg / totalCarbon * 100
		}
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCarbonKg != out[j].TotalCarbonKg {
			return out[i].TotalCarbonKg > out[j].TotalCarbonKg
		}
		return out[i].MaterialID < out[j].MaterialID
	})
	return out
}

// ComparePeriods aggregates the window [until-days, until) and the window of
// equal length before it.
func ComparePeriods(calcs []model.Calculation, days int, until time.Time) model.PeriodComparison {
	since := until.AddDate(0, 0, -days)
	prevSince := since.AddDate(0, 0, -days)
	return model.PeriodComparison{
		Current:  Aggregate(calcs, since, until),
		Previous: Aggregate(calcs, prevSince, since),
	}
}

// FilterByTime returns calculations whose creation time falls within
// [since, until). Zero bounds are open.
func FilterByTime(calcs []model.Calculation, since, until time.Time) []model.Calculation {
	if since.IsZero() && until.IsZero() {
		return calcs
	}

	var result []model.Calculation
	for _, c := range calcs {
		if c.CreatedAt.IsZero() {
			continue
		}
		if !since.IsZero() && c.CreatedAt.Before(since) {
			continue
		}
		if !until.IsZero() && !c.CreatedAt.Before(until) {
			continue
		}
		result = append(result, c)
	}
	return result
}
