package pipeline

import (
	"testing"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
)

func calcAt(ts time.Time, machine, material string, removed, minutes, processing, idle, carbon float64) model.Calculation {
	return model.Calculation{
		CreatedAt:      ts,
		MachineID:      machine,
		MaterialID:     material,
		MachiningInput: engine.MachiningInput{ProcessTimeMinutes: minutes},
		EnergyResult: engine.EnergyResult{
			RemovedMaterialWeightKg: removed,
			ProcessingEnergyKWh:     processing,
			IdleEnergyKWh:           idle,
			TotalEnergyKWh:          processing + idle,
			TotalCarbonKg:           carbon,
		},
	}
}

func fixture() []model.Calculation {
	day1 := time.Date(2026, 5, 1, 9, 0, 0, 0, time.Local)
	day2 := day1.AddDate(0, 0, 1)

	a := calcAt(day1, "cnc_1", "mat_4140", 0.8, 30, 4, 1, 2)
	a.EfficiencyScore = 80
	a.BatchID = "b1"
	a.Cost = &engine.CostResult{EnergyCost: 5, Currency: "TRY", MinutesNight: 30, Convention: engine.ConventionSingleAsNight}

	b := calcAt(day1.Add(2*time.Hour), "cnc_2", "mat_6061", 0.2, 60, 1, 3, 1)
	b.EfficiencyScore = 25
	b.BatchID = "b1"
	b.Cost = &engine.CostResult{EnergyCost: 6, Currency: "TRY", MinutesDay: 40, MinutesPeak: 20}

	c := calcAt(day2, "cnc_1", "mat_6061", 1, 10, 2, 0, 1)
	c.EfficiencyScore = 100
	c.CostError = "hour must be between 0 and 23"

	return []model.Calculation{a, b, c}
}

func TestAggregate(t *testing.T) {
	stats := Aggregate(fixture(), time.Time{}, time.Time{})

	if stats.Calculations != 3 || stats.Batches != 1 || stats.ActiveDays != 2 {
		t.Fatalf("counts = %d calcs, %d batches, %d days", stats.Calculations, stats.Batches, stats.ActiveDays)
	}
	if stats.TotalEnergyKWh != 11 || stats.IdleEnergyKWh != 4 || stats.ProcessingEnergyKWh != 7 {
		t.Fatalf("energy = %+v", stats)
	}
	if stats.TotalCarbonKg != 4 || stats.RemovedMassKg != 2 {
		t.Fatalf("carbon/mass = %v/%v", stats.TotalCarbonKg, stats.RemovedMassKg)
	}
	if stats.CostByCurrency["TRY"] != 11 || stats.CostedCount != 2 {
		t.Fatalf("cost = %v (%d costed)", stats.CostByCurrency, stats.CostedCount)
	}
	if stats.AvgEfficiency != float64(80+25+100)/3 {
		t.Fatalf("avg efficiency = %v", stats.AvgEfficiency)
	}
	if stats.CarbonPerKgCut != 2 {
		t.Fatalf("carbon per kg = %v, want 2", stats.CarbonPerKgCut)
	}
	if stats.CalcsPerDay != 1.5 || stats.EnergyPerDay != 5.5 {
		t.Fatalf("per day = %v calcs, %v kWh", stats.CalcsPerDay, stats.EnergyPerDay)
	}
}

func TestAggregate_Empty(t *testing.T) {
	stats := Aggregate(nil, time.Time{}, time.Time{})
	if stats.Calculations != 0 || stats.AvgEfficiency != 0 || stats.IdleSharePct != 0 {
		t.Fatalf("empty stats = %+v", stats)
	}
	if stats.CostByCurrency == nil {
		t.Fatal("CostByCurrency should be non-nil")
	}
}

func TestFilterByTime(t *testing.T) {
	calcs := fixture()
	since := time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local)
	until := time.Date(2026, 5, 2, 9, 0, 0, 0, time.Local)

	got := FilterByTime(calcs, since, until)
	if len(got) != 1 || got[0].MachineID != "cnc_2" {
		t.Fatalf("FilterByTime = %d calcs, want only the 11:00 one", len(got))
	}
	if len(FilterByTime(calcs, time.Time{}, time.Time{})) != 3 {
		t.Fatal("open bounds should keep everything")
	}
}

func TestAggregateDays_FillsGaps(t *testing.T) {
	since := time.Date(2026, 4, 30, 0, 0, 0, 0, time.Local)
	until := time.Date(2026, 5, 4, 0, 0, 0, 0, time.Local)

	days := AggregateDays(fixture(), since, until)
	if len(days) != 4 {
		t.Fatalf("got %d days, want 4", len(days))
	}
	if got := days[0].Date.Format("2006-01-02"); got != "2026-05-03" {
		t.Fatalf("first day = %s, want most recent", got)
	}
	if days[0].Calculations != 0 {
		t.Fatalf("gap day has %d calcs", days[0].Calculations)
	}
	if days[2].Calculations != 2 || days[2].TotalEnergyKWh != 9 || days[2].CostByCurrency["TRY"] != 11 {
		t.Fatalf("2026-05-01 = %+v", days[2])
	}
}

func TestAggregateMachinesAndMaterials(t *testing.T) {
	machines := AggregateMachines(fixture(), time.Time{}, time.Time{})
	if len(machines) != 2 || machines[0].MachineID != "cnc_1" {
		t.Fatalf("machines = %+v", machines)
	}
	if machines[0].TotalCarbonKg != 3 || machines[0].SharePercent != 75 {
		t.Fatalf("cnc_1 = %+v", machines[0])
	}

	materials := AggregateMaterials(fixture(), time.Time{}, time.Time{})
	if len(materials) != 2 {
		t.Fatalf("materials = %+v", materials)
	}
	// Equal carbon, ordered by id.
	if materials[0].MaterialID != "mat_4140" || materials[1].MaterialID != "mat_6061" {
		t.Fatalf("material order = %s, %s", materials[0].MaterialID, materials[1].MaterialID)
	}
	if materials[1].RemovedMassKg != 1.2 {
		t.Fatalf("mat_6061 removed = %v", materials[1].RemovedMassKg)
	}
}

func TestComparePeriods(t *testing.T) {
	until := time.Date(2026, 5, 3, 0, 0, 0, 0, time.Local)
	cmp := ComparePeriods(fixture(), 1, until)
	if cmp.Current.Calculations != 1 || cmp.Previous.Calculations != 2 {
		t.Fatalf("current %d, previous %d", cmp.Current.Calculations, cmp.Previous.Calculations)
	}
}

func TestAggregateCostBreakdown(t *testing.T) {
	split, currencies := AggregateCostBreakdown(fixture(), time.Time{}, time.Time{})

	if split.Costed != 2 || split.CostErrors != 1 {
		t.Fatalf("split counts = %+v", split)
	}
	if split.SingleMinutes != 30 || split.MinutesNight != 0 {
		t.Fatalf("single-tariff minutes leaked into night: %+v", split)
	}
	if split.MinutesDay != 40 || split.MinutesPeak != 20 {
		t.Fatalf("multi minutes = %+v", split)
	}
	if len(currencies) != 1 {
		t.Fatalf("currencies = %+v", currencies)
	}
	try := currencies[0]
	if try.EnergyCost != 11 || try.EnergyKWh != 9 || try.Calculations != 2 {
		t.Fatalf("TRY = %+v", try)
	}
	if try.AvgRatePerKWh != 11.0/9.0 {
		t.Fatalf("avg rate = %v", try.AvgRatePerKWh)
	}
}
