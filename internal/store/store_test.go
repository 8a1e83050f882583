package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "carboncam.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleCalc(id string, at time.Time, machine string) model.Calculation {
	return model.Calculation{
		ID:         id,
		CreatedAt:  at,
		Source:     model.SourceCLI,
		MachineID:  machine,
		MaterialID: "mat_4140",
		MachiningInput: engine.MachiningInput{
			InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 30,
			KcValue: 2400, StandbyPowerKW: 1.5, CarbonIntensity: 0.44, Density: 7850,
		},
		EnergyResult: engine.EnergyResult{
			RemovedMaterialWeightKg: 0.8, RemovedVolumeCm3: 101.9,
			ProcessingEnergyKWh: 4.79, IdleEnergyKWh: 0.75, TotalEnergyKWh: 5.54, TotalCarbonKg: 2.44,
		},
		EfficiencyScore:  86,
		OptimizationTips: []model.Tip{{Code: model.TipIdleHigh, IdlePct: 35}},
	}
}

func TestCalculations_SaveGetList(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	withCost := sampleCalc("b", base.Add(time.Hour), "cnc_2")
	withCost.TariffType = "multi"
	withCost.OperationStart = "14:00"
	withCost.Cost = &engine.CostResult{EnergyCost: 5.54, Currency: "TRY", AppliedRatePerKWh: 1, MinutesDay: 60}

	if err := s.SaveCalculation(ctx, sampleCalc("a", base, "cnc_1")); err != nil {
		t.Fatalf("SaveCalculation: %v", err)
	}
	if err := s.SaveCalculations(ctx, []model.Calculation{withCost, sampleCalc("c", base.Add(2*time.Hour), "cnc_1")}); err != nil {
		t.Fatalf("SaveCalculations: %v", err)
	}

	got, err := s.GetCalculation(ctx, "b")
	if err != nil {
		t.Fatalf("GetCalculation: %v", err)
	}
	if !got.CreatedAt.Equal(withCost.CreatedAt) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, withCost.CreatedAt)
	}
	if got.Cost == nil || got.Cost.EnergyCost != 5.54 || got.Cost.MinutesDay != 60 || got.Cost.Currency != "TRY" {
		t.Fatalf("cost = %+v", got.Cost)
	}
	if got.TotalCarbonKg != 2.44 || got.Density != 7850 {
		t.Fatalf("round trip lost values: %+v", got)
	}
	if len(got.OptimizationTips) != 1 || got.OptimizationTips[0].IdlePct != 35 {
		t.Fatalf("tips = %+v", got.OptimizationTips)
	}

	a, err := s.GetCalculation(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if a.Cost != nil {
		t.Fatalf("calculation without cost came back with %+v", a.Cost)
	}

	all, err := s.ListCalculations(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("list order = %v", ids(all))
	}

	filtered, err := s.ListCalculations(ctx, Filter{MachineID: "cnc_1", Since: base.Add(time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].ID != "c" {
		t.Fatalf("filtered = %v", ids(filtered))
	}

	limited, err := s.ListCalculations(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit ignored: %d rows", len(limited))
	}

	n, err := s.CountCalculations(ctx)
	if err != nil || n != 3 {
		t.Fatalf("count = %d, %v", n, err)
	}
}

func TestCalculations_NotFound(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, err := s.GetCalculation(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetCalculation err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteCalculation(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteCalculation err = %v, want ErrNotFound", err)
	}

	if err := s.SaveCalculation(ctx, sampleCalc("x", time.Now(), "cnc_1")); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteCalculation(ctx, "x"); err != nil {
		t.Fatalf("DeleteCalculation: %v", err)
	}
}

func TestRates_UpsertGetListDelete(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	day, peak := 1.1, 2.5

	err := s.UpsertRate(ctx, config.RateRow{Region: "tr", Currency: "try", TariffType: "Multi", Day: &day, Peak: &peak, PeakStart: "18:00:00"})
	if err != nil {
		t.Fatalf("UpsertRate: %v", err)
	}

	r, err := s.GetRate(ctx, "TR", "TRY", "multi")
	if err != nil {
		t.Fatalf("GetRate: %v", err)
	}
	if r.Day == nil || *r.Day != 1.1 || r.Night != nil || r.PeakStart != "18:00:00" {
		t.Fatalf("row = %+v", r)
	}
	if r.UpdatedAt.IsZero() {
		t.Fatal("updated_at not set")
	}

	night := 0.7
	if err := s.UpsertRate(ctx, config.RateRow{Region: "TR", Currency: "TRY", TariffType: "multi", Night: &night}); err != nil {
		t.Fatalf("second UpsertRate: %v", err)
	}
	r, err = s.GetRate(ctx, "TR", "TRY", "MULTI")
	if err != nil {
		t.Fatal(err)
	}
	if r.Day != nil || r.Night == nil || *r.Night != 0.7 {
		t.Fatalf("upsert should replace the row, got %+v", r)
	}

	single := 1.3
	if err := s.UpsertRate(ctx, config.RateRow{Region: "TR", Currency: "TRY", TariffType: "single", Single: &single}); err != nil {
		t.Fatal(err)
	}
	rows, err := s.ListRates(ctx)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListRates = %d rows, %v", len(rows), err)
	}
	if rows[0].TariffType != "multi" || rows[1].TariffType != "single" {
		t.Fatalf("rates not ordered: %s, %s", rows[0].TariffType, rows[1].TariffType)
	}

	if err := s.DeleteRate(ctx, "TR", "TRY", "single"); err != nil {
		t.Fatalf("DeleteRate: %v", err)
	}
	if _, err := s.GetRate(ctx, "TR", "TRY", "single"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRate after delete err = %v", err)
	}
	if err := s.DeleteRate(ctx, "TR", "TRY", "single"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteRate err = %v", err)
	}
}

func TestUpsertRate_RequiresKey(t *testing.T) {
	s := openTest(t)
	if err := s.UpsertRate(context.Background(), config.RateRow{Region: "TR"}); err == nil {
		t.Fatal("UpsertRate without currency/tariff succeeded")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{postgres: true}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Fatalf("rebind = %q", got)
	}
	lite := &Store{}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite rebind = %q", got)
	}
	if !IsPostgres("postgres://u@h/db") || !IsPostgres("postgresql://h/db") || IsPostgres("/tmp/x.db") {
		t.Fatal("IsPostgres misclassified a DSN")
	}
}

func ids(calcs []model.Calculation) []string {
	out := make([]string, len(calcs))
	for i, c := range calcs {
		out[i] = c.ID
	}
	return out
}
