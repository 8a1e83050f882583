package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

type fakeRates struct {
	rows map[string]config.RateRow
	err  error
}

func (f fakeRates) GetRate(_ context.Context, region, currency, tariffType string) (config.RateRow, error) {
	if f.err != nil {
		return config.RateRow{}, f.err
	}
	row, ok := f.rows[region+"/"+currency+"/"+tariffType]
	if !ok {
		return config.RateRow{}, fmt.Errorf("rate: %w", store.ErrNotFound)
	}
	return row, nil
}

func newCalculator(rates RateSource) *Calculator {
	return &Calculator{
		Catalog: catalog.Default(),
		Config:  config.DefaultConfig(),
		Rates:   rates,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return fixedNow },
	}
}

func f64(v float64) *float64 { return &v }

func rowsFor(key string, single float64) map[string]config.RateRow {
	return map[string]config.RateRow{key: {Single: f64(single)}}
}

func TestCalculate_Steel(t *testing.T) {
	c := newCalculator(nil)
	calc, err := c.Calculate(context.Background(), Request{
		MachineID: "cnc_1", MaterialID: "mat_4140",
		InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 30,
	})
	require.NoError(t, err)

	want, err := engine.Estimate(engine.MachiningInput{
		InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 30,
		KcValue: 2400, StandbyPowerKW: 1.5, CarbonIntensity: 0.44, Density: 7850,
	})
	require.NoError(t, err)

	assert.Equal(t, want, calc.EnergyResult)
	assert.NotEmpty(t, calc.ID)
	assert.Equal(t, fixedNow, calc.CreatedAt)
	assert.Equal(t, model.SourceCLI, calc.Source)
	assert.Equal(t, 86, calc.EfficiencyScore)
	assert.Empty(t, calc.OptimizationTips)
	assert.NotNil(t, calc.OptimizationTips, "tips should encode as [] not null")
	assert.Nil(t, calc.Cost, "no start time, no cost")
	assert.Empty(t, calc.CostError)
}

func TestCalculate_AluminumTips(t *testing.T) {
	c := newCalculator(nil)
	calc, err := c.Calculate(context.Background(), Request{
		MachineID: "cnc_2", MaterialID: "mat_6061",
		InitialWeightKg: 3.2, FinalWeightKg: 3.1, ProcessTimeMinutes: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, 21, calc.EfficiencyScore)
	require.Len(t, calc.OptimizationTips, 2)
	assert.Equal(t, model.Tip{Code: model.TipIdleHigh, IdlePct: 79}, calc.OptimizationTips[0])
	assert.Equal(t, model.Tip{Code: model.TipAluminumFeedRate, IncreasePct: 15}, calc.OptimizationTips[1])
}

func TestCalculate_Errors(t *testing.T) {
	c := newCalculator(nil)
	ctx := context.Background()

	_, err := c.Calculate(ctx, Request{MachineID: "cnc_1", MaterialID: "mat_x", InitialWeightKg: 1, ProcessTimeMinutes: 1})
	assert.ErrorIs(t, err, catalog.ErrUnknownMaterial)

	_, err = c.Calculate(ctx, Request{MachineID: "cnc_x", MaterialID: "mat_4140", InitialWeightKg: 1, ProcessTimeMinutes: 1})
	assert.ErrorIs(t, err, catalog.ErrUnknownMachine)

	_, err = c.Calculate(ctx, Request{MachineID: "cnc_1", MaterialID: "mat_4140", InitialWeightKg: 1, FinalWeightKg: 2, ProcessTimeMinutes: 1})
	assert.ErrorIs(t, err, engine.ErrInvalidParameter)
	assert.EqualError(t, err, "final_weight_kg cannot be greater than initial_weight_kg")
}

func TestCalculate_SingleTariffFallbackCost(t *testing.T) {
	c := newCalculator(fakeRates{})
	calc, err := c.Calculate(context.Background(), Request{
		MachineID: "cnc_1", MaterialID: "mat_4140",
		InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 30,
		OperationStart: "14:30", OperationEnd: "15:30",
	})
	require.NoError(t, err)
	require.NotNil(t, calc.Cost)

	assert.Equal(t, "single", calc.TariffType)
	assert.InDelta(t, calc.TotalEnergyKWh*1.0, calc.Cost.EnergyCost, 1e-12)
	assert.Equal(t, "TRY", calc.Cost.Currency)
	assert.InDelta(t, 60, calc.Cost.MinutesNight, 1e-12)
	assert.Equal(t, engine.ConventionSingleAsNight, calc.Cost.Convention)
}

func TestCalculate_EmptyTariffUsesConfig(t *testing.T) {
	c := newCalculator(nil)
	c.Config.Tariff.Type = "multi"

	calc, err := c.Calculate(context.Background(), Request{
		MachineID: "cnc_1", MaterialID: "mat_4140",
		InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 60,
		OperationStart: "18:00",
	})
	require.NoError(t, err)
	require.NotNil(t, calc.Cost, "cost error: %s", calc.CostError)

	assert.Equal(t, "multi", calc.TariffType)
	assert.InDelta(t, 60, calc.Cost.MinutesPeak, 1e-12)
	assert.InDelta(t, 2, calc.Cost.AppliedRatePerKWh, 1e-12)
	assert.Empty(t, calc.Cost.Convention)
}

func TestCalculate_StoredUnorderedBoundariesStillPriced(t *testing.T) {
	rates := fakeRates{rows: map[string]config.RateRow{
		"TR/TRY/multi": {Region: "TR", Currency: "TRY", TariffType: "multi", PeakStart: "23:00:00", NightStart: "21:00:00"},
	}}
	c := newCalculator(rates)

	calc, err := c.Calculate(context.Background(), Request{
		MachineID: "cnc_1", MaterialID: "mat_4140",
		InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 60,
		TariffType: "multi", OperationStart: "18:00",
	})
	require.NoError(t, err)
	require.NotNil(t, calc.Cost, "cost error: %s", calc.CostError)
	assert.InDelta(t, 60, calc.Cost.MinutesPeak, 1e-12, "default 17:00-22:00 peak applies")
}

func TestCalculate_StoredMultiRates(t *testing.T) {
	rates := fakeRates{rows: map[string]config.RateRow{
		"TR/TRY/multi": {Region: "TR", Currency: "TRY", TariffType: "multi", Day: f64(2), PeakStart: "16:00:00"},
	}}
	c := newCalculator(rates)

	calc, err := c.Calculate(context.Background(), Request{
		MachineID: "cnc_1", MaterialID: "mat_4140",
		InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 60,
		TariffType: "Multi", OperationStart: "15:00", OperationEnd: "17:00", Currency: "TRY",
	})
	require.NoError(t, err)
	require.NotNil(t, calc.Cost)

	// 15:00-16:00 day at the stored 2.0, 16:00-17:00 peak at the fallback 2.0.
	assert.InDelta(t, 60, calc.Cost.MinutesDay, 1e-12)
	assert.InDelta(t, 60, calc.Cost.MinutesPeak, 1e-12)
	assert.InDelta(t, 2.0, calc.Cost.AppliedRatePerKWh, 1e-12)
}

func TestCalculate_CostFailureDegrades(t *testing.T) {
	c := newCalculator(nil)
	calc, err := c.Calculate(context.Background(), Request{
		MachineID: "cnc_1", MaterialID: "mat_4140",
		InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 30,
		OperationStart: "25:00",
	})
	require.NoError(t, err)
	assert.Nil(t, calc.Cost)
	assert.Equal(t, "hour must be between 0 and 23", calc.CostError)
	assert.Greater(t, calc.TotalEnergyKWh, 0.0, "energy still reported")

	calc, err = c.Calculate(context.Background(), Request{
		MachineID: "cnc_1", MaterialID: "mat_4140",
		InitialWeightKg: 10, FinalWeightKg: 9.2, ProcessTimeMinutes: 30,
		OperationStart: "10:00", TariffType: "weekly",
	})
	require.NoError(t, err)
	assert.Equal(t, "tariff_type must be 'Single' or 'Multi'", calc.CostError)
}

func TestResolveRates_StoreFailureFallsBack(t *testing.T) {
	c := newCalculator(fakeRates{err: errors.New("connection refused")})
	rs := c.ResolveRates(context.Background(), "single", "")
	assert.Equal(t, config.RateSourceFallback, rs.Source)
	assert.InDelta(t, 1.0, rs.Single, 1e-12)

	c = newCalculator(fakeRates{rows: map[string]config.RateRow{
		"TR/TRY/single": {Single: f64(1.45)},
	}})
	rs = c.ResolveRates(context.Background(), "Single", "TRY")
	assert.Equal(t, config.RateSourceStore, rs.Source)
	assert.InDelta(t, 1.45, rs.Single, 1e-12)
}

func TestEfficiencyScore(t *testing.T) {
	tests := []struct {
		res  engine.EnergyResult
		want int
	}{
		{engine.EnergyResult{}, 0},
		{engine.EnergyResult{ProcessingEnergyKWh: 1, TotalEnergyKWh: 1}, 100},
		{engine.EnergyResult{ProcessingEnergyKWh: 0, IdleEnergyKWh: 2, TotalEnergyKWh: 2}, 0},
		{engine.EnergyResult{ProcessingEnergyKWh: 1, IdleEnergyKWh: 3, TotalEnergyKWh: 4}, 25},
		// 62.5 rounds half to even.
		{engine.EnergyResult{ProcessingEnergyKWh: 5, IdleEnergyKWh: 3, TotalEnergyKWh: 8}, 62},
	}
	for _, tt := range tests {
		if got := EfficiencyScore(tt.res); got != tt.want {
			t.Fatalf("EfficiencyScore(%+v) = %d, want %d", tt.res, got, tt.want)
		}
	}
}

func TestChainRates(t *testing.T) {
	ctx := context.Background()
	local := fakeRates{}
	remote := fakeRates{rows: rowsFor("TR/TRY/single", 1.2)}
	broken := fakeRates{err: errors.New("timeout")}

	row, err := ChainRates{local, remote}.GetRate(ctx, "TR", "TRY", "single")
	require.NoError(t, err)
	assert.InDelta(t, 1.2, *row.Single, 1e-12)

	_, err = ChainRates{local, local}.GetRate(ctx, "TR", "TRY", "single")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = ChainRates{broken, local}.GetRate(ctx, "TR", "TRY", "single")
	assert.EqualError(t, err, "timeout")

	row, err = ChainRates{broken, remote}.GetRate(ctx, "TR", "TRY", "single")
	require.NoError(t, err, "a later hit wins over an earlier failure")
	assert.NotNil(t, row.Single)
}
