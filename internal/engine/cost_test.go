package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestEstimateCost_Single(t *testing.T) {
	res, err := EstimateCost(10, SingleTariff(1.25), OperationWindow{Start: "09:00", ProcessTimeMinutes: 45}, "TRY")
	require.NoError(t, err)

	assert.InDelta(t, 12.5, res.EnergyCost, 1e-12)
	assert.InDelta(t, 1.25, res.AppliedRatePerKWh, 1e-12)
	assert.Equal(t, "TRY", res.Currency)
	assert.Zero(t, res.MinutesDay)
	assert.Zero(t, res.MinutesPeak)
	assert.InDelta(t, 45, res.MinutesNight, 1e-12)
	assert.Equal(t, ConventionSingleAsNight, res.Convention)
}

func TestEstimateCost_SingleUsesEndTimeForMinutes(t *testing.T) {
	res, err := EstimateCost(2, SingleTariff(3), OperationWindow{Start: "08:00", End: "09:30", ProcessTimeMinutes: 10}, "EUR")
	require.NoError(t, err)
	assert.InDelta(t, 90, res.MinutesNight, 1e-12)
	assert.InDelta(t, 6, res.EnergyCost, 1e-12)
}

func TestEstimateCost_TypeIsCaseInsensitive(t *testing.T) {
	for _, typ := range []string{"Single", "SINGLE", " single "} {
		tariff := SingleTariff(2)
		tariff.Type = typ
		_, err := EstimateCost(1, tariff, OperationWindow{Start: "10:00", ProcessTimeMinutes: 5}, "TRY")
		require.NoError(t, err, "type %q", typ)
	}
}

func TestEstimateCost_Multi(t *testing.T) {
	tariff := MultiTariff(1.0, 2.0, 0.8)

	tests := []struct {
		name             string
		window           OperationWindow
		day, peak, night float64
		rate             float64
	}{
		{"entirely day", OperationWindow{Start: "14:00", End: "15:00", ProcessTimeMinutes: 60}, 60, 0, 0, 1.0},
		{"crosses midnight", OperationWindow{Start: "23:00", End: "01:00", ProcessTimeMinutes: 120}, 0, 0, 120, 0.8},
		{"day into peak", OperationWindow{Start: "16:30", End: "17:30", ProcessTimeMinutes: 60}, 30, 30, 0, 1.5},
		{"peak into night", OperationWindow{Start: "21:00", End: "23:00", ProcessTimeMinutes: 120}, 0, 60, 60, 1.4},
		{"early morning night", OperationWindow{Start: "03:00", ProcessTimeMinutes: 60}, 0, 0, 60, 0.8},
		{"end equal to start is a full day", OperationWindow{Start: "06:00", End: "06:00", ProcessTimeMinutes: 1},
			660, 300, 480, (660*1.0 + 300*2.0 + 480*0.8) / 1440},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := EstimateCost(5, tariff, tt.window, "TRY")
			require.NoError(t, err)

			assert.InDelta(t, tt.day, res.MinutesDay, 1e-12, "day minutes")
			assert.InDelta(t, tt.peak, res.MinutesPeak, 1e-12, "peak minutes")
			assert.InDelta(t, tt.night, res.MinutesNight, 1e-12, "night minutes")
			assert.InDelta(t, tt.rate, res.AppliedRatePerKWh, 1e-12)
			assert.InDelta(t, 5*tt.rate, res.EnergyCost, 1e-12)
			assert.Empty(t, res.Convention)
		})
	}
}

func TestEstimateCost_MultiRateWithinBounds(t *testing.T) {
	tariff := MultiTariff(1.1, 2.7, 0.6)
	starts := []string{"00:00", "05:59", "06:00", "12:15", "16:59", "17:00", "21:45", "22:00", "23:59"}
	durations := []float64{1, 17, 60, 333, 719, 1440}

	for _, s := range starts {
		for _, d := range durations {
			res, err := EstimateCost(1, tariff, OperationWindow{Start: s, ProcessTimeMinutes: d}, "TRY")
			require.NoError(t, err)

			sum := res.MinutesDay + res.MinutesPeak + res.MinutesNight
			assert.InDelta(t, math.RoundToEven(d), sum, 1e-12, "start %s duration %v", s, d)
			assert.GreaterOrEqual(t, res.AppliedRatePerKWh, 0.6-1e-12)
			assert.LessOrEqual(t, res.AppliedRatePerKWh, 2.7+1e-12)
		}
	}
}

func TestEstimateCost_DurationRoundsHalfToEven(t *testing.T) {
	tariff := MultiTariff(1, 2, 0.8)

	res, err := EstimateCost(1, tariff, OperationWindow{Start: "14:00", ProcessTimeMinutes: 30.5}, "TRY")
	require.NoError(t, err)
	assert.InDelta(t, 30, res.MinutesDay, 1e-12)

	res, err = EstimateCost(1, tariff, OperationWindow{Start: "14:00", ProcessTimeMinutes: 31.5}, "TRY")
	require.NoError(t, err)
	assert.InDelta(t, 32, res.MinutesDay, 1e-12)
}

func TestEstimateCost_SubMinuteUsesGuard(t *testing.T) {
	// Rounds to a zero-length interval: no minutes attributed, rate falls to 0.
	res, err := EstimateCost(3, MultiTariff(1, 2, 0.8), OperationWindow{Start: "14:00", ProcessTimeMinutes: 0.4}, "TRY")
	require.NoError(t, err)
	assert.Zero(t, res.MinutesDay+res.MinutesPeak+res.MinutesNight)
	assert.Zero(t, res.AppliedRatePerKWh)
	assert.Zero(t, res.EnergyCost)
}

func TestEstimateCost_HugeProcessTimeWithEndTime(t *testing.T) {
	// The end time decides the window, so an oversized process time is harmless.
	res, err := EstimateCost(1, MultiTariff(1, 2, 0.8), OperationWindow{Start: "14:00", End: "15:00", ProcessTimeMinutes: 1e19}, "TRY")
	require.NoError(t, err)
	assert.InDelta(t, 60, res.MinutesDay, 1e-12)
}

func TestEstimateCost_WindowBeyondTwoDays(t *testing.T) {
	// Only two days of periods are laid out; later minutes stay unassigned
	// but still count towards the average.
	res, err := EstimateCost(1, MultiTariff(1, 2, 0.8), OperationWindow{Start: "00:00", ProcessTimeMinutes: 3600}, "TRY")
	require.NoError(t, err)

	assigned := res.MinutesDay + res.MinutesPeak + res.MinutesNight
	assert.InDelta(t, 2880, assigned, 1e-12)
	assert.InDelta(t, 2*660, res.MinutesDay, 1e-12)
	assert.InDelta(t, 2*300, res.MinutesPeak, 1e-12)
	assert.InDelta(t, 2*480, res.MinutesNight, 1e-12)

	want := (2*660*1.0 + 2*300*2.0 + 2*480*0.8) / 3600
	assert.InDelta(t, want, res.AppliedRatePerKWh, 1e-12)
	assert.InDelta(t, want, res.EnergyCost, 1e-12)
}

func TestEstimateCost_CustomBoundaries(t *testing.T) {
	tariff := MultiTariff(1, 3, 0.5).WithBoundaries(7*60, 18*60, 23*60)

	res, err := EstimateCost(1, tariff, OperationWindow{Start: "06:00", End: "08:00", ProcessTimeMinutes: 120}, "TRY")
	require.NoError(t, err)
	assert.InDelta(t, 60, res.MinutesNight, 1e-12)
	assert.InDelta(t, 60, res.MinutesDay, 1e-12)
	assert.InDelta(t, 0.75, res.AppliedRatePerKWh, 1e-12)
}

func TestEstimateCost_ZeroEnergyIsFree(t *testing.T) {
	res, err := EstimateCost(0, MultiTariff(1, 2, 0.8), OperationWindow{Start: "18:00", ProcessTimeMinutes: 30}, "TRY")
	require.NoError(t, err)
	assert.Zero(t, res.EnergyCost)
	assert.InDelta(t, 2, res.AppliedRatePerKWh, 1e-12)
}

func TestEstimateCost_InvalidParameters(t *testing.T) {
	window := OperationWindow{Start: "10:00", ProcessTimeMinutes: 30}

	tests := []struct {
		name   string
		energy float64
		tariff TariffConfig
		window OperationWindow
		reason string
	}{
		{"negative energy", -1, SingleTariff(1), window, "total_energy_kwh must be >= 0"},
		{"nan energy", math.NaN(), SingleTariff(1), window, "total_energy_kwh must be a finite number"},
		{"infinite process time", 1, MultiTariff(1, 2, 0.8), OperationWindow{Start: "14:00", ProcessTimeMinutes: math.Inf(1)},
			"process_time_minutes must be a finite number"},
		{"infinite process time single", 1, SingleTariff(1), OperationWindow{Start: "14:00", ProcessTimeMinutes: math.Inf(1)},
			"process_time_minutes must be a finite number"},
		{"process time overflows", 1, MultiTariff(1, 2, 0.8), OperationWindow{Start: "14:00", ProcessTimeMinutes: 1e19},
			"process_time_minutes is too large"},
		{"huge process time single", 1, SingleTariff(1), OperationWindow{Start: "14:00", ProcessTimeMinutes: 1e300},
			"process_time_minutes is too large"},
		{"zero process time", 1, SingleTariff(1), OperationWindow{Start: "10:00"}, "process_time_minutes must be > 0"},
		{"bad start", 1, SingleTariff(1), OperationWindow{Start: "25:61", ProcessTimeMinutes: 5}, "hour must be between 0 and 23"},
		{"garbage start", 1, SingleTariff(1), OperationWindow{Start: "abc", ProcessTimeMinutes: 5}, "time must be in HH:MM format"},
		{"bad end minute", 1, SingleTariff(1), OperationWindow{Start: "10:00", End: "11:75", ProcessTimeMinutes: 5}, "minute must be between 0 and 59"},
		{"missing single rate", 1, TariffConfig{Type: "single"}, window, "single_rate_per_kwh must be provided and > 0 for Single tariff"},
		{"zero single rate", 1, SingleTariff(0), window, "single_rate_per_kwh must be provided and > 0 for Single tariff"},
		{"unknown type", 1, TariffConfig{Type: "flat", SingleRate: ptr(1.0)}, window, "tariff_type must be 'Single' or 'Multi'"},
		{"missing peak rate", 1, TariffConfig{Type: "multi", DayRate: ptr(1.0), NightRate: ptr(0.8)}, window, "day/peak/night rates must be provided for Multi tariff"},
		{"negative night rate", 1, MultiTariff(1, 2, -0.8), window, "day/peak/night rates must be > 0"},
		{"unordered boundaries", 1, MultiTariff(1, 2, 0.8).WithBoundaries(18*60, 17*60, 22*60), window,
			"tariff boundaries must satisfy 00:00 <= day_start <= peak_start <= night_start <= 24:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := EstimateCost(tt.energy, tt.tariff, tt.window, "TRY")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter), "error %v should match ErrInvalidParameter", err)
			assert.Equal(t, tt.reason, err.Error())
			assert.Equal(t, CostResult{}, res)
		})
	}
}

func TestEstimateCost_Idempotent(t *testing.T) {
	tariff := MultiTariff(1, 2, 0.8)
	window := OperationWindow{Start: "16:00", End: "23:30", ProcessTimeMinutes: 450}

	a, err := EstimateCost(7.3, tariff, window, "TRY")
	require.NoError(t, err)
	b, err := EstimateCost(7.3, tariff, window, "TRY")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
