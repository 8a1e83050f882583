package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steelInput() MachiningInput {
	return MachiningInput{
		InitialWeightKg:    10.0,
		FinalWeightKg:      9.2,
		ProcessTimeMinutes: 30,
		KcValue:            2400,
		StandbyPowerKW:     1.5,
		CarbonIntensity:    0.44,
		Density:            7850,
	}
}

func TestEstimate_SteelExample(t *testing.T) {
	in := steelInput()
	res, err := Estimate(in)
	require.NoError(t, err)

	removed := in.InitialWeightKg - in.FinalWeightKg
	volume := removed / in.Density * 1_000_000
	processing := volume * in.KcValue / 60 / 1000 / 0.85
	idle := in.StandbyPowerKW * in.ProcessTimeMinutes / 60

	assert.InDelta(t, 0.8, res.RemovedMaterialWeightKg, 1e-9)
	assert.InDelta(t, volume, res.RemovedVolumeCm3, 1e-9)
	assert.InDelta(t, 101.9108, res.RemovedVolumeCm3, 1e-4)
	assert.InDelta(t, processing, res.ProcessingEnergyKWh, 1e-12)
	assert.InDelta(t, 4.7958, res.ProcessingEnergyKWh, 1e-4)
	assert.InDelta(t, 0.75, res.IdleEnergyKWh, 1e-12)
	assert.InDelta(t, processing+idle, res.TotalEnergyKWh, 1e-12)
	assert.InDelta(t, (processing+idle)*0.44, res.TotalCarbonKg, 1e-12)

	t.Logf("volume=%.4fcm3 processing=%.4fkWh idle=%.4fkWh total=%.4fkWh carbon=%.4fkg",
		res.RemovedVolumeCm3, res.ProcessingEnergyKWh, res.IdleEnergyKWh, res.TotalEnergyKWh, res.TotalCarbonKg)
}

func TestEstimate_TotalsAreConsistent(t *testing.T) {
	inputs := []MachiningInput{
		steelInput(),
		{InitialWeightKg: 3.2, FinalWeightKg: 2.9, ProcessTimeMinutes: 12.5, KcValue: 800, StandbyPowerKW: 2.2, CarbonIntensity: 0.44, Density: 2700},
		{InitialWeightKg: 5, FinalWeightKg: 5, ProcessTimeMinutes: 90, KcValue: 1400, StandbyPowerKW: 0, CarbonIntensity: 0.3, Density: 4430},
		{InitialWeightKg: 0, FinalWeightKg: 0, ProcessTimeMinutes: 1, KcValue: 1, StandbyPowerKW: 25, CarbonIntensity: 1.1, Density: 1},
	}

	for i, in := range inputs {
		res, err := Estimate(in)
		require.NoError(t, err, "case %d", i)
		assert.InDelta(t, res.ProcessingEnergyKWh+res.IdleEnergyKWh, res.TotalEnergyKWh, 1e-12, "case %d", i)
		assert.InDelta(t, res.TotalEnergyKWh*in.CarbonIntensity, res.TotalCarbonKg, 1e-12, "case %d", i)
		assert.GreaterOrEqual(t, res.RemovedVolumeCm3, 0.0, "case %d", i)
	}
}

func TestEstimate_NoRemovalIsIdleOnly(t *testing.T) {
	in := steelInput()
	in.FinalWeightKg = in.InitialWeightKg

	res, err := Estimate(in)
	require.NoError(t, err)
	assert.Zero(t, res.RemovedVolumeCm3)
	assert.Zero(t, res.ProcessingEnergyKWh)
	assert.InDelta(t, res.IdleEnergyKWh, res.TotalEnergyKWh, 1e-12)
}

func TestEstimate_InvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MachiningInput)
		reason string
	}{
		{"negative initial", func(in *MachiningInput) { in.InitialWeightKg = -1 }, "weights must be non-negative"},
		{"negative final", func(in *MachiningInput) { in.FinalWeightKg = -0.1 }, "weights must be non-negative"},
		{"final above initial", func(in *MachiningInput) { in.FinalWeightKg = 10.5 }, "final_weight_kg cannot be greater than initial_weight_kg"},
		{"zero time", func(in *MachiningInput) { in.ProcessTimeMinutes = 0 }, "process_time_minutes must be > 0"},
		{"negative time", func(in *MachiningInput) { in.ProcessTimeMinutes = -5 }, "process_time_minutes must be > 0"},
		{"zero kc", func(in *MachiningInput) { in.KcValue = 0 }, "kc_value must be > 0"},
		{"negative standby", func(in *MachiningInput) { in.StandbyPowerKW = -0.5 }, "standby_power_kw must be >= 0"},
		{"zero carbon intensity", func(in *MachiningInput) { in.CarbonIntensity = 0 }, "carbon_intensity must be > 0"},
		{"zero density", func(in *MachiningInput) { in.Density = 0 }, "density must be > 0"},
		{"nan time", func(in *MachiningInput) { in.ProcessTimeMinutes = math.NaN() }, "process_time_minutes must be a finite number"},
		{"inf weight", func(in *MachiningInput) { in.InitialWeightKg = math.Inf(1) }, "initial_weight_kg must be a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := steelInput()
			tt.mutate(&in)

			res, err := Estimate(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter), "error %v should match ErrInvalidParameter", err)
			assert.Equal(t, tt.reason, err.Error())
			assert.Equal(t, EnergyResult{}, res, "no partial result on failure")

			var ipe *InvalidParameterError
			require.ErrorAs(t, err, &ipe)
			assert.NotEmpty(t, ipe.Field)
		})
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	in := steelInput()
	a, err := Estimate(in)
	require.NoError(t, err)
	b, err := Estimate(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
