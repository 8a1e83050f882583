package engine

import "math"

const (
	// cm3PerM3 converts the m³ obtained from mass/density into cm³.
	cm3PerM3 = 1_000_000.0

	// processEfficiency is the fixed mechanical efficiency applied to the
	// cutting energy. It is not configurable.
	processEfficiency = 0.85
)

// Estimate converts the mass removed by a machining operation and its
// process parameters into processing, idle and total energy and the
// resulting carbon emissions.
//
//	volume_cm3     = (initial - final) / density * 1e6
//	processing_kwh = volume_cm3 * kc / 60 / 1000 / 0.85
//	idle_kwh       = standby_kw * minutes / 60
//	carbon_kg      = (processing_kwh + idle_kwh) * carbon_intensity
func Estimate(in MachiningInput) (EnergyResult, error) {
	if err := validateMachining(in); err != nil {
		return EnergyResult{}, err
	}

	removed := in.InitialWeightKg - in.FinalWeightKg
	volume := (removed / in.Density) * cm3PerM3

	processing := (volume * in.KcValue) / 60.0 / 1000.0 / processEfficiency
	idle := in.StandbyPowerKW * (in.ProcessTimeMinutes / 60.0)

	total := processing + idle

	return EnergyResult{
		RemovedMaterialWeightKg: removed,
		RemovedVolumeCm3:        volume,
		ProcessingEnergyKWh:     processing,
		IdleEnergyKWh:           idle,
		TotalEnergyKWh:          total,
		TotalCarbonKg:           total * in.CarbonIntensity,
	}, nil
}

func validateMachining(in MachiningInput) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"initial_weight_kg", in.InitialWeightKg},
		{"final_weight_kg", in.FinalWeightKg},
		{"process_time_minutes", in.ProcessTimeMinutes},
		{"kc_value", in.KcValue},
		{"standby_power_kw", in.StandbyPowerKW},
		{"carbon_intensity", in.CarbonIntensity},
		{"density", in.Density},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalid(f.name, "%s must be a finite number", f.name)
		}
	}

	switch {
	case in.InitialWeightKg < 0 || in.FinalWeightKg < 0:
		return invalid("weight", "weights must be non-negative")
	case in.FinalWeightKg > in.InitialWeightKg:
		return invalid("final_weight_kg", "final_weight_kg cannot be greater than initial_weight_kg")
	case in.ProcessTimeMinutes <= 0:
		return invalid("process_time_minutes", "process_time_minutes must be > 0")
	case in.KcValue <= 0:
		return invalid("kc_value", "kc_value must be > 0")
	case in.StandbyPowerKW < 0:
		return invalid("standby_power_kw", "standby_power_kw must be >= 0")
	case in.CarbonIntensity <= 0:
		return invalid("carbon_intensity", "carbon_intensity must be > 0")
	case in.Density <= 0:
		return invalid("density", "density must be > 0")
	}
	return nil
}
