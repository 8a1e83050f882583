// Package engine implements the pure machining energy, carbon and
// time-of-use electricity cost calculations.
//
// Every function in this package is deterministic and free of side effects:
// no I/O, no shared state, no caching. Callers resolve catalog constants and
// tariff rates before calling in.
package engine

// MachiningInput holds the measured and resolved parameters of one
// machining operation.
//
// Units:
//   - InitialWeightKg/FinalWeightKg: kg
//   - ProcessTimeMinutes: minutes
//   - KcValue: specific cutting energy coefficient
//   - StandbyPowerKW: kW
//   - CarbonIntensity: kgCO2 per kWh
//   - Density: kg/m³ (steel ~7850)
type MachiningInput struct {
	InitialWeightKg    float64 `json:"initial_weight_kg" yaml:"initial_weight_kg"`
	FinalWeightKg      float64 `json:"final_weight_kg" yaml:"final_weight_kg"`
	ProcessTimeMinutes float64 `json:"process_time_minutes" yaml:"process_time_minutes"`
	KcValue            float64 `json:"kc_value" yaml:"kc_value"`
	StandbyPowerKW     float64 `json:"standby_power_kw" yaml:"standby_power_kw"`
	CarbonIntensity    float64 `json:"carbon_intensity" yaml:"carbon_intensity"`
	Density            float64 `json:"density" yaml:"density"`
}

// EnergyResult is the energy and carbon breakdown of one operation.
type EnergyResult struct {
	RemovedMaterialWeightKg float64 `json:"removed_material_weight_kg" yaml:"removed_material_weight_kg"`
	RemovedVolumeCm3        float64 `json:"removed_volume_cm3" yaml:"removed_volume_cm3"`
	ProcessingEnergyKWh     float64 `json:"processing_energy_kwh" yaml:"processing_energy_kwh"`
	IdleEnergyKWh           float64 `json:"idle_energy_kwh" yaml:"idle_energy_kwh"`
	TotalEnergyKWh          float64 `json:"total_energy_kwh" yaml:"total_energy_kwh"`
	TotalCarbonKg           float64 `json:"total_carbon_kg" yaml:"total_carbon_kg"`
}

// TariffType selects between a flat rate and a three-period (day/peak/night)
// time-of-use tariff.
type TariffType string

const (
	TariffSingle TariffType = "single"
	TariffMulti  TariffType = "multi"
)

// Default tariff period boundaries, in minutes since midnight.
const (
	DefaultDayStart   = 6 * 60
	DefaultPeakStart  = 17 * 60
	DefaultNightStart = 22 * 60
)

const minutesPerDay = 24 * 60

// TariffConfig describes the electricity tariff used to price energy.
//
// Type is matched case-insensitively. Single uses SingleRate; Multi uses
// Day/Peak/Night rates and the three boundaries, which default to
// 06:00/17:00/22:00 when nil. Nil rates are "missing".
type TariffConfig struct {
	Type       string   `json:"tariff_type" yaml:"tariff_type"`
	SingleRate *float64 `json:"single_rate_per_kwh,omitempty" yaml:"single_rate_per_kwh,omitempty"`
	DayRate    *float64 `json:"day_rate_per_kwh,omitempty" yaml:"day_rate_per_kwh,omitempty"`
	PeakRate   *float64 `json:"peak_rate_per_kwh,omitempty" yaml:"peak_rate_per_kwh,omitempty"`
	NightRate  *float64 `json:"night_rate_per_kwh,omitempty" yaml:"night_rate_per_kwh,omitempty"`
	DayStart   *int     `json:"day_start_min,omitempty" yaml:"day_start_min,omitempty"`
	PeakStart  *int     `json:"peak_start_min,omitempty" yaml:"peak_start_min,omitempty"`
	NightStart *int     `json:"night_start_min,omitempty" yaml:"night_start_min,omitempty"`
}

// Boundaries returns the day, peak and night start minutes, applying the
// defaults for any boundary left unset.
func (t TariffConfig) Boundaries() (day, peak, night int) {
	day, peak, night = DefaultDayStart, DefaultPeakStart, DefaultNightStart
	if t.DayStart != nil {
		day = *t.DayStart
	}
	if t.PeakStart != nil {
		peak = *t.PeakStart
	}
	if t.NightStart != nil {
		night = *t.NightStart
	}
	return day, peak, night
}

// SingleTariff is a convenience constructor for a flat-rate tariff.
func SingleTariff(rate float64) TariffConfig {
	return TariffConfig{Type: string(TariffSingle), SingleRate: &rate}
}

// MultiTariff is a convenience constructor for a day/peak/night tariff with
// the default period boundaries.
func MultiTariff(day, peak, night float64) TariffConfig {
	return TariffConfig{
		Type:      string(TariffMulti),
		DayRate:   &day,
		PeakRate:  &peak,
		NightRate: &night,
	}
}

// WithBoundaries returns a copy of t with explicit period boundaries.
func (t TariffConfig) WithBoundaries(day, peak, night int) TariffConfig {
	t.DayStart, t.PeakStart, t.NightStart = &day, &peak, &night
	return t
}

// OperationWindow is the wall-clock span of an operation.
//
// Start is required. End is optional; when End is not after Start the
// operation is taken to cross midnight. ProcessTimeMinutes is the duration
// used when End is empty.
type OperationWindow struct {
	Start              string  `json:"operation_start_hhmm" yaml:"operation_start_hhmm"`
	End                string  `json:"operation_end_hhmm,omitempty" yaml:"operation_end_hhmm,omitempty"`
	ProcessTimeMinutes float64 `json:"process_time_minutes" yaml:"process_time_minutes"`
}

// Reporting conventions carried on CostResult.
const (
	// ConventionSingleAsNight marks a single-tariff result whose minutes are
	// all reported in the night bucket. The split carries no meaning about
	// when the energy was drawn.
	ConventionSingleAsNight = "single_tariff_minutes_reported_as_night"
)

// CostResult is the electricity cost of one operation.
type CostResult struct {
	EnergyCost        float64 `json:"energy_cost" yaml:"energy_cost"`
	Currency          string  `json:"energy_currency" yaml:"energy_currency"`
	AppliedRatePerKWh float64 `json:"applied_rate_per_kwh" yaml:"applied_rate_per_kwh"`
	MinutesDay        float64 `json:"minutes_day" yaml:"minutes_day"`
	MinutesPeak       float64 `json:"minutes_peak" yaml:"minutes_peak"`
	MinutesNight      float64 `json:"minutes_night" yaml:"minutes_night"`
	Convention        string  `json:"convention,omitempty" yaml:"convention,omitempty"`
}
