package model

import "time"

// SummaryStats holds the top-level aggregate across calculations.
type SummaryStats struct {
	Calculations int `json:"calculations" yaml:"calculations"`
	Batches      int `json:"batches" yaml:"batches"`
	ActiveDays   int `json:"active_days" yaml:"active_days"`

	RemovedMassKg       float64 `json:"removed_mass_kg" yaml:"removed_mass_kg"`
	ProcessMinutes      float64 `json:"process_minutes" yaml:"process_minutes"`
	ProcessingEnergyKWh float64 `json:"processing_energy_kwh" yaml:"processing_energy_kwh"`
	IdleEnergyKWh       float64 `json:"idle_energy_kwh" yaml:"idle_energy_kwh"`
	TotalEnergyKWh      float64 `json:"total_energy_kwh" yaml:"total_energy_kwh"`
	TotalCarbonKg       float64 `json:"total_carbon_kg" yaml:"total_carbon_kg"`

	// CostByCurrency sums energy cost per currency; calculations without a
	// cost are not counted.
	CostByCurrency map[string]float64 `json:"cost_by_currency" yaml:"cost_by_currency"`
	CostedCount    int                `json:"costed_calculations" yaml:"costed_calculations"`

	AvgEfficiency  float64 `json:"avg_efficiency_score" yaml:"avg_efficiency_score"`
	IdleSharePct   float64 `json:"idle_share_pct" yaml:"idle_share_pct"`
	EnergyPerCalc  float64 `json:"energy_per_calculation_kwh" yaml:"energy_per_calculation_kwh"`
	CarbonPerKgCut float64 `json:"carbon_per_kg_removed" yaml:"carbon_per_kg_removed"`
	EnergyPerDay   float64 `json:"energy_per_day_kwh" yaml:"energy_per_day_kwh"`
	CarbonPerDay   float64 `json:"carbon_per_day_kg" yaml:"carbon_per_day_kg"`
	CalcsPerDay    float64 `json:"calculations_per_day" yaml:"calculations_per_day"`
}

// DailyStats holds metrics for a single calendar day.
type DailyStats struct {
	Date           time.Time          `json:"date" yaml:"date"`
	Calculations   int                `json:"calculations" yaml:"calculations"`
	TotalEnergyKWh float64            `json:"total_energy_kwh" yaml:"total_energy_kwh"`
	IdleEnergyKWh  float64            `json:"idle_energy_kwh" yaml:"idle_energy_kwh"`
	TotalCarbonKg  float64            `json:"total_carbon_kg" yaml:"total_carbon_kg"`
	CostByCurrency map[string]float64 `json:"cost_by_currency" yaml:"cost_by_currency"`
}

// MachineStats holds aggregated metrics for a single machine.
type MachineStats struct {
	MachineID      string  `json:"machine_id" yaml:"machine_id"`
	Calculations   int     `json:"calculations" yaml:"calculations"`
	ProcessMinutes float64 `json:"process_minutes" yaml:"process_minutes"`
	IdleEnergyKWh  float64 `json:"idle_energy_kwh" yaml:"idle_energy_kwh"`
	TotalEnergyKWh float64 `json:"total_energy_kwh" yaml:"total_energy_kwh"`
	TotalCarbonKg  float64 `json:"total_carbon_kg" yaml:"total_carbon_kg"`
	SharePercent   float64 `json:"share_pct" yaml:"share_pct"`
}

// MaterialStats holds aggregated metrics for a single material.
type MaterialStats struct {
	MaterialID     string  `json:"material_id" yaml:"material_id"`
	Calculations   int     `json:"calculations" yaml:"calculations"`
	RemovedMassKg  float64 `json:"removed_mass_kg" yaml:"removed_mass_kg"`
	TotalEnergyKWh float64 `json:"total_energy_kwh" yaml:"total_energy_kwh"`
	TotalCarbonKg  float64 `json:"total_carbon_kg" yaml:"total_carbon_kg"`
	SharePercent   float64 `json:"share_pct" yaml:"share_pct"`
}

// PeriodComparison holds current and previous period data for delta computation.
type PeriodComparison struct {
	Current  SummaryStats `json:"current" yaml:"current"`
	Previous SummaryStats `json:"previous" yaml:"previous"`
}
