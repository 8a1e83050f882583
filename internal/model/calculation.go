// Package model defines the records carboncam stores and aggregates.
package model

import (
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
)

// Where a calculation came from.
const (
	SourceCLI   = "cli"
	SourceAPI   = "api"
	SourceBatch = "batch"
)

// Optimisation tip codes.
const (
	TipIdleHigh             = "idle_high"
	TipAluminumFeedRate     = "material_aluminum_feed_rate"
	AluminumFeedIncreasePct = 15
	IdleHighThresholdPct    = 30
)

// Tip is one optimisation suggestion attached to a calculation.
type Tip struct {
	Code        string `json:"code" yaml:"code"`
	IdlePct     int    `json:"idle_pct,omitempty" yaml:"idle_pct,omitempty"`
	IncreasePct int    `json:"increase_pct,omitempty" yaml:"increase_pct,omitempty"`
}

// Calculation is one completed energy/carbon calculation, with its inputs
// and, when an operation start time was supplied, its electricity cost.
type Calculation struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Source     string    `json:"source" yaml:"source"`
	BatchID    string    `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	MachineID  string    `json:"machine_id" yaml:"machine_id"`
	MaterialID string    `json:"material_id" yaml:"material_id"`

	engine.MachiningInput `yaml:",inline"`
	engine.EnergyResult   `yaml:",inline"`

	EfficiencyScore  int    `json:"efficiency_score" yaml:"efficiency_score"`
	OptimizationTips []Tip  `json:"optimization_tips" yaml:"optimization_tips"`
	TariffType       string `json:"tariff_type,omitempty" yaml:"tariff_type,omitempty"`
	OperationStart   string `json:"operation_start_hhmm,omitempty" yaml:"operation_start_hhmm,omitempty"`
	OperationEnd     string `json:"operation_end_hhmm,omitempty" yaml:"operation_end_hhmm,omitempty"`

	Cost      *engine.CostResult `json:"cost,omitempty" yaml:"cost,omitempty"`
	CostError string             `json:"energy_cost_error,omitempty" yaml:"energy_cost_error,omitempty"`
}

// HasCost reports whether a cost was computed for the calculation.
func (c Calculation) HasCost() bool {
	return c.Cost != nil
}
