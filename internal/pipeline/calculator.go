package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"

	"github.com/google/uuid"
)

// RateSource looks up a stored electricity rate row. A miss is reported with
// an error wrapping store.ErrNotFound.
type RateSource interface {
	GetRate(ctx context.Context, region, currency, tariffType string) (config.RateRow, error)
}

// ChainRates tries each source in order and returns the first hit. When
// every source misses the result wraps store.ErrNotFound; otherwise the
// first real failure is returned.
type ChainRates []RateSource

func (c ChainRates) GetRate(ctx context.Context, region, currency, tariffType string) (config.RateRow, error) {
	var firstErr error
	for _, src := range c {
		row, err := src.GetRate(ctx, region, currency, tariffType)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, store.ErrNotFound) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return config.RateRow{}, firstErr
	}
	return config.RateRow{}, fmt.Errorf("rate %s/%s/%s: %w", region, currency, tariffType, store.ErrNotFound)
}

// Calculator resolves catalog entries and tariff rates around the engine.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	Catalog *catalog.Catalog
	Config  config.Config
	Rates   RateSource // optional
	Logger  *slog.Logger
	Now     func() time.Time
}

// Request is one calculation request, in the units the engine expects.
type Request struct {
	MachineID          string  `json:"machine_id" yaml:"machine_id"`
	MaterialID         string  `json:"material_id" yaml:"material_id"`
	InitialWeightKg    float64 `json:"initial_weight" yaml:"initial_weight"`
	FinalWeightKg      float64 `json:"final_weight" yaml:"final_weight"`
	ProcessTimeMinutes float64 `json:"time_min" yaml:"time_min"`
	TariffType         string  `json:"tariff_type,omitempty" yaml:"tariff_type,omitempty"`
	OperationStart     string  `json:"operation_start_hhmm,omitempty" yaml:"operation_start_hhmm,omitempty"`
	OperationEnd       string  `json:"operation_end_hhmm,omitempty" yaml:"operation_end_hhmm,omitempty"`
	Currency           string  `json:"currency,omitempty" yaml:"currency,omitempty"`
	Source             string  `json:"-" yaml:"-"`
}

func (c *Calculator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Calculator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Calculate runs one calculation. Unknown machine or material ids fail with
// catalog.ErrUnknownMachine / ErrUnknownMaterial and invalid inputs with
// engine.ErrInvalidParameter. A cost that cannot be computed does not fail
// the calculation; its reason is recorded in CostError instead.
func (c *Calculator) Calculate(ctx context.Context, req Request) (model.Calculation, error) {
	material, err := c.Catalog.Material(req.MaterialID)
	if err != nil {
		return model.Calculation{}, err
	}
	machine, err := c.Catalog.Machine(req.MachineID)
	if err != nil {
		return model.Calculation{}, err
	}

	in := engine.MachiningInput{
		InitialWeightKg:    req.InitialWeightKg,
		FinalWeightKg:      req.FinalWeightKg,
		ProcessTimeMinutes: req.ProcessTimeMinutes,
		KcValue:            material.KcValue,
		StandbyPowerKW:     machine.StandbyPowerKW,
		CarbonIntensity:    machine.CarbonIntensity,
		Density:            material.Density,
	}
	res, err := engine.Estimate(in)
	if err != nil {
		return model.Calculation{}, err
	}

	source := req.Source
	if source == "" {
		source = model.SourceCLI
	}
	calc := model.Calculation{
		ID:               uuid.NewString(),
		CreatedAt:        c.now().UTC(),
		Source:           source,
		MachineID:        machine.ID,
		MaterialID:       material.ID,
		MachiningInput:   in,
		EnergyResult:     res,
		EfficiencyScore:  EfficiencyScore(res),
		OptimizationTips: OptimizationTips(material, res),
	}

	if strings.TrimSpace(req.OperationStart) == "" {
		return calc, nil
	}

	tariffType := req.TariffType
	if strings.TrimSpace(tariffType) == "" {
		tariffType = c.Config.Tariff.Type
	}
	calc.TariffType = config.NormalizeTariffType(tariffType)
	calc.OperationStart = req.OperationStart
	calc.OperationEnd = req.OperationEnd

	cost, _, err := c.Cost(ctx, res.TotalEnergyKWh, tariffType, engine.OperationWindow{
		Start:              req.OperationStart,
		End:                req.OperationEnd,
		ProcessTimeMinutes: req.ProcessTimeMinutes,
	}, req.Currency)
	if err != nil {
		calc.CostError = err.Error()
		c.logger().Debug("cost skipped", "calculation", calc.ID, "err", err)
		return calc, nil
	}
	calc.Cost = &cost
	return calc, nil
}

// Cost prices totalEnergyKWh with the resolved rates for tariffType and
// currency.
func (c *Calculator) Cost(ctx context.Context, totalEnergyKWh float64, tariffType string, window engine.OperationWindow, currency string) (engine.CostResult, config.RateSet, error) {
	rates := c.ResolveRates(ctx, tariffType, currency)
	res, err := engine.EstimateCost(totalEnergyKWh, rates.Tariff(), window, rates.Currency)
	if err != nil {
		return engine.CostResult{}, rates, err
	}
	return res, rates, nil
}

// ResolveRates returns the configured fallback rates overridden field by
// field by the stored row for the configured region, currency and tariff
// type. Store failures other than a miss are logged and ignored.
func (c *Calculator) ResolveRates(ctx context.Context, tariffType, currency string) config.RateSet {
	rates := config.FallbackRates(c.Config, tariffType, currency)
	if c.Rates == nil {
		return rates
	}

	row, err := c.Rates.GetRate(ctx, rates.Region, rates.Currency, rates.TariffType)
	switch {
	case err == nil:
		applied, ok := rates.Apply(row)
		if !ok {
			c.logger().Warn("stored tariff boundaries out of order, keeping defaults",
				"region", rates.Region, "currency", rates.Currency, "tariff", rates.TariffType,
				"day_start", row.DayStart, "peak_start", row.PeakStart, "night_start", row.NightStart)
		}
		return applied
	case errors.Is(err, store.ErrNotFound):
	default:
		c.logger().Warn("rate lookup failed, using fallback rates",
			"region", rates.Region, "currency", rates.Currency, "tariff", rates.TariffType, "err", err)
	}
	return rates
}

// EfficiencyScore is the processing share of total energy as a whole
// percentage in [0, 100]; 0 when no energy was used.
func EfficiencyScore(res engine.EnergyResult) int {
	if res.TotalEnergyKWh <= 0 {
		return 0
	}
	pct := res.ProcessingEnergyKWh / res.TotalEnergyKWh * 100
	return int(math.RoundToEven(math.Max(0, math.Min(100, pct))))
}

// OptimizationTips suggests improvements for a finished calculation.
func OptimizationTips(material catalog.Material, res engine.EnergyResult) []model.Tip {
	tips := []model.Tip{}

	idlePct := 0
	if res.TotalEnergyKWh > 0 {
		idlePct = int(math.RoundToEven(res.IdleEnergyKWh / res.TotalEnergyKWh * 100))
	}
	if idlePct > model.IdleHighThresholdPct {
		tips = append(tips, model.Tip{Code: model.TipIdleHigh, IdlePct: idlePct})
	}
	if material.IsAluminum() {
		tips = append(tips, model.Tip{Code: model.TipAluminumFeedRate, IncreasePct: model.AluminumFeedIncreasePct})
	}
	return tips
}

