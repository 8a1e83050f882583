package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
)

const calculationColumns = `id, created_at, source, batch_id, machine_id, material_id,
	initial_weight_kg, final_weight_kg, process_time_minutes, kc_value,
	standby_power_kw, carbon_intensity, density,
	removed_mass_kg, removed_volume_cm3, processing_kwh, idle_kwh, total_kwh, total_carbon_kg,
	efficiency_score, tips, tariff_type, operation_start, operation_end,
	energy_cost, currency, applied_rate, minutes_day, minutes_peak, minutes_night,
	cost_convention, cost_error`

// Filter narrows ListCalculations. Zero values match everything.
type Filter struct {
	Since      time.Time
	Until      time.Time
	MachineID  string
	MaterialID string
	BatchID    string
	Limit      int
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveCalculation stores one calculation.
func (s *Store) SaveCalculation(ctx context.Context, c model.Calculation) error {
	return s.insertCalculation(ctx, s.db, c)
}

// SaveCalculations stores a batch of calculations in one transaction.
func (s *Store) SaveCalculations(ctx context.Context, calcs []model.Calculation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range calcs {
		if err := s.insertCalculation(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) insertCalculation(ctx context.Context, db execer, c model.Calculation) error {
	tips, err := json.Marshal(c.OptimizationTips)
	if err != nil {
		return fmt.Errorf("encoding tips: %w", err)
	}
	if c.OptimizationTips == nil {
		tips = []byte("[]")
	}

	var (
		costVal, rate, minDay, minPeak, minNight sql.NullFloat64
		currency, convention                     string
	)
	if c.Cost != nil {
		costVal = sql.NullFloat64{Float64: c.Cost.EnergyCost, Valid: true}
		rate = sql.NullFloat64{Float64: c.Cost.AppliedRatePerKWh, Valid: true}
		minDay = sql.NullFloat64{Float64: c.Cost.MinutesDay, Valid: true}
		minPeak = sql.NullFloat64{Float64: c.Cost.MinutesPeak, Valid: true}
		minNight = sql.NullFloat64{Float64: c.Cost.MinutesNight, Valid: true}
		currency = c.Cost.Currency
		convention = c.Cost.Convention
	}

	_, err = db.ExecContext(ctx, s.rebind(`INSERT INTO calculations (`+calculationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID, formatTime(c.CreatedAt), c.Source, c.BatchID, c.MachineID, c.MaterialID,
		c.InitialWeightKg, c.FinalWeightKg, c.ProcessTimeMinutes, c.KcValue,
		c.StandbyPowerKW, c.CarbonIntensity, c.Density,
		c.RemovedMaterialWeightKg, c.RemovedVolumeCm3, c.ProcessingEnergyKWh, c.IdleEnergyKWh,
		c.TotalEnergyKWh, c.TotalCarbonKg,
		c.EfficiencyScore, string(tips), c.TariffType, c.OperationStart, c.OperationEnd,
		costVal, currency, rate, minDay, minPeak, minNight,
		convention, c.CostError,
	)
	if err != nil {
		return fmt.Errorf("saving calculation %s: %w", c.ID, err)
	}
	return nil
}

// GetCalculation returns the calculation with the given id, or ErrNotFound.
func (s *Store) GetCalculation(ctx context.Context, id string) (model.Calculation, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+calculationColumns+` FROM calculations WHERE id = ?`), id)
	c, err := scanCalculation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Calculation{}, fmt.Errorf("calculation %s: %w", id, ErrNotFound)
	}
	return c, err
}

// ListCalculations returns calculations matching f, newest first.
func (s *Store) ListCalculations(ctx context.Context, f Filter) ([]model.Calculation, error) {
	var (
		where []string
		args  []any
	)
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, formatTime(f.Until))
	}
	if f.MachineID != "" {
		where = append(where, "machine_id = ?")
		args = append(args, f.MachineID)
	}
	if f.MaterialID != "" {
		where = append(where, "material_id = ?")
		args = append(args, f.MaterialID)
	}
	if f.BatchID != "" {
		where = append(where, "batch_id = ?")
		args = append(args, f.BatchID)
	}

	query := `SELECT ` + calculationColumns + ` FROM calculations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var calcs []model.Calculation
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		calcs = append(calcs, c)
	}
	return calcs, rows.Err()
}

// CountCalculations returns the number of stored calculations.
func (s *Store) CountCalculations(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calculations").Scan(&count)
	return count, err
}

// DeleteCalculation removes a calculation. Deleting a missing id is ErrNotFound.
func (s *Store) DeleteCalculation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM calculations WHERE id = ?"), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("calculation %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row scanner) (model.Calculation, error) {
	var (
		c                                        model.Calculation
		createdAt, tips, currency, convention    string
		costVal, rate, minDay, minPeak, minNight sql.NullFloat64
	)
	err := row.Scan(
		&c.ID, &createdAt, &c.Source, &c.BatchID, &c.MachineID, &c.MaterialID,
		&c.InitialWeightKg, &c.FinalWeightKg, &c.ProcessTimeMinutes, &c.KcValue,
		&c.StandbyPowerKW, &c.CarbonIntensity, &c.Density,
		&c.RemovedMaterialWeightKg, &c.RemovedVolumeCm3, &c.ProcessingEnergyKWh, &c.IdleEnergyKWh,
		&c.TotalEnergyKWh, &c.TotalCarbonKg,
		&c.EfficiencyScore, &tips, &c.TariffType, &c.OperationStart, &c.OperationEnd,
		&costVal, &currency, &rate, &minDay, &minPeak, &minNight,
		&convention, &c.CostError,
	)
	if err != nil {
		return model.Calculation{}, err
	}

	c.CreatedAt = parseTime(createdAt)
	if tips != "" {
		if err := json.Unmarshal([]byte(tips), &c.OptimizationTips); err != nil {
			return model.Calculation{}, fmt.Errorf("decoding tips of %s: %w", c.ID, err)
		}
	}
	if costVal.Valid {
		c.Cost = &engine.CostResult{
			EnergyCost:        costVal.Float64,
			Currency:          currency,
			AppliedRatePerKWh: rate.Float64,
			MinutesDay:        minDay.Float64,
			MinutesPeak:       minPeak.Float64,
			MinutesNight:      minNight.Float64,
			Convention:        convention,
		}
	}
	return c, nil
}
