package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
)

const rateColumns = `region, currency, tariff_type,
	single_rate_per_kwh, day_rate_per_kwh, peak_rate_per_kwh, night_rate_per_kwh,
	day_start, peak_start, night_start, updated_at`

func rateKey(region, currency, tariffType string) (string, string, string) {
	return strings.ToUpper(strings.TrimSpace(region)),
		strings.ToUpper(strings.TrimSpace(currency)),
		config.NormalizeTariffType(tariffType)
}

// UpsertRate inserts or replaces the rate row keyed by region, currency and
// tariff type. Keys are matched case-insensitively.
func (s *Store) UpsertRate(ctx context.Context, r config.RateRow) error {
	region, currency, tariff := rateKey(r.Region, r.Currency, r.TariffType)
	if region == "" || currency == "" || tariff == "" {
		return errors.New("rate row needs region, currency and tariff_type")
	}
	updated := r.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO electricity_rates (`+rateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (region, currency, tariff_type) DO UPDATE SET
			single_rate_per_kwh = excluded.single_rate_per_kwh,
			day_rate_per_kwh = excluded.day_rate_per_kwh,
			peak_rate_per_kwh = excluded.peak_rate_per_kwh,
			night_rate_per_kwh = excluded.night_rate_per_kwh,
			day_start = excluded.day_start,
			peak_start = excluded.peak_start,
			night_start = excluded.night_start,
			updated_at = excluded.updated_at`),
		region, currency, tariff,
		nullFloat(r.Single), nullFloat(r.Day), nullFloat(r.Peak), nullFloat(r.Night),
		r.DayStart, r.PeakStart, r.NightStart, formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("saving rate %s/%s/%s: %w", region, currency, tariff, err)
	}
	return nil
}

// GetRate returns the rate row for region, currency and tariff type, or
// ErrNotFound.
func (s *Store) GetRate(ctx context.Context, region, currency, tariffType string) (config.RateRow, error) {
	region, currency, tariff := rateKey(region, currency, tariffType)
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+rateColumns+` FROM electricity_rates
		WHERE region = ? AND currency = ? AND tariff_type = ?`), region, currency, tariff)

	r, err := scanRate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return config.RateRow{}, fmt.Errorf("rate %s/%s/%s: %w", region, currency, tariff, ErrNotFound)
	}
	return r, err
}

// ListRates returns every stored rate row ordered by key.
func (s *Store) ListRates(ctx context.Context) ([]config.RateRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rateColumns+` FROM electricity_rates
		ORDER BY region, currency, tariff_type`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []config.RateRow
	for rows.Next() {
		r, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRate removes a rate row. Deleting a missing row is ErrNotFound.
func (s *Store) DeleteRate(ctx context.Context, region, currency, tariffType string) error {
	region, currency, tariff := rateKey(region, currency, tariffType)
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM electricity_rates
		WHERE region = ? AND currency = ? AND tariff_type = ?`), region, currency, tariff)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("rate %s/%s/%s: %w", region, currency, tariff, ErrNotFound)
	}
	return nil
}

func scanRate(row scanner) (config.RateRow, error) {
	var (
		r                        config.RateRow
		single, day, peak, night sql.NullFloat64
		updated                  string
	)
	err := row.Scan(&r.Region, &r.Currency, &r.TariffType,
		&single, &day, &peak, &night,
		&r.DayStart, &r.PeakStart, &r.NightStart, &updated)
	if err != nil {
		return config.RateRow{}, err
	}
	r.Single, r.Day, r.Peak, r.Night = floatPtr(single), floatPtr(day), floatPtr(peak), floatPtr(night)
	r.UpdatedAt = parseTime(updated)
	return r, nil
}
