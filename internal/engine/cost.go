package engine

import (
	"math"
	"strings"
)

// maxWindowMinutes bounds the split interval so its end fits in an int on
// every platform.
const maxWindowMinutes = math.MaxInt32 - minutesPerDay

// interval is a half-open span of minutes [start, end).
type interval struct {
	start, end int
}

func (a interval) overlap(b interval) int {
	lo := max(a.start, b.start)
	hi := min(a.end, b.end)
	return max(0, hi-lo)
}

// EstimateCost prices totalEnergyKWh under the given tariff for an operation
// running over window.
//
// A single tariff charges the flat rate. A multi tariff splits the operation
// across the day, peak and night periods (repeated over two consecutive days
// so windows crossing midnight are covered) and charges the
// duration-weighted average of the three rates.
func EstimateCost(totalEnergyKWh float64, tariff TariffConfig, window OperationWindow, currency string) (CostResult, error) {
	if math.IsNaN(totalEnergyKWh) || math.IsInf(totalEnergyKWh, 0) {
		return CostResult{}, invalid("total_energy_kwh", "total_energy_kwh must be a finite number")
	}
	if totalEnergyKWh < 0 {
		return CostResult{}, invalid("total_energy_kwh", "total_energy_kwh must be >= 0")
	}
	if math.IsNaN(window.ProcessTimeMinutes) || window.ProcessTimeMinutes <= 0 {
		return CostResult{}, invalid("process_time_minutes", "process_time_minutes must be > 0")
	}
	if math.IsInf(window.ProcessTimeMinutes, 0) {
		return CostResult{}, invalid("process_time_minutes", "process_time_minutes must be a finite number")
	}

	kind := TariffType(strings.ToLower(strings.TrimSpace(tariff.Type)))

	span, duration, err := resolveWindow(window)
	if err != nil {
		return CostResult{}, err
	}

	switch kind {
	case TariffSingle:
		rate, err := requireRate("single_rate_per_kwh", tariff.SingleRate,
			"single_rate_per_kwh must be provided and > 0 for Single tariff")
		if err != nil {
			return CostResult{}, err
		}
		return CostResult{
			EnergyCost:        totalEnergyKWh * rate,
			Currency:          currency,
			AppliedRatePerKWh: rate,
			MinutesNight:      duration,
			Convention:        ConventionSingleAsNight,
		}, nil

	case TariffMulti:
		return multiCost(totalEnergyKWh, tariff, span, currency)

	default:
		return CostResult{}, invalid("tariff_type", "tariff_type must be 'Single' or 'Multi'")
	}
}

// resolveWindow turns the operation window into the split interval and the
// effective duration in minutes. An explicit end time decides the interval;
// otherwise ProcessTimeMinutes does.
func resolveWindow(w OperationWindow) (interval, float64, error) {
	start, err := ParseHHMM(w.Start)
	if err != nil {
		return interval{}, 0, err
	}

	var duration float64
	if strings.TrimSpace(w.End) != "" {
		end, err := ParseHHMM(w.End)
		if err != nil {
			return interval{}, 0, err
		}
		if end <= start {
			end += minutesPerDay
		}
		duration = float64(end - start)
	} else {
		duration = w.ProcessTimeMinutes
	}
	if duration > maxWindowMinutes {
		return interval{}, 0, invalid("process_time_minutes", "process_time_minutes is too large")
	}

	return interval{start: start, end: start + int(math.RoundToEven(duration))}, duration, nil
}

func multiCost(totalEnergyKWh float64, tariff TariffConfig, span interval, currency string) (CostResult, error) {
	if tariff.DayRate == nil || tariff.PeakRate == nil || tariff.NightRate == nil {
		return CostResult{}, invalid("rates", "day/peak/night rates must be provided for Multi tariff")
	}
	dayRate, peakRate, nightRate := *tariff.DayRate, *tariff.PeakRate, *tariff.NightRate
	if !(dayRate > 0) || !(peakRate > 0) || !(nightRate > 0) {
		return CostResult{}, invalid("rates", "day/peak/night rates must be > 0")
	}

	dayStart, peakStart, nightStart := tariff.Boundaries()
	if dayStart < 0 || dayStart > peakStart || peakStart > nightStart || nightStart > minutesPerDay {
		return CostResult{}, invalid("boundaries",
			"tariff boundaries must satisfy 00:00 <= day_start <= peak_start <= night_start <= 24:00")
	}

	day := []interval{{dayStart, peakStart}}
	peak := []interval{{peakStart, nightStart}}
	night := []interval{{nightStart, minutesPerDay}, {0, dayStart}}

	var minutesDay, minutesPeak, minutesNight int
	for _, offset := range []int{0, minutesPerDay} {
		minutesDay += overlapAll(span, day, offset)
		minutesPeak += overlapAll(span, peak, offset)
		minutesNight += overlapAll(span, night, offset)
	}

	total := max(1, span.end-span.start)
	rate := (float64(minutesDay)*dayRate +
		float64(minutesPeak)*peakRate +
		float64(minutesNight)*nightRate) / float64(total)

	return CostResult{
		EnergyCost:        totalEnergyKWh * rate,
		Currency:          currency,
		AppliedRatePerKWh: rate,
		MinutesDay:        float64(minutesDay),
		MinutesPeak:       float64(minutesPeak),
		MinutesNight:      float64(minutesNight),
	}, nil
}

func overlapAll(span interval, segments []interval, offset int) int {
	var sum int
	for _, seg := range segments {
		sum += span.overlap(interval{seg.start + offset, seg.end + offset})
	}
	return sum
}

func requireRate(field string, rate *float64, reason string) (float64, error) {
	if rate == nil || !(*rate > 0) {
		return 0, invalid(field, "%s", reason)
	}
	return *rate, nil
}
