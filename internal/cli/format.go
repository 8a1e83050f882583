// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatKWh formats an energy value, dropping precision as it grows.
// e.g., 0.0123 -> "0.0123 kWh", 5.5458 -> "5.55 kWh", 1234.5 -> "1,235 kWh"
func FormatKWh(v float64) string {
	return formatScaled(v) + " kWh"
}

// FormatCarbon formats a carbon mass in kg CO2.
func FormatCarbon(v float64) string {
	return formatScaled(v) + " kgCO2"
}

// FormatKg formats a plain mass in kg.
func FormatKg(v float64) string {
	return formatScaled(v) + " kg"
}

func formatScaled(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1000:
		return FormatNumber(int64(math.Round(v)))
	case abs >= 100:
		return fmt.Sprintf("%.0f", v)
	case abs >= 10:
		return fmt.Sprintf("%.1f", v)
	case abs >= 0.1 || abs == 0:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

// FormatMoney formats an amount with two decimals (banker's rounding),
// thousands separators and the currency code.
// e.g., FormatMoney(1234.565, "TRY") -> "1,234.56 TRY"
func FormatMoney(amount float64, currency string) string {
	d := decimal.NewFromFloat(amount).RoundBank(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err == nil {
		intPart = FormatNumber(n)
	}

	s := sign + intPart + "." + frac
	if currency != "" {
		s += " " + currency
	}
	return s
}

// FormatRate formats a per-kWh tariff rate.
func FormatRate(rate float64, currency string) string {
	s := decimal.NewFromFloat(rate).Round(4).String()
	if currency != "" {
		return s + " " + currency + "/kWh"
	}
	return s + "/kWh"
}

// FormatMinutes formats a duration given in minutes.
// e.g., 90 -> "1h 30m", 45 -> "45m", 0.5 -> "30s"
func FormatMinutes(minutes float64) string {
	return FormatDuration(int64(math.Round(minutes * 60)))
}

// FormatDuration formats seconds into a human-readable duration.
// e.g., 3725 -> "1h 2m", 125 -> "2m", 45 -> "45s"
func FormatDuration(secs int64) string {
	if secs <= 0 {
		return "0s"
	}

	hours := secs / 3600
	mins := (secs % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	if mins > 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPct formats a 0-100 percentage.
func FormatPct(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatDelta formats current-previous with an explicit sign, using f for
// the magnitude.
func FormatDelta(current, previous float64, f func(float64) string) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + f(delta)
	}
	return "-" + f(-delta)
}

// FormatDayOfWeek returns a 3-letter day abbreviation from a weekday number.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}
