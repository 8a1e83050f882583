package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHHMM parses a strict "HH:MM" clock time into minutes since midnight.
func ParseHHMM(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return 0, invalid("time", "time must be in HH:MM format")
	}
	return clockMinutes(parts[0], parts[1])
}

// ParseClock parses "HH:MM" or a database-style "HH:MM:SS" time into minutes
// since midnight. Anything after the minute field is ignored.
func ParseClock(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) < 2 {
		return 0, invalid("time", "time must be in HH:MM[:SS] format")
	}
	return clockMinutes(parts[0], parts[1])
}

// FormatHHMM renders minutes since midnight as "HH:MM", wrapping past 24h.
func FormatHHMM(minutes int) string {
	m := ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func clockMinutes(hh, mm string) (int, error) {
	hour, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return 0, invalid("time", "invalid hour %q", hh)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return 0, invalid("time", "invalid minute %q", mm)
	}
	if hour < 0 || hour > 23 {
		return 0, invalid("time", "hour must be between 0 and 23")
	}
	if minute < 0 || minute > 59 {
		return 0, invalid("time", "minute must be between 0 and 59")
	}
	return hour*60 + minute, nil
}
