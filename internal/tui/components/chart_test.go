package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNiceCeiling(t *testing.T) {
	tests := map[float64]float64{
		0:    1,
		0.3:  0.5,
		1:    1,
		1.2:  2,
		3.7:  5,
		7:    10,
		42:   50,
		1500: 2000,
	}
	for in, want := range tests {
		if got := niceCeiling(in); got != want {
			t.Fatalf("niceCeiling(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestSparklineLength(t *testing.T) {
	s := Sparkline([]float64{0, 1, 2, 4}, lipgloss.Color("#fff"))
	if w := lipgloss.Width(s); w != 4 {
		t.Fatalf("sparkline width = %d, want 4", w)
	}
	if Sparkline(nil, lipgloss.Color("#fff")) != "" {
		t.Fatal("empty sparkline should render nothing")
	}
}

func TestColumnChartShape(t *testing.T) {
	out := ColumnChart([]float64{1, 3, 2}, []string{"Mo", "Tu", "We"}, lipgloss.Color("#fff"), 40, 4)
	lines := strings.Split(out, "\n")
	// 4 rows, the axis and the label line
	if len(lines) != 6 {
		t.Fatalf("chart has %d lines, want 6", len(lines))
	}
	if !strings.Contains(lines[5], "Mo") || !strings.Contains(lines[5], "We") {
		t.Fatalf("label line %q is missing labels", lines[5])
	}
}

func TestHBarWidth(t *testing.T) {
	line := HBar("cnc_1", 8, 5, 10, 20, "5.0 kWh", lipgloss.Color("#fff"))
	want := 8 + 1 + 20 + len(" 5.0 kWh")
	if w := lipgloss.Width(line); w != want {
		t.Fatalf("HBar width = %d, want %d", w, want)
	}
	if !strings.Contains(line, strings.Repeat("█", 10)) {
		t.Fatal("half of peak should fill half the bar")
	}
}
