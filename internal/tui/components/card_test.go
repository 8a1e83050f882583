package components

import (
	"strings"
	"testing"

	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	got := LayoutRow(10, 3)
	want := []int{4, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("LayoutRow(10, 3) = %v, want %v", got, want)
		}
	}
	if LayoutRow(10, 0) != nil {
		t.Fatal("LayoutRow with n=0 should be nil")
	}
}

func TestCardRowPadsShortCards(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := lipgloss.Height(shortCard)
	tallLines := lipgloss.Height(tallCard)
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	lines := strings.Split(CardRow([]string{tallCard, shortCard}), "\n")
	if len(lines) != tallLines {
		t.Fatalf("joined height = %d, want %d", len(lines), tallLines)
	}

	width := lipgloss.Width(lines[0])
	for i, line := range lines {
		if w := lipgloss.Width(line); w != width {
			t.Fatalf("line %d width = %d, want %d", i, w, width)
		}
		if i >= shortLines && !strings.Contains(line, "\x1b[") {
			t.Fatalf("padding line %d carries no background styling", i)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	row := MetricCardRow([]Metric{
		{Label: "Energy", Value: "12.4 kWh"},
		{Label: "Carbon", Value: "5.46 kgCO2", Delta: "+3.0%"},
		{Label: "Runs", Value: "7"},
	}, 90)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 90 {
			t.Fatalf("line %d width = %d, want 90", i, w)
		}
	}
}
