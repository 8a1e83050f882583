package components

import (
	"fmt"

	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ColorForEfficiency maps an efficiency score (0-100) onto the theme:
// mostly idle runs are red, mostly cutting runs green.
func ColorForEfficiency(score int) lipgloss.Color {
	t := theme.Active
	switch {
	case score >= 70:
		return t.Green
	case score >= 50:
		return t.Yellow
	case score >= 30:
		return t.Orange
	default:
		return t.Red
	}
}

// NewProgress returns a progress bar styled for the active theme.
func NewProgress(width int) progress.Model {
	t := theme.Active
	bar := progress.New(
		progress.WithGradient(string(t.Accent), string(t.AccentBright)),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)
	return bar
}

// EfficiencyBar renders a labelled bar for an efficiency score.
func EfficiencyBar(label string, score int, labelW, barW int) string {
	t := theme.Active
	score = min(max(score, 0), 100)
	color := ColorForEfficiency(score)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barW),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	space := lipgloss.NewStyle().Background(t.Surface).Render(" ")

	return labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) +
		space +
		bar.ViewAs(float64(score)/100) +
		space +
		pctStyle.Render(fmt.Sprintf("%3d%%", score))
}
