// Package components provides the widgets the carboncam dashboard is built from.
package components

import (
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Metric is one headline figure shown in a MetricCard.
type Metric struct {
	Label string
	Value string
	Delta string
}

// LayoutRow distributes totalWidth into n widths that sum to exactly totalWidth.
// First items absorb the remainder from integer division.
func LayoutRow(totalWidth, n int) []int {
	if n <= 0 {
		return nil
	}
	base := totalWidth / n
	remainder := totalWidth % n
	widths := make([]int, n)
	for i := range widths {
		widths[i] = base
		if i < remainder {
			widths[i]++
		}
	}
	return widths
}

// MetricCard renders a small card with a label, a value and an optional
// delta line. outerWidth includes the border.
func MetricCard(m Metric, outerWidth int) string {
	t := theme.Active

	contentWidth := outerWidth - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(contentWidth).
		Padding(0, 1)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Bold(true)
	deltaStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	content := labelStyle.Render(m.Label) + "\n" + valueStyle.Render(m.Value)
	if m.Delta != "" {
		content += "\n" + deltaStyle.Render(m.Delta)
	}
	return cardStyle.Render(content)
}

// MetricCardRow renders metrics side by side across totalWidth.
func MetricCardRow(metrics []Metric, totalWidth int) string {
	if len(metrics) == 0 {
		return ""
	}
	widths := LayoutRow(totalWidth, len(metrics))
	rendered := make([]string, 0, len(metrics))
	for i, m := range metrics {
		rendered = append(rendered, MetricCard(m, widths[i]))
	}
	return CardRow(rendered)
}

// ContentCard renders a bordered card with an optional title.
func ContentCard(title, body string, outerWidth int) string {
	t := theme.Active

	contentWidth := outerWidth - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		BorderBackground(t.Background).
		Background(t.Surface).
		Width(contentWidth).
		Padding(0, 1)

	titleStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	content := ""
	if title != "" {
		content = titleStyle.Render(title) + "\n"
	}
	content += body
	return cardStyle.Render(content)
}

// CardRow joins rendered cards horizontally. Shorter cards are padded with
// the theme background so the row has no unstyled gaps.
func CardRow(cards []string) string {
	if len(cards) == 0 {
		return ""
	}
	maxH := 0
	for _, c := range cards {
		if h := lipgloss.Height(c); h > maxH {
			maxH = h
		}
	}
	padded := make([]string, len(cards))
	for i, c := range cards {
		padded[i] = lipgloss.Place(lipgloss.Width(c), maxH, lipgloss.Left, lipgloss.Top, c,
			lipgloss.WithWhitespaceBackground(theme.Active.Background))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, padded...)
}

// CardInnerWidth returns the usable text width inside a ContentCard of the
// given outer width.
func CardInnerWidth(outerWidth int) int {
	w := outerWidth - 4 // 2 border + 2 padding
	if w < 10 {
		w = 10
	}
	return w
}
