package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as a one-line unicode sparkline.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	peak := maxOf(values)
	if peak == 0 {
		peak = 1
	}

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := int(v / peak * float64(len(sparkBlocks)-1))
		idx = min(max(idx, 0), len(sparkBlocks)-1)
		buf.WriteRune(sparkBlocks[idx])
	}
	return lipgloss.NewStyle().Foreground(color).Background(theme.Active.Surface).Render(buf.String())
}

// ColumnChart renders a vertical bar chart of height rows with a y-axis on
// the left and labels under the columns. Labels that would collide are
// skipped. Narrow areas fall back to a sparkline.
func ColumnChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	if width < 15 || height < 3 {
		return Sparkline(values, color)
	}
	t := theme.Active

	ceiling := niceCeiling(maxOf(values))
	yLabelW := max(len(formatAxis(ceiling))+1, 4)

	n := len(values)
	chartW := width - yLabelW - 1
	barW := min(max((chartW-(n-1))/n, 1), 6)
	gap := 1
	if n*barW+(n-1) > chartW {
		gap = 0
		barW = max(chartW/n, 1)
	}
	axisLen := n*barW + (n-1)*gap

	axis := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	for row := height; row >= 1; row-- {
		top := ceiling * float64(row) / float64(height)
		bottom := ceiling * float64(row-1) / float64(height)

		label := ""
		if row == height || row == (height+1)/2 {
			label = formatAxis(top)
		}
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", yLabelW, label)))

		for i, v := range values {
			if i > 0 && gap > 0 {
				b.WriteString(blank.Render(" "))
			}
			switch {
			case v >= top:
				b.WriteString(bar.Render(strings.Repeat("█", barW)))
			case v > bottom:
				idx := int((v - bottom) / (top - bottom) * float64(len(sparkBlocks)))
				idx = min(max(idx, 0), len(sparkBlocks)-1)
				b.WriteString(bar.Render(strings.Repeat(string(sparkBlocks[idx]), barW)))
			default:
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString(axis.Render(fmt.Sprintf("%*s└%s", yLabelW, "0", strings.Repeat("─", axisLen))))

	if len(labels) == n {
		line := []byte(strings.Repeat(" ", axisLen))
		lastEnd := -1
		for i, lbl := range labels {
			pos := i * (barW + gap)
			end := pos + len(lbl)
			if pos <= lastEnd || end > axisLen {
				continue
			}
			copy(line[pos:end], lbl)
			lastEnd = end
		}
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", yLabelW+1)))
		b.WriteString(axis.Render(strings.TrimRight(string(line), " ")))
	}
	return b.String()
}

// HBar renders a left-aligned label, a horizontal bar scaled against peak
// and a value, as one line.
func HBar(label string, labelW int, value, peak float64, barW int, valueText string, color lipgloss.Color) string {
	t := theme.Active
	filled := 0
	if peak > 0 && value > 0 {
		filled = int(math.Round(value / peak * float64(barW)))
	}
	filled = min(max(filled, 0), barW)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	if r := []rune(label); len(r) > labelW {
		label = string(r[:max(labelW-1, 0)]) + "…"
	}
	return labelStyle.Render(fmt.Sprintf("%-*s ", labelW, label)) +
		barStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", barW-filled)) +
		valueStyle.Render(" "+valueText)
}

func maxOf(values []float64) float64 {
	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// niceCeiling rounds v up to 1, 2 or 5 times a power of ten.
func niceCeiling(v float64) float64 {
	if v <= 0 {
		return 1
	}
	base := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*base {
			return m * base
		}
	}
	return 10 * base
}

func formatAxis(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	case v >= 10:
		return fmt.Sprintf("%.0f", v)
	case v >= 1:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
