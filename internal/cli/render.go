package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Flexoki Dark)
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	goodStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	errStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Muted, Good, Warn and Error style a short inline string.
func Muted(s string) string { return mutedStyle.Render(s) }
func Good(s string) string { return goodStyle.Render(s) }
func Warn(s string) string { return warnStyle.Render(s) }
func Error(s string) string { return errStyle.Render(s) }

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int // optional column widths, auto-calculated if nil
	// LeftCols is the number of leading text columns; the rest are
	// right-aligned. Zero means one.
	LeftCols int
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderKV renders aligned "label  value" lines under an optional heading.
func RenderKV(title string, pairs [][2]string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(title))
		b.WriteString("\n")
	}

	width := 0
	for _, p := range pairs {
		if w := lipgloss.Width(p[0]); w > width {
			width = w
		}
	}
	for _, p := range pairs {
		label := p[0] + strings.Repeat(" ", width-lipgloss.Width(p[0]))
		b.WriteString("  ")
		b.WriteString(mutedStyle.Render(label))
		b.WriteString("  ")
		b.WriteString(valueStyle.Render(p[1]))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderTable renders a bordered table with headers and rows.
// A row holding the single cell "---" renders as a separator.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	leftCols := t.LeftCols
	if leftCols <= 0 {
		leftCols = 1
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			if w := lipgloss.Width(h); w > widths[i] {
				widths[i] = w
			}
		}
		for _, row := range t.Rows {
			for i, cell := range row {
				if i < numCols && lipgloss.Width(cell) > widths[i] {
					widths[i] = lipgloss.Width(cell)
				}
			}
		}
	}

	rule := func(left, mid, right string) string {
		var s strings.Builder
		s.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			s.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				s.WriteString(dimStyle.Render(mid))
			}
		}
		s.WriteString(dimStyle.Render(right))
		s.WriteString("\n")
		return s.String()
	}

	pad := func(cell string, w int, left bool) string {
		gap := strings.Repeat(" ", max(0, w-lipgloss.Width(cell)))
		if left {
			return " " + cell + gap + " "
		}
		return " " + gap + cell + " "
	}

	var b strings.Builder

	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	b.WriteString(rule("╭", "┬", "╮"))

	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(pad(h, widths[i], true)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
		b.WriteString(rule("├", "┼", "┤"))
	}

	for _, row := range t.Rows {
		if len(row) == 1 && row[0] == "---" {
			b.WriteString(rule("├", "┼", "┤"))
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(valueStyle.Render(pad(cell, widths[i], i < leftCols)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	b.WriteString(rule("╰", "┴", "╯"))
	return b.String()
}

// RenderProgressBar renders a simple text progress bar.
func RenderProgressBar(current, total int, width int) string {
	if total <= 0 {
		return ""
	}

	pct := float64(current) / float64(total)
	if pct > 1 {
		pct = 1
	}

	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %s/%s",
		mutedStyle.Render(bar),
		FormatNumber(int64(current)),
		FormatNumber(int64(total)),
	)
}

// RenderSparkline generates a unicode block sparkline from a series of values.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	peak := values[0]
	for _, v := range values[1:] {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		peak = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int(v / peak * float64(len(blocks)-1))
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderHorizontalBar renders a labelled horizontal bar chart entry.
func RenderHorizontalBar(label string, value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return fmt.Sprintf("  %s", label)
	}
	barLen := int(value / maxValue * float64(maxWidth))
	if barLen < 0 {
		barLen = 0
	}
	if barLen > maxWidth {
		barLen = maxWidth
	}
	return fmt.Sprintf("  %s %s", label, goodStyle.Render(strings.Repeat("█", barLen)))
}
