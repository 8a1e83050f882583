package components

import (
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom bar: key hints on the left and info on
// the right, with refresh state flagged.
func RenderStatusBar(width int, info string, refreshing, autoRefresh bool) string {
	t := theme.Active
	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	left := base.Render(" [?]help  [r]efresh  [q]uit")

	right := ""
	switch {
	case refreshing:
		right = accent.Render("refreshing… ")
	case autoRefresh:
		right = accent.Render("auto ")
	}
	if info != "" {
		right += base.Render(info + " ")
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + lipgloss.NewStyle().Background(t.Surface).Width(gap).Render("") + right
}
