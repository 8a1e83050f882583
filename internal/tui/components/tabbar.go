package components

import (
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab is one dashboard tab. KeyPos is the index of the shortcut letter in
// Name, or -1 when the key is shown after the name.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int
}

// Tabs are the dashboard tabs in display order.
var Tabs = []Tab{
	{Name: "Overview", Key: 'o', KeyPos: 0},
	{Name: "Machines", Key: 'm', KeyPos: 0},
	{Name: "Materials", Key: 't', KeyPos: 2},
	{Name: "History", Key: 'h', KeyPos: 0},
	{Name: "Tariff", Key: 'f', KeyPos: 4},
}

func renderTab(tab Tab, active bool) string {
	t := theme.Active

	if active {
		return lipgloss.NewStyle().
			Foreground(t.AccentBright).
			Background(t.SurfaceHover).
			Bold(true).
			Padding(0, 1).
			Render(tab.Name)
	}

	base := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	key := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	pad := base.Render(" ")

	if tab.KeyPos < 0 || tab.KeyPos >= len(tab.Name) {
		return pad + base.Render(tab.Name) + key.Render("["+string(tab.Key)+"]") + pad
	}
	return pad +
		base.Render(tab.Name[:tab.KeyPos]) +
		key.Render(tab.Name[tab.KeyPos:tab.KeyPos+1]) +
		base.Render(tab.Name[tab.KeyPos+1:]) +
		pad
}

// TabVisualWidth returns the rendered width of tab, used for mouse hit tests.
func TabVisualWidth(tab Tab, active bool) int {
	return lipgloss.Width(renderTab(tab, active))
}

// RenderTabBar renders the tab row with activeIdx highlighted, filled to width.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active
	sep := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface).Render("│")

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		parts[i] = renderTab(tab, i == activeIdx)
	}
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(strings.Join(parts, sep))
}

// TabIdxByKey returns the tab index for a shortcut key, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
