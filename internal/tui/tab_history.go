package tui

import (
	"fmt"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/components"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// historyState is the cursor over the calculation list.
type historyState struct {
	cursor int
	offset int
}

func (h *historyState) clamp(n int) {
	if h.cursor >= n {
		h.cursor = n - 1
	}
	if h.cursor < 0 {
		h.cursor = 0
	}
	if h.offset > h.cursor {
		h.offset = h.cursor
	}
}

func (h *historyState) move(delta, n int) {
	h.cursor += delta
	h.clamp(n)
}

// handleKey applies a navigation key and reports whether it was consumed.
func (h *historyState) handleKey(key string, n, page int) bool {
	switch key {
	case "j", "down":
		h.move(1, n)
	case "k", "up":
		h.move(-1, n)
	case "g", "home":
		h.cursor = 0
		h.clamp(n)
	case "G", "end":
		h.cursor = n - 1
		h.clamp(n)
	case "ctrl+d", "pgdown":
		h.move(max(page/2, 1), n)
	case "ctrl+u", "pgup":
		h.move(-max(page/2, 1), n)
	default:
		return false
	}
	return true
}

// visible returns the window [offset, offset+rows) that keeps the cursor on
// screen.
func (h *historyState) visible(n, rows int) (int, int) {
	if rows < 1 {
		rows = 1
	}
	if h.cursor < h.offset {
		h.offset = h.cursor
	}
	if h.cursor >= h.offset+rows {
		h.offset = h.cursor - rows + 1
	}
	end := min(h.offset+rows, n)
	return h.offset, end
}

func (a App) renderHistoryTab(cw, h int) string {
	if len(a.history) == 0 {
		return a.emptyNotice(cw)
	}
	t := theme.Active

	widths := components.LayoutRow(cw, 2)
	listW, detailW := widths[0], widths[1]

	rows := max(h-4, 1)
	hist := a.hist
	start, end := hist.visible(len(a.history), rows)

	normal := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selected := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.SurfaceHover).Bold(true)
	inner := components.CardInnerWidth(listW)

	var list strings.Builder
	for i := start; i < end; i++ {
		c := a.history[i]
		line := fmt.Sprintf("%s %-8s %-9s %10s", c.CreatedAt.Local().Format("01-02 15:04"),
			truncStr(c.MachineID, 8), truncStr(c.MaterialID, 9), cli.FormatKWh(c.TotalEnergyKWh))
		line = fmt.Sprintf("%-*s", inner, truncStr(line, inner))
		if i == hist.cursor {
			list.WriteString(selected.Render(line))
		} else {
			list.WriteString(normal.Render(line))
		}
		if i < end-1 {
			list.WriteString("\n")
		}
	}

	title := fmt.Sprintf("Calculations %d/%d", hist.cursor+1, len(a.history))
	return components.CardRow([]string{
		components.ContentCard(title, list.String(), listW),
		components.ContentCard("Detail", renderCalculation(a.history[hist.cursor]), detailW),
	})
}

func renderCalculation(c model.Calculation) string {
	t := theme.Active
	label := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	var b strings.Builder
	kv := func(k, v string) {
		fmt.Fprintf(&b, "%s %s\n", label.Render(fmt.Sprintf("%-14s", k)), v)
	}
	kv("ID", c.ID)
	kv("Created", c.CreatedAt.Local().Format("2006-01-02 15:04"))
	kv("Source", c.Source)
	if c.BatchID != "" {
		kv("Batch", c.BatchID)
	}
	kv("Machine", c.MachineID)
	kv("Material", c.MaterialID)
	kv("Weights", fmt.Sprintf("%s → %s kg", cli.FormatKg(c.InitialWeightKg), cli.FormatKg(c.FinalWeightKg)))
	kv("Time", cli.FormatMinutes(c.ProcessTimeMinutes))
	kv("Removed", fmt.Sprintf("%s kg, %.1f cm³", cli.FormatKg(c.RemovedMaterialWeightKg), c.RemovedVolumeCm3))
	kv("Processing", cli.FormatKWh(c.ProcessingEnergyKWh))
	kv("Idle", cli.FormatKWh(c.IdleEnergyKWh))
	kv("Total", cli.FormatKWh(c.TotalEnergyKWh))
	kv("Carbon", cli.FormatCarbon(c.TotalCarbonKg))

	switch {
	case c.Cost != nil:
		kv("Cost", fmt.Sprintf("%s (%s)", cli.FormatMoney(c.Cost.EnergyCost, c.Cost.Currency),
			cli.FormatRate(c.Cost.AppliedRatePerKWh, c.Cost.Currency)))
	case c.CostError != "":
		kv("Cost", lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface).Render(c.CostError))
	}

	b.WriteString("\n")
	b.WriteString(components.EfficiencyBar("Efficiency", c.EfficiencyScore, 14, 20))
	for _, tip := range c.OptimizationTips {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(t.Yellow).Background(t.Surface).Render("• " + tipText(tip)))
	}
	return b.String()
}

func tipText(tip model.Tip) string {
	switch tip.Code {
	case model.TipIdleHigh:
		return fmt.Sprintf("Idle share is %d%%; cut standby time between operations.", tip.IdlePct)
	case model.TipAluminumFeedRate:
		return fmt.Sprintf("Aluminum: feed rate can go up about %d%%.", tip.IncreasePct)
	}
	return tip.Code
}
