package tui

import (
	"fmt"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/components"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	if a.stats.Calculations == 0 {
		return a.emptyNotice(cw)
	}
	t := theme.Active
	s, p := a.stats, a.prevStats

	delta := func(cur, prev float64, f func(float64) string) string {
		if p.Calculations == 0 {
			return ""
		}
		return cli.FormatDelta(cur, prev, f) + " vs prev"
	}

	row1 := components.MetricCardRow([]components.Metric{
		{Label: "Calculations", Value: cli.FormatNumber(int64(s.Calculations)),
			Delta: fmt.Sprintf("%d active days", s.ActiveDays)},
		{Label: "Energy", Value: cli.FormatKWh(s.TotalEnergyKWh),
			Delta: delta(s.TotalEnergyKWh, p.TotalEnergyKWh, cli.FormatKWh)},
		{Label: "Carbon", Value: cli.FormatCarbon(s.TotalCarbonKg),
			Delta: delta(s.TotalCarbonKg, p.TotalCarbonKg, cli.FormatCarbon)},
		{Label: "Avg efficiency", Value: fmt.Sprintf("%.0f", s.AvgEfficiency),
			Delta: "idle " + cli.FormatPct(s.IdleSharePct)},
	}, cw)

	var costs []string
	for _, c := range a.currencies {
		costs = append(costs, cli.FormatMoney(c.EnergyCost, c.Currency))
	}
	costValue := "n/a"
	if len(costs) > 0 {
		costValue = strings.Join(costs, " + ")
	}
	row2 := components.MetricCardRow([]components.Metric{
		{Label: "Energy cost", Value: costValue, Delta: fmt.Sprintf("%d of %d priced", s.CostedCount, s.Calculations)},
		{Label: "Removed material", Value: cli.FormatKg(s.RemovedMassKg) + " kg",
			Delta: fmt.Sprintf("%s kgCO2 per kg", cli.FormatKg(s.CarbonPerKgCut))},
		{Label: "Per day", Value: cli.FormatKWh(s.EnergyPerDay),
			Delta: cli.FormatCarbon(s.CarbonPerDay)},
	}, cw)

	chartW := components.CardInnerWidth(cw)
	values, labels := dailySeries(a.daily)
	chart := components.ContentCard(
		fmt.Sprintf("Daily energy (kWh), last %dd", a.opts.Days),
		components.ColumnChart(values, labels, t.Accent, chartW, 8),
		cw,
	)

	return row1 + "\n" + row2 + "\n" + chart
}

// dailySeries turns newest-first daily stats into oldest-first energy values
// with short date labels.
func dailySeries(days []model.DailyStats) ([]float64, []string) {
	n := len(days)
	values := make([]float64, n)
	labels := make([]string, n)
	for i, d := range days {
		j := n - 1 - i
		values[j] = d.TotalEnergyKWh
		if d.Date.Day() == 1 || j == 0 {
			labels[j] = d.Date.Format("Jan")
		} else {
			labels[j] = d.Date.Format("2")
		}
	}
	return values, labels
}
