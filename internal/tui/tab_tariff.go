package tui

import (
	"fmt"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/components"
)

func (a App) renderTariffTab(cw int) string {
	r := a.opts.Rates
	widths := components.LayoutRow(cw, 2)

	var rates strings.Builder
	fmt.Fprintf(&rates, "Region    %s\nTariff    %s (%s)\n", r.Region, r.TariffType, r.Source)
	fmt.Fprintf(&rates, "Single    %s\n", cli.FormatRate(r.Single, r.Currency))
	fmt.Fprintf(&rates, "Day       %s  from %s\n", cli.FormatRate(r.Day, r.Currency), engine.FormatHHMM(r.DayStart))
	fmt.Fprintf(&rates, "Peak      %s  from %s\n", cli.FormatRate(r.Peak, r.Currency), engine.FormatHHMM(r.PeakStart))
	fmt.Fprintf(&rates, "Night     %s  from %s", cli.FormatRate(r.Night, r.Currency), engine.FormatHHMM(r.NightStart))

	s := a.tariff
	total := s.MinutesDay + s.MinutesPeak + s.MinutesNight
	share := func(v float64) string {
		if total == 0 {
			return "-"
		}
		return cli.FormatPct(v / total * 100)
	}
	var split strings.Builder
	fmt.Fprintf(&split, "Day       %-10s %s\n", cli.FormatMinutes(s.MinutesDay), share(s.MinutesDay))
	fmt.Fprintf(&split, "Peak      %-10s %s\n", cli.FormatMinutes(s.MinutesPeak), share(s.MinutesPeak))
	fmt.Fprintf(&split, "Night     %-10s %s\n", cli.FormatMinutes(s.MinutesNight), share(s.MinutesNight))
	fmt.Fprintf(&split, "Single    %s\n", cli.FormatMinutes(s.SingleMinutes))
	fmt.Fprintf(&split, "Priced    %d  (cost errors %d)", s.Costed, s.CostErrors)

	var cur strings.Builder
	for _, c := range a.currencies {
		fmt.Fprintf(&cur, "%-4s %12s  %s over %d runs, avg %s\n", c.Currency,
			cli.FormatMoney(c.EnergyCost, c.Currency), cli.FormatKWh(c.EnergyKWh), c.Calculations,
			cli.FormatRate(c.AvgRatePerKWh, c.Currency))
	}
	if len(a.currencies) == 0 {
		cur.WriteString("No priced calculations in this period.")
	}

	top := components.CardRow([]string{
		components.ContentCard("Effective rates", rates.String(), widths[0]),
		components.ContentCard("Minutes by period", split.String(), widths[1]),
	})
	return top + "\n" + components.ContentCard("Cost by currency", strings.TrimRight(cur.String(), "\n"), cw)
}
