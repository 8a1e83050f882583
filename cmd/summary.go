package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"

	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Energy, carbon and cost totals of stored calculations",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

// loadCalculations reads every stored calculation of the last 2×days, which
// covers the current period and the one it is compared against.
func loadCalculations(cmd *cobra.Command, days int) ([]model.Calculation, time.Time, time.Time, error) {
	st, err := requireStore()
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	defer st.Close()

	until := time.Now()
	since := until.AddDate(0, 0, -days)
	calcs, err := st.ListCalculations(cmd.Context(), store.Filter{Since: since.AddDate(0, 0, -days)})
	if err != nil {
		return nil, since, until, err
	}
	return calcs, since, until, nil
}

type summaryOutput struct {
	Days       int                     `json:"days" yaml:"days"`
	Summary    model.SummaryStats      `json:"summary" yaml:"summary"`
	Previous   model.SummaryStats      `json:"previous" yaml:"previous"`
	Machines   []model.MachineStats    `json:"machines" yaml:"machines"`
	Materials  []model.MaterialStats   `json:"materials" yaml:"materials"`
	Tariff     pipeline.TariffSplit    `json:"tariff_split" yaml:"tariff_split"`
	Currencies []pipeline.CurrencyCost `json:"currencies" yaml:"currencies"`
}

func runSummary(cmd *cobra.Command, _ []string) error {
	calcs, since, until, err := loadCalculations(cmd, flagDays)
	if err != nil {
		return err
	}

	cmp := pipeline.ComparePeriods(calcs, flagDays, until)
	stats, prev := cmp.Current, cmp.Previous
	split, currencies := pipeline.AggregateCostBreakdown(calcs, since, until)
	out := summaryOutput{
		Days:       flagDays,
		Summary:    stats,
		Previous:   prev,
		Machines:   pipeline.AggregateMachines(calcs, since, until),
		Materials:  pipeline.AggregateMaterials(calcs, since, until),
		Tariff:     split,
		Currencies: currencies,
	}
	if structured() {
		return encode(out)
	}

	if stats.Calculations == 0 {
		fmt.Printf("\n  No calculations in the last %dd.\n", flagDays)
		fmt.Println("  Run `carboncam calc` or `carboncam batch process` first.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("CARBONCAM  Last %dd", flagDays)))
	fmt.Println()

	delta := func(cur, old float64, f func(float64) string) string {
		if prev.Calculations == 0 {
			return f(cur)
		}
		return fmt.Sprintf("%s  (%s vs prev %dd)", f(cur), cli.FormatDelta(cur, old, f), flagDays)
	}

	rows := [][]string{
		{"Calculations", formatNumber(int64(stats.Calculations))},
		{"Batches", formatNumber(int64(stats.Batches))},
		{"Active days", formatNumber(int64(stats.ActiveDays))},
		{"Machining time", cli.FormatMinutes(stats.ProcessMinutes)},
		{"Removed material", cli.FormatKg(stats.RemovedMassKg) + " kg"},
		{"---"},
		{"Processing energy", cli.FormatKWh(stats.ProcessingEnergyKWh)},
		{"Idle energy", fmt.Sprintf("%s  (%s)", cli.FormatKWh(stats.IdleEnergyKWh), cli.FormatPct(stats.IdleSharePct))},
		{"Total energy", delta(stats.TotalEnergyKWh, prev.TotalEnergyKWh, cli.FormatKWh)},
		{"Carbon", delta(stats.TotalCarbonKg, prev.TotalCarbonKg, cli.FormatCarbon)},
		{"Avg efficiency", fmt.Sprintf("%.0f / 100", stats.AvgEfficiency)},
		{"---"},
	}
	currenciesSorted := make([]string, 0, len(stats.CostByCurrency))
	for cur := range stats.CostByCurrency {
		currenciesSorted = append(currenciesSorted, cur)
	}
	sort.Strings(currenciesSorted)
	for _, cur := range currenciesSorted {
		rows = append(rows, []string{"Energy cost " + cur, cli.FormatMoney(stats.CostByCurrency[cur], cur)})
	}
	rows = append(rows,
		[]string{"Priced", fmt.Sprintf("%d of %d", stats.CostedCount, stats.Calculations)},
		[]string{"---"},
		[]string{"Energy/day", cli.FormatKWh(stats.EnergyPerDay)},
		[]string{"Carbon/day", cli.FormatCarbon(stats.CarbonPerDay)},
		[]string{"Calculations/day", fmt.Sprintf("%.1f", stats.CalcsPerDay)},
	)

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))

	if len(out.Machines) > 0 {
		fmt.Println()
		maxCarbon := out.Machines[0].TotalCarbonKg
		for _, m := range out.Machines {
			maxCarbon = max(maxCarbon, m.TotalCarbonKg)
		}
		fmt.Println("  " + cli.Muted("Carbon by machine"))
		for _, m := range out.Machines {
			fmt.Println(cli.RenderHorizontalBar(fmt.Sprintf("%-12s", m.MachineID), m.TotalCarbonKg, maxCarbon, 30) +
				"  " + cli.FormatCarbon(m.TotalCarbonKg))
		}
	}
	return nil
}
