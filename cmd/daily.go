package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"

	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Daily energy and carbon table",
	RunE:  runDaily,
}

func init() {
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, _ []string) error {
	calcs, since, until, err := loadCalculations(cmd, flagDays)
	if err != nil {
		return err
	}
	days := pipeline.AggregateDays(calcs, since, until)
	if structured() {
		return encode(days)
	}

	active := 0
	for _, d := range days {
		if d.Calculations > 0 {
			active++
		}
	}
	if active == 0 {
		fmt.Printf("\n  No calculations in the last %dd.\n", flagDays)
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("DAILY  Last %dd", flagDays)))
	fmt.Println()

	rows := make([][]string, 0, len(days))
	spark := make([]float64, 0, len(days))
	for _, d := range days {
		spark = append(spark, d.TotalEnergyKWh)
		if d.Calculations == 0 {
			continue
		}
		rows = append(rows, []string{
			d.Date.Format("2006-01-02"),
			cli.FormatDayOfWeek(int(d.Date.Weekday())),
			formatNumber(int64(d.Calculations)),
			cli.FormatKWh(d.TotalEnergyKWh),
			cli.FormatKWh(d.IdleEnergyKWh),
			cli.FormatCarbon(d.TotalCarbonKg),
			dailyCost(d.CostByCurrency),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers:  []string{"Date", "Day", "Calcs", "Energy", "Idle", "Carbon", "Cost"},
		Rows:     rows,
		LeftCols: 2,
	}))

	// Days are newest first; the sparkline reads left to right.
	for i, j := 0, len(spark)-1; i < j; i, j = i+1, j-1 {
		spark[i], spark[j] = spark[j], spark[i]
	}
	fmt.Println("  " + cli.Muted("energy ") + cli.RenderSparkline(spark))
	return nil
}

func dailyCost(costs map[string]float64) string {
	if len(costs) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(costs))
	for k := range costs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, cli.FormatMoney(costs[k], k))
	}
	return strings.Join(parts, " + ")
}
