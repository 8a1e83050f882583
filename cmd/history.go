package cmd

import (
	"fmt"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"

	"github.com/spf13/cobra"
)

var historyFlags struct {
	machine  string
	material string
	batch    string
	limit    int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored calculations",
	RunE:  runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one stored calculation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete one stored calculation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	f := historyCmd.Flags()
	f.StringVarP(&historyFlags.machine, "machine", "m", "", "Filter by machine id")
	f.StringVarP(&historyFlags.material, "material", "t", "", "Filter by material id")
	f.StringVarP(&historyFlags.batch, "batch", "b", "", "Filter by batch id")
	f.IntVarP(&historyFlags.limit, "limit", "l", 0, "Max rows (default from config)")

	historyCmd.AddCommand(historyShowCmd, historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	limit := historyFlags.limit
	if limit <= 0 {
		limit = appCfg.General.HistoryLimit
	}
	f := store.Filter{
		MachineID:  historyFlags.machine,
		MaterialID: historyFlags.material,
		BatchID:    historyFlags.batch,
		Limit:      limit,
	}
	if historyFlags.batch == "" {
		f.Since = time.Now().AddDate(0, 0, -flagDays)
	}
	calcs, err := st.ListCalculations(cmd.Context(), f)
	if err != nil {
		return err
	}
	if structured() {
		return encode(calcs)
	}
	if len(calcs) == 0 {
		fmt.Printf("\n  No calculations in the last %dd.\n", flagDays)
		return nil
	}

	rows := make([][]string, 0, len(calcs))
	for _, c := range calcs {
		cost := "-"
		if c.Cost != nil {
			cost = cli.FormatMoney(c.Cost.EnergyCost, c.Cost.Currency)
		} else if c.CostError != "" {
			cost = cli.Warn("error")
		}
		rows = append(rows, []string{
			c.CreatedAt.Local().Format("2006-01-02 15:04"),
			c.ID[:min(8, len(c.ID))],
			c.Source,
			c.MachineID,
			c.MaterialID,
			cli.FormatMinutes(c.ProcessTimeMinutes),
			cli.FormatKWh(c.TotalEnergyKWh),
			cli.FormatCarbon(c.TotalCarbonKg),
			cost,
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    fmt.Sprintf("HISTORY  Last %dd", flagDays),
		Headers:  []string{"Created", "ID", "Source", "Machine", "Material", "Time", "Energy", "Carbon", "Cost"},
		Rows:     rows,
		LeftCols: 5,
	}))
	if len(calcs) == limit {
		fmt.Println("  " + cli.Muted(fmt.Sprintf("showing the newest %d; use --limit for more", limit)))
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	c, err := st.GetCalculation(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if structured() {
		return encode(c)
	}
	printCalculation(c)
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteCalculation(cmd.Context(), args[0]); err != nil {
		return err
	}
	progressf("  Deleted %s\n", args[0])
	return nil
}
