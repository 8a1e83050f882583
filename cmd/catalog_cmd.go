package cmd

import (
	"fmt"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"

	"github.com/spf13/cobra"
)

var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List catalog machines",
	RunE:  runMachines,
}

var materialsCmd = &cobra.Command{
	Use:   "materials",
	Short: "List catalog materials",
	RunE:  runMaterials,
}

func init() {
	rootCmd.AddCommand(machinesCmd)
	rootCmd.AddCommand(materialsCmd)
}

func loadCatalog() (*catalog.Catalog, error) {
	cat, err := catalog.FromConfig(appCfg.Library)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return cat, nil
}

func runMachines(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	machines := cat.Machines()
	if structured() {
		return encode(machines)
	}

	rows := make([][]string, 0, len(machines))
	for _, m := range machines {
		maxPower := "-"
		if m.MaxPowerKW > 0 {
			maxPower = fmt.Sprintf("%.1f", m.MaxPowerKW)
		}
		rows = append(rows, []string{
			m.ID,
			m.Model,
			fmt.Sprintf("%.2f", m.StandbyPowerKW),
			maxPower,
			fmt.Sprintf("%.3f", m.CarbonIntensity),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "MACHINES",
		Headers:  []string{"ID", "Model", "Standby kW", "Max kW", "kgCO2/kWh"},
		Rows:     rows,
		LeftCols: 2,
	}))
	return nil
}

func runMaterials(_ *cobra.Command, _ []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	materials := cat.Materials()
	if structured() {
		return encode(materials)
	}

	rows := make([][]string, 0, len(materials))
	for _, m := range materials {
		rows = append(rows, []string{
			m.ID,
			m.Name,
			fmt.Sprintf("%.0f", m.KcValue),
			fmt.Sprintf("%.0f", m.Density),
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "MATERIALS",
		Headers:  []string{"ID", "Name", "kc N/mm²", "Density kg/m³"},
		Rows:     rows,
		LeftCols: 2,
	}))
	return nil
}
