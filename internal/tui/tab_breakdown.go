package tui

import (
	"fmt"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/components"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"
)

func (a App) renderMachinesTab(cw int) string {
	t := theme.Active
	inner := components.CardInnerWidth(cw)
	barW := max(inner-40, 10)

	var usage strings.Builder
	peak := 0.0
	for _, m := range a.machines {
		peak = max(peak, m.TotalCarbonKg)
	}
	for _, m := range a.machines {
		usage.WriteString(components.HBar(m.MachineID, 12, m.TotalCarbonKg, peak, barW,
			fmt.Sprintf("%s  %d runs", cli.FormatCarbon(m.TotalCarbonKg), m.Calculations), t.Orange))
		usage.WriteString("\n")
	}
	if len(a.machines) == 0 {
		usage.WriteString("No calculations in this period.")
	}

	var lib strings.Builder
	for _, m := range a.opts.Catalog.Machines() {
		fmt.Fprintf(&lib, "%-12s %-18s standby %5.2f kW  intensity %.3f kgCO2/kWh\n",
			m.ID, truncStr(m.Model, 18), m.StandbyPowerKW, m.CarbonIntensity)
	}

	return components.ContentCard("Carbon by machine", strings.TrimRight(usage.String(), "\n"), cw) + "\n" +
		components.ContentCard("Machine library", strings.TrimRight(lib.String(), "\n"), cw)
}

func (a App) renderMaterialsTab(cw int) string {
	t := theme.Active
	inner := components.CardInnerWidth(cw)
	barW := max(inner-44, 10)

	var usage strings.Builder
	peak := 0.0
	for _, m := range a.materials {
		peak = max(peak, m.TotalEnergyKWh)
	}
	for _, m := range a.materials {
		usage.WriteString(components.HBar(m.MaterialID, 12, m.TotalEnergyKWh, peak, barW,
			fmt.Sprintf("%s  %s kg removed", cli.FormatKWh(m.TotalEnergyKWh), cli.FormatKg(m.RemovedMassKg)), t.Blue))
		usage.WriteString("\n")
	}
	if len(a.materials) == 0 {
		usage.WriteString("No calculations in this period.")
	}

	var lib strings.Builder
	for _, m := range a.opts.Catalog.Materials() {
		fmt.Fprintf(&lib, "%-12s %-22s kc %6.0f N/mm²  density %6.0f kg/m³\n",
			m.ID, truncStr(m.Name, 22), m.KcValue, m.Density)
	}

	return components.ContentCard("Energy by material", strings.TrimRight(usage.String(), "\n"), cw) + "\n" +
		components.ContentCard("Material library", strings.TrimRight(lib.String(), "\n"), cw)
}
