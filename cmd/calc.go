package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"

	"github.com/spf13/cobra"
)

var calcFlags struct {
	machine   string
	material  string
	initial   float64
	final     float64
	minutes   float64
	tariff    string
	start     string
	end       string
	currency  string
	kc        float64
	density   float64
	standby   float64
	intensity float64
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Estimate energy, carbon and cost of one operation",
	Long: "Estimate energy, carbon and cost of one machining operation.\n\n" +
		"Pick the machine and material from the catalog, or pass --kc, --density,\n" +
		"--standby and --intensity to use raw constants instead.",
	Example: "  carboncam calc -m cnc_1 -t mat_4140 --initial 10 --final 8 --time 30\n" +
		"  carboncam calc -m cnc_1 -t mat_6061 --initial 5 --final 4.2 --time 45 --start 16:30 --tariff multi",
	RunE: runCalc,
}

func init() {
	f := calcCmd.Flags()
	f.StringVarP(&calcFlags.machine, "machine", "m", "", "Machine id")
	f.StringVarP(&calcFlags.material, "material", "t", "", "Material id")
	f.Float64Var(&calcFlags.initial, "initial", 0, "Initial workpiece weight (kg)")
	f.Float64Var(&calcFlags.final, "final", 0, "Final workpiece weight (kg)")
	f.Float64Var(&calcFlags.minutes, "time", 0, "Process time (minutes)")
	f.StringVar(&calcFlags.tariff, "tariff", "", "Tariff type: single or multi (default from config)")
	f.StringVar(&calcFlags.start, "start", "", "Operation start HH:MM; enables the cost estimate")
	f.StringVar(&calcFlags.end, "end", "", "Operation end HH:MM (default start + time)")
	f.StringVar(&calcFlags.currency, "currency", "", "Currency (default from config)")
	f.Float64Var(&calcFlags.kc, "kc", 0, "Raw specific cutting force (N/mm²)")
	f.Float64Var(&calcFlags.density, "density", 0, "Raw material density (kg/m³)")
	f.Float64Var(&calcFlags.standby, "standby", 0, "Raw machine standby power (kW)")
	f.Float64Var(&calcFlags.intensity, "intensity", 0, "Raw grid carbon intensity (kgCO2/kWh)")
	_ = calcCmd.MarkFlagRequired("initial")
	_ = calcCmd.MarkFlagRequired("final")
	_ = calcCmd.MarkFlagRequired("time")
	calcCmd.MarkFlagsRequiredTogether("kc", "density", "standby", "intensity")
	calcCmd.MarkFlagsMutuallyExclusive("machine", "kc")
	calcCmd.MarkFlagsMutuallyExclusive("material", "kc")

	rootCmd.AddCommand(calcCmd)
}

func runCalc(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("kc") {
		return runRawCalc()
	}
	if calcFlags.machine == "" || calcFlags.material == "" {
		return fmt.Errorf("--machine and --material are required (or give raw --kc/--density/--standby/--intensity)")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}
	calc, err := newCalculator(st)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := calc.Calculate(ctx, pipeline.Request{
		MachineID:          calcFlags.machine,
		MaterialID:         calcFlags.material,
		InitialWeightKg:    calcFlags.initial,
		FinalWeightKg:      calcFlags.final,
		ProcessTimeMinutes: calcFlags.minutes,
		TariffType:         calcFlags.tariff,
		OperationStart:     calcFlags.start,
		OperationEnd:       calcFlags.end,
		Currency:           calcFlags.currency,
		Source:             model.SourceCLI,
	})
	if err != nil {
		return err
	}

	if st != nil {
		if err := st.SaveCalculation(ctx, c); err != nil {
			return fmt.Errorf("saving calculation: %w", err)
		}
	}

	if structured() {
		return encode(c)
	}
	printCalculation(c)
	return nil
}

func runRawCalc() error {
	in := engine.MachiningInput{
		InitialWeightKg:    calcFlags.initial,
		FinalWeightKg:      calcFlags.final,
		ProcessTimeMinutes: calcFlags.minutes,
		KcValue:            calcFlags.kc,
		StandbyPowerKW:     calcFlags.standby,
		CarbonIntensity:    calcFlags.intensity,
		Density:            calcFlags.density,
	}
	res, err := engine.Estimate(in)
	if err != nil {
		return err
	}
	if structured() {
		return encode(struct {
			engine.MachiningInput `yaml:",inline"`
			engine.EnergyResult   `yaml:",inline"`
		}{in, res})
	}

	fmt.Println()
	fmt.Print(cli.RenderKV("Energy (raw constants)", energyPairs(res)))
	fmt.Println()
	return nil
}

func energyPairs(res engine.EnergyResult) [][2]string {
	return [][2]string{
		{"Removed material", fmt.Sprintf("%s kg (%.2f cm³)", cli.FormatKg(res.RemovedMaterialWeightKg), res.RemovedVolumeCm3)},
		{"Processing energy", cli.FormatKWh(res.ProcessingEnergyKWh)},
		{"Idle energy", cli.FormatKWh(res.IdleEnergyKWh)},
		{"Total energy", cli.FormatKWh(res.TotalEnergyKWh)},
		{"Carbon", cli.FormatCarbon(res.TotalCarbonKg)},
	}
}

func printCalculation(c model.Calculation) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s · %s", c.MachineID, c.MaterialID)))
	fmt.Println()

	pairs := [][2]string{
		{"Weights", fmt.Sprintf("%s → %s kg", cli.FormatKg(c.InitialWeightKg), cli.FormatKg(c.FinalWeightKg))},
		{"Process time", cli.FormatMinutes(c.ProcessTimeMinutes)},
	}
	pairs = append(pairs, energyPairs(c.EnergyResult)...)
	pairs = append(pairs, [2]string{"Efficiency", fmt.Sprintf("%d / 100", c.EfficiencyScore)})
	fmt.Print(cli.RenderKV("Energy", pairs))

	switch {
	case c.Cost != nil:
		fmt.Println()
		fmt.Print(cli.RenderKV("Cost", costPairs(*c.Cost, c.TariffType)))
	case c.CostError != "":
		fmt.Println()
		fmt.Println("  " + cli.Warn("Cost not estimated: "+c.CostError))
	}

	if len(c.OptimizationTips) > 0 {
		fmt.Println()
		for _, tip := range c.OptimizationTips {
			fmt.Println("  " + cli.Good("• ") + tipText(tip))
		}
	}
	fmt.Println()
	fmt.Println("  " + cli.Muted("id "+c.ID))
}

func costPairs(r engine.CostResult, tariffType string) [][2]string {
	pairs := [][2]string{
		{"Energy cost", cli.FormatMoney(r.EnergyCost, r.Currency)},
		{"Applied rate", cli.FormatRate(r.AppliedRatePerKWh, r.Currency)},
	}
	if tariffType != "" {
		pairs = append(pairs, [2]string{"Tariff", tariffType})
	}
	if r.Convention != "" {
		pairs = append(pairs, [2]string{"Single-rate minutes", cli.FormatMinutes(r.MinutesNight)})
	} else {
		pairs = append(pairs,
			[2]string{"Day", cli.FormatMinutes(r.MinutesDay)},
			[2]string{"Peak", cli.FormatMinutes(r.MinutesPeak)},
			[2]string{"Night", cli.FormatMinutes(r.MinutesNight)},
		)
	}
	return pairs
}

func tipText(tip model.Tip) string {
	switch tip.Code {
	case model.TipIdleHigh:
		return fmt.Sprintf("Idle energy is %d%% of the total; reduce standby time between operations.", tip.IdlePct)
	case model.TipAluminumFeedRate:
		return fmt.Sprintf("Aluminum allows roughly %d%% higher feed rates.", tip.IncreasePct)
	}
	return strings.ReplaceAll(tip.Code, "_", " ")
}

var costFlags struct {
	energy   float64
	tariff   string
	start    string
	end      string
	minutes  float64
	currency string
}

var costCmd = &cobra.Command{
	Use:     "cost",
	Short:   "Price an energy figure with the time-of-use tariff",
	Example: "  carboncam cost --energy 12.5 --start 16:00 --time 120 --tariff multi",
	RunE:    runCost,
}

func init() {
	f := costCmd.Flags()
	f.Float64Var(&costFlags.energy, "energy", 0, "Total energy (kWh)")
	f.StringVar(&costFlags.tariff, "tariff", "", "Tariff type: single or multi (default from config)")
	f.StringVar(&costFlags.start, "start", "", "Operation start HH:MM")
	f.StringVar(&costFlags.end, "end", "", "Operation end HH:MM (default start + time)")
	f.Float64Var(&costFlags.minutes, "time", 0, "Process time (minutes), used when --end is empty")
	f.StringVar(&costFlags.currency, "currency", "", "Currency (default from config)")
	_ = costCmd.MarkFlagRequired("energy")
	_ = costCmd.MarkFlagRequired("start")

	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}
	calc, err := newCalculator(st)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, rates, err := calc.Cost(ctx, costFlags.energy, costFlags.tariff, engine.OperationWindow{
		Start:              costFlags.start,
		End:                costFlags.end,
		ProcessTimeMinutes: costFlags.minutes,
	}, costFlags.currency)
	if err != nil {
		return err
	}

	if structured() {
		return encode(struct {
			engine.CostResult `yaml:",inline"`
			Rates             any `json:"rates" yaml:"rates"`
		}{res, rates})
	}

	fmt.Println()
	fmt.Print(cli.RenderKV(fmt.Sprintf("Cost of %s", cli.FormatKWh(costFlags.energy)), costPairs(res, rates.TariffType)))
	fmt.Fprintf(os.Stdout, "\n  %s\n\n", cli.Muted(fmt.Sprintf("rates: %s/%s (%s)", rates.Region, rates.Currency, rates.Source)))
	return nil
}
