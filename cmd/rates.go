package cmd

import (
	"errors"
	"fmt"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/ratesapi"

	"github.com/spf13/cobra"
)

var rateFlags struct {
	region     string
	currency   string
	tariff     string
	single     float64
	day        float64
	peak       float64
	night      float64
	dayStart   string
	peakStart  string
	nightStart string
}

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage stored electricity rates",
	RunE:  runRatesList,
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored rate rows and the effective rates",
	RunE:  runRatesList,
}

var ratesSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Insert or update a rate row",
	Example: "  carboncam rates set --tariff single --single 2.35\n" +
		"  carboncam rates set --tariff multi --day 2.1 --peak 3.4 --night 1.2 --peak-start 17:30",
	RunE: runRatesSet,
}

var ratesDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a rate row",
	RunE:  runRatesDelete,
}

var ratesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy the remote electricity_rates table into the local store",
	RunE:  runRatesSync,
}

func init() {
	for _, c := range []*cobra.Command{ratesSetCmd, ratesDeleteCmd} {
		c.Flags().StringVar(&rateFlags.region, "region", "", "Region (default from config)")
		c.Flags().StringVar(&rateFlags.currency, "currency", "", "Currency (default from config)")
		c.Flags().StringVar(&rateFlags.tariff, "tariff", "", "Tariff type: single or multi")
		_ = c.MarkFlagRequired("tariff")
	}
	f := ratesSetCmd.Flags()
	f.Float64Var(&rateFlags.single, "single", 0, "Single rate per kWh")
	f.Float64Var(&rateFlags.day, "day", 0, "Day rate per kWh")
	f.Float64Var(&rateFlags.peak, "peak", 0, "Peak rate per kWh")
	f.Float64Var(&rateFlags.night, "night", 0, "Night rate per kWh")
	f.StringVar(&rateFlags.dayStart, "day-start", "", "Day period start HH:MM")
	f.StringVar(&rateFlags.peakStart, "peak-start", "", "Peak period start HH:MM")
	f.StringVar(&rateFlags.nightStart, "night-start", "", "Night period start HH:MM")

	ratesCmd.AddCommand(ratesListCmd, ratesSetCmd, ratesDeleteCmd, ratesSyncCmd)
	rootCmd.AddCommand(ratesCmd)
}

type ratesOutput struct {
	Effective []config.RateSet `json:"effective" yaml:"effective"`
	Stored    []config.RateRow `json:"stored" yaml:"stored"`
}

func runRatesList(cmd *cobra.Command, _ []string) error {
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()
	calc, err := newCalculator(st)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stored, err := st.ListRates(ctx)
	if err != nil {
		return err
	}
	out := ratesOutput{
		Effective: []config.RateSet{
			calc.ResolveRates(ctx, string(engine.TariffSingle), ""),
			calc.ResolveRates(ctx, string(engine.TariffMulti), ""),
		},
		Stored: stored,
	}
	if structured() {
		return encode(out)
	}

	fmt.Println()
	for _, rs := range out.Effective {
		title := fmt.Sprintf("Effective %s rates (%s/%s, %s)", rs.TariffType, rs.Region, rs.Currency, rs.Source)
		var pairs [][2]string
		if rs.TariffType == string(engine.TariffSingle) {
			pairs = [][2]string{{"Single", cli.FormatRate(rs.Single, rs.Currency)}}
		} else {
			pairs = [][2]string{
				{"Day", fmt.Sprintf("%s from %s", cli.FormatRate(rs.Day, rs.Currency), engine.FormatHHMM(rs.DayStart))},
				{"Peak", fmt.Sprintf("%s from %s", cli.FormatRate(rs.Peak, rs.Currency), engine.FormatHHMM(rs.PeakStart))},
				{"Night", fmt.Sprintf("%s from %s", cli.FormatRate(rs.Night, rs.Currency), engine.FormatHHMM(rs.NightStart))},
			}
		}
		fmt.Print(cli.RenderKV(title, pairs))
		fmt.Println()
	}

	if len(stored) == 0 {
		fmt.Println("  " + cli.Muted("No stored rate rows; the config fallback applies."))
		return nil
	}
	rows := make([][]string, 0, len(stored))
	for _, r := range stored {
		rows = append(rows, []string{
			r.Region, r.Currency, r.TariffType,
			optRate(r.Single), optRate(r.Day), optRate(r.Peak), optRate(r.Night),
			r.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "STORED RATES",
		Headers:  []string{"Region", "Currency", "Tariff", "Single", "Day", "Peak", "Night", "Updated"},
		Rows:     rows,
		LeftCols: 3,
	}))
	return nil
}

func optRate(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func rateKeyFlags() (region, currency, tariff string, err error) {
	region, currency = rateFlags.region, rateFlags.currency
	if region == "" {
		region = appCfg.General.Region
	}
	if currency == "" {
		currency = appCfg.General.Currency
	}
	tariff = config.NormalizeTariffType(rateFlags.tariff)
	switch engine.TariffType(tariff) {
	case engine.TariffSingle, engine.TariffMulti:
	default:
		return "", "", "", fmt.Errorf("--tariff must be single or multi, got %q", rateFlags.tariff)
	}
	return region, currency, tariff, nil
}

func runRatesSet(cmd *cobra.Command, _ []string) error {
	region, currency, tariff, err := rateKeyFlags()
	if err != nil {
		return err
	}
	row := config.RateRow{Region: region, Currency: currency, TariffType: tariff}

	rates := []struct {
		flag string
		val  float64
		dst  **float64
	}{
		{"single", rateFlags.single, &row.Single},
		{"day", rateFlags.day, &row.Day},
		{"peak", rateFlags.peak, &row.Peak},
		{"night", rateFlags.night, &row.Night},
	}
	set := 0
	for _, r := range rates {
		if !cmd.Flags().Changed(r.flag) {
			continue
		}
		if r.val < 0 {
			return fmt.Errorf("--%s must be >= 0", r.flag)
		}
		v := r.val
		*r.dst = &v
		set++
	}
	for flag, v := range map[string]string{
		"day-start": rateFlags.dayStart, "peak-start": rateFlags.peakStart, "night-start": rateFlags.nightStart,
	} {
		if v == "" {
			continue
		}
		if _, err := engine.ParseClock(v); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}
	row.DayStart, row.PeakStart, row.NightStart = rateFlags.dayStart, rateFlags.peakStart, rateFlags.nightStart
	if set == 0 {
		return errors.New("give at least one of --single, --day, --peak or --night")
	}

	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.UpsertRate(cmd.Context(), row); err != nil {
		return err
	}
	progressf("  Saved %s/%s/%s rates\n", region, currency, tariff)
	return nil
}

func runRatesDelete(cmd *cobra.Command, _ []string) error {
	region, currency, tariff, err := rateKeyFlags()
	if err != nil {
		return err
	}
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.DeleteRate(cmd.Context(), region, currency, tariff); err != nil {
		return err
	}
	progressf("  Deleted %s/%s/%s rates\n", region, currency, tariff)
	return nil
}

func runRatesSync(cmd *cobra.Command, _ []string) error {
	client := ratesapi.FromConfig(appCfg)
	if client == nil {
		return errors.New("no remote rates table configured (set [rates] url and api_key, or SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY)")
	}
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	rows, err := client.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetching remote rates: %w", err)
	}
	for _, r := range rows {
		if err := st.UpsertRate(ctx, r); err != nil {
			return err
		}
	}
	if structured() {
		return encode(rows)
	}
	progressf("  Synced %d rate rows from %s\n", len(rows), appCfg.Rates.URL)
	return nil
}
