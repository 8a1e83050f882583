package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the user quits a form.
var ErrAborted = errors.New("aborted")

// SetupValues are the raw answers of the setup form.
type SetupValues struct {
	Region     string
	Currency   string
	TariffType string
	Single     string
	Day        string
	Peak       string
	Night      string
	Theme      string
	DB         string
}

// SetupValuesFrom prefills the setup answers from cfg.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		Region:     cfg.General.Region,
		Currency:   cfg.General.Currency,
		TariffType: config.NormalizeTariffType(cfg.Tariff.Type),
		Single:     formatRate(cfg.Tariff.SinglePerKWh),
		Day:        formatRate(cfg.Tariff.DayPerKWh),
		Peak:       formatRate(cfg.Tariff.PeakPerKWh),
		Night:      formatRate(cfg.Tariff.NightPerKWh),
		Theme:      cfg.Appearance.Theme,
		DB:         cfg.General.DB,
	}
}

// Apply writes the answers over cfg and validates the result.
func (v SetupValues) Apply(cfg config.Config) (config.Config, error) {
	cfg.General.Region = strings.ToUpper(strings.TrimSpace(v.Region))
	cfg.General.Currency = strings.ToUpper(strings.TrimSpace(v.Currency))
	cfg.General.DB = strings.TrimSpace(v.DB)
	cfg.Tariff.Type = config.NormalizeTariffType(v.TariffType)
	if v.Theme != "" {
		cfg.Appearance.Theme = v.Theme
	}

	rates := []struct {
		name string
		in   string
		dst  *float64
	}{
		{"single rate", v.Single, &cfg.Tariff.SinglePerKWh},
		{"day rate", v.Day, &cfg.Tariff.DayPerKWh},
		{"peak rate", v.Peak, &cfg.Tariff.PeakPerKWh},
		{"night rate", v.Night, &cfg.Tariff.NightPerKWh},
	}
	for _, r := range rates {
		if strings.TrimSpace(r.in) == "" {
			continue
		}
		f, err := parseRate(r.in)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", r.name, err)
		}
		*r.dst = f
	}
	return cfg, cfg.Validate()
}

// NewSetupForm builds the first-run wizard writing into v.
func NewSetupForm(v *SetupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themes = append(themes, huh.NewOption(t.Name, t.Name))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("carboncam setup").
				Description("Machining energy, carbon and electricity cost.\nAnswers are saved to "+config.Path()),
			huh.NewInput().
				Title("Region").
				Description("Matched against stored electricity rates").
				Value(&v.Region).
				Validate(notEmpty("region")),
			huh.NewInput().
				Title("Currency").
				Description("ISO code, e.g. TRY, EUR, USD").
				Value(&v.Currency).
				Validate(notEmpty("currency")),
			huh.NewInput().
				Title("Database").
				Description("SQLite path or postgres:// DSN, blank for the default").
				Placeholder(config.DefaultDBPath()).
				Value(&v.DB),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tariff").
				Options(
					huh.NewOption("Single flat rate", string(engine.TariffSingle)),
					huh.NewOption("Multi (day / peak / night)", string(engine.TariffMulti)),
				).
				Value(&v.TariffType),
		),
		huh.NewGroup(
			huh.NewInput().Title("Single rate per kWh").Value(&v.Single).Validate(validRate),
		).WithHideFunc(func() bool { return v.TariffType != string(engine.TariffSingle) }),
		huh.NewGroup(
			huh.NewInput().Title("Day rate per kWh").Value(&v.Day).Validate(validRate),
			huh.NewInput().Title("Peak rate per kWh").Value(&v.Peak).Validate(validRate),
			huh.NewInput().Title("Night rate per kWh").Value(&v.Night).Validate(validRate),
		).WithHideFunc(func() bool { return v.TariffType != string(engine.TariffMulti) }),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&v.Theme),
		),
	).WithTheme(FormTheme(theme.Active.Name))
}

// RunSetup runs the setup form on the terminal and returns the updated config.
func RunSetup(ctx context.Context, cfg config.Config) (config.Config, error) {
	v := SetupValuesFrom(cfg)
	if err := runForm(ctx, NewSetupForm(&v)); err != nil {
		return cfg, err
	}
	return v.Apply(cfg)
}

// QuickValues are the raw answers of the quick calculation form.
type QuickValues struct {
	MachineID     string
	MaterialID    string
	InitialWeight string
	FinalWeight   string
	TimeMinutes   string
	WithCost      bool
	TariffType    string
	Start         string
	End           string
}

// Request converts the answers into a calculation request.
func (v QuickValues) Request() (pipeline.Request, error) {
	req := pipeline.Request{
		MachineID:  v.MachineID,
		MaterialID: v.MaterialID,
		Source:     model.SourceCLI,
	}
	fields := []struct {
		name string
		in   string
		dst  *float64
	}{
		{"initial weight", v.InitialWeight, &req.InitialWeightKg},
		{"final weight", v.FinalWeight, &req.FinalWeightKg},
		{"process time", v.TimeMinutes, &req.ProcessTimeMinutes},
	}
	for _, f := range fields {
		n, err := strconv.ParseFloat(strings.TrimSpace(f.in), 64)
		if err != nil {
			return req, fmt.Errorf("%s: not a number: %q", f.name, f.in)
		}
		*f.dst = n
	}
	if v.WithCost {
		req.TariffType = v.TariffType
		req.OperationStart = strings.TrimSpace(v.Start)
		req.OperationEnd = strings.TrimSpace(v.End)
	}
	return req, nil
}

// NewQuickForm builds the interactive calculation form over the catalog.
func NewQuickForm(cat *catalog.Catalog, v *QuickValues) *huh.Form {
	var machines []huh.Option[string]
	for _, m := range cat.Machines() {
		machines = append(machines, huh.NewOption(fmt.Sprintf("%s  %s", m.ID, m.Model), m.ID))
	}
	var materials []huh.Option[string]
	for _, m := range cat.Materials() {
		materials = append(materials, huh.NewOption(fmt.Sprintf("%s  %s", m.ID, m.Name), m.ID))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Machine").Options(machines...).Value(&v.MachineID),
			huh.NewSelect[string]().Title("Material").Options(materials...).Value(&v.MaterialID),
		),
		huh.NewGroup(
			huh.NewInput().Title("Initial weight (kg)").Value(&v.InitialWeight).Validate(positive),
			huh.NewInput().Title("Final weight (kg)").Value(&v.FinalWeight).Validate(nonNegative),
			huh.NewInput().Title("Process time (min)").Value(&v.TimeMinutes).Validate(positive),
			huh.NewConfirm().Title("Estimate electricity cost?").Value(&v.WithCost),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Tariff").
				Options(
					huh.NewOption("Configured default", ""),
					huh.NewOption("Single", string(engine.TariffSingle)),
					huh.NewOption("Multi", string(engine.TariffMulti)),
				).
				Value(&v.TariffType),
			huh.NewInput().Title("Start (HH:MM)").Value(&v.Start).Validate(validClock),
			huh.NewInput().Title("End (HH:MM, optional)").Value(&v.End).Validate(optionalClock),
		).WithHideFunc(func() bool { return !v.WithCost }),
	).WithTheme(FormTheme(theme.Active.Name))
}

// RunQuick runs the quick calculation form and returns the request.
func RunQuick(ctx context.Context, cat *catalog.Catalog) (pipeline.Request, error) {
	v := QuickValues{Start: "08:00"}
	if err := runForm(ctx, NewQuickForm(cat, &v)); err != nil {
		return pipeline.Request{}, err
	}
	return v.Request()
}

// FormTheme picks the huh theme closest to a dashboard palette.
func FormTheme(name string) *huh.Theme {
	switch name {
	case "catppuccin-mocha":
		return huh.ThemeCatppuccin()
	case "tokyo-night":
		return huh.ThemeDracula()
	case "terminal":
		return huh.ThemeBase16()
	default:
		return huh.ThemeCharm()
	}
}

func runForm(ctx context.Context, f *huh.Form) error {
	err := f.RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

func notEmpty(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func parseRate(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(s, ",", ".")), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("must be >= 0")
	}
	return f, nil
}

func validRate(s string) error {
	_, err := parseRate(s)
	return err
}

func positive(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if f <= 0 {
		return fmt.Errorf("must be > 0")
	}
	return nil
}

func nonNegative(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if f < 0 {
		return fmt.Errorf("must be >= 0")
	}
	return nil
}

func validClock(s string) error {
	_, err := engine.ParseHHMM(s)
	return err
}

func optionalClock(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return validClock(s)
}

func formatRate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
