package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var flagTUIAutoRefresh bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&flagTUIAutoRefresh, "auto-refresh", false, "Reload from the database every 30s")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	st, err := requireStore()
	if err != nil {
		return err
	}
	defer st.Close()
	calc, err := newCalculator(st)
	if err != nil {
		return err
	}

	// Force TrueColor profile so all background styling produces ANSI codes.
	lipgloss.SetColorProfile(termenv.TrueColor)

	days := flagDays
	load := func(ctx context.Context) ([]model.Calculation, error) {
		// Twice the window, so the overview can compare against the previous period.
		since := time.Now().AddDate(0, 0, -2*days)
		return st.ListCalculations(ctx, store.Filter{Since: since})
	}

	app := tui.NewApp(tui.Options{
		Load:        load,
		Catalog:     calc.Catalog,
		Rates:       calc.ResolveRates(cmd.Context(), appCfg.Tariff.Type, ""),
		Days:        days,
		AutoRefresh: flagTUIAutoRefresh,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
