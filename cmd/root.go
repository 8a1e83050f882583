// Package cmd implements the carboncam CLI commands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"
	"github.com/AliTumkaya-new/CarbonCAM/internal/ratesapi"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui/theme"

	"github.com/spf13/cobra"
)

var (
	flagConfig    string
	flagDB        string
	flagNoStore   bool
	flagQuiet     bool
	flagOutput    string
	flagLogLevel  string
	flagLogFormat string
	flagDays      int
)

// Set by the root PersistentPreRunE.
var (
	appCfg    config.Config
	outFormat cli.Output
)

var rootCmd = &cobra.Command{
	Use:   "carboncam",
	Short: "Machining energy, carbon and electricity cost estimates",
	Long: "Estimate the electrical energy, CO2 and time-of-use electricity cost of CNC\n" +
		"machining operations, one at a time or from CSV/XLSX batch files.",
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default "+config.Path()+")")
	pf.StringVar(&flagDB, "db", "", "SQLite path or postgres:// DSN (overrides config)")
	pf.BoolVar(&flagNoStore, "no-store", false, "Do not read or write the calculation store")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.StringVarP(&flagOutput, "output", "o", "text", "Output format: text, json or yaml")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text or json")
	pf.IntVarP(&flagDays, "days", "n", 30, "Time window in days for history and summaries")
}

func initApp(_ *cobra.Command, _ []string) error {
	out, err := cli.ParseOutput(flagOutput)
	if err != nil {
		return err
	}
	outFormat = out

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	cfg = applyFlags(cfg)
	appCfg = cfg

	theme.SetActive(cfg.Appearance.Theme)
	slog.SetDefault(newLogger(os.Stderr, cfg.Log, flagLogLevel != ""))
	return nil
}

// applyFlags layers the global flags over a loaded config.
func applyFlags(cfg config.Config) config.Config {
	if flagDB != "" {
		cfg.General.DB = flagDB
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	return cfg
}

// newLogger builds the process logger. Outside the server, informational
// records are only shown when a level was asked for explicitly.
func newLogger(w io.Writer, lc config.LogConfig, explicit bool) *slog.Logger {
	level := parseLevel(lc.Level)
	if !explicit && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the configured database, or returns nil with --no-store.
func openStore() (*store.Store, error) {
	if flagNoStore {
		return nil, nil
	}
	st, err := store.Open(config.DBPath(appCfg))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return st, nil
}

// requireStore is openStore for commands that cannot work without history.
func requireStore() (*store.Store, error) {
	if flagNoStore {
		return nil, fmt.Errorf("this command needs the calculation store (drop --no-store)")
	}
	return openStore()
}

// newCalculator builds the calculator over the configured catalog. Rates are
// looked up in st first, then in the remote rates table when one is set.
func newCalculator(st *store.Store) (*pipeline.Calculator, error) {
	cat, err := catalog.FromConfig(appCfg.Library)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	var chain pipeline.ChainRates
	if st != nil {
		chain = append(chain, st)
	}
	if remote := ratesapi.FromConfig(appCfg); remote != nil {
		chain = append(chain, remote)
	}

	calc := &pipeline.Calculator{
		Catalog: cat,
		Config:  appCfg,
		Logger:  slog.Default(),
	}
	if len(chain) > 0 {
		calc.Rates = chain
	}
	return calc, nil
}

// structured reports whether results should be encoded instead of rendered.
func structured() bool {
	return outFormat == cli.OutputJSON || outFormat == cli.OutputYAML
}

func encode(v any) error {
	return cli.Encode(os.Stdout, outFormat, v)
}

func progressf(format string, args ...any) {
	if flagQuiet || structured() {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

func formatNumber(n int64) string {
	return cli.FormatNumber(n)
}
