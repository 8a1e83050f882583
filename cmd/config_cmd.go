package cmd

import (
	"fmt"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg
	if structured() {
		redacted := cfg
		if redacted.Rates.APIKey != "" {
			redacted.Rates.APIKey = maskAPIKey(redacted.Rates.APIKey)
		}
		return encode(redacted)
	}

	path := flagConfig
	if path == "" {
		path = config.Path()
	}
	fmt.Printf("  Config file: %s\n", path)
	if config.Exists(path) {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	db := config.DBPath(cfg)
	driver := "sqlite"
	if store.IsPostgres(db) {
		driver = "postgres"
		db = redactDSN(db)
	}
	fmt.Printf("    Database:      %s (%s)\n", db, driver)
	fmt.Printf("    Region:        %s\n", cfg.General.Region)
	fmt.Printf("    Currency:      %s\n", cfg.General.Currency)
	fmt.Printf("    History limit: %d\n", cfg.General.HistoryLimit)
	if cfg.General.BatchWorkers > 0 {
		fmt.Printf("    Batch workers: %d\n", cfg.General.BatchWorkers)
	}
	fmt.Println()

	fmt.Println("  [Tariff]")
	fmt.Printf("    Type:   %s\n", cfg.Tariff.Type)
	fmt.Printf("    Single: %g\n", cfg.Tariff.SinglePerKWh)
	fmt.Printf("    Day:    %g from %s\n", cfg.Tariff.DayPerKWh, cfg.Tariff.DayStart)
	fmt.Printf("    Peak:   %g from %s\n", cfg.Tariff.PeakPerKWh, cfg.Tariff.PeakStart)
	fmt.Printf("    Night:  %g from %s\n", cfg.Tariff.NightPerKWh, cfg.Tariff.NightStart)
	fmt.Println()

	fmt.Println("  [Rates]")
	if cfg.Rates.URL != "" {
		fmt.Printf("    Remote:  %s (table %s)\n", cfg.Rates.URL, cfg.Rates.Table)
	} else {
		fmt.Println("    Remote:  not configured")
	}
	if key := config.GetRatesAPIKey(cfg); key != "" {
		fmt.Printf("    API key: %s\n", maskAPIKey(key))
	}
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:      %s\n", cfg.Server.Addr)
	fmt.Printf("    CORS origins: %s\n", strings.Join(cfg.Server.CORSOrigins, ", "))
	fmt.Println()

	fmt.Println("  [Library]")
	fmt.Printf("    Extra machines:  %d\n", len(cfg.Library.Machines))
	fmt.Printf("    Extra materials: %d\n", len(cfg.Library.Materials))
	if cfg.Library.File != "" {
		fmt.Printf("    File:            %s\n", cfg.Library.File)
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `carboncam setup` to reconfigure.")
	return nil
}

// redactDSN hides the password of a postgres URL.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		creds = creds[:i] + ":****"
	}
	return dsn[:scheme+3] + creds + dsn[at:]
}
