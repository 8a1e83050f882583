package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"

	"github.com/BurntSushi/toml"
)

// Config holds all carboncam configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Tariff     TariffConfig     `toml:"tariff"`
	Rates      RatesConfig      `toml:"rates"`
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
	Appearance AppearanceConfig `toml:"appearance"`
	Library    LibraryConfig    `toml:"library"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	// DB is a SQLite path or a postgres:// DSN. Empty means the default
	// SQLite file under the data directory.
	DB           string `toml:"db,omitempty"`
	Region       string `toml:"region"`
	Currency     string `toml:"currency"`
	HistoryLimit int    `toml:"history_limit"`
	BatchWorkers int    `toml:"batch_workers,omitempty"`
}

// TariffConfig holds the fallback electricity tariff used when no stored
// rate row matches.
type TariffConfig struct {
	Type         string  `toml:"type"`
	SinglePerKWh float64 `toml:"single_per_kwh"`
	DayPerKWh    float64 `toml:"day_per_kwh"`
	PeakPerKWh   float64 `toml:"peak_per_kwh"`
	NightPerKWh  float64 `toml:"night_per_kwh"`
	DayStart     string  `toml:"day_start"`
	PeakStart    string  `toml:"peak_start"`
	NightStart   string  `toml:"night_start"`
}

// RatesConfig points at a remote electricity_rates REST table used by
// `carboncam rates sync`.
type RatesConfig struct {
	URL     string `toml:"url,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	Table   string `toml:"table"`
	Timeout int    `toml:"timeout_seconds"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr        string   `toml:"addr"`
	CORSOrigins []string `toml:"cors_origins"`
	EventBuffer int      `toml:"event_buffer"`
	MaxUploadMB int      `toml:"max_upload_mb"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LibraryConfig adds machines and materials on top of the built-in catalog.
type LibraryConfig struct {
	File      string          `toml:"file,omitempty"`
	Machines  []MachineEntry  `toml:"machines,omitempty"`
	Materials []MaterialEntry `toml:"materials,omitempty"`
}

// MachineEntry is a user-defined machine.
type MachineEntry struct {
	ID              string  `toml:"id" yaml:"id"`
	Model           string  `toml:"model" yaml:"model"`
	StandbyPowerKW  float64 `toml:"standby_power_kw" yaml:"standby_power_kw"`
	MaxPowerKW      float64 `toml:"max_power_kw,omitempty" yaml:"max_power_kw,omitempty"`
	CarbonIntensity float64 `toml:"carbon_intensity" yaml:"carbon_intensity"`
}

// MaterialEntry is a user-defined material.
type MaterialEntry struct {
	ID      string  `toml:"id" yaml:"id"`
	Name    string  `toml:"name" yaml:"name"`
	KcValue float64 `toml:"kc_value" yaml:"kc_value"`
	Density float64 `toml:"density" yaml:"density"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Region:       "TR",
			Currency:     "TRY",
			HistoryLimit: 50,
		},
		Tariff: TariffConfig{
			Type:         "single",
			SinglePerKWh: 1,
			DayPerKWh:    1,
			PeakPerKWh:   2,
			NightPerKWh:  0.8,
			DayStart:     "06:00",
			PeakStart:    "17:00",
			NightStart:   "22:00",
		},
		Rates: RatesConfig{
			Table:   "electricity_rates",
			Timeout: 10,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8750",
			CORSOrigins: []string{"http://localhost:3000"},
			EventBuffer: 200,
			MaxUploadMB: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "carboncam")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "carboncam")
}

// DataDir returns the XDG-compliant data directory holding the local database.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "carboncam")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "carboncam")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "carboncam.db")
}

// Load reads the config file at path (the default path when empty),
// returning defaults if it doesn't exist. Environment overrides are applied
// last.
func Load(path string) (Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config to path (the default path when empty).
func Save(cfg Config, path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists at path (the default path when empty).
func Exists(path string) bool {
	if path == "" {
		path = Path()
	}
	_, err := os.Stat(path)
	return err == nil
}

// DBPath returns the configured database location, or the default SQLite file.
func DBPath(cfg Config) string {
	if cfg.General.DB != "" {
		return cfg.General.DB
	}
	return DefaultDBPath()
}

// GetRatesAPIKey returns the rates API key from env var or config, in that order.
func GetRatesAPIKey(cfg Config) string {
	if key := os.Getenv("SUPABASE_SERVICE_ROLE_KEY"); key != "" {
		return key
	}
	return cfg.Rates.APIKey
}

// Validate rejects settings that would make every cost calculation fail.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Tariff.Type)) {
	case "single", "multi":
	default:
		return fmt.Errorf("tariff.type must be 'single' or 'multi', got %q", c.Tariff.Type)
	}
	for name, v := range map[string]string{
		"tariff.day_start":   c.Tariff.DayStart,
		"tariff.peak_start":  c.Tariff.PeakStart,
		"tariff.night_start": c.Tariff.NightStart,
	} {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, err := engine.ParseClock(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if !FallbackRates(c, "", "").BoundariesOrdered() {
		return fmt.Errorf("tariff boundaries must satisfy day_start <= peak_start <= night_start")
	}
	if c.General.HistoryLimit < 0 {
		return fmt.Errorf("general.history_limit must be >= 0")
	}
	if c.General.BatchWorkers < 0 {
		return fmt.Errorf("general.batch_workers must be >= 0")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}
	return nil
}

// applyEnv layers the ELECTRICITY_* and CARBONCAM_* environment variables
// over the file values. A variable that is set but unparseable is an error.
func applyEnv(cfg *Config) error {
	strVars := []struct {
		name string
		dst  *string
	}{
		{"ELECTRICITY_RATES_REGION", &cfg.General.Region},
		{"ELECTRICITY_RATE_CURRENCY", &cfg.General.Currency},
		{"CARBONCAM_DB", &cfg.General.DB},
		{"CARBONCAM_ADDR", &cfg.Server.Addr},
		{"SUPABASE_URL", &cfg.Rates.URL},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
	}
	for _, v := range strVars {
		if s := strings.TrimSpace(os.Getenv(v.name)); s != "" {
			*v.dst = s
		}
	}

	floatVars := []struct {
		name string
		dst  *float64
	}{
		{"ELECTRICITY_RATE_SINGLE_PER_KWH", &cfg.Tariff.SinglePerKWh},
		{"ELECTRICITY_RATE_DAY_PER_KWH", &cfg.Tariff.DayPerKWh},
		{"ELECTRICITY_RATE_PEAK_PER_KWH", &cfg.Tariff.PeakPerKWh},
		{"ELECTRICITY_RATE_NIGHT_PER_KWH", &cfg.Tariff.NightPerKWh},
	}
	for _, v := range floatVars {
		s := strings.TrimSpace(os.Getenv(v.name))
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", v.name, err)
		}
		*v.dst = f
	}

	if s := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS")); s != "" {
		var origins []string
		for _, o := range strings.Split(s, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	return nil
}
