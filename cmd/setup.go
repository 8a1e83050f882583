package cmd

import (
	"errors"
	"fmt"

	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, _ []string) error {
	// Start from the file on disk, not the flag-adjusted runtime config.
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	cfg, err = tui.RunSetup(cmd.Context(), cfg)
	if errors.Is(err, tui.ErrAborted) {
		fmt.Println("  Setup cancelled; nothing saved.")
		return nil
	}
	if err != nil {
		return err
	}

	path := flagConfig
	if path == "" {
		path = config.Path()
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", path)
	fmt.Println("  Run `carboncam setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
