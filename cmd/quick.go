package cmd

import (
	"errors"
	"fmt"

	"github.com/AliTumkaya-new/CarbonCAM/internal/tui"

	"github.com/spf13/cobra"
)

var quickCmd = &cobra.Command{
	Use:   "quick",
	Short: "Interactive calculator form",
	RunE:  runQuick,
}

func init() {
	rootCmd.AddCommand(quickCmd)
}

func runQuick(cmd *cobra.Command, _ []string) error {
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
	req, err := tui.RunQuick(ctx, calc.Catalog)
	if errors.Is(err, tui.ErrAborted) {
		return nil
	}
	if err != nil {
		return err
	}

	c, err := calc.Calculate(ctx, req)
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
