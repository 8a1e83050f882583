package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AliTumkaya-new/CarbonCAM/internal/cli"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"
	"github.com/AliTumkaya-new/CarbonCAM/internal/source"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"
	"github.com/AliTumkaya-new/CarbonCAM/internal/tui"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var batchFlags struct {
	dir     string
	outDir  string
	format  string
	workers int
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process CSV/XLSX batch files",
}

var batchProcessCmd = &cobra.Command{
	Use:   "process [FILE...]",
	Short: "Calculate every row of one or more batch files",
	Long: "Calculate every row of one or more batch files and write a results file\n" +
		"next to each input (NAME_results.EXT). Rows that fail are kept with an Error cell.",
	Example: "  carboncam batch process jobs.xlsx\n  carboncam batch process --dir ./incoming --format csv",
	RunE:    runBatchProcess,
}

var batchTemplateCmd = &cobra.Command{
	Use:   "template [FILE]",
	Short: "Write an empty batch template",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBatchTemplate,
}

func init() {
	f := batchProcessCmd.Flags()
	f.StringVar(&batchFlags.dir, "dir", "", "Process every batch file in this directory")
	f.StringVar(&batchFlags.outDir, "out-dir", "", "Directory for results files (default: next to each input)")
	f.StringVar(&batchFlags.format, "format", "", "Results format: csv or xlsx (default: same as input)")
	f.IntVarP(&batchFlags.workers, "workers", "w", 0, "Worker pool size (default from config, then GOMAXPROCS)")

	batchTemplateCmd.Flags().StringVar(&batchFlags.format, "format", "xlsx", "Template format: csv or xlsx")

	batchCmd.AddCommand(batchProcessCmd)
	batchCmd.AddCommand(batchTemplateCmd)
	rootCmd.AddCommand(batchCmd)
}

// batchFileResult summarizes one processed file.
type batchFileResult struct {
	Input     string `json:"input" yaml:"input"`
	Output    string `json:"output,omitempty" yaml:"output,omitempty"`
	BatchID   string `json:"batch_id,omitempty" yaml:"batch_id,omitempty"`
	Rows      int    `json:"rows" yaml:"rows"`
	Succeeded int    `json:"succeeded" yaml:"succeeded"`
	Failed    int    `json:"failed" yaml:"failed"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runBatchProcess(cmd *cobra.Command, args []string) error {
	inputs := append([]string(nil), args...)
	if batchFlags.dir != "" {
		files, err := source.ScanDir(batchFlags.dir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", batchFlags.dir, err)
		}
		for _, f := range files {
			inputs = append(inputs, f.Path)
		}
	}
	if len(inputs) == 0 {
		return errors.New("no batch files given (pass FILE arguments or --dir)")
	}

	var outFmt source.Format
	if batchFlags.format != "" {
		f, err := source.DetectFormat("x." + batchFlags.format)
		if err != nil {
			return err
		}
		outFmt = f
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

	workers := batchFlags.workers
	if workers == 0 {
		workers = appCfg.General.BatchWorkers
	}

	ctx := cmd.Context()
	results := make([]batchFileResult, 0, len(inputs))
	var failedFiles int
	for _, in := range inputs {
		res, err := processBatchFile(ctx, calc, st, in, outFmt, workers)
		if errors.Is(err, tui.ErrAborted) || errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			res.Error = err.Error()
			failedFiles++
		}
		results = append(results, res)
	}

	if structured() {
		return encode(results)
	}
	printBatchResults(results)
	if failedFiles > 0 {
		return fmt.Errorf("%d of %d files could not be processed", failedFiles, len(inputs))
	}
	return nil
}

func processBatchFile(ctx context.Context, calc *pipeline.Calculator, st *store.Store,
	path string, outFmt source.Format, workers int) (batchFileResult, error) {
	res := batchFileResult{Input: path}

	rows, err := source.ParseFile(path)
	if err != nil {
		return res, err
	}
	res.Rows = len(rows)

	opts := pipeline.BatchOptions{Workers: workers}
	var report *pipeline.BatchReport
	if showProgressBar() {
		report, err = tui.RunBatch(ctx, calc, rows, opts, filepath.Base(path), os.Stderr)
	} else {
		opts.Progress = func(current, total int) {
			progressf("\r  %s %s", filepath.Base(path), cli.RenderProgressBar(current, total, 30))
		}
		report, err = calc.ProcessBatch(ctx, rows, opts)
		progressf("\n")
	}
	if err != nil {
		return res, err
	}
	res.BatchID = report.BatchID
	res.Succeeded = report.Succeeded
	res.Failed = report.Failed

	format := outFmt
	if format == "" {
		if format, err = source.DetectFormat(path); err != nil {
			return res, err
		}
	}
	dir := batchFlags.outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("creating output dir: %w", err)
	}
	res.Output = filepath.Join(dir, source.ResultFileName(path, format))
	if err := writeResultsFile(res.Output, format, report); err != nil {
		return res, err
	}

	if st != nil {
		if err := st.SaveCalculations(ctx, report.Calculations()); err != nil {
			return res, fmt.Errorf("saving calculations: %w", err)
		}
	}
	return res, nil
}

func writeResultsFile(path string, format source.Format, report *pipeline.BatchReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := source.WriteResults(f, format, report); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func showProgressBar() bool {
	return !flagQuiet && !structured() && isatty.IsTerminal(os.Stderr.Fd())
}

func printBatchResults(results []batchFileResult) {
	rows := make([][]string, 0, len(results))
	var total, ok, failed int
	for _, r := range results {
		out := r.Output
		if r.Error != "" {
			out = cli.Error(r.Error)
		}
		rows = append(rows, []string{
			filepath.Base(r.Input),
			formatNumber(int64(r.Rows)),
			cli.Good(formatNumber(int64(r.Succeeded))),
			failedCell(r.Failed),
			out,
		})
		total += r.Rows
		ok += r.Succeeded
		failed += r.Failed
	}
	if len(results) > 1 {
		rows = append(rows, []string{"---"}, []string{
			"Total", formatNumber(int64(total)), formatNumber(int64(ok)), failedCell(failed), "",
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:    "BATCH",
		Headers:  []string{"File", "Rows", "OK", "Failed", "Results"},
		Rows:     rows,
		LeftCols: 1,
	}))
}

func failedCell(n int) string {
	if n == 0 {
		return "0"
	}
	return cli.Warn(formatNumber(int64(n)))
}

func runBatchTemplate(_ *cobra.Command, args []string) error {
	format, err := source.DetectFormat("x." + batchFlags.format)
	if err != nil {
		return err
	}
	path := "Template." + string(format)
	if len(args) == 1 {
		path = args[0]
		if f, err := source.DetectFormat(path); err == nil {
			format = f
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := source.WriteTemplate(f, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	progressf("  Wrote %s\n", path)
	return nil
}
