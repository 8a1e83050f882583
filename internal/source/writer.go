package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// MoneyPlaces is the number of decimal places energy costs are written with.
const MoneyPlaces = 4

const resultsSuffix = "_results"

// ResultFileName derives the results file name for an input batch file,
// e.g. "jobs.xlsx" -> "jobs_results.xlsx".
func ResultFileName(input string, format Format) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return base + resultsSuffix + "." + string(format)
}

// ResultHeader returns the results sheet header. The operation window
// columns are only present when withWindow is set.
func ResultHeader(withWindow bool) []string {
	h := append([]string(nil), RequiredColumns...)
	if withWindow {
		h = append(h, ColStart, ColEnd)
	}
	return append(h, ColTotalEnergy, ColTotalCarbon, ColEnergyCost, ColCurrency, ColAppliedRate, ColError)
}

// WriteResults writes report as a results sheet, one row per input row in
// input order. A report without rows produces a single Error row.
func WriteResults(w io.Writer, format Format, report *pipeline.BatchReport) error {
	return writeTable(w, format, resultTable(report))
}

// WriteTemplate writes an empty batch file holding only the required header.
func WriteTemplate(w io.Writer, format Format) error {
	header := make([]any, len(RequiredColumns))
	for i, c := range RequiredColumns {
		header[i] = c
	}
	return writeTable(w, format, [][]any{header})
}

func resultTable(report *pipeline.BatchReport) [][]any {
	if report == nil || len(report.Results) == 0 {
		return [][]any{{ColError}, {pipeline.ErrBatchEmpty}}
	}

	withWindow := false
	for _, r := range report.Results {
		if r.Row.Start != "" || r.Row.End != "" {
			withWindow = true
			break
		}
	}

	header := ResultHeader(withWindow)
	table := make([][]any, 0, len(report.Results)+1)
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	table = append(table, row)

	for _, r := range report.Results {
		row := []any{number(r.Row.WeightIn), number(r.Row.WeightOut), number(r.Row.Time), r.Row.MachineID, r.Row.MaterialID}
		if withWindow {
			row = append(row, r.Row.Start, r.Row.End)
		}

		var energy, carbon, cost, rate any = "", "", "", ""
		if r.Calculation != nil {
			energy = r.Calculation.TotalEnergyKWh
			carbon = r.Calculation.TotalCarbonKg
		}
		if r.Error == "" {
			cost = decimal.NewFromFloat(r.EnergyCost).Round(MoneyPlaces)
		}
		if r.Rate > 0 {
			rate = r.Rate
		}
		table = append(table, append(row, energy, carbon, cost, r.Currency, rate, r.Error))
	}
	return table
}

// number keeps a numeric input cell numeric in the output and echoes
// anything unparseable back verbatim.
func number(s string) any {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return s
	}
	return v
}

func writeTable(w io.Writer, format Format, table [][]any) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, table)
	case FormatXLSX:
		return writeXLSX(w, table)
	}
	return ErrUnsupportedFormat
}

func writeCSV(w io.Writer, table [][]any) error {
	cw := csv.NewWriter(w)
	rec := make([]string, 0, 16)
	for _, row := range table {
		rec = rec[:0]
		for _, v := range row {
			rec = append(rec, cellText(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellText(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case decimal.Decimal:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func writeXLSX(w io.Writer, table [][]any) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if len(table) > 0 {
		if err := sw.SetColWidth(1, len(table[0]), 18); err != nil {
			return err
		}
	}

	for i, row := range table {
		cells := make([]any, len(row))
		for j, v := range row {
			switch v := v.(type) {
			case decimal.Decimal:
				cells[j] = v.InexactFloat64()
			default:
				cells[j] = v
			}
			if i == 0 {
				cells[j] = excelize.Cell{StyleID: bold, Value: cells[j]}
			}
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
