// Package source reads batch spreadsheets into pipeline rows and writes
// batch results back out as CSV or XLSX.
package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"

	"github.com/xuri/excelize/v2"
)

// MissingColumnsError lists required columns absent from a batch header.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing columns: " + strings.Join(e.Columns, ", ")
}

// ErrNoSheet is returned for a workbook without any worksheet.
var ErrNoSheet = errors.New("workbook has no sheets")

// ParseFile reads the batch file at path, picking the format from its extension.
func ParseFile(path string) ([]pipeline.BatchRow, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Parse(f, format)
}

// Parse reads batch rows from r. The first row is the header; column order
// is free and header matching ignores case. Blank rows are skipped. Row
// Line numbers count the header as line 1.
func Parse(r io.Reader, format Format) ([]pipeline.BatchRow, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &MissingColumnsError{Columns: RequiredColumns}
	}

	index, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}

	cell := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]pipeline.BatchRow, 0, len(records)-1)
	for n, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, pipeline.BatchRow{
			Line:       n + 2,
			WeightIn:   cell(rec, ColWeightIn),
			WeightOut:  cell(rec, ColWeightOut),
			Time:       cell(rec, ColTime),
			MachineID:  cell(rec, ColMachineID),
			MaterialID: cell(rec, ColMaterialID),
			Start:      cell(rec, ColStart),
			End:        cell(rec, ColEnd),
		})
	}
	return rows, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if col, ok := columnAliases[key]; ok {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}
	return index, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ParseBytes is Parse over an in-memory upload whose format is sniffed.
func ParseBytes(data []byte) ([]pipeline.BatchRow, Format, error) {
	format := Sniff(data)
	rows, err := Parse(bytes.NewReader(data), format)
	return rows, format, err
}
