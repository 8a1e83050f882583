package source

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// Format is a batch spreadsheet format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported batch file format (want .csv or .xlsx)")

// Input column headers. Start and End are optional.
const (
	ColWeightIn   = "Weight_In"
	ColWeightOut  = "Weight_Out"
	ColTime       = "Time"
	ColMachineID  = "Machine_ID"
	ColMaterialID = "Material_ID"
	ColStart      = "Operation_Start"
	ColEnd        = "Operation_End"
)

// Result column headers appended after the input columns.
const (
	ColTotalEnergy = "Total_Energy_kWh"
	ColTotalCarbon = "Total_Carbon_kg"
	ColEnergyCost  = "Energy_Cost"
	ColCurrency    = "Currency"
	ColAppliedRate = "Applied_Rate_per_kWh"
	ColError       = "Error"
)

// RequiredColumns are the columns every batch file must carry, in template order.
var RequiredColumns = []string{ColWeightIn, ColWeightOut, ColTime, ColMachineID, ColMaterialID}

// columnAliases maps lower-cased header spellings onto canonical columns.
var columnAliases = map[string]string{
	"weight_in":       ColWeightIn,
	"weight_out":      ColWeightOut,
	"time":            ColTime,
	"time_min":        ColTime,
	"machine_id":      ColMachineID,
	"material_id":     ColMaterialID,
	"operation_start": ColStart,
	"start":           ColStart,
	"operation_end":   ColEnd,
	"end":             ColEnd,
}

// DetectFormat picks the format from a file name's extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return "", ErrUnsupportedFormat
}

// Sniff guesses the format of raw file content. XLSX files are zip
// archives; anything else is treated as CSV.
func Sniff(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "PK\x03\x04" {
		return FormatXLSX
	}
	return FormatCSV
}

// ContentType returns the MIME type used when serving a file of format f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// DiscoveredFile is a batch file found during directory scanning.
type DiscoveredFile struct {
	Path    string
	Name    string
	Format  Format
	Size    int64
	ModTime time.Time
}
