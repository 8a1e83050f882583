package source

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"

	"github.com/xuri/excelize/v2"
)

func sampleReport() *pipeline.BatchReport {
	calc := &model.Calculation{EnergyResult: engine.EnergyResult{TotalEnergyKWh: 5.5, TotalCarbonKg: 2.42}}
	return &pipeline.BatchReport{
		BatchID: "abcdef012345",
		Results: []pipeline.BatchResult{
			{
				Row:         pipeline.BatchRow{Line: 2, WeightIn: "10", WeightOut: "9.2", Time: "30", MachineID: "cnc_1", MaterialID: "mat_4140"},
				Calculation: calc,
				EnergyCost:  2.71828182,
				Currency:    "TRY",
				Rate:        1,
			},
			{
				Row:      pipeline.BatchRow{Line: 3, WeightIn: "abc", WeightOut: "1", Time: "10", MachineID: "cnc_1", MaterialID: "mat_4140"},
				Currency: "TRY",
				Rate:     1,
				Error:    pipeline.ErrRowUnparseable,
			},
		},
		Succeeded: 1,
		Failed:    1,
	}
}

func TestWriteResults_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, FormatCSV, sampleReport()); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"Weight_In,Weight_Out,Time,Machine_ID,Material_ID,Total_Energy_kWh,Total_Carbon_kg,Energy_Cost,Currency,Applied_Rate_per_kWh,Error",
		"10,9.2,30,cnc_1,mat_4140,5.5,2.42,2.7183,TRY,1,",
		"abc,1,10,cnc_1,mat_4140,,,,TRY,1,numeric values could not be parsed",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d:\n got %s\nwant %s", i, lines[i], want[i])
		}
	}
}

func TestWriteResults_WindowColumns(t *testing.T) {
	r := sampleReport()
	r.Results[0].Row.Start = "21:00"

	var buf bytes.Buffer
	if err := WriteResults(&buf, FormatCSV, r); err != nil {
		t.Fatal(err)
	}
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	if !strings.Contains(header, "Material_ID,Operation_Start,Operation_End,Total_Energy_kWh") {
		t.Fatalf("header = %s", header)
	}
}

func TestWriteResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, FormatCSV, &pipeline.BatchReport{}); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "Error\nno rows to process\n" {
		t.Fatalf("empty batch = %q", got)
	}
}

func TestWriteResults_XLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, FormatXLSX, sampleReport()); err != nil {
		t.Fatalf("WriteResults: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][5] != ColTotalEnergy || rows[1][3] != "cnc_1" {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][5] != "5.5" {
		t.Fatalf("energy cell = %q", rows[1][5])
	}
	if rows[2][10] != pipeline.ErrRowUnparseable {
		t.Fatalf("error cell = %q", rows[2][10])
	}
}

func TestWriteTemplate(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTemplate(&buf, FormatCSV); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "Weight_In,Weight_Out,Time,Machine_ID,Material_ID\n" {
		t.Fatalf("template = %q", got)
	}

	buf.Reset()
	if err := WriteTemplate(&buf, FormatXLSX); err != nil {
		t.Fatal(err)
	}
	rows, format, err := ParseBytes(buf.Bytes())
	if err != nil || format != FormatXLSX || len(rows) != 0 {
		t.Fatalf("template round trip: %d rows, %q, %v", len(rows), format, err)
	}
}

func TestResultFileName(t *testing.T) {
	if got := ResultFileName("/tmp/jobs.xlsx", FormatCSV); got != "jobs_results.csv" {
		t.Fatalf("ResultFileName = %q", got)
	}
}
