package pipeline

import (
	"context"
	"errors"
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"

	"github.com/google/uuid"
)

// Per-row batch errors.
const (
	ErrRowUnparseable = "numeric values could not be parsed"
	ErrRowNotFinite   = "invalid number (NaN/inf)"
	ErrRowInvalid     = "invalid weight/time"
	ErrRowNotFound    = "machine or material not found"
	ErrBatchEmpty     = "no rows to process"
)

// BatchRow is one input row as read from a spreadsheet. Cells are kept as
// text so parse failures can be reported per row.
type BatchRow struct {
	Line       int
	WeightIn   string
	WeightOut  string
	Time       string
	MachineID  string
	MaterialID string
	Start      string
	End        string
}

// BatchResult is the outcome of one row. Calculation is nil when the row
// could not be calculated; a row whose cost alone failed keeps its
// Calculation and carries the cost error.
type BatchResult struct {
	Row         BatchRow
	Calculation *model.Calculation
	EnergyCost  float64
	Currency    string
	Rate        float64
	Error       string
}

// BatchReport holds the output of ProcessBatch, in input order.
type BatchReport struct {
	BatchID   string
	Results   []BatchResult
	Succeeded int
	Failed    int
}

// Calculations returns the successful calculations of the batch.
func (r *BatchReport) Calculations() []model.Calculation {
	out := make([]model.Calculation, 0, r.Succeeded)
	for _, res := range r.Results {
		if res.Calculation != nil {
			out = append(out, *res.Calculation)
		}
	}
	return out
}

// ProgressFunc is called while a batch runs.
// current is the number of rows processed so far, total is the total count.
type ProgressFunc func(current, total int)

// BatchOptions tune ProcessBatch.
type BatchOptions struct {
	// Workers bounds the worker pool; 0 means GOMAXPROCS.
	Workers  int
	Progress ProgressFunc
}

// NewBatchID returns a short random batch identifier.
func NewBatchID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ProcessBatch calculates every row with a bounded worker pool. A bad row
// is recorded on its result and never aborts the batch. Rows without a start
// time are priced at the flat single rate; rows with one go through the
// configured tariff.
func (c *Calculator) ProcessBatch(ctx context.Context, rows []BatchRow, opts BatchOptions) (*BatchReport, error) {
	report := &BatchReport{BatchID: NewBatchID()}
	if len(rows) == 0 {
		return report, nil
	}

	single := c.ResolveRates(ctx, string(engine.TariffSingle), "")

	numWorkers := opts.Workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(rows) {
		numWorkers = len(rows)
	}

	work := make(chan int, len(rows))
	results := make([]BatchResult, len(rows))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range rows {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					return
				}
				results[idx] = c.processRow(ctx, rows[idx], report.BatchID, single)
				n := processed.Add(1)
				if opts.Progress != nil {
					opts.Progress(int(n), len(rows))
				}
			}
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Results = results
	for _, r := range results {
		if r.Error != "" {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	c.logger().Info("batch processed", "batch", report.BatchID,
		"rows", len(rows), "ok", report.Succeeded, "failed", report.Failed)
	return report, nil
}

func (c *Calculator) processRow(ctx context.Context, row BatchRow, batchID string, single config.RateSet) BatchResult {
	res := BatchResult{Row: row, Currency: single.Currency, Rate: single.Single}

	initial, err1 := parseCell(row.WeightIn)
	final, err2 := parseCell(row.WeightOut)
	minutes, err3 := parseCell(row.Time)
	if err1 != nil || err2 != nil || err3 != nil {
		res.Error = ErrRowUnparseable
		return res
	}
	if !finite(initial) || !finite(final) || !finite(minutes) {
		res.Error = ErrRowNotFinite
		return res
	}
	if minutes <= 0 || initial < 0 || final < 0 {
		res.Error = ErrRowInvalid
		return res
	}

	calc, err := c.Calculate(ctx, Request{
		MachineID:          strings.TrimSpace(row.MachineID),
		MaterialID:         strings.TrimSpace(row.MaterialID),
		InitialWeightKg:    initial,
		FinalWeightKg:      final,
		ProcessTimeMinutes: minutes,
		TariffType:         c.Config.Tariff.Type,
		OperationStart:     row.Start,
		OperationEnd:       row.End,
		Source:             model.SourceBatch,
	})
	switch {
	case errors.Is(err, catalog.ErrUnknownMachine), errors.Is(err, catalog.ErrUnknownMaterial):
		res.Error = ErrRowNotFound
		return res
	case err != nil:
		res.Error = err.Error()
		return res
	}

	calc.BatchID = batchID
	res.Calculation = &calc
	switch {
	case calc.Cost != nil:
		res.EnergyCost = calc.Cost.EnergyCost
		res.Currency = calc.Cost.Currency
		res.Rate = calc.Cost.AppliedRatePerKWh
	case calc.CostError != "":
		// Energy and carbon stand; only the price is missing.
		res.Rate = 0
		res.Error = "energy cost: " + calc.CostError
	default:
		res.EnergyCost = calc.TotalEnergyKWh * single.Single
	}
	return res
}

func parseCell(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
