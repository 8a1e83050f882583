package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/engine"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"
	"github.com/AliTumkaya-new/CarbonCAM/internal/source"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"

	"github.com/gorilla/mux"
)

const maxJSONBody = 1 << 20 // 1 MB

// Calculation outcomes used as metric labels.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

var errNoStore = errors.New("calculation history is disabled (server started without a store)")

type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// statusFor maps domain errors onto HTTP statuses: invalid parameters are
// 422, unknown ids 404.
func statusFor(err error) int {
	var ipe *engine.InvalidParameterError
	switch {
	case errors.As(err, &ipe):
		return http.StatusUnprocessableEntity
	case errors.Is(err, catalog.ErrUnknownMachine),
		errors.Is(err, catalog.ErrUnknownMaterial),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errNoStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func outcomeFor(err error) string {
	switch statusFor(err) {
	case http.StatusUnprocessableEntity:
		return outcomeInvalid
	case http.StatusNotFound:
		return outcomeNotFound
	}
	return outcomeError
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Source = model.SourceAPI
	if strings.TrimSpace(req.TariffType) == "" {
		req.TariffType = string(engine.TariffSingle)
	}

	calc, err := s.calculator().Calculate(r.Context(), req)
	if err != nil {
		s.metrics.calculation(model.SourceAPI, outcomeFor(err), 0, 0, false)
		s.fail(w, err)
		return
	}
	s.metrics.calculation(model.SourceAPI, outcomeOK, calc.TotalEnergyKWh, calc.TotalCarbonKg, calc.CostError != "")

	if s.store != nil {
		if err := s.store.SaveCalculation(r.Context(), calc); err != nil {
			s.logger.Warn("saving calculation failed", "id", calc.ID, "err", err)
		}
	}
	s.record(EventCalculation, []model.Calculation{calc}, "")
	writeJSON(w, http.StatusOK, calc)
}

type costRequest struct {
	TotalEnergyKWh     float64 `json:"total_energy_kwh"`
	ProcessTimeMinutes float64 `json:"process_time_minutes"`
	TariffType         string  `json:"tariff_type"`
	OperationStart     string  `json:"operation_start_hhmm"`
	OperationEnd       string  `json:"operation_end_hhmm"`
	Currency           string  `json:"currency"`
}

type costResponse struct {
	engine.CostResult
	Rates config.RateSet `json:"rates"`
}

func (s *Server) handleCost(w http.ResponseWriter, r *http.Request) {
	var req costRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, rates, err := s.calculator().Cost(r.Context(), req.TotalEnergyKWh, req.TariffType, engine.OperationWindow{
		Start:              req.OperationStart,
		End:                req.OperationEnd,
		ProcessTimeMinutes: req.ProcessTimeMinutes,
	}, req.Currency)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, costResponse{CostResult: res, Rates: rates})
}

func (s *Server) handleMachines(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.calculator().Catalog.Machines())
}

func (s *Server) handleMaterials(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.calculator().Catalog.Materials())
}

type ratesResponse struct {
	Effective config.RateSet   `json:"effective"`
	Stored    []config.RateRow `json:"stored"`
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp := ratesResponse{
		Effective: s.calculator().ResolveRates(r.Context(), q.Get("tariff_type"), q.Get("currency")),
		Stored:    []config.RateRow{},
	}
	if s.store != nil {
		rows, err := s.store.ListRates(r.Context())
		if err != nil {
			s.fail(w, err)
			return
		}
		if rows != nil {
			resp.Stored = rows
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func formatParam(r *http.Request, fallback source.Format) (source.Format, error) {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if v == "" {
		return fallback, nil
	}
	return source.DetectFormat("x." + v)
}

func attachment(w http.ResponseWriter, name string, format source.Format) {
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+name+"."+string(format))
}

func (s *Server) handleBatchTemplate(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r, source.FormatXLSX)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := source.WriteTemplate(&buf, format); err != nil {
		s.fail(w, err)
		return
	}
	attachment(w, "Template", format)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleBatchProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "a spreadsheet must be uploaded in the \"file\" form field")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	inFormat, err := source.DetectFormat(header.Filename)
	if err != nil {
		inFormat = source.Sniff(data)
	}
	rows, err := source.Parse(bytes.NewReader(data), inFormat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outFormat, err := formatParam(r, inFormat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.calculator().ProcessBatch(r.Context(), rows, pipeline.BatchOptions{Workers: s.cfg.BatchWorkers})
	if err != nil {
		s.fail(w, err)
		return
	}

	calcs := report.Calculations()
	for _, res := range report.Results {
		outcome := outcomeOK
		if res.Error != "" {
			outcome = "failed"
		}
		s.metrics.batchRows.WithLabelValues(outcome).Inc()
		if c := res.Calculation; c != nil {
			s.metrics.calculation(model.SourceBatch, outcomeOK, c.TotalEnergyKWh, c.TotalCarbonKg, c.CostError != "")
		}
	}
	if s.store != nil && len(calcs) > 0 {
		if err := s.store.SaveCalculations(r.Context(), calcs); err != nil {
			s.logger.Warn("saving batch failed", "batch", report.BatchID, "err", err)
		}
	}
	s.record(EventBatch, calcs, report.BatchID)

	var buf bytes.Buffer
	if err := source.WriteResults(&buf, outFormat, report); err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("X-Batch-Id", report.BatchID)
	attachment(w, "Results", outFormat)
	_, _ = w.Write(buf.Bytes())
}

// parseTimeParam accepts RFC 3339 timestamps or plain local dates.
func parseTimeParam(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.Local)
}

func (s *Server) handleListCalculations(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, errNoStore)
		return
	}

	q := r.URL.Query()
	f := store.Filter{
		MachineID:  q.Get("machine_id"),
		MaterialID: q.Get("material_id"),
		BatchID:    q.Get("batch_id"),
		Limit:      s.cfg.HistoryLimit,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}
	var err error
	if f.Since, err = parseTimeParam(q.Get("since")); err != nil {
		writeError(w, http.StatusBadRequest, "since must be RFC 3339 or YYYY-MM-DD")
		return
	}
	if f.Until, err = parseTimeParam(q.Get("until")); err != nil {
		writeError(w, http.StatusBadRequest, "until must be RFC 3339 or YYYY-MM-DD")
		return
	}

	calcs, err := s.store.ListCalculations(r.Context(), f)
	if err != nil {
		s.fail(w, err)
		return
	}
	if calcs == nil {
		calcs = []model.Calculation{}
	}
	writeJSON(w, http.StatusOK, calcs)
}

func (s *Server) handleGetCalculation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, errNoStore)
		return
	}
	calc, err := s.store.GetCalculation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

func (s *Server) handleDeleteCalculation(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, errNoStore)
		return
	}
	if err := s.store.DeleteCalculation(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Days       int                     `json:"days"`
	Summary    model.SummaryStats      `json:"summary"`
	Machines   []model.MachineStats    `json:"machines"`
	Materials  []model.MaterialStats   `json:"materials"`
	Daily      []model.DailyStats      `json:"daily,omitempty"`
	Tariff     pipeline.TariffSplit    `json:"tariff_split"`
	Currencies []pipeline.CurrencyCost `json:"currencies"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.fail(w, errNoStore)
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "days must be a non-negative integer")
			return
		}
		days = n
	}

	now := s.now()
	var since time.Time
	if days > 0 {
		since = now.AddDate(0, 0, -days)
	}
	calcs, err := s.store.ListCalculations(r.Context(), store.Filter{Since: since})
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := summaryResponse{
		Days:      days,
		Summary:   pipeline.Aggregate(calcs, time.Time{}, time.Time{}),
		Machines:  pipeline.AggregateMachines(calcs, time.Time{}, time.Time{}),
		Materials: pipeline.AggregateMaterials(calcs, time.Time{}, time.Time{}),
	}
	if days > 0 {
		resp.Daily = pipeline.AggregateDays(calcs, since, now)
	}
	resp.Tariff, resp.Currencies = pipeline.AggregateCostBreakdown(calcs, time.Time{}, time.Time{})
	writeJSON(w, http.StatusOK, resp)
}
