package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one server. Each server owns
// its registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	calculations      *prometheus.CounterVec
	energyKWh         prometheus.Counter
	carbonKg          prometheus.Counter
	costErrors        prometheus.Counter
	batchRows         *prometheus.CounterVec
	reloads           *prometheus.CounterVec
	subscribers       prometheus.Gauge
}

// NewMetrics creates and registers the server collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carboncam_calculations_total",
			Help: "Calculations attempted, by source and outcome.",
		}, []string{"source", "outcome"}),
		energyKWh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carboncam_energy_kwh_total",
			Help: "Total energy of successful calculations in kWh.",
		}),
		carbonKg: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carboncam_carbon_kg_total",
			Help: "Total carbon of successful calculations in kg CO2.",
		}),
		costErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carboncam_cost_errors_total",
			Help: "Calculations whose energy cost could not be computed.",
		}),
		batchRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carboncam_batch_rows_total",
			Help: "Batch rows processed, by outcome.",
		}, []string{"outcome"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carboncam_config_reloads_total",
			Help: "Config reloads, by result.",
		}, []string{"result"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "carboncam_stream_subscribers",
			Help: "Connected event stream subscribers.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.calculations,
		m.energyKWh,
		m.carbonKg,
		m.costErrors,
		m.batchRows,
		m.reloads,
		m.subscribers,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush keeps the event stream working through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records request counts and durations labelled by the matched
// route template, so ids in paths do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) calculation(source, outcome string, energy, carbon float64, costErr bool) {
	m.calculations.WithLabelValues(source, outcome).Inc()
	if outcome != outcomeOK {
		return
	}
	m.energyKWh.Add(energy)
	m.carbonKg.Add(carbon)
	if costErr {
		m.costErrors.Inc()
	}
}
