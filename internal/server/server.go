// Package server provides the long-running HTTP API: calculations, cost
// estimates, batch spreadsheets, stored history and a live event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AliTumkaya-new/CarbonCAM/internal/catalog"
	"github.com/AliTumkaya-new/CarbonCAM/internal/config"
	"github.com/AliTumkaya-new/CarbonCAM/internal/model"
	"github.com/AliTumkaya-new/CarbonCAM/internal/pipeline"
	"github.com/AliTumkaya-new/CarbonCAM/internal/store"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Config controls the server runtime behavior.
type Config struct {
	Addr           string
	CORSOrigins    []string
	EventBuffer    int
	MaxUploadBytes int64
	BatchWorkers   int
	HistoryLimit   int
}

// ConfigFrom derives the server settings from the application config.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		Addr:           cfg.Server.Addr,
		CORSOrigins:    cfg.Server.CORSOrigins,
		EventBuffer:    cfg.Server.EventBuffer,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		BatchWorkers:   cfg.General.BatchWorkers,
		HistoryLimit:   cfg.General.HistoryLimit,
	}
}

// Store is the persistence the server uses. *store.Store satisfies it.
type Store interface {
	SaveCalculation(ctx context.Context, c model.Calculation) error
	SaveCalculations(ctx context.Context, calcs []model.Calculation) error
	GetCalculation(ctx context.Context, id string) (model.Calculation, error)
	ListCalculations(ctx context.Context, f store.Filter) ([]model.Calculation, error)
	DeleteCalculation(ctx context.Context, id string) error
	ListRates(ctx context.Context) ([]config.RateRow, error)
	Driver() string
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	UptimeSec       int64     `json:"uptime_sec"`
	StoreDriver     string    `json:"store_driver,omitempty"`
	Machines        int       `json:"machines"`
	Materials       int       `json:"materials"`
	Region          string    `json:"region"`
	Currency        string    `json:"currency"`
	TariffType      string    `json:"tariff_type"`
	Summary         Snapshot  `json:"summary"`
	ConfigReloads   int       `json:"config_reloads"`
	LastReloadAt    time.Time `json:"last_reload_at"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Server provides the HTTP API.
type Server struct {
	cfg     Config
	calc    atomic.Pointer[pipeline.Calculator]
	store   Store // nil disables history
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	mu           sync.RWMutex
	startedAt    time.Time
	snapshot     Snapshot
	nextEventID  int64
	events       []Event
	reloads      int
	lastReloadAt time.Time
	lastError    string

	nextSubID int
	subs      map[int]chan Event
}

// New returns a server around calc. st may be nil.
func New(cfg Config, calc *pipeline.Calculator, st Store, logger *slog.Logger) *Server {
	if cfg.EventBuffer < 1 {
		cfg.EventBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8750"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		store:     st,
		logger:    logger,
		metrics:   NewMetrics(),
		now:       time.Now,
		startedAt: time.Now(),
		snapshot:  Snapshot{CostByCurrency: make(map[string]float64)},
		subs:      make(map[int]chan Event),
	}
	s.calc.Store(calc)
	return s
}

func (s *Server) calculator() *pipeline.Calculator {
	return s.calc.Load()
}

// Handler builds the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.metrics.Middleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/calculate", s.handleCalculate).Methods(http.MethodPost)
	api.HandleFunc("/cost", s.handleCost).Methods(http.MethodPost)
	api.HandleFunc("/machines", s.handleMachines).Methods(http.MethodGet)
	api.HandleFunc("/materials", s.handleMaterials).Methods(http.MethodGet)
	api.HandleFunc("/rates", s.handleRates).Methods(http.MethodGet)
	api.HandleFunc("/batch/template", s.handleBatchTemplate).Methods(http.MethodGet)
	api.HandleFunc("/batch/process", s.handleBatchProcess).Methods(http.MethodPost)
	api.HandleFunc("/calculations", s.handleListCalculations).Methods(http.MethodGet)
	api.HandleFunc("/calculations/{id}", s.handleGetCalculation).Methods(http.MethodGet)
	api.HandleFunc("/calculations/{id}", s.handleDeleteCalculation).Methods(http.MethodDelete)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/stream", s.handleStream).Methods(http.MethodGet)

	var h http.Handler = handlers.CustomLoggingHandler(io.Discard, r, s.logRequest)
	if len(s.cfg.CORSOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.cfg.CORSOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
			handlers.ExposedHeaders([]string{"Content-Disposition", "X-Batch-Id"}),
		)(h)
	}
	return h
}

func (s *Server) logRequest(_ io.Writer, p handlers.LogFormatterParams) {
	s.logger.Debug("http request",
		"method", p.Request.Method,
		"path", p.URL.Path,
		"status", p.StatusCode,
		"bytes", p.Size,
		"remote", p.Request.RemoteAddr,
	)
}

// Run serves HTTP until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Streams end when ctx does, so Shutdown is not held open by them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("server listening", "addr", s.cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

// Reload swaps in a catalog and rate fallback built from cfg. On error the
// previous configuration stays active.
func (s *Server) Reload(cfg config.Config) error {
	cat, err := catalog.FromConfig(cfg.Library)
	if err != nil {
		s.metrics.reloads.WithLabelValues("error").Inc()
		s.mu.Lock()
		s.lastError = "config reload: " + err.Error()
		s.mu.Unlock()
		s.logger.Error("config reload rejected", "err", err)
		return err
	}

	next := *s.calculator()
	next.Catalog = cat
	next.Config = cfg
	s.calc.Store(&next)

	s.metrics.reloads.WithLabelValues("ok").Inc()
	s.mu.Lock()
	s.reloads++
	s.lastReloadAt = s.now()
	s.lastError = ""
	s.mu.Unlock()

	msg := fmt.Sprintf("%d machines, %d materials", len(cat.Machines()), len(cat.Materials()))
	s.logger.Info("config reloaded", "catalog", msg)
	s.notify(EventReload, msg)
	return nil
}

func (s *Server) snapshotStatus() Status {
	calc := s.calculator()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		StartedAt:       s.startedAt,
		UptimeSec:       int64(s.now().Sub(s.startedAt).Seconds()),
		Machines:        len(calc.Catalog.Machines()),
		Materials:       len(calc.Catalog.Materials()),
		Region:          calc.Config.General.Region,
		Currency:        calc.Config.General.Currency,
		TariffType:      calc.Config.Tariff.Type,
		Summary:         s.snapshot.clone(),
		ConfigReloads:   s.reloads,
		LastReloadAt:    s.lastReloadAt,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
	if s.store != nil {
		st.StoreDriver = s.store.Driver()
	}
	return st
}
