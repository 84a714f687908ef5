// Package api provides the HTTP REST API server for graintel.
//
// It exposes the scoring engine, the indicators and alerts of the newest
// signals file, the backtest summary, the rendered daily reports and the
// Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/seenimoa/graintel/internal/analysis/engine"
	"github.com/seenimoa/graintel/internal/analysis/macro"
	"github.com/seenimoa/graintel/internal/config"
	"github.com/seenimoa/graintel/internal/infra"
	"github.com/seenimoa/graintel/internal/storage"
	"github.com/seenimoa/graintel/pkg/models"
)

// maxBodyBytes caps POST bodies.
const maxBodyBytes = 10 << 20

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	cache   *infra.Cache[models.Indicators] // keyed by signals file path and mtime
	version string
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithClock overrides the clock used for GeneratedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	srv := &Server{
		cfg:     cfg,
		cache:   infra.NewCache[models.Indicators](5 * time.Minute),
		version: "dev",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/reports/{date}", s.handleReportHTML)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Core scoring contract
		r.Post("/score", s.handleScore)

		// Latest signals file
		r.Get("/indicators", s.handleIndicators)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/macro", s.handleMacro)
		r.Get("/signals", s.handleSignalFiles)

		r.Get("/backtest", s.handleBacktest)
	})

	return r
}

// ════════════════════════════════════════════════════════════════════
// Request / Response types
// ════════════════════════════════════════════════════════════════════

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ScoreRequest is the body of POST /api/v1/score. Articles are loosely
// typed: missing fields take their defaults and unknown categories fall back
// to other/neutral.
type ScoreRequest struct {
	Articles []map[string]any `json:"articles"`
}

// IndicatorsResponse wraps indicators with the signals file they came from.
type IndicatorsResponse struct {
	Date string `json:"date,omitempty"`
	models.Indicators
}

// AlertsResponse lists the alert rows of a signals file.
type AlertsResponse struct {
	Date        string                 `json:"date"`
	MinSeverity models.Severity        `json:"min_severity"`
	Count       int                    `json:"count"`
	Alerts      []models.ArticleRecord `json:"alerts"`
}

// MacroResponse is the macro indicator with the article count per theme.
type MacroResponse struct {
	Date   string               `json:"date"`
	Score  models.MacroScore    `json:"score"`
	Counts map[models.Theme]int `json:"counts"`
}

// SignalFileInfo is one signals file on disk.
type SignalFileInfo struct {
	Date string `json:"date"`
	Path string `json:"path"`
}

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    s.now().UTC().Format(time.RFC3339),
	}
	if latest, err := storage.LatestSignals(s.cfg.Pipeline.DataDir); err == nil {
		data["latest_signals"] = latest.Date.Format(storage.DateLayout)
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	records := make([]models.ArticleRecord, 0, len(req.Articles))
	for _, m := range req.Articles {
		records = append(records, models.ArticleFromMap(m))
	}

	ind, err := engine.Compute(r.Context(), records, engine.Options{
		Workers: s.cfg.Pipeline.ScoreWorkers,
		Now:     s.now,
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: IndicatorsResponse{Indicators: ind}})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	date, ind, ok := s.loadIndicators(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: IndicatorsResponse{Date: date, Indicators: ind}})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	min := models.SeverityWatch
	if raw := r.URL.Query().Get("min"); raw != "" {
		min = models.ParseSeverity(raw)
		if !strings.EqualFold(string(min), strings.TrimSpace(raw)) {
			writeError(w, http.StatusBadRequest, "min must be one of none, info, watch, critical")
			return
		}
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	date, ind, ok := s.loadIndicators(w, r)
	if !ok {
		return
	}
	rows := ind.AlertRows(min)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []models.ArticleRecord{}
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    AlertsResponse{Date: date, MinSeverity: min, Count: len(rows), Alerts: rows},
	})
}

func (s *Server) handleMacro(w http.ResponseWriter, r *http.Request) {
	date, ind, ok := s.loadIndicators(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: MacroResponse{
			Date:   date,
			Score:  ind.Macro,
			Counts: macro.CountByTheme(macro.SelectMacro(ind.Articles)),
		},
	})
}

func (s *Server) handleSignalFiles(w http.ResponseWriter, r *http.Request) {
	files, err := storage.ListSignalFiles(s.cfg.Pipeline.DataDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]SignalFileInfo, 0, len(files))
	for i := len(files) - 1; i >= 0; i-- {
		out = append(out, SignalFileInfo{Date: files[i].Date.Format(storage.DateLayout), Path: files[i].Path})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	summary, err := storage.LoadSummary(s.cfg.Backtest.SummaryPath)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no backtest summary yet, run `graintel backtest`")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if r.URL.Query().Get("signals") != "true" {
		summary.Signals = nil
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: summary})
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse(storage.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	path := filepath.Join(s.cfg.Pipeline.ReportDir, "daily_"+date+".html")
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "no report for "+date)
		return
	}
	http.ServeFile(w, r, path)
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

// loadIndicators scores the signals file selected by ?date= (newest by
// default). On failure it writes the error response and returns false.
func (s *Server) loadIndicators(w http.ResponseWriter, r *http.Request) (string, models.Indicators, bool) {
	file, err := s.selectSignals(r.URL.Query().Get("date"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, storage.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, errBadDate):
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return "", models.Indicators{}, false
	}
	date := file.Date.Format(storage.DateLayout)

	info, err := os.Stat(file.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("signals for %s not found", date))
		return "", models.Indicators{}, false
	}
	key := file.Path + "@" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	if ind, ok := s.cache.Get(key); ok {
		return date, ind, true
	}

	records, err := storage.LoadSignals(file.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return "", models.Indicators{}, false
	}
	ind, err := engine.Compute(r.Context(), records, engine.Options{
		Workers: s.cfg.Pipeline.ScoreWorkers,
		Now:     s.now,
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return "", models.Indicators{}, false
	}
	s.cache.Set(key, ind)
	return date, ind, true
}

var errBadDate = errors.New("date must be YYYY-MM-DD")

func (s *Server) selectSignals(date string) (storage.SignalFile, error) {
	if date == "" {
		f, err := storage.LatestSignals(s.cfg.Pipeline.DataDir)
		if err != nil {
			return storage.SignalFile{}, fmt.Errorf("no signals file yet, run `graintel daily`: %w", err)
		}
		return f, nil
	}
	d, err := time.Parse(storage.DateLayout, date)
	if err != nil {
		return storage.SignalFile{}, errBadDate
	}
	path := filepath.Join(s.cfg.Pipeline.DataDir, storage.SignalsFileName(d))
	if _, err := os.Stat(path); err != nil {
		return storage.SignalFile{}, fmt.Errorf("%w: signals for %s", storage.ErrNotFound, date)
	}
	return storage.SignalFile{Path: path, Date: d}, nil
}

// requestLogger logs each request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
