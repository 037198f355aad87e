package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hyperdash/internal/app"
	"hyperdash/internal/domain"
	"hyperdash/internal/metrics"
	"hyperdash/internal/ports"
)

// Server exposes the dashboard over a JSON HTTP API.
type Server struct {
	service  *app.DashboardService
	settings ports.SettingsRepository
	stats    ports.StatsRepository
	metrics  *metrics.Metrics
	logger   ports.Logger
	httpSrv  *http.Server
}

// Config holds configuration for the HTTP server.
type Config struct {
	Addr     string
	Service  *app.DashboardService
	Settings ports.SettingsRepository
	Stats    ports.StatsRepository
	Metrics  *metrics.Metrics
	Logger   ports.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil || cfg.Settings == nil || cfg.Stats == nil || cfg.Metrics == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for web server")
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		service:  cfg.Service,
		settings: cfg.Settings,
		stats:    cfg.Stats,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analysis", s.instrument("/api/analysis", s.handleAnalysis))
	mux.HandleFunc("/api/settings", s.instrument("/api/settings", s.handleSettings))
	mux.HandleFunc("/api/target", s.instrument("/api/target", s.handleTarget))
	mux.HandleFunc("/api/streak", s.instrument("/api/streak", s.handleStreak))
	mux.HandleFunc("/api/today", s.instrument("/api/today", s.handleToday))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", cfg.Metrics.Handler())

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.httpSrv.Addr})
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument wraps a handler with request logging and metrics.
func (s *Server) instrument(path string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(rec.status)).Inc()
		s.logger.Debug(r.Context(), "HTTP request", map[string]interface{}{
			"method": r.Method, "path": path, "status": rec.status,
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(context.Background(), err, "Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// analysisResponse is the payload of GET /api/analysis.
type analysisResponse struct {
	AsOf                time.Time
	AccountValue        float64
	TotalMarginUsed     float64
	TotalExpectedProfit float64
	TotalExpectedLoss   float64
	Positions           interface{}
	Mids                map[string]float64
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, ok := s.service.LatestSnapshot()
	if !ok {
		s.writeError(w, http.StatusServiceUnavailable, "no data yet")
		return
	}

	// Trim the live mid map to the coins actually held.
	mids := s.service.Mids()
	held := make(map[string]float64, len(snap.Analysis.Positions))
	for _, pa := range snap.Analysis.Positions {
		if mid, ok := mids[pa.Coin]; ok {
			held[pa.Coin] = mid
		}
	}

	s.writeJSON(w, http.StatusOK, analysisResponse{
		AsOf:                snap.AsOf,
		AccountValue:        snap.AccountValue,
		TotalMarginUsed:     snap.TotalMarginUsed,
		TotalExpectedProfit: snap.Analysis.TotalExpectedProfit,
		TotalExpectedLoss:   snap.Analysis.TotalExpectedLoss,
		Positions:           snap.Analysis.Positions,
		Mids:                held,
	})
}

// feeSettingsPayload is the request/response body for /api/settings.
type feeSettingsPayload struct {
	TakerFeePercent float64
	MakerFeePercent float64
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		fees, err := s.settings.GetFeeSettings(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to load settings")
			return
		}
		s.writeJSON(w, http.StatusOK, feeSettingsPayload{
			TakerFeePercent: fees.TakerFeePercent,
			MakerFeePercent: fees.MakerFeePercent,
		})

	case http.MethodPut:
		var payload feeSettingsPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if payload.TakerFeePercent < 0 || payload.MakerFeePercent < 0 {
			s.writeError(w, http.StatusBadRequest, "fee percentages cannot be negative")
			return
		}
		fees := domain.FeeSettings{
			TakerFeePercent: payload.TakerFeePercent,
			MakerFeePercent: payload.MakerFeePercent,
		}
		if err := s.settings.SaveFeeSettings(r.Context(), fees); err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
		s.writeJSON(w, http.StatusOK, payload)

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// targetPayload is the request/response body for /api/target.
type targetPayload struct {
	TargetUSD float64
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		target, err := s.settings.GetDailyTarget(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to load target")
			return
		}
		s.writeJSON(w, http.StatusOK, targetPayload{TargetUSD: target})

	case http.MethodPut:
		var payload targetPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if payload.TargetUSD <= 0 {
			s.writeError(w, http.StatusBadRequest, "target must be positive")
			return
		}
		if err := s.settings.SaveDailyTarget(r.Context(), payload.TargetUSD); err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to save target")
			return
		}
		s.writeJSON(w, http.StatusOK, payload)

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	streak, err := s.stats.GetStreak(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load streak")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{
		"current": streak.Current,
		"best":    streak.Best,
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stat, err := s.stats.GetDailyStat(r.Context(), domain.DayKey(time.Now()))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load daily stat")
		return
	}
	if stat == nil {
		s.writeError(w, http.StatusNotFound, "no data for today yet")
		return
	}
	s.writeJSON(w, http.StatusOK, stat)
}
