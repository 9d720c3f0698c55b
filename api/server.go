// Package api provides the HTTP REST API server for bazaar.
//
// It exposes the market snapshot, movers, sector performance, instrument
// profile, chart, search and trending endpoints, plus a WebSocket stream
// of periodic snapshots.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/bazaar/internal/config"
	"github.com/seenimoa/bazaar/internal/engine"
	"github.com/seenimoa/bazaar/internal/infra"
	"github.com/seenimoa/bazaar/internal/logging"
	"github.com/seenimoa/bazaar/internal/render"
	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// Service is the read surface of the aggregation engine.
type Service interface {
	GetMarketSnapshot(ctx context.Context) (*models.MarketSnapshot, error)
	GetVix(ctx context.Context) (*models.IndexQuote, error)
	GetMovers(ctx context.Context, indexKey string, period models.Period, limit int) (*models.Movers, error)
	GetSectorPerformance(ctx context.Context, period models.Period) (*models.SectorPerformance, error)
	GetProfile(ctx context.Context, symbol string) (*models.InstrumentProfile, error)
	GetQuote(ctx context.Context, symbol string, period models.Period) (*models.WatchQuote, error)
	GetChartSeries(ctx context.Context, symbol string, period models.Period) (*models.ChartSeries, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	Trending(ctx context.Context, limit int) ([]models.SearchResult, error)
	Constituents(ctx context.Context, indexKey string) (models.ConstituentSet, error)
}

var _ Service = (*engine.Engine)(nil)

// DefaultMoversIndex is used when a movers request names no index.
const DefaultMoversIndex = "NIFTY50"

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	svc     Service
	wsHub   *WSHub
	log     *logging.Entry
	now     infra.Clock
	version string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *logging.Log) ServerOption {
	return func(s *Server) { s.log = l.WithComponent("api") }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) ServerOption {
	return func(s *Server) { s.version = v }
}

// WithClock sets the clock used for the health market status.
func WithClock(c infra.Clock) ServerOption {
	return func(s *Server) { s.now = c }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, svc Service, opts ...ServerOption) *Server {
	srv := &Server{
		cfg:     cfg,
		svc:     svc,
		log:     logging.Discard().WithComponent("api"),
		now:     infra.SystemClock,
		version: "dev",
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.wsHub = NewWSHub(srv.log)
	srv.router = srv.buildRouter()
	return srv
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the HTTP server and, when enabled, the snapshot
// stream. It returns after SIGINT/SIGTERM or ctx cancellation once the
// server has shut down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:         s.cfg.API.Addr(),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.wsHub.Run(ctx)
	if s.cfg.Stream.Enabled {
		go s.runStream(ctx, s.cfg.Stream.Interval())
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", httpSrv.Addr).Info("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	s.log.Info("shutting down server")

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
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleGetConfig)

		// Market
		r.Get("/market/snapshot", s.handleSnapshot)
		r.Get("/market/vix", s.handleVix)
		r.Get("/market/movers", s.handleMovers)
		r.Get("/market/sectors", s.handleSectors)

		// Instruments
		r.Get("/stocks/{symbol}/profile", s.handleProfile)
		r.Get("/stocks/{symbol}/quote", s.handleQuote)
		r.Get("/stocks/{symbol}/chart", s.handleChart)
		r.Get("/stocks/{symbol}/chart.png", s.handleChartPNG)

		// Discovery
		r.Get("/search", s.handleSearch)
		r.Get("/trending", s.handleTrending)
		r.Get("/constituents/{index}", s.handleConstituents)

		// WebSocket
		r.Get("/stream", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthInfo is the payload of /health.
type HealthInfo struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	MarketStatus string `json:"market_status"`
	TradingDate  string `json:"trading_date"`
	SessionOpen  string `json:"session_open"`
	SessionClose string `json:"session_close"`
	TimeIST      string `json:"time_ist"`
	WSClients    int    `json:"ws_clients"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: HealthInfo{
			Status:       "ok",
			Version:      s.version,
			MarketStatus: utils.MarketSessionAt(now),
			TradingDate:  utils.FormatDateIST(now),
			SessionOpen:  utils.MarketOpenTime(now).Format("15:04"),
			SessionClose: utils.MarketCloseTime(now).Format("15:04"),
			TimeIST:      utils.FormatDateTimeIST(now),
			WSClients:    s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	snap, err := s.svc.GetMarketSnapshot(ctx)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: snap})
}

func (s *Server) handleVix(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	vix, err := s.svc.GetVix(ctx)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: vix})
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	index := strings.TrimSpace(r.URL.Query().Get("index"))
	if index == "" {
		index = DefaultMoversIndex
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	movers, err := s.svc.GetMovers(ctx, index, period, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: movers})
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	perf, err := s.svc.GetSectorPerformance(ctx, period)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: perf})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	profile, err := s.svc.GetProfile(ctx, chi.URLParam(r, "symbol"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: profile})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	q, err := s.svc.GetQuote(ctx, chi.URLParam(r, "symbol"), period)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: q})
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	series, err := s.svc.GetChartSeries(ctx, chi.URLParam(r, "symbol"), period)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: series})
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	period, ok := parsePeriod(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	series, err := s.svc.GetChartSeries(ctx, chi.URLParam(r, "symbol"), period)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	img, err := render.ChartPNG(series, 0, 0)
	if errors.Is(err, render.ErrTooFewPoints) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	results, err := s.svc.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	results, err := s.svc.Trending(ctx, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

func (s *Server) handleConstituents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	set, err := s.svc.Constituents(ctx, chi.URLParam(r, "index"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: set})
}

// ============================================================
// Helpers
// ============================================================

func (s *Server) requestTimeout() time.Duration {
	timeout := time.Duration(s.cfg.API.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return timeout
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout())
}

func parsePeriod(w http.ResponseWriter, r *http.Request) (models.Period, bool) {
	p, err := models.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return p, true
}

// parseLimit reads the optional limit parameter. Absent means 0, which the
// engine replaces with its default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// statusFor maps the engine error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidArgument), errors.Is(err, models.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, engine.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Warn("request failed")
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
