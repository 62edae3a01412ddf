// Package server exposes a session over HTTP: JSON views, Plotly figures, file exports, reload and
// Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"painelpib/internal/metrics"
	"painelpib/internal/query"
)

// Options carries the presentation settings of the dashboard.
type Options struct {
	Region       string
	FeatureIDKey string
	Limits       query.Limits
}

// Server routes requests to the current session snapshot.
type Server struct {
	sess    *query.Session
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics
	mux     *http.ServeMux
}

// New builds the routes. m may be nil, which disables /metrics and request accounting.
func New(sess *query.Session, opts Options, log zerolog.Logger, m *metrics.Metrics) *Server {
	if opts.Limits == (query.Limits{}) {
		opts.Limits = query.DefaultLimits
	}
	s := &Server{sess: sess, opts: opts, log: log, metrics: m, mux: http.NewServeMux()}

	s.handle("GET /api/status", s.handleStatus)
	s.handle("GET /api/years", s.handleYears)
	s.handle("GET /api/ranking", s.handleRanking)
	s.handle("GET /api/race", s.handleRace)
	s.handle("GET /api/map", s.handleMap)
	s.handle("GET /api/series", s.handleSeries)
	s.handle("GET /api/series/rows", s.handleSeriesRows)
	s.handle("GET /api/municipalities", s.handleMunicipalities)
	s.handle("GET /api/totals", s.handleTotals)
	s.handle("GET /api/figures/map", s.handleMapFigure)
	s.handle("GET /api/figures/race", s.handleRaceFigure)
	s.handle("GET /api/figures/series", s.handleSeriesFigure)
	s.handle("GET /api/export/ranking.doc", s.handleRankingDoc)
	s.handle("GET /api/export/ranking.xlsx", s.handleRankingXLSX)
	s.handle("GET /api/export/ranking.png", s.handleRankingPNG)
	s.handle("GET /api/export/series.doc", s.handleSeriesDoc)
	s.handle("GET /api/export/series.xlsx", s.handleSeriesXLSX)
	s.handle("GET /api/export/series.png", s.handleSeriesPNG)
	s.handle("GET /api/export/map.png", s.handleMapPNG)
	s.handle("GET /api/export/report.md", s.handleReport)
	s.handle("GET /geometry", s.handleGeometry)
	s.handle("POST /api/reload", s.handleReload)
	if m != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.ObserveRequest(pattern, rec.code, elapsed)
		}
		s.log.Debug().Str("route", pattern).Int("code", rec.code).Dur("elapsed", elapsed).Msg("request")
	})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("🌐 serving dashboard API")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorBody{Error: err.Error()})
}
