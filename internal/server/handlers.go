package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"painelpib/internal/loader"
	"painelpib/internal/present"
	"painelpib/internal/query"
)

type statusResponse struct {
	Status          query.Status     `json:"status"`
	Loaded          bool             `json:"loaded"`
	Series          string           `json:"series,omitempty"`
	Variables       []string         `json:"variables,omitempty"`
	DefaultVariable string           `json:"default_variable,omitempty"`
	Panorama        string           `json:"panorama,omitempty"`
	Entities        int              `json:"entities"`
	Records         int              `json:"records"`
	Overwrites      int              `json:"overwrites"`
	Rows            *loader.RowStats `json:"rows,omitempty"`
	LoadedAt        *time.Time       `json:"loaded_at,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: s.sess.Status()}
	if snap, err := s.sess.Snapshot(); err == nil {
		v := snap.DefaultVariable
		resp.Loaded = true
		resp.Series = snap.Series
		resp.Variables = snap.Variables
		resp.DefaultVariable = v
		resp.Panorama = present.PanoramaStatus(v, snap.Series, snap.Years(v))
		resp.Entities = snap.Index.Len()
		resp.Records = len(snap.Records)
		resp.Overwrites = snap.Cube.Overwrites()
		resp.Rows = &snap.Rows
		resp.LoadedAt = &snap.LoadedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

type yearsResponse struct {
	Variable string `json:"variable"`
	Series   string `json:"series"`
	Years    []int  `json:"years"`
	Status   string `json:"status"`
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	years := snap.Years(sel.Variable)
	if years == nil {
		years = []int{}
	}
	writeJSON(w, http.StatusOK, yearsResponse{
		Variable: sel.Variable,
		Series:   snap.Series,
		Years:    years,
		Status:   present.PanoramaStatus(sel.Variable, snap.Series, years),
	})
}

type rankingResponse struct {
	query.RankingView
	Meta string `json:"meta"`
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	v := snap.Ranking(sel.Variable, sel.Year, sel.TopN)
	writeJSON(w, http.StatusOK, rankingResponse{
		RankingView: v,
		Meta:        present.RankingMeta(v.Variable, v.Series, v.Year, v.TopN, v.NoData),
	})
}

func (s *Server) handleRace(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Race(sel.Variable, sel.TopN))
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Map(sel.Variable))
}

type seriesResponse struct {
	query.SeriesView
	Status string `json:"status"`
	Meta   string `json:"meta"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	v := snap.Timeline(sel.Variable, sel.Codes, sel.ShowMean)
	writeJSON(w, http.StatusOK, seriesResponse{
		SeriesView: v,
		Status:     present.SeriesStatus(v.Variable, v.Series, v.Years, len(v.Lines)),
		Meta:       present.SeriesMeta(v.Variable, v.Series, v.Names()),
	})
}

func (s *Server) handleSeriesRows(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.SeriesRows(sel.Variable, sel.Codes))
}

func (s *Server) handleMunicipalities(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, query.FilterOptions(snap.Municipalities(sel.Variable), sel.Search))
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snap.Totals(sel.Variable))
}

func (s *Server) mapOptions(snap *query.Snapshot) present.MapOptions {
	return present.MapOptions{
		Region:       s.opts.Region,
		FeatureIDKey: s.opts.FeatureIDKey,
		GeoJSON:      snap.Geometry.Raw,
	}
}

func (s *Server) handleMapFigure(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, present.MapFigure(snap.Map(sel.Variable), s.mapOptions(snap)))
}

func (s *Server) handleRaceFigure(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, present.RaceFigure(snap.Race(sel.Variable, sel.TopN)))
}

func (s *Server) handleSeriesFigure(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, present.SeriesFigure(snap.Timeline(sel.Variable, sel.Codes, sel.ShowMean)))
}

func (s *Server) handleGeometry(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sess.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(snap.Geometry.Raw)
}

// handleReload outlives the client connection. The session timeout still bounds the load.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.sess.Load(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.sess.Status())
	case errors.Is(err, query.ErrReloadInProgress):
		writeError(w, http.StatusConflict, err)
	default:
		s.log.Warn().Err(err).Msg("reload failed")
		writeJSON(w, http.StatusBadGateway, s.sess.Status())
	}
}
