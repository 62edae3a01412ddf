package server

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"painelpib/internal/export"
	"painelpib/internal/query"
)

// sendFile renders into a buffer first so a failed render still yields a clean error response.
func sendFile(w http.ResponseWriter, name, contentType string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, export.ErrNoData) || errors.Is(err, export.ErrNoSelection) {
			code = http.StatusBadRequest
		}
		writeError(w, code, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func pngRender(p *plot.Plot, err error, width, height vg.Length) func(*bytes.Buffer) error {
	return func(b *bytes.Buffer) error {
		if err != nil {
			return err
		}
		return export.WritePNG(b, p, width, height)
	}
}

func (s *Server) ranking(w http.ResponseWriter, r *http.Request) (query.RankingView, bool) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return query.RankingView{}, false
	}
	return snap.Ranking(sel.Variable, sel.Year, sel.TopN), true
}

func (s *Server) handleRankingDoc(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ranking(w, r)
	if !ok {
		return
	}
	d := export.RankingDocument(v, s.opts.Region)
	sendFile(w, d.Filename(".doc"), export.DocContentType, func(b *bytes.Buffer) error {
		return export.WriteDoc(b, d)
	})
}

func (s *Server) handleRankingXLSX(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ranking(w, r)
	if !ok {
		return
	}
	name := export.RankingDocument(v, s.opts.Region).Filename(".xlsx")
	sendFile(w, name, export.XLSXContentType, func(b *bytes.Buffer) error {
		return export.WriteWorkbook(b, export.Workbook{Ranking: &v})
	})
}

func (s *Server) handleRankingPNG(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ranking(w, r)
	if !ok {
		return
	}
	name := export.RankingDocument(v, s.opts.Region).Filename(".png")
	p, err := export.RankingChart(v)
	sendFile(w, name, "image/png", pngRender(p, err, export.RankingWidth, export.RankingHeight))
}

// seriesSelection is the series view, its table rows and the document describing both.
type seriesSelection struct {
	view query.SeriesView
	rows []query.SeriesRow
	doc  export.Document
}

func (s *Server) seriesSelection(w http.ResponseWriter, r *http.Request) (seriesSelection, bool) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return seriesSelection{}, false
	}
	view := snap.Timeline(sel.Variable, sel.Codes, sel.ShowMean)
	rows := snap.SeriesRows(sel.Variable, sel.Codes)
	doc, err := export.SeriesDocument(view.Variable, view.Series, s.opts.Region, view.Names(), rows)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return seriesSelection{}, false
	}
	return seriesSelection{view: view, rows: rows, doc: doc}, true
}

func (s *Server) handleSeriesDoc(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.seriesSelection(w, r)
	if !ok {
		return
	}
	sendFile(w, ss.doc.Filename(".doc"), export.DocContentType, func(b *bytes.Buffer) error {
		return export.WriteDoc(b, ss.doc)
	})
}

func (s *Server) handleSeriesXLSX(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.seriesSelection(w, r)
	if !ok {
		return
	}
	sendFile(w, ss.doc.Filename(".xlsx"), export.XLSXContentType, func(b *bytes.Buffer) error {
		return export.WriteWorkbook(b, export.Workbook{Series: &ss.view, Rows: ss.rows})
	})
}

func (s *Server) handleSeriesPNG(w http.ResponseWriter, r *http.Request) {
	ss, ok := s.seriesSelection(w, r)
	if !ok {
		return
	}
	p, err := export.SeriesChart(ss.view)
	sendFile(w, ss.doc.Filename(".png"), "image/png", pngRender(p, err, export.SeriesWidth, export.SeriesHeight))
}

func (s *Server) handleMapPNG(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	v := snap.Map(sel.Variable)
	name := export.SanitizeFilename(fmt.Sprintf("mapa_%s_%s_%s_%d", s.opts.Region, v.Variable, v.Series, sel.Year)) + ".png"
	p, err := export.MapChart(v, sel.Year, snap.Geometry.Shapes, s.opts.Region)
	sendFile(w, name, "image/png", pngRender(p, err, export.MapWidth, export.MapHeight))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	snap, sel, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	rep := export.Report{
		Region:    s.opts.Region,
		Ranking:   snap.Ranking(sel.Variable, sel.Year, sel.TopN),
		Series:    snap.Timeline(sel.Variable, sel.Codes, true),
		Totals:    snap.Totals(sel.Variable),
		Rows:      snap.Rows,
		Generated: time.Now(),
	}
	name := export.SanitizeFilename(fmt.Sprintf("relatorio_%s_%s_%s", s.opts.Region, sel.Variable, snap.Series)) + ".md"
	sendFile(w, name, "text/markdown; charset=utf-8", func(b *bytes.Buffer) error {
		return export.WriteReport(b, rep)
	})
}
