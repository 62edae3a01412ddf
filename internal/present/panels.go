package present

import (
	"encoding/json"
	"fmt"
	"strconv"

	"painelpib/internal/query"
)

const (
	titleNoData    = "Sem dados"
	titleNoSeries  = "Selecione municípios e filtros."
	ptBRSeparators = ".,"
)

func yearAnnotation(year int, y float64) []Annotation {
	return []Annotation{{
		Text:        fmt.Sprintf("Ano: <b>%d</b>", year),
		X:           0.99,
		Y:           y,
		XRef:        "paper",
		YRef:        "paper",
		XAnchor:     "right",
		YAnchor:     "top",
		BGColor:     "rgba(255,255,255,0.75)",
		BorderColor: "rgba(0,0,0,0.20)",
		BorderWidth: 1,
		Font:        Font{Size: 12},
	}}
}

func playPause(playMs int, y float64) []UpdateMenu {
	return []UpdateMenu{{
		Type:      "buttons",
		Direction: "left",
		X:         0.02,
		Y:         y,
		XAnchor:   "left",
		YAnchor:   "bottom",
		Buttons: []Button{
			{Label: "Play", Method: "animate", Args: []any{nil, AnimateOptions{
				FromCurrent: true,
				Frame:       FrameOpts{Duration: playMs, Redraw: true},
			}}},
			{Label: "Pause", Method: "animate", Args: []any{[]any{nil}, AnimateOptions{
				Mode:  "immediate",
				Frame: FrameOpts{Duration: 0, Redraw: false},
			}}},
		},
	}}
}

func yearSlider(years []int, y float64, pad *Margin) []Slider {
	steps := make([]Step, len(years))
	for i, yr := range years {
		name := strconv.Itoa(yr)
		steps[i] = Step{
			Label:  name,
			Method: "animate",
			Args: []any{[]string{name}, AnimateOptions{
				Mode:  "immediate",
				Frame: FrameOpts{Duration: 0, Redraw: true},
			}},
		}
	}
	return []Slider{{
		X:            0.20,
		Y:            y,
		Len:          0.78,
		XAnchor:      "left",
		YAnchor:      "bottom",
		CurrentValue: CurrentValue{Prefix: "Ano: "},
		Pad:          pad,
		Steps:        steps,
	}}
}

// MapOptions describe the geometry side of the choropleth.
type MapOptions struct {
	Region       string
	FeatureIDKey string
	GeoJSON      json.RawMessage
}

// MapFigure is the animated choropleth: one frame per year, each with its own color bounds.
func MapFigure(v query.MapView, opts MapOptions) Figure {
	if v.NoData {
		return Empty(titleNoData)
	}
	first := v.Frames[0]
	frames := make([]Frame, len(v.Frames))
	for i, f := range v.Frames {
		cmin, cmax := f.Scale.Min, f.Scale.Max
		frames[i] = Frame{
			Name: strconv.Itoa(f.Year),
			Data: []Trace{{Z: f.Values, Meta: f.Year}},
			Layout: &Layout{
				ColorAxis:   &ColorAxis{CMin: &cmin, CMax: &cmax},
				Annotations: yearAnnotation(f.Year, 0.99),
			},
		}
	}

	trace := Trace{
		Type:         "choropleth",
		GeoJSON:      opts.GeoJSON,
		FeatureIDKey: opts.FeatureIDKey,
		Locations:    v.Codes,
		Z:            first.Values,
		Text:         v.Names,
		Meta:         first.Year,
		ColorAxis:    "coloraxis",
		HoverTemplate: "<b>%{text}</b><br>" +
			"Ano: %{meta}<br>" +
			"Valor: R$ %{z:,.0f}<extra></extra>",
	}
	cmin, cmax := first.Scale.Min, first.Scale.Max
	layout := Layout{
		Title:      &Title{Text: fmt.Sprintf("%s — %s (%s)", opts.Region, v.Variable, v.Series), X: 0.02, XAnchor: "left", Font: &Font{Size: 14}},
		Height:     520,
		Margin:     &Margin{L: 10, R: 10, T: 88, B: 0},
		Separators: ptBRSeparators,
		Geo:        &Geo{FitBounds: "locations", Visible: false},
		ColorAxis: &ColorAxis{
			ColorScale: "Viridis",
			ColorBar:   &ColorBar{Title: "R$ (escala por ano: p05–p95)"},
			CMin:       &cmin,
			CMax:       &cmax,
		},
		Annotations: yearAnnotation(first.Year, 0.99),
		UpdateMenus: playPause(700, 0.02),
		Sliders:     yearSlider(v.Years, 0.02, nil),
	}
	return Figure{Data: []Trace{trace}, Layout: layout, Frames: frames}
}

func raceTrace(rows []query.RankRow, year int) Trace {
	n := len(rows)
	x := make([]float64, n)
	y := make([]string, n)
	custom := make([][]string, n)
	// bars are drawn bottom-up, so the leader goes last
	for i, r := range rows {
		j := n - 1 - i
		x[j] = r.Value
		y[j] = r.Name
		custom[j] = []string{r.Code}
	}
	return Trace{X: x, Y: y, CustomData: custom, Meta: year}
}

// RaceFigure is the animated horizontal bar ranking with a fixed value axis.
func RaceFigure(v query.RaceView) Figure {
	if v.NoData {
		return Empty(titleNoData)
	}
	frames := make([]Frame, len(v.Frames))
	for i, f := range v.Frames {
		frames[i] = Frame{
			Name:   strconv.Itoa(f.Year),
			Data:   []Trace{raceTrace(f.Rows, f.Year)},
			Layout: &Layout{Annotations: yearAnnotation(f.Year, 0.98)},
		}
	}

	first := v.Frames[0]
	trace := raceTrace(first.Rows, first.Year)
	trace.Type = "bar"
	trace.Orientation = "h"
	trace.HoverTemplate = "<b>%{y}</b><br>" +
		"Ano: %{meta}<br>" +
		"Código: %{customdata[0]}<br>" +
		"Valor: R$ %{x:,.0f}<extra></extra>"

	noMargin := false
	layout := Layout{
		Title:      &Title{Text: fmt.Sprintf("Top %d — %s (%s)", v.TopN, v.Variable, v.Series), X: 0.02, XAnchor: "left", Font: &Font{Size: 14}},
		Height:     560,
		Margin:     &Margin{L: 260, R: 10, T: 78, B: 125},
		Separators: ptBRSeparators,
		XAxis: &Axis{
			Title:      "R$",
			TickFormat: ",.0f",
			Range:      []float64{0, v.XMax},
			FixedRange: true,
		},
		YAxis: &Axis{
			AutoMargin: &noMargin,
			FixedRange: true,
			TickFont:   &Font{Size: 11},
		},
		Annotations: yearAnnotation(first.Year, 0.98),
		UpdateMenus: playPause(650, 0),
		Sliders:     yearSlider(v.Years, 0, &Margin{}),
	}
	return Figure{Data: []Trace{trace}, Layout: layout, Frames: frames}
}

// SeriesFigure draws one line per entity, then the optional yearly mean, the period mean (dotted) and
// the trend of the yearly mean (dashed).
func SeriesFigure(v query.SeriesView) Figure {
	if v.NoData {
		return Empty(titleNoSeries)
	}
	traces := make([]Trace, 0, len(v.Lines)+3)
	for _, l := range v.Lines {
		traces = append(traces, Trace{
			Type:          "scatter",
			Mode:          "lines",
			Name:          l.Name,
			X:             v.Years,
			Y:             l.Values,
			HoverTemplate: "<b>%{fullData.name}</b><br>Ano: %{x}<br>Valor: R$ %{y:,.0f}<extra></extra>",
		})
	}
	if v.ShowMean {
		traces = append(traces, Trace{
			Type:          "scatter",
			Mode:          "lines",
			Name:          "Média anual (selecionados)",
			X:             v.Years,
			Y:             v.Mean,
			Line:          &Line{Width: 4},
			HoverTemplate: "Ano: %{x}<br>Média anual: R$ %{y:,.0f}<extra></extra>",
		})
	}
	if v.PeriodMean.Valid {
		flat := make([]float64, len(v.Years))
		for i := range flat {
			flat[i] = v.PeriodMean.V
		}
		traces = append(traces, Trace{
			Type:          "scatter",
			Mode:          "lines",
			Name:          "Média do período (reta)",
			X:             v.Years,
			Y:             flat,
			Line:          &Line{Dash: "dot", Width: 3},
			HoverTemplate: "Ano: %{x}<br>Média do período: R$ %{y:,.0f}<extra></extra>",
		})
	}
	if v.Trend != nil {
		traces = append(traces, Trace{
			Type:          "scatter",
			Mode:          "lines",
			Name:          "Tendência (OLS) da média anual",
			X:             v.Years,
			Y:             v.Trend,
			Line:          &Line{Dash: "dash", Width: 3},
			HoverTemplate: "Ano: %{x}<br>Tendência: R$ %{y:,.0f}<extra></extra>",
		})
	}

	auto := true
	return Figure{
		Data: traces,
		Layout: Layout{
			Title:      &Title{Text: fmt.Sprintf("Série temporal — %s (%s)", v.Variable, v.Series)},
			Height:     620,
			Margin:     &Margin{L: 95, R: 20, T: 60, B: 55},
			Separators: ptBRSeparators,
			HoverMode:  "x unified",
			XAxis:      &Axis{Title: "Ano", AutoMargin: &auto},
			YAxis:      &Axis{Title: "R$", AutoMargin: &auto, TickFormat: ",.0f"},
		},
	}
}
