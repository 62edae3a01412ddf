package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/twpayne/go-geom"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"painelpib/internal/cube"
	"painelpib/internal/query"
)

// PNG sizes of the three charts.
const (
	MapWidth, MapHeight         = 12 * vg.Inch, 12 * vg.Inch
	RankingWidth, RankingHeight = 16 * vg.Inch, 9 * vg.Inch
	SeriesWidth, SeriesHeight   = 16 * vg.Inch, 9 * vg.Inch
)

// ErrNoData is returned when the requested chart has nothing to draw.
var ErrNoData = errors.New("sem dados")

// WritePNG encodes p as PNG into w.
func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// RankingChart draws one year's ranking as vertical bars, leader first.
func RankingChart(v query.RankingView) (*plot.Plot, error) {
	if v.NoData || len(v.Rows) == 0 {
		return nil, ErrNoData
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Top %d — %s (%s) — %d", v.TopN, v.Variable, v.Series, v.Year)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Y.Label.Text = "R$"

	values := make(plotter.Values, len(v.Rows))
	labels := make([]string, len(v.Rows))
	max := 0.0
	for i, r := range v.Rows {
		values[i] = r.Value
		labels[i] = r.Name
		max = math.Max(max, r.Value)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 3
	p.X.Tick.Label.YAlign = draw.YCenter
	p.X.Tick.Label.XAlign = draw.XRight

	p.Y.Min = 0
	if max > 0 {
		p.Y.Max = max * 1.15
	}
	for i, val := range values {
		label, err := plotter.NewLabels(plotter.XYLabels{
			XYs:    []plotter.XY{{X: float64(i), Y: val + max*0.02}},
			Labels: []string{FormatCompact(val)},
		})
		if err != nil {
			return nil, err
		}
		p.Add(label)
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// segments splits a series at missing years so gaps stay visible.
func segments(years []int, values []cube.Value) []plotter.XYs {
	var out []plotter.XYs
	var cur plotter.XYs
	for i, y := range years {
		if i >= len(values) || !values[i].Valid {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(y), Y: values[i].V})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func addSeriesLine(p *plot.Plot, name string, years []int, values []cube.Value, style draw.LineStyle) error {
	first := true
	for _, seg := range segments(years, values) {
		var thumb plot.Thumbnailer
		if len(seg) == 1 {
			s, err := plotter.NewScatter(seg)
			if err != nil {
				return err
			}
			s.GlyphStyle.Color = style.Color
			s.GlyphStyle.Radius = vg.Points(3)
			s.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(s)
			thumb = s
		} else {
			l, err := plotter.NewLine(seg)
			if err != nil {
				return err
			}
			l.LineStyle = style
			p.Add(l)
			thumb = l
		}
		if first {
			p.Legend.Add(name, thumb)
			first = false
		}
	}
	return nil
}

// SeriesChart draws the selected entities with the mean and trend lines.
func SeriesChart(v query.SeriesView) (*plot.Plot, error) {
	if v.NoData {
		return nil, ErrNoData
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Série temporal — %s (%s)", v.Variable, v.Series)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.X.Label.Text = "Ano"
	p.Y.Label.Text = "R$"
	p.Legend.Top = true

	for i, l := range v.Lines {
		style := draw.LineStyle{Color: plotutil.Color(i), Width: vg.Points(1.5)}
		if err := addSeriesLine(p, l.Name, v.Years, l.Values, style); err != nil {
			return nil, err
		}
	}
	black := color.RGBA{A: 255}
	if v.ShowMean {
		style := draw.LineStyle{Color: black, Width: vg.Points(4)}
		if err := addSeriesLine(p, "Média anual (selecionados)", v.Years, v.Mean, style); err != nil {
			return nil, err
		}
	}
	if v.PeriodMean.Valid {
		flat := make([]cube.Value, len(v.Years))
		for i := range flat {
			flat[i] = v.PeriodMean
		}
		style := draw.LineStyle{Color: black, Width: vg.Points(3), Dashes: []vg.Length{vg.Points(2), vg.Points(3)}}
		if err := addSeriesLine(p, "Média do período (reta)", v.Years, flat, style); err != nil {
			return nil, err
		}
	}
	if v.Trend != nil {
		trend := make([]cube.Value, len(v.Trend))
		for i, y := range v.Trend {
			trend[i] = cube.Some(y)
		}
		style := draw.LineStyle{Color: color.RGBA{R: 200, G: 30, B: 30, A: 255}, Width: vg.Points(3),
			Dashes: []vg.Length{vg.Points(6), vg.Points(4)}}
		if err := addSeriesLine(p, "Tendência (OLS) da média anual", v.Years, trend, style); err != nil {
			return nil, err
		}
	}
	p.Add(plotter.NewGrid())
	return p, nil
}

// choropleth fills each entity's polygons with the color of its value.
type choropleth struct {
	shapes []geom.T
	values cube.Vector
	colors palette.ColorMap
	empty  color.Color
	edge   draw.LineStyle
}

func (c *choropleth) fill(i int) color.Color {
	if i >= len(c.values) || !c.values[i].Valid {
		return c.empty
	}
	v := math.Min(math.Max(c.values[i].V, c.colors.Min()), c.colors.Max())
	col, err := c.colors.At(v)
	if err != nil {
		return c.empty
	}
	return col
}

func polygons(g geom.T) []*geom.Polygon {
	switch s := g.(type) {
	case *geom.Polygon:
		return []*geom.Polygon{s}
	case *geom.MultiPolygon:
		out := make([]*geom.Polygon, 0, s.NumPolygons())
		for i := 0; i < s.NumPolygons(); i++ {
			out = append(out, s.Polygon(i))
		}
		return out
	}
	return nil
}

// Plot implements plot.Plotter. Only exterior rings are filled.
func (c *choropleth) Plot(dc draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&dc)
	for i, g := range c.shapes {
		if g == nil {
			continue
		}
		col := c.fill(i)
		for _, poly := range polygons(g) {
			if poly.NumLinearRings() == 0 {
				continue
			}
			coords := poly.LinearRing(0).Coords()
			pts := make([]vg.Point, len(coords))
			for j, xy := range coords {
				pts[j] = vg.Point{X: trX(xy.X()), Y: trY(xy.Y())}
			}
			dc.FillPolygon(col, pts)
			dc.StrokeLines(c.edge, pts)
		}
	}
}

// DataRange implements plot.DataRanger.
func (c *choropleth) DataRange() (xmin, xmax, ymin, ymax float64) {
	b := geom.NewBounds(geom.XY)
	for _, g := range c.shapes {
		if g != nil {
			b.Extend(g)
		}
	}
	if b.IsEmpty() {
		return 0, 1, 0, 1
	}
	return b.Min(0), b.Max(0), b.Min(1), b.Max(1)
}

// MapChart draws one year of the choropleth over the entity shapes.
func MapChart(v query.MapView, year int, shapes []geom.T, region string) (*plot.Plot, error) {
	frame, ok := v.Frame(year)
	if v.NoData || !ok {
		return nil, ErrNoData
	}
	cm := moreland.ExtendedKindlmann()
	cm.SetMin(frame.Scale.Min)
	cm.SetMax(frame.Scale.Max)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s — %s (%s) — %d", region, v.Variable, v.Series, year)
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.HideAxes()
	p.Add(&choropleth{
		shapes: shapes,
		values: frame.Values,
		colors: cm,
		empty:  color.RGBA{R: 220, G: 220, B: 220, A: 255},
		edge:   draw.LineStyle{Color: color.RGBA{R: 255, G: 255, B: 255, A: 255}, Width: vg.Points(0.3)},
	})

	legend, err := plotter.NewLabels(plotter.XYLabels{
		XYs: []plotter.XY{{}},
		Labels: []string{fmt.Sprintf("escala por ano (p05–p95): %s a %s",
			FormatBRL(frame.Scale.Min), FormatBRL(frame.Scale.Max))},
	})
	if err != nil {
		return nil, err
	}
	xmin, _, ymin, _ := (&choropleth{shapes: shapes}).DataRange()
	legend.XYs[0] = plotter.XY{X: xmin, Y: ymin}
	p.Add(legend)
	return p, nil
}
