package query

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"painelpib/internal/cube"
	"painelpib/internal/stats"
)

// RankRow is one line of a ranking.
type RankRow struct {
	Rank  int     `json:"rank"`
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// RankingView is the ranked top-N of one year.
type RankingView struct {
	Variable string    `json:"variable"`
	Series   string    `json:"series"`
	Year     int       `json:"year"`
	TopN     int       `json:"top_n"`
	Rows     []RankRow `json:"rows"`
	NoData   bool      `json:"no_data"`
}

func (s *Snapshot) rank(vec cube.Vector, n int) []RankRow {
	top := stats.TopN(vec, n)
	rows := make([]RankRow, len(top))
	for i, it := range top {
		e := s.Index.At(it.Index)
		rows[i] = RankRow{Rank: i + 1, Code: e.Code, Name: e.Name, Value: it.Value}
	}
	return rows
}

// Ranking ranks variable at year. A year without data yields NoData, not an error.
func (s *Snapshot) Ranking(variable string, year, topN int) RankingView {
	v := RankingView{Variable: variable, Series: s.Series, Year: year, TopN: topN, Rows: []RankRow{}}
	vec, ok := s.Cube.Vector(s.Key(variable), year)
	if !ok {
		v.NoData = true
		return v
	}
	v.Rows = s.rank(vec, topN)
	return v
}

// RaceFrame is the ranking of one animation step.
type RaceFrame struct {
	Year int       `json:"year"`
	Rows []RankRow `json:"rows"`
}

// RaceView holds every year's top-N plus the fixed axis bound shared by all frames.
type RaceView struct {
	Variable  string      `json:"variable"`
	Series    string      `json:"series"`
	TopN      int         `json:"top_n"`
	Years     []int       `json:"years"`
	Frames    []RaceFrame `json:"frames"`
	GlobalMax float64     `json:"global_max"`
	XMax      float64     `json:"x_max"`
	NoData    bool        `json:"no_data"`
}

// Race builds the animated ranking of variable.
func (s *Snapshot) Race(variable string, topN int) RaceView {
	k := s.Key(variable)
	years := s.Cube.Years(k)
	v := RaceView{Variable: variable, Series: s.Series, TopN: topN, Years: years, Frames: []RaceFrame{}}
	if len(years) == 0 {
		v.NoData = true
		v.Years = []int{}
		return v
	}
	vecs := make([]cube.Vector, 0, len(years))
	for _, y := range years {
		vec, _ := s.Cube.Vector(k, y)
		vecs = append(vecs, vec)
		v.Frames = append(v.Frames, RaceFrame{Year: y, Rows: s.rank(vec, topN)})
	}
	v.GlobalMax = stats.GlobalMax(vecs)
	v.XMax = v.GlobalMax * 1.05
	return v
}

// MapFrame is one year of the choropleth.
type MapFrame struct {
	Year   int         `json:"year"`
	Values cube.Vector `json:"values"`
	Scale  stats.Scale `json:"scale"`
}

// MapView carries per-year vectors aligned with Codes.
type MapView struct {
	Variable string     `json:"variable"`
	Series   string     `json:"series"`
	Years    []int      `json:"years"`
	Codes    []string   `json:"codes"`
	Names    []string   `json:"names"`
	Frames   []MapFrame `json:"frames"`
	NoData   bool       `json:"no_data"`
}

// Map builds the per-year choropleth data of variable.
func (s *Snapshot) Map(variable string) MapView {
	k := s.Key(variable)
	v := MapView{
		Variable: variable,
		Series:   s.Series,
		Years:    s.Cube.Years(k),
		Codes:    s.Index.Codes(),
		Names:    s.Index.Names(),
		Frames:   []MapFrame{},
	}
	if len(v.Years) == 0 {
		v.NoData = true
		v.Years = []int{}
		return v
	}
	for _, y := range v.Years {
		vec, _ := s.Cube.Vector(k, y)
		v.Frames = append(v.Frames, MapFrame{Year: y, Values: vec, Scale: stats.ColorScale(vec)})
	}
	return v
}

// Frame returns the map frame of year.
func (v MapView) Frame(year int) (MapFrame, bool) {
	for _, f := range v.Frames {
		if f.Year == year {
			return f, true
		}
	}
	return MapFrame{}, false
}

// SeriesLine is one entity over all years of the combo; missing years are empty slots.
type SeriesLine struct {
	Code    string        `json:"code"`
	Name    string        `json:"name"`
	Values  []cube.Value  `json:"values"`
	Profile stats.Profile `json:"profile"`
}

// SeriesView is the multi-entity time chart with its summary lines.
type SeriesView struct {
	Variable   string       `json:"variable"`
	Series     string       `json:"series"`
	Years      []int        `json:"years"`
	Lines      []SeriesLine `json:"lines"`
	ShowMean   bool         `json:"show_mean"`
	Mean       []cube.Value `json:"mean"`
	PeriodMean cube.Value   `json:"period_mean"`
	Trend      []float64    `json:"trend,omitempty"`
	Fit        *stats.Fit   `json:"fit,omitempty"`
	NoData     bool         `json:"no_data"`
}

// Timeline builds the time chart of the entities in codes. The yearly mean is always computed since the
// trend is fitted over it; showMean only controls whether it is drawn.
func (s *Snapshot) Timeline(variable string, codes []string, showMean bool) SeriesView {
	k := s.Key(variable)
	years := s.Cube.Years(k)
	idxs := s.Indices(codes)
	v := SeriesView{Variable: variable, Series: s.Series, Years: years, ShowMean: showMean, Lines: []SeriesLine{}}
	if len(years) == 0 || len(idxs) == 0 {
		v.NoData = true
		if v.Years == nil {
			v.Years = []int{}
		}
		return v
	}

	vecs := make([]cube.Vector, len(years))
	for t, y := range years {
		vecs[t], _ = s.Cube.Vector(k, y)
	}
	for _, i := range idxs {
		vals := make([]cube.Value, len(years))
		for t := range years {
			vals[t] = vecs[t][i]
		}
		e := s.Index.At(i)
		v.Lines = append(v.Lines, SeriesLine{
			Code:    e.Code,
			Name:    e.Name,
			Values:  vals,
			Profile: stats.NewProfile(years, vals),
		})
	}

	v.Mean = make([]cube.Value, len(years))
	for t := range years {
		v.Mean[t] = stats.MeanAt(vecs[t], idxs)
	}
	v.PeriodMean = stats.PeriodMean(vecs, idxs)
	if line, fit, ok := stats.Trend(years, v.Mean); ok {
		v.Trend = line
		v.Fit = &fit
	}
	return v
}

// Names lists the line names in selection order.
func (v SeriesView) Names() []string {
	out := make([]string, len(v.Lines))
	for i, l := range v.Lines {
		out[i] = l.Name
	}
	return out
}

// SeriesRow is one line of the series table.
type SeriesRow struct {
	Year  int     `json:"year"`
	Name  string  `json:"name"`
	Code  string  `json:"code"`
	Value float64 `json:"value"`
}

// SeriesRows lists every filled (year, entity) slot of the selection, ordered by year and then by name
// in Portuguese collation.
func (s *Snapshot) SeriesRows(variable string, codes []string) []SeriesRow {
	k := s.Key(variable)
	idxs := s.Indices(codes)
	rows := []SeriesRow{}
	for _, y := range s.Cube.Years(k) {
		vec, _ := s.Cube.Vector(k, y)
		for _, i := range idxs {
			if !vec[i].Valid {
				continue
			}
			e := s.Index.At(i)
			rows = append(rows, SeriesRow{Year: y, Name: e.Name, Code: e.Code, Value: vec[i].V})
		}
	}
	col := newCollator()
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Year != rows[b].Year {
			return rows[a].Year < rows[b].Year
		}
		return col.CompareString(rows[a].Name, rows[b].Name) < 0
	})
	return rows
}

// Option is one selectable municipality.
type Option struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Municipalities lists the names found in the table for variable under the fixed series, each with the
// first code seen for it, in Portuguese collation order.
func (s *Snapshot) Municipalities(variable string) []Option {
	seen := make(map[string]string)
	var names []string
	for _, r := range s.Records {
		if r.Variable != variable || r.Series != s.Series {
			continue
		}
		if _, ok := seen[r.Name]; !ok {
			seen[r.Name] = r.Code
			names = append(names, r.Name)
		}
	}
	col := newCollator()
	sort.SliceStable(names, func(a, b int) bool {
		return col.CompareString(names[a], names[b]) < 0
	})
	out := make([]Option, len(names))
	for i, n := range names {
		out[i] = Option{Code: seen[n], Name: n}
	}
	return out
}

// FilterOptions keeps the options whose name contains q, ignoring case. A blank q keeps everything.
func FilterOptions(opts []Option, q string) []Option {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return opts
	}
	out := make([]Option, 0, len(opts))
	for _, o := range opts {
		if strings.Contains(strings.ToLower(o.Name), q) {
			out = append(out, o)
		}
	}
	return out
}

// newCollator returns a pt-BR collator. A Collator is not safe for concurrent use.
func newCollator() *collate.Collator {
	return collate.New(language.BrazilianPortuguese)
}
