// Package present turns query views into declarative figure descriptions (Plotly's trace/layout/frames
// JSON) and the status lines shown next to each panel. It does no rendering itself.
package present

import "encoding/json"

// Figure is a complete chart: traces, layout and optional animation frames.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
	Frames []Frame `json:"frames,omitempty"`
}

// Frame replaces parts of the traces and layout for one animation step.
type Frame struct {
	Name   string  `json:"name"`
	Data   []Trace `json:"data"`
	Layout *Layout `json:"layout,omitempty"`
}

// Trace covers the choropleth, bar and scatter attributes the dashboard uses.
type Trace struct {
	Type          string          `json:"type,omitempty"`
	Mode          string          `json:"mode,omitempty"`
	Name          string          `json:"name,omitempty"`
	Orientation   string          `json:"orientation,omitempty"`
	GeoJSON       json.RawMessage `json:"geojson,omitempty"`
	FeatureIDKey  string          `json:"featureidkey,omitempty"`
	Locations     []string        `json:"locations,omitempty"`
	Z             any             `json:"z,omitempty"`
	X             any             `json:"x,omitempty"`
	Y             any             `json:"y,omitempty"`
	Text          []string        `json:"text,omitempty"`
	CustomData    [][]string      `json:"customdata,omitempty"`
	Meta          any             `json:"meta,omitempty"`
	ColorAxis     string          `json:"coloraxis,omitempty"`
	Line          *Line           `json:"line,omitempty"`
	HoverTemplate string          `json:"hovertemplate,omitempty"`
}

// Line styles a scatter line.
type Line struct {
	Dash  string `json:"dash,omitempty"`
	Width int    `json:"width,omitempty"`
}

// Layout is the subset of layout attributes the panels set.
type Layout struct {
	Title       *Title       `json:"title,omitempty"`
	Height      int          `json:"height,omitempty"`
	Margin      *Margin      `json:"margin,omitempty"`
	Separators  string       `json:"separators,omitempty"`
	HoverMode   string       `json:"hovermode,omitempty"`
	Geo         *Geo         `json:"geo,omitempty"`
	ColorAxis   *ColorAxis   `json:"coloraxis,omitempty"`
	XAxis       *Axis        `json:"xaxis,omitempty"`
	YAxis       *Axis        `json:"yaxis,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	UpdateMenus []UpdateMenu `json:"updatemenus,omitempty"`
	Sliders     []Slider     `json:"sliders,omitempty"`
}

type Title struct {
	Text    string  `json:"text"`
	X       float64 `json:"x,omitempty"`
	XAnchor string  `json:"xanchor,omitempty"`
	Font    *Font   `json:"font,omitempty"`
}

type Font struct {
	Size int `json:"size"`
}

type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

type Geo struct {
	FitBounds string `json:"fitbounds"`
	Visible   bool   `json:"visible"`
}

type ColorAxis struct {
	ColorScale string    `json:"colorscale,omitempty"`
	ColorBar   *ColorBar `json:"colorbar,omitempty"`
	CMin       *float64  `json:"cmin,omitempty"`
	CMax       *float64  `json:"cmax,omitempty"`
}

type ColorBar struct {
	Title string `json:"title"`
}

type Axis struct {
	Title      string    `json:"title,omitempty"`
	TickFormat string    `json:"tickformat,omitempty"`
	Range      []float64 `json:"range,omitempty"`
	FixedRange bool      `json:"fixedrange,omitempty"`
	AutoMargin *bool     `json:"automargin,omitempty"`
	TickFont   *Font     `json:"tickfont,omitempty"`
}

type Annotation struct {
	Text        string  `json:"text"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	XRef        string  `json:"xref"`
	YRef        string  `json:"yref"`
	XAnchor     string  `json:"xanchor"`
	YAnchor     string  `json:"yanchor"`
	ShowArrow   bool    `json:"showarrow"`
	BGColor     string  `json:"bgcolor"`
	BorderColor string  `json:"bordercolor"`
	BorderWidth int     `json:"borderwidth"`
	Font        Font    `json:"font"`
}

type UpdateMenu struct {
	Type       string   `json:"type"`
	Direction  string   `json:"direction"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	XAnchor    string   `json:"xanchor"`
	YAnchor    string   `json:"yanchor"`
	ShowActive bool     `json:"showactive"`
	Buttons    []Button `json:"buttons"`
}

type Button struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

type Slider struct {
	Active       int          `json:"active"`
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	Len          float64      `json:"len"`
	XAnchor      string       `json:"xanchor"`
	YAnchor      string       `json:"yanchor"`
	CurrentValue CurrentValue `json:"currentvalue"`
	Pad          *Margin      `json:"pad,omitempty"`
	Steps        []Step       `json:"steps"`
}

type CurrentValue struct {
	Prefix string `json:"prefix"`
}

type Step struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// AnimateOptions is the second argument of an animate call.
type AnimateOptions struct {
	Mode        string     `json:"mode,omitempty"`
	FromCurrent bool       `json:"fromcurrent,omitempty"`
	Frame       FrameOpts  `json:"frame"`
	Transition  Transition `json:"transition"`
}

type FrameOpts struct {
	Duration int  `json:"duration"`
	Redraw   bool `json:"redraw"`
}

type Transition struct {
	Duration int `json:"duration"`
}

// Empty is the placeholder figure for a selection without data.
func Empty(title string) Figure {
	return Figure{Data: []Trace{}, Layout: Layout{Title: &Title{Text: title}}}
}
