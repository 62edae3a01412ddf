package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"painelpib/internal/present"
	"painelpib/internal/query"
)

// ErrNoSelection is returned when an export would contain no entity.
var ErrNoSelection = errors.New("nenhum município selecionado")

// Cell is one table cell. Numeric cells are currency values.
type Cell struct {
	Text    string
	Number  float64
	Numeric bool
}

// Text makes a text cell.
func Text(s string) Cell { return Cell{Text: s} }

// Money makes a currency cell.
func Money(v float64) Cell { return Cell{Number: v, Numeric: true} }

// String renders the cell as it appears in the document.
func (c Cell) String() string {
	if c.Numeric {
		return FormatBRL(c.Number)
	}
	return c.Text
}

// Document is a titled table with its filter lines.
type Document struct {
	Name      string
	Title     string
	Filters   []string
	Headers   []string
	Rows      [][]Cell
	Generated time.Time
}

// Filename is the sanitized name plus ext.
func (d Document) Filename(ext string) string {
	return SanitizeFilename(d.Name) + ext
}

// RankingDocument tabulates a ranking. Rank and code are text; only the value is currency.
func RankingDocument(v query.RankingView, region string) Document {
	rows := make([][]Cell, len(v.Rows))
	for i, r := range v.Rows {
		rows[i] = []Cell{Text(strconv.Itoa(r.Rank)), Text(r.Name), Text(r.Code), Money(r.Value)}
	}
	return Document{
		Name:  fmt.Sprintf("ranking_%s_%s_%s_%d_top%d", region, v.Variable, v.Series, v.Year, v.TopN),
		Title: fmt.Sprintf("Ranking — %s (%d)", region, v.Year),
		Filters: []string{
			"Variável: " + v.Variable,
			"Série: " + v.Series,
			fmt.Sprintf("Ano: %d", v.Year),
			fmt.Sprintf("Top N: %d", v.TopN),
		},
		Headers:   []string{"#", "Município", "Código", "Valor"},
		Rows:      rows,
		Generated: time.Now(),
	}
}

// SeriesDocument tabulates the series rows of the selected entities.
func SeriesDocument(variable, series, region string, names []string, rows []query.SeriesRow) (Document, error) {
	if len(names) == 0 {
		return Document{}, ErrNoSelection
	}
	cells := make([][]Cell, len(rows))
	for i, r := range rows {
		cells[i] = []Cell{Text(strconv.Itoa(r.Year)), Text(r.Name), Text(r.Code), Money(r.Value)}
	}
	preview := present.NamesPreview(names)
	short := names
	if len(short) > 6 {
		short = short[:6]
	}
	return Document{
		Name:  fmt.Sprintf("serie_%s_%s_%s_munis_%s", region, variable, series, strings.Join(short, ", ")),
		Title: "Série — Municípios selecionados",
		Filters: []string{
			"Variável: " + variable,
			"Série: " + series,
			"Municípios: " + preview,
		},
		Headers:   []string{"Ano", "Município", "Código", "Valor"},
		Rows:      cells,
		Generated: time.Now(),
	}, nil
}
