package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Column names of the tabular source. They are part of the external contract.
const (
	ColYear     = "Ano"
	ColCode     = "CD_MUN7"
	ColName     = "Nome do Município"
	ColVariable = "variavel"
	ColSeries   = "serie"
	ColValue    = "valor_brl"
)

// ErrMissingColumn is returned when the header lacks one of the contract columns.
var ErrMissingColumn = errors.New("missing column")

// Record is one accepted observation. Index is the entity position of Code.
type Record struct {
	Year     int     `json:"year"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Variable string  `json:"variable"`
	Series   string  `json:"series"`
	Value    float64 `json:"value"`
	Index    int     `json:"-"`
}

// DropReason says why a row was rejected.
type DropReason string

const (
	DropMalformed   DropReason = "malformed"
	DropYear        DropReason = "year"
	DropCode        DropReason = "code"
	DropUnknownCode DropReason = "unknown_code"
	DropVariable    DropReason = "variable"
	DropSeries      DropReason = "series"
	DropValue       DropReason = "value"
)

// RowStats counts what happened to the data rows. Dropped rows never abort a load.
type RowStats struct {
	Rows    int                `json:"rows"`
	Kept    int                `json:"kept"`
	Dropped map[DropReason]int `json:"dropped"`
}

// DroppedTotal sums all drop reasons.
func (s RowStats) DroppedTotal() int {
	n := 0
	for _, c := range s.Dropped {
		n += c
	}
	return n
}

// RecordOptions tunes CSV parsing.
type RecordOptions struct {
	Delimiter rune
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadRecords parses the long-format table and keeps the rows that pass the acceptance rule: finite
// integral year, non-empty code known to idx, non-empty variable and series, finite value.
func LoadRecords(data []byte, idx *EntityIndex, opts RecordOptions) ([]Record, RowStats, error) {
	stats := RowStats{Dropped: make(map[DropReason]int)}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if opts.Delimiter != 0 {
		r.Comma = opts.Delimiter
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, stats, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, stats, err
	}

	var recs []Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		stats.Rows++
		if err != nil {
			stats.Dropped[DropMalformed]++
			continue
		}
		if blankRow(row) {
			stats.Rows--
			continue
		}

		rec, reason := parseRow(row, cols, idx)
		if reason != "" {
			stats.Dropped[reason]++
			continue
		}
		recs = append(recs, rec)
	}
	stats.Kept = len(recs)
	return recs, stats, nil
}

type columns struct {
	year, code, name, variable, series, value int
}

func columnIndex(header []string) (columns, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	var missing []string
	get := func(name string) int {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}
	c := columns{
		year:     get(ColYear),
		code:     get(ColCode),
		name:     get(ColName),
		variable: get(ColVariable),
		series:   get(ColSeries),
		value:    get(ColValue),
	}
	if len(missing) > 0 {
		return c, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return c, nil
}

func parseRow(row []string, c columns, idx *EntityIndex) (Record, DropReason) {
	year, ok := parseNumber(field(row, c.year))
	if !ok || year != math.Trunc(year) || math.Abs(year) > math.MaxInt32 {
		return Record{}, DropYear
	}
	code := normalizeCode(field(row, c.code))
	if code == "" {
		return Record{}, DropCode
	}
	variable := field(row, c.variable)
	if variable == "" {
		return Record{}, DropVariable
	}
	series := field(row, c.series)
	if series == "" {
		return Record{}, DropSeries
	}
	value, ok := parseNumber(field(row, c.value))
	if !ok {
		return Record{}, DropValue
	}
	pos, ok := idx.Lookup(code)
	if !ok {
		return Record{}, DropUnknownCode
	}
	return Record{
		Year:     int(year),
		Code:     code,
		Name:     field(row, c.name),
		Variable: variable,
		Series:   series,
		Value:    value,
		Index:    pos,
	}, ""
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// normalizeCode renders numeric codes the way numeric typing does ("4300034.0" and "4300034" match);
// other text is kept verbatim.
func normalizeCode(s string) string {
	if f, ok := parseNumber(s); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return s
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
