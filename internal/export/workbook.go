package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"painelpib/internal/query"
)

// Sheet names of the workbook.
const (
	SheetRanking = "Ranking"
	SheetSeries  = "Serie_Temporal"
	SheetRows    = "Tabela_Serie"
	SheetYears   = "Valores_por_Ano"
	SheetProfile = "Perfil_Municipios"
	SheetTotals  = "Totais_Anuais"
)

// XLSXContentType is the MIME type of the workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const currencyFormat = `"R$" #,##0`

// Workbook selects the views to put in the file; nil parts are left out.
type Workbook struct {
	Ranking *query.RankingView
	Series  *query.SeriesView
	Rows    []query.SeriesRow
	Map     *query.MapView
	Totals  *query.TotalsView
}

type sheetWriter struct {
	f      *excelize.File
	money  int
	header int
	first  bool
	err    error
}

func (w *sheetWriter) sheet(name string, headers []string, width float64) {
	if w.err != nil {
		return
	}
	if w.first {
		w.err = w.f.SetSheetName("Sheet1", name)
		w.first = false
	} else {
		_, w.err = w.f.NewSheet(name)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		w.set(name, cell, h)
		col, _ := excelize.ColumnNumberToName(i + 1)
		if w.err == nil {
			w.err = w.f.SetColWidth(name, col, col, width)
		}
	}
	if w.err == nil && len(headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		w.err = w.f.SetCellStyle(name, "A1", last, w.header)
	}
}

func (w *sheetWriter) set(sheet, cell string, v any) {
	if w.err == nil {
		w.err = w.f.SetCellValue(sheet, cell, v)
	}
}

func (w *sheetWriter) setMoney(sheet string, col, row int, v float64) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	w.set(sheet, cell, v)
	if w.err == nil {
		w.err = w.f.SetCellStyle(sheet, cell, cell, w.money)
	}
}

func (w *sheetWriter) setAt(sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	w.set(sheet, cell, v)
}

// WriteWorkbook writes the selected views as one xlsx file.
func WriteWorkbook(out io.Writer, b Workbook) error {
	if b.Ranking == nil && b.Series == nil && b.Rows == nil && b.Map == nil && b.Totals == nil {
		return errors.New("workbook has no content")
	}
	f := excelize.NewFile()
	defer f.Close()

	fmtStr := currencyFormat
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &fmtStr})
	if err != nil {
		return fmt.Errorf("currency style: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	w := &sheetWriter{f: f, money: money, header: header, first: true}

	if v := b.Ranking; v != nil {
		w.sheet(SheetRanking, []string{"#", "Município", "Código", "Valor", "Ano", "Variável", "Série"}, 18)
		for i, r := range v.Rows {
			row := i + 2
			w.setAt(SheetRanking, 1, row, r.Rank)
			w.setAt(SheetRanking, 2, row, r.Name)
			w.setAt(SheetRanking, 3, row, r.Code)
			w.setMoney(SheetRanking, 4, row, r.Value)
			w.setAt(SheetRanking, 5, row, v.Year)
			w.setAt(SheetRanking, 6, row, v.Variable)
			w.setAt(SheetRanking, 7, row, v.Series)
		}
	}

	if v := b.Series; v != nil && !v.NoData {
		headers := append([]string{"Ano"}, v.Names()...)
		headers = append(headers, "Média anual", "Média do período", "Tendência (OLS)")
		w.sheet(SheetSeries, headers, 18)
		for t, year := range v.Years {
			row := t + 2
			w.setAt(SheetSeries, 1, row, year)
			for j, l := range v.Lines {
				if l.Values[t].Valid {
					w.setMoney(SheetSeries, j+2, row, l.Values[t].V)
				}
			}
			col := len(v.Lines) + 2
			if v.Mean[t].Valid {
				w.setMoney(SheetSeries, col, row, v.Mean[t].V)
			}
			if v.PeriodMean.Valid {
				w.setMoney(SheetSeries, col+1, row, v.PeriodMean.V)
			}
			if v.Trend != nil {
				w.setMoney(SheetSeries, col+2, row, v.Trend[t])
			}
		}

		w.sheet(SheetProfile, []string{"Município", "Código", "Primeiro ano", "Valor inicial", "Último ano",
			"Valor final", "Crescimento (%)", "Crescimento médio anual (%)", "Ano de pico", "Valor de pico",
			"Volatilidade", "Tendência"}, 20)
		for i, l := range v.Lines {
			row := i + 2
			p := l.Profile
			w.setAt(SheetProfile, 1, row, l.Name)
			w.setAt(SheetProfile, 2, row, l.Code)
			if p.Observed == 0 {
				w.setAt(SheetProfile, 12, row, p.Trend)
				continue
			}
			w.setAt(SheetProfile, 3, row, p.First.Year)
			w.setMoney(SheetProfile, 4, row, p.First.Value)
			w.setAt(SheetProfile, 5, row, p.Last.Year)
			w.setMoney(SheetProfile, 6, row, p.Last.Value)
			if p.HasGrowth {
				w.setAt(SheetProfile, 7, row, fmt.Sprintf("%.1f%%", p.GrowthPct))
				w.setAt(SheetProfile, 8, row, fmt.Sprintf("%.1f%%", p.AnnualPct))
			}
			w.setAt(SheetProfile, 9, row, p.Peak.Year)
			w.setMoney(SheetProfile, 10, row, p.Peak.Value)
			w.setAt(SheetProfile, 11, row, fmt.Sprintf("%.2f", p.Volatility))
			w.setAt(SheetProfile, 12, row, p.Trend)
		}
	}

	if b.Rows != nil {
		w.sheet(SheetRows, []string{"Ano", "Município", "Código", "Valor"}, 18)
		for i, r := range b.Rows {
			row := i + 2
			w.setAt(SheetRows, 1, row, r.Year)
			w.setAt(SheetRows, 2, row, r.Name)
			w.setAt(SheetRows, 3, row, r.Code)
			w.setMoney(SheetRows, 4, row, r.Value)
		}
	}

	if v := b.Map; v != nil && !v.NoData {
		headers := []string{"Código", "Município"}
		for _, y := range v.Years {
			headers = append(headers, fmt.Sprint(y))
		}
		w.sheet(SheetYears, headers, 14)
		for i, code := range v.Codes {
			row := i + 2
			w.setAt(SheetYears, 1, row, code)
			w.setAt(SheetYears, 2, row, v.Names[i])
			for t, fr := range v.Frames {
				if fr.Values[i].Valid {
					w.setMoney(SheetYears, t+3, row, fr.Values[i].V)
				}
			}
		}
	}

	if v := b.Totals; v != nil && !v.NoData {
		w.sheet(SheetTotals, []string{"Ano", "Total", "Municípios com dado", "Variação", "Crescimento (%)",
			"Líder", "Valor do líder", "Participação do líder (%)"}, 20)
		for i, t := range v.Rows {
			row := i + 2
			w.setAt(SheetTotals, 1, row, t.Year)
			w.setMoney(SheetTotals, 2, row, t.Total)
			w.setAt(SheetTotals, 3, row, t.Reporting)
			if i > 0 {
				w.setMoney(SheetTotals, 4, row, t.Change)
			}
			if t.HasGrowth {
				w.setAt(SheetTotals, 5, row, fmt.Sprintf("%.1f%%", t.GrowthPct))
			}
			w.setAt(SheetTotals, 6, row, t.Leader)
			w.setMoney(SheetTotals, 7, row, t.LeaderValue)
			w.setAt(SheetTotals, 8, row, fmt.Sprintf("%.1f%%", t.LeaderShare))
		}
	}

	if w.err != nil {
		return fmt.Errorf("fill workbook: %w", w.err)
	}
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
