package export

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"painelpib/internal/loader"
	"painelpib/internal/present"
	"painelpib/internal/query"
)

// Report gathers the views summarized in the markdown report.
type Report struct {
	Region    string
	Ranking   query.RankingView
	Series    query.SeriesView
	Totals    query.TotalsView
	Rows      loader.RowStats
	Generated time.Time
}

// WriteReport writes the analyst report in markdown.
func WriteReport(w io.Writer, r Report) error {
	var b strings.Builder
	rk := r.Ranking

	fmt.Fprintf(&b, "# PAINEL PIB MUNICIPAL — %s\n", r.Region)
	fmt.Fprintf(&b, "## %s (%s)\n\n", rk.Variable, rk.Series)

	b.WriteString("### 📊 RESUMO\n\n")
	if last, ok := lastYear(r.Series.Years); ok {
		fmt.Fprintf(&b, "- **Anos disponíveis**: %d–%d\n", r.Series.Years[0], last)
	}
	fmt.Fprintf(&b, "- **Ano do ranking**: %d\n", rk.Year)
	fmt.Fprintf(&b, "- **Municípios no ranking**: %d\n", len(rk.Rows))
	if len(rk.Rows) > 0 {
		top := rk.Rows[0]
		fmt.Fprintf(&b, "- **Líder**: %s (%s)\n", top.Name, FormatBRL(top.Value))
	}
	if r.Series.PeriodMean.Valid {
		fmt.Fprintf(&b, "- **Média do período (selecionados)**: %s\n", FormatBRL(r.Series.PeriodMean.V))
	}
	if r.Series.Fit != nil {
		fmt.Fprintf(&b, "- **Tendência (OLS) da média anual**: %s por ano\n", FormatBRL(r.Series.Fit.Slope))
	}

	fmt.Fprintf(&b, "\n### 🏆 RANKING %d\n\n", rk.Year)
	if rk.NoData {
		b.WriteString("Sem dados.\n")
	} else {
		b.WriteString("| # | Município | Código | Valor |\n")
		b.WriteString("|---|-----------|--------|-------|\n")
		for _, row := range rk.Rows {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", row.Rank, row.Name, row.Code, FormatBRL(row.Value))
		}
	}

	if !r.Series.NoData {
		b.WriteString("\n### 📈 PERFIL DOS MUNICÍPIOS SELECIONADOS\n\n")
		fmt.Fprintf(&b, "%s\n\n", present.SeriesMeta(r.Series.Variable, r.Series.Series, r.Series.Names()))
		b.WriteString("| Município | Valor inicial | Valor final | Crescimento | Média anual | Pico | Volatilidade | Tendência |\n")
		b.WriteString("|-----------|---------------|-------------|-------------|-------------|------|--------------|-----------|\n")
		for _, l := range r.Series.Lines {
			p := l.Profile
			if p.Observed == 0 {
				fmt.Fprintf(&b, "| %s | – | – | – | – | – | – | %s |\n", l.Name, p.Trend)
				continue
			}
			growth, annual := "–", "–"
			if p.HasGrowth {
				growth = fmt.Sprintf("%.1f%%", p.GrowthPct)
				annual = fmt.Sprintf("%.1f%%", p.AnnualPct)
			}
			fmt.Fprintf(&b, "| %s | %s (%d) | %s (%d) | %s | %s | %d | %.2f | %s |\n",
				l.Name,
				FormatBRL(p.First.Value), p.First.Year,
				FormatBRL(p.Last.Value), p.Last.Year,
				growth, annual, p.Peak.Year, p.Volatility, p.Trend)
		}
	}

	if !r.Totals.NoData && len(r.Totals.Rows) > 0 {
		b.WriteString("\n### 🗺️ TOTAIS DA REGIÃO POR ANO\n\n")
		b.WriteString("| Ano | Total | Crescimento | Líder | Participação |\n")
		b.WriteString("|-----|-------|-------------|-------|--------------|\n")
		for _, t := range r.Totals.Rows {
			growth := "–"
			if t.HasGrowth {
				growth = fmt.Sprintf("%.1f%%", t.GrowthPct)
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %.1f%% |\n", t.Year, FormatBRL(t.Total), growth, t.Leader, t.LeaderShare)
		}
	}

	b.WriteString("\n### 🧹 QUALIDADE DOS DADOS\n\n")
	fmt.Fprintf(&b, "- **Linhas lidas**: %d\n", r.Rows.Rows)
	fmt.Fprintf(&b, "- **Linhas aceitas**: %d\n", r.Rows.Kept)
	for _, reason := range sortedReasons(r.Rows.Dropped) {
		fmt.Fprintf(&b, "- **Descartadas (%s)**: %d\n", reason, r.Rows.Dropped[reason])
	}

	fmt.Fprintf(&b, "\n---\n*Gerado em %s*\n", r.Generated.Format(GeneratedLayout))

	_, err := io.WriteString(w, b.String())
	return err
}

func sortedReasons(m map[loader.DropReason]int) []loader.DropReason {
	out := make([]loader.DropReason, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func lastYear(years []int) (int, bool) {
	if len(years) == 0 {
		return 0, false
	}
	return years[len(years)-1], true
}
