package present

import (
	"fmt"
	"strings"
)

const previewNames = 6

func yearSpan(years []int) string {
	if len(years) == 0 {
		return "—"
	}
	return fmt.Sprintf("%d–%d", years[0], years[len(years)-1])
}

// PanoramaStatus is the line above the map and race panels.
func PanoramaStatus(variable, series string, years []int) string {
	return fmt.Sprintf("OK — %s (%s) | Anos: %s", variable, series, yearSpan(years))
}

// SeriesStatus is the line above the series panel.
func SeriesStatus(variable, series string, years []int, selected int) string {
	return fmt.Sprintf("OK — %s (%s) | Anos disponíveis: %s | Selecionados: %d",
		variable, series, yearSpan(years), selected)
}

// RankingMeta describes the ranking table; a year without data reads "Sem dados.".
func RankingMeta(variable, series string, year, topN int, noData bool) string {
	if noData {
		return "Sem dados."
	}
	return fmt.Sprintf("Ano: %d | Top %d | %s (%s)", year, topN, variable, series)
}

// NamesPreview joins the first six names and marks the rest with an ellipsis.
func NamesPreview(names []string) string {
	if len(names) <= previewNames {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:previewNames], ", ") + "…"
}

// SeriesMeta describes the series chart.
func SeriesMeta(variable, series string, names []string) string {
	return fmt.Sprintf("%s (%s) | Municípios: %s", variable, series, NamesPreview(names))
}
