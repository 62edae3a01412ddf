package query

import "painelpib/internal/cube"

// TotalRow is the regional aggregate of one year.
type TotalRow struct {
	Year        int     `json:"year"`
	Total       float64 `json:"total"`
	Reporting   int     `json:"reporting"`
	Leader      string  `json:"leader"`
	LeaderValue float64 `json:"leader_value"`
	LeaderShare float64 `json:"leader_share_pct"`
	Change      float64 `json:"change"`
	GrowthPct   float64 `json:"growth_pct"`
	HasGrowth   bool    `json:"has_growth"`
}

// TotalsView sums variable over all entities, year by year.
type TotalsView struct {
	Variable string     `json:"variable"`
	Series   string     `json:"series"`
	Rows     []TotalRow `json:"rows"`
	NoData   bool       `json:"no_data"`
}

// Totals builds the yearly regional totals of variable with the leading entity of each year. Growth is
// measured against the previous listed year and only from a positive total.
func (s *Snapshot) Totals(variable string) TotalsView {
	k := s.Key(variable)
	years := s.Cube.Years(k)
	v := TotalsView{Variable: variable, Series: s.Series, Rows: []TotalRow{}}
	if len(years) == 0 {
		v.NoData = true
		return v
	}
	for t, y := range years {
		vec, _ := s.Cube.Vector(k, y)
		row, leader := totalOf(vec)
		row.Year = y
		if leader >= 0 {
			row.Leader = s.Index.At(leader).Name
		}
		if row.Total != 0 {
			row.LeaderShare = row.LeaderValue / row.Total * 100
		}
		if t > 0 {
			prev := v.Rows[t-1].Total
			row.Change = row.Total - prev
			if prev > 0 {
				row.GrowthPct = row.Change / prev * 100
				row.HasGrowth = true
			}
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}

// totalOf sums the filled slots and finds the first position holding the largest value (-1 if none).
func totalOf(vec cube.Vector) (TotalRow, int) {
	var row TotalRow
	leader := -1
	for i, x := range vec {
		if !x.Valid {
			continue
		}
		if leader < 0 || x.V > row.LeaderValue {
			leader = i
			row.LeaderValue = x.V
		}
		row.Total += x.V
		row.Reporting++
	}
	return row, leader
}
