package stats

import (
	"math"

	"painelpib/internal/cube"
)

// Point is one observed (year, value) pair.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Profile summarizes one entity's trajectory over the years of a combo.
type Profile struct {
	First       Point     `json:"first"`
	Last        Point     `json:"last"`
	Peak        Point     `json:"peak"`
	Observed    int       `json:"observed"`
	GrowthPct   float64   `json:"growth_pct"`
	AnnualPct   float64   `json:"annual_growth_pct"`
	Volatility  float64   `json:"volatility"`
	HasGrowth   bool      `json:"has_growth"`
	Trend       string    `json:"trend"`
	GrowthRates []float64 `json:"-"`
}

// Observations pairs years with values and keeps only the filled ones.
func Observations(years []int, values []cube.Value) []Point {
	pts := make([]Point, 0, len(years))
	for i, y := range years {
		if i < len(values) && values[i].Valid {
			pts = append(pts, Point{Year: y, Value: values[i].V})
		}
	}
	return pts
}

// YearlyGrowthRates are the percent changes between consecutive observations. A step from a
// non-positive value has no rate.
func YearlyGrowthRates(pts []Point) []float64 {
	var rates []float64
	for i := 1; i < len(pts); i++ {
		prev := pts[i-1].Value
		if prev > 0 {
			rates = append(rates, (pts[i].Value-prev)/prev*100)
		}
	}
	return rates
}

// Volatility is the population standard deviation of the growth rates.
func Volatility(rates []float64) float64 {
	if len(rates) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range rates {
		mean += r
	}
	mean /= float64(len(rates))

	variance := 0.0
	for _, r := range rates {
		variance += math.Pow(r-mean, 2)
	}
	variance /= float64(len(rates))
	return math.Sqrt(variance)
}

// Peak is the largest observation; the earliest year wins a tie.
func Peak(pts []Point) (Point, bool) {
	if len(pts) == 0 {
		return Point{}, false
	}
	peak := pts[0]
	for _, p := range pts[1:] {
		if p.Value > peak.Value {
			peak = p
		}
	}
	return peak, true
}

// NewProfile computes the profile of one entity series.
func NewProfile(years []int, values []cube.Value) Profile {
	pts := Observations(years, values)
	p := Profile{Observed: len(pts), Trend: TrendInsufficient}
	if len(pts) == 0 {
		return p
	}
	p.First, p.Last = pts[0], pts[len(pts)-1]
	p.Peak, _ = Peak(pts)
	p.GrowthRates = YearlyGrowthRates(pts)
	p.Volatility = Volatility(p.GrowthRates)

	if p.First.Value > 0 && len(pts) > 1 {
		p.HasGrowth = true
		p.GrowthPct = (p.Last.Value - p.First.Value) / p.First.Value * 100
		if span := p.Last.Year - p.First.Year; span > 0 {
			p.AnnualPct = p.GrowthPct / float64(span)
		}
	}
	p.Trend = Classify(p)
	return p
}

// Trend labels.
const (
	TrendInsufficient = "DADOS_INSUFICIENTES"
	TrendExplosive    = "CRESCIMENTO_EXPLOSIVO"
	TrendHigh         = "CRESCIMENTO_ALTO"
	TrendModerate     = "CRESCIMENTO_MODERADO"
	TrendStable       = "CRESCIMENTO_ESTAVEL"
	TrendDeclining    = "DECLINIO"
	TrendVolatile     = "VOLATIL"
	TrendMature       = "MADURO"
)

// Classify buckets a profile by total growth, then by volatility.
func Classify(p Profile) string {
	if p.Observed < 4 || !p.HasGrowth {
		return TrendInsufficient
	}
	switch g := p.GrowthPct; {
	case g > 500:
		return TrendExplosive
	case g > 200:
		return TrendHigh
	case g > 100:
		return TrendModerate
	case g > 50:
		return TrendStable
	case g < 0:
		return TrendDeclining
	case p.Volatility > 30:
		return TrendVolatile
	}
	return TrendMature
}
