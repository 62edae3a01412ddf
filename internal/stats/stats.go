// Package stats holds the small numeric routines behind the views: quantiles, per-year color bounds,
// top-N, means across an entity subset and the least-squares trend.
//
// Empty slots never take part in any of them; a mean over nothing is absent, never zero.
package stats

import (
	"math"
	"sort"

	"painelpib/internal/cube"
)

// Quantile interpolates linearly over an ascending slice. ok is false for empty input.
func Quantile(sorted []float64, p float64) (v float64, ok bool) {
	n := len(sorted)
	if n == 0 {
		return 0, false
	}
	pos := float64(n-1) * p
	base := int(math.Floor(pos))
	if base < 0 {
		base = 0
	}
	if base > n-1 {
		base = n - 1
	}
	rest := pos - float64(base)
	if base+1 < n {
		return sorted[base] + rest*(sorted[base+1]-sorted[base]), true
	}
	return sorted[base], true
}

// Scale is the color range of one map frame.
type Scale struct {
	Min float64 `json:"cmin"`
	Max float64 `json:"cmax"`
}

// ColorScale bounds one year's values by their 5th and 95th percentiles so each frame keeps its own
// contrast. No data gives [0,1]; a flat year gets a unit-wide range.
func ColorScale(vec cube.Vector) Scale {
	vals := vec.Finite()
	sort.Float64s(vals)
	lo, okLo := Quantile(vals, 0.05)
	hi, okHi := Quantile(vals, 0.95)
	if !okLo || !okHi {
		lo, hi = 0, 1
	}
	if hi <= lo {
		hi = lo + 1
	}
	return Scale{Min: lo, Max: hi}
}

// Item is one ranked slot.
type Item struct {
	Index int
	Value float64
}

// TopN returns at most n filled slots, largest first. Ties keep entity order.
func TopN(vec cube.Vector, n int) []Item {
	items := make([]Item, 0, len(vec))
	for i, v := range vec {
		if v.Valid {
			items = append(items, Item{Index: i, Value: v.V})
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Value > items[j].Value
	})
	if n < 0 {
		n = 0
	}
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// MeanAt averages the filled slots of vec at the given positions.
func MeanAt(vec cube.Vector, idxs []int) cube.Value {
	sum, n := 0.0, 0
	for _, i := range idxs {
		if i < 0 || i >= len(vec) || !vec[i].Valid {
			continue
		}
		sum += vec[i].V
		n++
	}
	if n == 0 {
		return cube.Value{}
	}
	return cube.Some(sum / float64(n))
}

// PeriodMean averages every filled (year, entity) pair, not the yearly means.
func PeriodMean(vecs []cube.Vector, idxs []int) cube.Value {
	sum, n := 0.0, 0
	for _, vec := range vecs {
		for _, i := range idxs {
			if i < 0 || i >= len(vec) || !vec[i].Valid {
				continue
			}
			sum += vec[i].V
			n++
		}
	}
	if n == 0 {
		return cube.Value{}
	}
	return cube.Some(sum / float64(n))
}

// Fit is a fitted line y = Slope*x + Intercept.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line.
func (f Fit) At(x float64) float64 { return f.Slope*x + f.Intercept }

// OLS fits xs against ys with mean-centered sums. It needs two points; identical xs give a flat line
// through the mean.
func OLS(xs, ys []float64) (Fit, bool) {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return Fit{}, false
	}
	xbar, ybar := 0.0, 0.0
	for i := range xs {
		xbar += xs[i]
		ybar += ys[i]
	}
	xbar /= float64(n)
	ybar /= float64(n)

	num, den := 0.0, 0.0
	for i := range xs {
		dx := xs[i] - xbar
		num += dx * (ys[i] - ybar)
		den += dx * dx
	}
	slope := 0.0
	if den != 0 {
		slope = num / den
	}
	return Fit{Slope: slope, Intercept: ybar - slope*xbar}, true
}

// Trend fits the filled yearly means and evaluates the line at every year, filled or not.
func Trend(years []int, means []cube.Value) ([]float64, Fit, bool) {
	var xs, ys []float64
	for i, y := range years {
		if i < len(means) && means[i].Valid {
			xs = append(xs, float64(y))
			ys = append(ys, means[i].V)
		}
	}
	fit, ok := OLS(xs, ys)
	if !ok {
		return nil, Fit{}, false
	}
	line := make([]float64, len(years))
	for i, y := range years {
		line[i] = fit.At(float64(y))
	}
	return line, fit, true
}

// GlobalMax is the largest filled value over all vectors, or 1 when nothing positive exists.
func GlobalMax(vecs []cube.Vector) float64 {
	max := 0.0
	for _, vec := range vecs {
		for _, v := range vec {
			if v.Valid && v.V > max {
				max = v.V
			}
		}
	}
	if max == 0 {
		return 1
	}
	return max
}
