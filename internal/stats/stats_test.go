package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"painelpib/internal/cube"
)

func vec(vals ...any) cube.Vector {
	out := make(cube.Vector, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case nil:
		case int:
			out[i] = cube.Some(float64(x))
		case float64:
			out[i] = cube.Some(x)
		}
	}
	return out
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 4, 8, 16}

	v, ok := Quantile(sorted, 0)
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = Quantile(sorted, 1)
	require.True(t, ok)
	assert.Equal(t, 16.0, v)

	v, _ = Quantile(sorted, 0.5)
	assert.Equal(t, 4.0, v)

	v, _ = Quantile(sorted, 0.625) // pos 2.5
	assert.InDelta(t, 6.0, v, 1e-12)

	v, ok = Quantile([]float64{7}, 0.95)
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	for _, p := range []float64{0, 0.05, 0.5, 1} {
		_, ok = Quantile(nil, p)
		assert.False(t, ok, "p=%v", p)
	}
}

func TestColorScale(t *testing.T) {
	tests := []struct {
		name string
		vec  cube.Vector
		want Scale
	}{
		{"empty year", vec(nil, nil), Scale{0, 1}},
		{"flat year", vec(5, nil, 5), Scale{5, 6}},
		{"single value", vec(nil, 3), Scale{3, 4}},
		// sorted 0..20 step 1 (21 values): p05 at pos 1, p95 at pos 19
		{"interior percentiles", rangeVec(0, 20), Scale{1, 19}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ColorScale(tt.vec)
			assert.InDelta(t, tt.want.Min, got.Min, 1e-9)
			assert.InDelta(t, tt.want.Max, got.Max, 1e-9)
		})
	}
}

func rangeVec(from, to int) cube.Vector {
	var out cube.Vector
	for i := to; i >= from; i-- {
		out = append(out, cube.Some(float64(i)), cube.Value{})
	}
	return out
}

func TestTopN(t *testing.T) {
	v := vec(5, nil, 9, 5, 1, 9)
	got := TopN(v, 4)
	assert.Equal(t, []Item{{2, 9}, {5, 9}, {0, 5}, {3, 5}}, got, "ties keep entity order")

	assert.Len(t, TopN(v, 50), 5)
	assert.Empty(t, TopN(v, 0))
	assert.Empty(t, TopN(vec(nil, nil), 3))
}

func TestTopNFewerThanRequested(t *testing.T) {
	got := TopN(vec(nil, 3, nil, 7), 3)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].Index)
	assert.Equal(t, 1, got[1].Index)
}

func TestMeans(t *testing.T) {
	y1 := vec(10, nil, 30)
	y2 := vec(nil, nil, 50)
	y3 := vec(nil, 100, nil)

	assert.Equal(t, cube.Some(20), MeanAt(y1, []int{0, 1, 2}))
	assert.Equal(t, cube.Some(50), MeanAt(y2, []int{0, 2}))
	assert.False(t, MeanAt(y3, []int{0, 2}).Valid, "no filled slot means no mean, not zero")
	assert.False(t, MeanAt(y1, nil).Valid)
	assert.Equal(t, cube.Some(10), MeanAt(y1, []int{0, 7}), "out of range positions are ignored")

	// (10 + 30 + 50) / 3, not the mean of the yearly means
	assert.Equal(t, cube.Some(30), PeriodMean([]cube.Vector{y1, y2, y3}, []int{0, 2}))
	assert.False(t, PeriodMean([]cube.Vector{y3}, []int{0}).Valid)
}

func TestOLSCollinear(t *testing.T) {
	years := []int{2019, 2020, 2021, 2022, 2023}
	means := []cube.Value{cube.Some(10), cube.Some(20), cube.Some(30), cube.Some(40), cube.Some(50)}

	line, fit, ok := Trend(years, means)
	require.True(t, ok)
	assert.InDelta(t, 10, fit.Slope, 1e-9)
	assert.InDelta(t, 30-10*2021.0, fit.Intercept, 1e-6)
	require.Len(t, line, len(years))
	for i := range years {
		assert.InDelta(t, means[i].V, line[i], 1e-6, "year %d", years[i])
	}
}

func TestTrendDenseOverGaps(t *testing.T) {
	years := []int{2018, 2019, 2020, 2021}
	means := []cube.Value{cube.Some(2), {}, {}, cube.Some(8)}

	line, fit, ok := Trend(years, means)
	require.True(t, ok)
	assert.InDelta(t, 2, fit.Slope, 1e-9)
	assert.InDeltaSlice(t, []float64{2, 4, 6, 8}, line, 1e-6)
}

func TestTrendNeedsTwoPoints(t *testing.T) {
	_, _, ok := Trend([]int{2020, 2021}, []cube.Value{cube.Some(1), {}})
	assert.False(t, ok)

	fit, ok := OLS([]float64{2020, 2020}, []float64{1, 3})
	require.True(t, ok)
	assert.Equal(t, 0.0, fit.Slope)
	assert.Equal(t, 2.0, fit.Intercept)
}

func TestGlobalMax(t *testing.T) {
	assert.Equal(t, 9.0, GlobalMax([]cube.Vector{vec(1, nil), vec(9, 3)}))
	assert.Equal(t, 1.0, GlobalMax([]cube.Vector{vec(nil, nil)}))
	assert.Equal(t, 1.0, GlobalMax([]cube.Vector{vec(-5, -1)}), "the running max starts at zero")
}
