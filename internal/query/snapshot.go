// Package query owns the session context (entity index, cube, fixed series) and derives every view the
// dashboard shows from it. Views never mutate the snapshot they read.
package query

import (
	"fmt"
	"strings"
	"time"

	"painelpib/internal/cube"
	"painelpib/internal/loader"
	"painelpib/internal/series"
)

// Snapshot is one fully built dataset. It is immutable; a reload publishes a new one.
type Snapshot struct {
	Geometry        *loader.Geometry
	Index           *loader.EntityIndex
	Cube            *cube.Cube
	Records         []loader.Record
	Series          string
	Variables       []string
	DefaultVariable string
	Rows            loader.RowStats
	LoadedAt        time.Time
	Elapsed         time.Duration
}

// NewSnapshot builds the cube over a loaded dataset and fixes the session series.
func NewSnapshot(ds *loader.Dataset, preferredVariable string) (*Snapshot, error) {
	c := cube.Build(ds.Records, ds.Geometry.Index.Len())
	fixed, err := series.PickNominal(c.Series())
	if err != nil {
		return nil, fmt.Errorf("fix series: %w", err)
	}
	vars := c.Variables()
	return &Snapshot{
		Geometry:        ds.Geometry,
		Index:           ds.Geometry.Index,
		Cube:            c,
		Records:         ds.Records,
		Series:          fixed,
		Variables:       vars,
		DefaultVariable: DefaultVariable(vars, preferredVariable),
		Rows:            ds.Stats,
		LoadedAt:        time.Now(),
		Elapsed:         ds.Elapsed,
	}, nil
}

// DefaultVariable returns the first variable whose lowercase text contains preferred, else the first one.
func DefaultVariable(vars []string, preferred string) string {
	if len(vars) == 0 {
		return ""
	}
	if p := strings.ToLower(preferred); p != "" {
		for _, v := range vars {
			if strings.Contains(strings.ToLower(v), p) {
				return v
			}
		}
	}
	return vars[0]
}

// Key is the combo of variable under the fixed series.
func (s *Snapshot) Key(variable string) cube.Key {
	return cube.Key{Variable: variable, Series: s.Series}
}

// Resolve maps an empty variable to the default one.
func (s *Snapshot) Resolve(variable string) string {
	if variable == "" {
		return s.DefaultVariable
	}
	return variable
}

// Years returns the ascending years of variable under the fixed series.
func (s *Snapshot) Years(variable string) []int {
	return s.Cube.Years(s.Key(variable))
}

// LastYear is the default ranking year; ok is false when the combo has no data.
func (s *Snapshot) LastYear(variable string) (int, bool) {
	years := s.Years(variable)
	if len(years) == 0 {
		return 0, false
	}
	return years[len(years)-1], true
}

// Indices resolves codes to entity positions, dropping unknown and repeated codes and keeping
// first-seen order.
func (s *Snapshot) Indices(codes []string) []int {
	idxs := make([]int, 0, len(codes))
	seen := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		i, ok := s.Index.Lookup(strings.TrimSpace(c))
		if !ok {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		idxs = append(idxs, i)
	}
	return idxs
}

// Limits bounds the top-N input.
type Limits struct {
	Min, Max, Default int
}

// DefaultLimits are the dashboard's top-N bounds.
var DefaultLimits = Limits{Min: 5, Max: 50, Default: 15}

// ClampTopN maps an absent (zero) value to the default and clamps everything else to [Min, Max].
func (l Limits) ClampTopN(n int) int {
	if n == 0 {
		n = l.Default
	}
	if n < l.Min {
		return l.Min
	}
	if n > l.Max {
		return l.Max
	}
	return n
}
