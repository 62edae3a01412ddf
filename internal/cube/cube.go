// Package cube reshapes flat records into per-(variable, series) yearly vectors aligned to the entity index.
package cube

import (
	"sort"
	"strconv"

	"painelpib/internal/loader"
)

// Key identifies a combo.
type Key struct {
	Variable string `json:"variable"`
	Series   string `json:"series"`
}

// Value is one vector slot. A slot without an observation is not zero; Valid is false and it encodes
// as JSON null.
type Value struct {
	V     float64
	Valid bool
}

// Some wraps an observed value.
func Some(v float64) Value { return Value{V: v, Valid: true} }

// MarshalJSON writes the number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v.V, 'f', -1, 64), nil
}

// Vector holds one slot per entity, position i belonging to entity i.
type Vector []Value

// Populated counts the slots with a value.
func (vec Vector) Populated() int {
	n := 0
	for _, v := range vec {
		if v.Valid {
			n++
		}
	}
	return n
}

// Finite returns the observed values in entity order.
func (vec Vector) Finite() []float64 {
	out := make([]float64, 0, len(vec))
	for _, v := range vec {
		if v.Valid {
			out = append(out, v.V)
		}
	}
	return out
}

type combo struct {
	byYear map[int]Vector
	years  []int
}

// Cube is immutable after Build. Vectors handed out are shared and must not be modified.
type Cube struct {
	entities   int
	combos     map[Key]*combo
	variables  []string
	series     []string
	overwrites int
}

// Build consumes the records in order. A record landing on an already filled slot replaces it; such
// overwrites are counted, not rejected.
func Build(recs []loader.Record, entities int) *Cube {
	c := &Cube{
		entities: entities,
		combos:   make(map[Key]*combo),
	}
	vars := make(map[string]struct{})
	sers := make(map[string]struct{})

	for _, r := range recs {
		if r.Index < 0 || r.Index >= entities {
			continue
		}
		k := Key{Variable: r.Variable, Series: r.Series}
		cb, ok := c.combos[k]
		if !ok {
			cb = &combo{byYear: make(map[int]Vector)}
			c.combos[k] = cb
		}
		vec, ok := cb.byYear[r.Year]
		if !ok {
			vec = make(Vector, entities)
			cb.byYear[r.Year] = vec
		}
		if vec[r.Index].Valid {
			c.overwrites++
		}
		vec[r.Index] = Some(r.Value)
		vars[r.Variable] = struct{}{}
		sers[r.Series] = struct{}{}
	}

	for _, cb := range c.combos {
		cb.years = make([]int, 0, len(cb.byYear))
		for y := range cb.byYear {
			cb.years = append(cb.years, y)
		}
		sort.Ints(cb.years)
	}
	c.variables = sortedKeys(vars)
	c.series = sortedKeys(sers)
	return c
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Entities is the slot count of every vector.
func (c *Cube) Entities() int { return c.entities }

// Overwrites is the number of records that replaced an earlier value for the same slot.
func (c *Cube) Overwrites() int { return c.overwrites }

// Variables returns the sorted distinct variables.
func (c *Cube) Variables() []string { return append([]string(nil), c.variables...) }

// Series returns the sorted distinct series labels.
func (c *Cube) Series() []string { return append([]string(nil), c.series...) }

// Has reports whether any record landed on k.
func (c *Cube) Has(k Key) bool {
	_, ok := c.combos[k]
	return ok
}

// Years returns the ascending years present for k; nil when k is unknown.
func (c *Cube) Years(k Key) []int {
	cb, ok := c.combos[k]
	if !ok {
		return nil
	}
	return append([]int(nil), cb.years...)
}

// Vector returns the slots of k at year.
func (c *Cube) Vector(k Key, year int) (Vector, bool) {
	cb, ok := c.combos[k]
	if !ok {
		return nil, false
	}
	vec, ok := cb.byYear[year]
	return vec, ok
}

// Keys lists the combos, ordered by variable then series.
func (c *Cube) Keys() []Key {
	out := make([]Key, 0, len(c.combos))
	for k := range c.combos {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Variable != out[j].Variable {
			return out[i].Variable < out[j].Variable
		}
		return out[i].Series < out[j].Series
	})
	return out
}
