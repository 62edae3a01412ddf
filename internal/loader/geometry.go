package loader

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Geometry is the loaded boundary map. Raw is handed to the rendering side unchanged; Shapes is aligned
// with Index (Shapes[i] belongs to Index.At(i)) and may hold nil for features without geometry.
type Geometry struct {
	Raw     json.RawMessage
	Index   *EntityIndex
	Shapes  []geom.T
	Skipped int
}

// GeometryOptions names the feature properties holding the entity code and display name.
// A property may be a plain key ("CD_MUN7"), a dotted path ("meta.code") or a JSONPath ("$['Nome']").
type GeometryOptions struct {
	CodeProperty string
	NameProperty string
}

// LoadGeometry decodes a GeoJSON FeatureCollection and builds the entity index from it.
// Features whose code property is missing are skipped; duplicate codes keep the first feature.
func LoadGeometry(data []byte, opts GeometryOptions) (*Geometry, error) {
	codeExpr, err := propertyPath(opts.CodeProperty)
	if err != nil {
		return nil, fmt.Errorf("code property: %w", err)
	}
	var nameExpr jp.Expr
	if opts.NameProperty != "" {
		if nameExpr, err = propertyPath(opts.NameProperty); err != nil {
			return nil, fmt.Errorf("name property: %w", err)
		}
	}

	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	codes := make([]string, 0, len(fc.Features))
	names := make([]string, 0, len(fc.Features))
	shapes := make([]geom.T, 0, len(fc.Features))
	skipped := 0
	for _, ft := range fc.Features {
		if ft == nil {
			skipped++
			continue
		}
		props := map[string]any(ft.Properties)
		code, ok := propertyString(codeExpr, props)
		if !ok || code == "" {
			skipped++
			continue
		}
		name := ""
		if nameExpr != nil {
			name, _ = propertyString(nameExpr, props)
		}
		codes = append(codes, code)
		names = append(names, name)
		shapes = append(shapes, ft.Geometry)
	}

	idx, dups := NewEntityIndex(codes, names)
	if len(dups) > 0 {
		// drop the shapes of the duplicates so Shapes stays aligned with the index
		kept := make([]geom.T, 0, idx.Len())
		seen := make(map[string]bool, idx.Len())
		for i, code := range codes {
			if seen[code] {
				continue
			}
			seen[code] = true
			kept = append(kept, shapes[i])
		}
		shapes = kept
		skipped += len(dups)
	}

	return &Geometry{
		Raw:     json.RawMessage(data),
		Index:   idx,
		Shapes:  shapes,
		Skipped: skipped,
	}, nil
}

func propertyPath(p string) (jp.Expr, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return nil, fmt.Errorf("empty property path")
	}
	if strings.HasPrefix(p, "$") {
		return jp.ParseString(p)
	}
	p = strings.TrimPrefix(p, "properties.")
	x := jp.R()
	for _, part := range strings.Split(p, ".") {
		x = x.C(part)
	}
	return x, nil
}

// propertyString renders a property the way the dashboard always has: strings as-is, integral numbers
// without exponent or decimals.
func propertyString(x jp.Expr, props map[string]any) (string, bool) {
	if props == nil {
		return "", false
	}
	switch v := x.First(props).(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}
