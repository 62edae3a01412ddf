package loader

// Entity is one municipality. Index is its fixed position in every value vector of the session.
type Entity struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// EntityIndex is the ordered entity list plus its code lookup. It is immutable once built.
type EntityIndex struct {
	entities []Entity
	byCode   map[string]int
}

// NewEntityIndex assigns positions in input order. Duplicate codes keep their first position and are
// reported back so the caller can log them.
func NewEntityIndex(codes, names []string) (*EntityIndex, []string) {
	idx := &EntityIndex{
		entities: make([]Entity, 0, len(codes)),
		byCode:   make(map[string]int, len(codes)),
	}
	var dups []string
	for i, code := range codes {
		if _, seen := idx.byCode[code]; seen {
			dups = append(dups, code)
			continue
		}
		name := code
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		pos := len(idx.entities)
		idx.entities = append(idx.entities, Entity{Code: code, Name: name, Index: pos})
		idx.byCode[code] = pos
	}
	return idx, dups
}

// Len is the number of entities, and so the length of every cube vector.
func (x *EntityIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.entities)
}

// At returns the entity at position i.
func (x *EntityIndex) At(i int) Entity {
	return x.entities[i]
}

// Lookup returns the position of code.
func (x *EntityIndex) Lookup(code string) (int, bool) {
	if x == nil {
		return 0, false
	}
	i, ok := x.byCode[code]
	return i, ok
}

// Entities returns a copy of the ordered list.
func (x *EntityIndex) Entities() []Entity {
	out := make([]Entity, len(x.entities))
	copy(out, x.entities)
	return out
}

// Codes returns the codes in index order.
func (x *EntityIndex) Codes() []string {
	out := make([]string, len(x.entities))
	for i, e := range x.entities {
		out[i] = e.Code
	}
	return out
}

// Names returns the display names in index order.
func (x *EntityIndex) Names() []string {
	out := make([]string, len(x.entities))
	for i, e := range x.entities {
		out[i] = e.Name
	}
	return out
}
