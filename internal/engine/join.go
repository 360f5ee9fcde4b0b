package engine

// Index maps a normalized key to every row carrying it. Duplicate keys are
// kept, so a lookup may fan out.
type Index map[string][]Row

// BuildIndex indexes rows by field. Rows missing the field, or holding nil, are
// not indexed.
func BuildIndex(rows []Row, field string) Index {
	idx := make(Index, len(rows))
	for _, r := range rows {
		v, ok := r.Lookup(field)
		if !ok || v == nil {
			continue
		}
		k := keyOf(v)
		idx[k] = append(idx[k], r)
	}
	return idx
}

// Matches returns the rows whose indexed field equals v, in insertion order.
func (idx Index) Matches(v any) []Row {
	if v == nil {
		return nil
	}
	return idx[keyOf(v)]
}

// Joined pairs a base row with the dimension rows sharing its key.
type Joined struct {
	Row     Row
	Matches []Row
}

// Join performs a left outer join of base against dimension. Every base row
// appears exactly once, in input order; unmatched rows get an empty Matches.
// Numeric keys compare by value, so an int64 postal code matches a decimal one.
func Join(base, dimension []Row, localKey, foreignKey string) []Joined {
	return joinIndexed(base, BuildIndex(dimension, foreignKey), localKey)
}

func joinIndexed(base []Row, idx Index, localKey string) []Joined {
	out := make([]Joined, len(base))
	for i, r := range base {
		v, _ := r.Lookup(localKey)
		m := idx.Matches(v)
		if m == nil {
			m = []Row{}
		}
		out[i] = Joined{Row: r, Matches: m}
	}
	return out
}
