package engine

// Collections resolves the named tables a Lookup stage may join against.
type Collections interface {
	Collection(name string) ([]Row, bool)
}

// Indexed is implemented by collections that keep prebuilt join indexes.
// Lookup falls back to building an index per run when it is absent.
type Indexed interface {
	Index(collection, field string) (Index, bool)
}

// Tables is the default Collections implementation. It is built once and is
// safe for concurrent reads afterwards.
type Tables struct {
	data    map[string][]Row
	indexes map[string]map[string]Index
}

func NewTables() *Tables {
	return &Tables{
		data:    make(map[string][]Row),
		indexes: make(map[string]map[string]Index),
	}
}

// Add registers a collection and builds an index for each of the given fields.
func (t *Tables) Add(name string, rows []Row, indexFields ...string) *Tables {
	t.data[name] = rows
	if len(indexFields) > 0 {
		idx := make(map[string]Index, len(indexFields))
		for _, f := range indexFields {
			idx[f] = BuildIndex(rows, f)
		}
		t.indexes[name] = idx
	}
	return t
}

func (t *Tables) Collection(name string) ([]Row, bool) {
	rows, ok := t.data[name]
	return rows, ok
}

func (t *Tables) Index(collection, field string) (Index, bool) {
	idx, ok := t.indexes[collection][field]
	return idx, ok
}
