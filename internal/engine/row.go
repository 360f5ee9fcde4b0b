// Package engine evaluates typed aggregation pipelines over in-memory rows.
//
// A pipeline is an ordered list of stages (Match, Lookup, Unwind, Group,
// Project, Sort, Limit). Run interprets it against an input slice and a set
// of named collections used by Lookup. Input rows are never modified; every
// stage that reshapes rows produces new ones.
package engine

import "strings"

// Row is a single record flowing through a pipeline. Values are Go scalars
// (string, int64, float64, bool, decimal.Decimal, time.Time), nested Rows,
// []Row for lookup results, or nil.
type Row map[string]any

// Lookup resolves a dotted path such as "ProductsDetails.Category". The second
// result is false when any segment is absent.
func (r Row) Lookup(path string) (any, bool) {
	var cur any = r
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case Row:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

// Get is Lookup without the presence flag.
func (r Row) Get(path string) any {
	v, _ := r.Lookup(path)
	return v
}

// Clone returns a shallow copy with room for extra fields.
func (r Row) Clone(extra int) Row {
	out := make(Row, len(r)+extra)
	for k, v := range r {
		out[k] = v
	}
	return out
}
