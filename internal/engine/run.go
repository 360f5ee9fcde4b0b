package engine

import (
	"context"
	"fmt"
	"sort"
)

// Run validates the pipeline and evaluates it over input. The result is never
// nil and never shares top-level rows with input. Cancellation is checked
// between stages.
func Run(ctx context.Context, input []Row, p Pipeline, c Collections) ([]Row, error) {
	if err := p.Validate(c); err != nil {
		return nil, err
	}

	rows := input
	fresh := false
	for i, s := range p {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("stage %d: %w", i, err)
		}
		switch st := s.(type) {
		case Match:
			rows = runMatch(rows, st)
		case Lookup:
			rows = runLookup(rows, st, c)
			fresh = true
		case Unwind:
			rows = runUnwind(rows, st)
			fresh = true
		case Group:
			var err error
			if rows, err = runGroup(rows, st); err != nil {
				return nil, fmt.Errorf("stage %d: %w", i, err)
			}
			fresh = true
		case Project:
			rows = runProject(rows, st)
			fresh = true
		case Sort:
			rows = runSort(rows, st)
		case Limit:
			if len(rows) > st.N {
				rows = rows[:st.N]
			}
		default:
			return nil, invalid("stage %d has unsupported type %T", i, s)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		if !fresh {
			r = r.Clone(0)
		}
		out[i] = r
	}
	return out, nil
}

func runMatch(rows []Row, s Match) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if s.Pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func runLookup(rows []Row, s Lookup, c Collections) []Row {
	var idx Index
	if ix, ok := c.(Indexed); ok {
		idx, ok = ix.Index(s.From, s.ForeignField)
		if !ok {
			idx = nil
		}
	}
	if idx == nil {
		dim, _ := c.Collection(s.From)
		idx = BuildIndex(dim, s.ForeignField)
	}
	out := make([]Row, len(rows))
	for i, j := range joinIndexed(rows, idx, s.LocalField) {
		r := j.Row.Clone(1)
		r[s.As] = j.Matches
		out[i] = r
	}
	return out
}

func runUnwind(rows []Row, s Unwind) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		v, _ := r.Lookup(s.Field)
		elems, _ := v.([]Row)
		if len(elems) == 0 {
			if s.PreserveEmpty {
				nr := r.Clone(0)
				delete(nr, s.Field)
				out = append(out, nr)
			}
			continue
		}
		for _, e := range elems {
			nr := r.Clone(0)
			nr[s.Field] = e
			out = append(out, nr)
		}
	}
	return out
}

type groupState struct {
	id   any
	accs []accumulator
}

func runGroup(rows []Row, s Group) ([]Row, error) {
	var order []*groupState
	groups := make(map[string]*groupState)

	for _, r := range rows {
		id := groupID(r, s.By)
		k := keyOf(id)
		g, ok := groups[k]
		if !ok {
			g = &groupState{id: id, accs: make([]accumulator, len(s.Accumulators))}
			for i, a := range s.Accumulators {
				acc, err := newAccumulator(a.Op)
				if err != nil {
					return nil, err
				}
				g.accs[i] = acc
			}
			groups[k] = g
			order = append(order, g)
		}
		for i, a := range s.Accumulators {
			if a.Expr == nil {
				g.accs[i].add(int64(1), true)
				continue
			}
			v, present := a.Expr(r)
			g.accs[i].add(v, present)
		}
	}

	out := make([]Row, 0, len(order))
	for _, g := range order {
		row := make(Row, len(s.Accumulators)+1)
		row["_id"] = g.id
		for i, a := range s.Accumulators {
			if v, ok := g.accs[i].result(); ok {
				row[a.Name] = v
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// groupID builds the _id of a row. A missing key is treated as nil so that
// such rows share one group.
func groupID(r Row, by []Projection) any {
	switch len(by) {
	case 0:
		return nil
	case 1:
		v, _ := by[0].Expr(r)
		return v
	}
	id := make(Row, len(by))
	for _, k := range by {
		v, _ := k.Expr(r)
		id[k.Name] = v
	}
	return id
}

func runProject(rows []Row, s Project) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		nr := make(Row, len(s.Fields))
		for _, f := range s.Fields {
			if v, ok := f.Expr(r); ok {
				nr[f.Name] = v
			}
		}
		out[i] = nr
	}
	return out
}

func runSort(rows []Row, s Sort) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		for _, k := range s.Keys {
			c := Compare(out[i].Get(k.Field), out[j].Get(k.Field))
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}
