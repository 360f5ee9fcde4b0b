package engine

import (
	"fmt"
)

// Stage is one step of a Pipeline. The set of stages is closed.
type Stage interface {
	stage()
	validate(c Collections) error
}

type (
	// Match keeps the rows for which Pred returns true.
	Match struct {
		Pred func(Row) bool
	}

	// Lookup attaches to each row, under As, the []Row of rows in collection
	// From whose ForeignField equals the row's LocalField. Rows without a
	// match get an empty slice.
	Lookup struct {
		From         string
		LocalField   string
		ForeignField string
		As           string
	}

	// Unwind emits one row per element of the []Row at Field, replacing the
	// slice with the element. Rows with an empty or missing slice are dropped
	// unless PreserveEmpty is set.
	Unwind struct {
		Field         string
		PreserveEmpty bool
	}

	// Group partitions rows by the By keys and folds each partition with the
	// accumulators. The output row carries the key under "_id": the value itself
	// for a single key, a Row for several, nil for none.
	Group struct {
		By           []Projection
		Accumulators []Accumulator
	}

	// Project replaces each row with the listed computed fields.
	Project struct {
		Fields []Projection
	}

	// Sort orders rows stably by the keys, in priority order.
	Sort struct {
		Keys []SortKey
	}

	Limit struct {
		N int
	}
)

// Projection names a computed value.
type Projection struct {
	Name string
	Expr Expr
}

// Accumulator names a reduction over the rows of a group. Expr may be nil for
// Count, which then counts rows.
type Accumulator struct {
	Name string
	Op   Reducer
	Expr Expr
}

type SortKey struct {
	Field string
	Desc  bool
}

// Keep projects each named path under its own name.
func Keep(paths ...string) []Projection {
	out := make([]Projection, len(paths))
	for i, p := range paths {
		out[i] = Projection{Name: p, Expr: Field(p)}
	}
	return out
}

// By is shorthand for a group key read from a field.
func By(name, path string) Projection {
	return Projection{Name: name, Expr: Field(path)}
}

func (Match) stage()   {}
func (Lookup) stage()  {}
func (Unwind) stage()  {}
func (Group) stage()   {}
func (Project) stage() {}
func (Sort) stage()    {}
func (Limit) stage()   {}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStage, fmt.Sprintf(format, args...))
}

func (s Match) validate(Collections) error {
	if s.Pred == nil {
		return invalid("match without predicate")
	}
	return nil
}

func (s Lookup) validate(c Collections) error {
	if s.LocalField == "" || s.ForeignField == "" || s.As == "" {
		return invalid("lookup on %q needs local, foreign and target fields", s.From)
	}
	if c == nil {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, s.From)
	}
	if _, ok := c.Collection(s.From); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, s.From)
	}
	return nil
}

func (s Unwind) validate(Collections) error {
	if s.Field == "" {
		return invalid("unwind without field")
	}
	return nil
}

func (s Group) validate(Collections) error {
	seen := make(map[string]bool, len(s.Accumulators)+1)
	seen["_id"] = true
	for _, k := range s.By {
		if k.Name == "" || k.Expr == nil {
			return invalid("group key needs a name and an expression")
		}
	}
	for _, a := range s.Accumulators {
		if !a.Op.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownReducer, string(a.Op))
		}
		if a.Name == "" {
			return invalid("unnamed %s accumulator", a.Op)
		}
		if seen[a.Name] {
			return invalid("duplicate output field %q", a.Name)
		}
		seen[a.Name] = true
		if a.Expr == nil && a.Op != Count {
			return invalid("%s accumulator %q needs an expression", a.Op, a.Name)
		}
	}
	return nil
}

func (s Project) validate(Collections) error {
	if len(s.Fields) == 0 {
		return invalid("empty projection")
	}
	for _, f := range s.Fields {
		if f.Name == "" || f.Expr == nil {
			return invalid("projection needs a name and an expression")
		}
	}
	return nil
}

func (s Sort) validate(Collections) error {
	if len(s.Keys) == 0 {
		return invalid("sort without keys")
	}
	for _, k := range s.Keys {
		if k.Field == "" {
			return invalid("sort key without field")
		}
	}
	return nil
}

func (s Limit) validate(Collections) error {
	if s.N <= 0 {
		return invalid("limit must be positive, got %d", s.N)
	}
	return nil
}

// Pipeline is an ordered list of stages.
type Pipeline []Stage

// Validate checks every stage against the available collections.
func (p Pipeline) Validate(c Collections) error {
	for i, s := range p {
		if s == nil {
			return invalid("stage %d is nil", i)
		}
		if err := s.validate(c); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
	}
	return nil
}
