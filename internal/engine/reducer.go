package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Reducer names an accumulator operation of a Group stage.
type Reducer string

const (
	Sum   Reducer = "sum"
	Count Reducer = "count"
	Avg   Reducer = "avg"
	Min   Reducer = "min"
	Max   Reducer = "max"
	First Reducer = "first"
)

func (r Reducer) Valid() bool {
	switch r {
	case Sum, Count, Avg, Min, Max, First:
		return true
	}
	return false
}

// accumulator folds the values of one group. Implementations are not safe for
// concurrent use; each group owns its own.
type accumulator interface {
	add(v any, present bool)
	result() (any, bool)
}

func newAccumulator(r Reducer) (accumulator, error) {
	switch r {
	case Sum:
		return &sumAcc{}, nil
	case Count:
		return &countAcc{}, nil
	case Avg:
		return &avgAcc{}, nil
	case Min:
		return &extremeAcc{want: -1}, nil
	case Max:
		return &extremeAcc{want: 1}, nil
	case First:
		return &firstAcc{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownReducer, string(r))
	}
}

// sumAcc sums exactly. The result is int64 for integer input, decimal as soon
// as any decimal is seen, and float64 for float-only input.
type sumAcc struct {
	total decimal.Decimal
	kind  numKind
}

func (a *sumAcc) add(v any, present bool) {
	if !present {
		return
	}
	d, k := toNumber(v)
	if k == kindNone {
		return
	}
	a.total = a.total.Add(d)
	a.kind = widest(a.kind, k)
}

func (a *sumAcc) result() (any, bool) {
	if a.kind == kindNone {
		return int64(0), true
	}
	return fromNumber(a.total, a.kind), true
}

// countAcc counts rows, or present non-nil values when given an expression.
type countAcc struct{ n int64 }

func (a *countAcc) add(v any, present bool) {
	if present && v != nil {
		a.n++
	}
}

func (a *countAcc) result() (any, bool) { return a.n, true }

type avgAcc struct {
	total decimal.Decimal
	kind  numKind
	n     int64
}

func (a *avgAcc) add(v any, present bool) {
	if !present {
		return
	}
	d, k := toNumber(v)
	if k == kindNone {
		return
	}
	a.total = a.total.Add(d)
	a.kind = widest(a.kind, k)
	a.n++
}

// result is absent when no numeric value was seen.
func (a *avgAcc) result() (any, bool) {
	if a.n == 0 {
		return nil, false
	}
	avg := a.total.Div(decimal.NewFromInt(a.n))
	if a.kind == kindFloat {
		return avg.InexactFloat64(), true
	}
	return avg, true
}

type extremeAcc struct {
	want int
	val  any
	seen bool
}

func (a *extremeAcc) add(v any, present bool) {
	if !present || v == nil {
		return
	}
	if !a.seen || Compare(v, a.val) == a.want {
		a.val = v
		a.seen = true
	}
}

func (a *extremeAcc) result() (any, bool) { return a.val, true }

// firstAcc keeps the value of the first row of the group, even when absent.
type firstAcc struct {
	val     any
	present bool
	done    bool
}

func (a *firstAcc) add(v any, present bool) {
	if a.done {
		return
	}
	a.val, a.present, a.done = v, present, true
}

func (a *firstAcc) result() (any, bool) { return a.val, a.present }
