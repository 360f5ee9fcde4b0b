package engine

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Expr computes a value from a row. The boolean is false when the value is
// absent; Project omits absent fields and accumulators skip them.
type Expr func(Row) (any, bool)

// Field reads a dotted path from the row.
func Field(path string) Expr {
	return func(r Row) (any, bool) { return r.Lookup(path) }
}

// Divide yields a/b. Division by zero or a non-numeric operand yields an
// absent value. Integer operands produce a decimal.
func Divide(a, b Expr) Expr {
	return func(r Row) (any, bool) {
		av, ok := a(r)
		if !ok {
			return nil, false
		}
		bv, ok := b(r)
		if !ok {
			return nil, false
		}
		da, ka := toNumber(av)
		db, kb := toNumber(bv)
		if ka == kindNone || kb == kindNone || db.IsZero() {
			return nil, false
		}
		if ka == kindFloat || kb == kindFloat {
			if ka != kindDecimal && kb != kindDecimal {
				return da.InexactFloat64() / db.InexactFloat64(), true
			}
		}
		return da.Div(db), true
	}
}

// DaysBetween yields (to - from) in fractional days as a float64.
func DaysBetween(from, to Expr) Expr {
	return func(r Row) (any, bool) {
		fv, ok := from(r)
		if !ok {
			return nil, false
		}
		tv, ok := to(r)
		if !ok {
			return nil, false
		}
		ft, ok1 := fv.(time.Time)
		tt, ok2 := tv.(time.Time)
		if !ok1 || !ok2 || ft.IsZero() || tt.IsZero() {
			return nil, false
		}
		return float64(tt.Sub(ft).Milliseconds()) / 86400000, true
	}
}

// Round rounds a number half away from zero to the given number of decimal
// places, keeping its kind.
func Round(e Expr, places int32) Expr {
	return func(r Row) (any, bool) {
		v, ok := e(r)
		if !ok || v == nil {
			return v, ok
		}
		switch n := v.(type) {
		case float64:
			p := math.Pow(10, float64(places))
			return math.Round(n*p) / p, true
		case decimal.Decimal:
			return n.Round(places), true
		}
		if _, k := toNumber(v); k == kindInt {
			return v, true
		}
		return nil, false
	}
}

// Exists yields true when e is present and not nil.
func Exists(e Expr) Expr {
	return func(r Row) (any, bool) {
		v, ok := e(r)
		return ok && v != nil, true
	}
}

// YearOf extracts the UTC calendar year of a time as an int64.
func YearOf(e Expr) Expr {
	return func(r Row) (any, bool) {
		v, ok := e(r)
		if !ok {
			return nil, false
		}
		t, ok := v.(time.Time)
		if !ok || t.IsZero() {
			return nil, false
		}
		return int64(t.UTC().Year()), true
	}
}

func widest(a, b numKind) numKind {
	if a > b {
		return a
	}
	return b
}

func fromNumber(d decimal.Decimal, k numKind) any {
	switch k {
	case kindInt:
		return d.IntPart()
	case kindFloat:
		return d.InexactFloat64()
	default:
		return d
	}
}
