package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type numKind int

const (
	kindNone numKind = iota
	kindInt
	kindFloat
	kindDecimal
)

// toNumber widens any supported numeric value to a decimal and reports the
// kind it came from.
func toNumber(v any) (decimal.Decimal, numKind) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), kindInt
	case int32:
		return decimal.NewFromInt32(n), kindInt
	case int64:
		return decimal.NewFromInt(n), kindInt
	case float32:
		return decimal.NewFromFloat32(n), kindFloat
	case float64:
		return decimal.NewFromFloat(n), kindFloat
	case decimal.Decimal:
		return n, kindDecimal
	case *decimal.Decimal:
		if n == nil {
			return decimal.Zero, kindNone
		}
		return *n, kindDecimal
	default:
		return decimal.Zero, kindNone
	}
}

// keyOf normalizes a value to a map key. Numbers of different Go types that
// are equal produce the same key.
func keyOf(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case string:
		return "s:" + x
	case bool:
		if x {
			return "b:1"
		}
		return "b:0"
	case time.Time:
		return "t:" + x.UTC().Format(time.RFC3339Nano)
	case Row:
		return "r:" + compositeKey(x)
	}
	if d, k := toNumber(v); k != kindNone {
		return "n:" + d.String()
	}
	return fmt.Sprintf("%T:%v", v, v)
}

func compositeKey(r Row) string {
	keys := sortedKeys(r)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(keyOf(r[k]))
		b.WriteByte('\x1f')
	}
	return b.String()
}

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case string:
		return 2
	case time.Time:
		return 3
	case bool:
		return 4
	}
	if _, k := toNumber(v); k != kindNone {
		return 1
	}
	return 5
}

// Compare orders two values: nil first, then numbers, strings, times, bools.
// Values of different kinds order by kind.
func Compare(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		return 0
	case 1:
		da, _ := toNumber(a)
		db, _ := toNumber(b)
		return da.Cmp(db)
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		return a.(time.Time).Compare(b.(time.Time))
	case 4:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}
