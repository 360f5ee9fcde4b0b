package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ecomkpi/internal/core"
	"ecomkpi/internal/source"
)

// parseValues converts the value matrices of the orders, customers, products
// and location tabs, in that order, into a dataset.
func parseValues(values [][][]interface{}, name string) (*core.Dataset, error) {
	var t source.Tables
	dst := []*[][]string{&t.Orders, &t.Customers, &t.Products, &t.Locations}
	for i := range dst {
		if i < len(values) {
			*dst[i] = toRecords(values[i])
		}
	}
	ds, err := t.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("parse sheets: %w", err)
	}
	ds.LoadedAt = time.Now().UTC()
	return ds, nil
}

func toRecords(in [][]interface{}) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = toStrings(row)
	}
	return out
}

// toStrings renders cells as text. Whole floats print without a fraction so
// that numeric postal codes and quantities parse as integers.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
