package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"ecomkpi/internal/core"
)

// maxRowErrors bounds how many bad rows are reported per table.
const maxRowErrors = 20

// header maps a column name, and its accepted aliases, to an index.
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		key := normalize(name)
		if _, dup := h[key]; !dup {
			h[key] = i
		}
	}
	return h
}

func normalize(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(name)
}

// col returns the index of the first alias present.
func (h header) col(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := h[normalize(a)]; ok {
			return i
		}
	}
	return -1
}

func (h header) require(table string, aliases ...string) (int, error) {
	if i := h.col(aliases...); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("%s: missing column %q", table, aliases[0])
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type rowErrors struct {
	table string
	errs  []error
	extra int
}

func (r *rowErrors) add(line int, err error) {
	if len(r.errs) >= maxRowErrors {
		r.extra++
		return
	}
	r.errs = append(r.errs, fmt.Errorf("%s line %d: %w", r.table, line, err))
}

func (r *rowErrors) err() error {
	if r.extra > 0 {
		r.errs = append(r.errs, fmt.Errorf("%s: %d more invalid rows", r.table, r.extra))
	}
	return errors.Join(r.errs...)
}

// ParseOrders converts a header row plus records into orders. Line numbers in
// errors are 1-based and count the header.
func ParseOrders(records [][]string) ([]core.Order, error) {
	if len(records) == 0 {
		return nil, nil
	}
	h := newHeader(records[0])
	var cols [11]int
	specs := [][]string{
		{"Order ID"},
		{"Customer ID", "Customers ID"},
		{"Product ID", "Products ID"},
		{"Postal Code", "Zip"},
		{"Order Date"},
		{"Ship Date"},
		{"Ship Mode"},
		{"Segment"},
		{"Sales"},
		{"Profit"},
		{"Quantity"},
	}
	for i, aliases := range specs {
		idx := h.col(aliases...)
		// Segment, Ship Date and Ship Mode are optional.
		if idx < 0 && i != 5 && i != 6 && i != 7 {
			return nil, fmt.Errorf("%s: missing column %q", TableOrders, aliases[0])
		}
		cols[i] = idx
	}

	out := make([]core.Order, 0, len(records)-1)
	bad := rowErrors{table: TableOrders}
	for n, row := range records[1:] {
		line := n + 2
		if blank(row) {
			continue
		}
		o, err := parseOrder(row, cols)
		if err != nil {
			bad.add(line, err)
			continue
		}
		if err := o.Validate(); err != nil {
			bad.add(line, err)
			continue
		}
		out = append(out, o)
	}
	return out, bad.err()
}

func parseOrder(row []string, c [11]int) (core.Order, error) {
	o := core.Order{
		OrderID:    cell(row, c[0]),
		CustomerID: cell(row, c[1]),
		ProductID:  cell(row, c[2]),
		PostalCode: cell(row, c[3]),
		ShipMode:   cell(row, c[6]),
		Segment:    cell(row, c[7]),
	}
	var err error
	if o.OrderDate, err = core.ParseDate(cell(row, c[4])); err != nil {
		return o, fmt.Errorf("order date: %w", err)
	}
	if o.ShipDate, err = core.ParseDate(cell(row, c[5])); err != nil {
		return o, fmt.Errorf("ship date: %w", err)
	}
	if o.Sales, err = core.ParseMoney(cell(row, c[8])); err != nil {
		return o, fmt.Errorf("sales: %w", err)
	}
	if o.Profit, err = core.ParseMoney(cell(row, c[9])); err != nil {
		return o, fmt.Errorf("profit: %w", err)
	}
	if q := cell(row, c[10]); q != "" {
		if o.Quantity, err = strconv.ParseInt(q, 10, 64); err != nil {
			return o, fmt.Errorf("quantity %q: not an integer", q)
		}
	}
	return o, nil
}

// ParseCustomers converts a header row plus records into customers.
func ParseCustomers(records [][]string) ([]core.Customer, error) {
	if len(records) == 0 {
		return nil, nil
	}
	h := newHeader(records[0])
	id, err := h.require(TableCustomers, "Customer ID", "Customers ID")
	if err != nil {
		return nil, err
	}
	name := h.col("Customer Name")
	segment := h.col("Segment")

	out := make([]core.Customer, 0, len(records)-1)
	bad := rowErrors{table: TableCustomers}
	for n, row := range records[1:] {
		if blank(row) {
			continue
		}
		c := core.Customer{CustomerID: cell(row, id), CustomerName: cell(row, name), Segment: cell(row, segment)}
		if c.CustomerID == "" {
			bad.add(n+2, errors.New("empty customer id"))
			continue
		}
		out = append(out, c)
	}
	return out, bad.err()
}

// ParseProducts converts a header row plus records into products.
func ParseProducts(records [][]string) ([]core.Product, error) {
	if len(records) == 0 {
		return nil, nil
	}
	h := newHeader(records[0])
	id, err := h.require(TableProducts, "Product ID", "Products ID")
	if err != nil {
		return nil, err
	}
	category := h.col("Category")
	sub := h.col("Sub-Category", "SubCategory")

	out := make([]core.Product, 0, len(records)-1)
	bad := rowErrors{table: TableProducts}
	for n, row := range records[1:] {
		if blank(row) {
			continue
		}
		p := core.Product{ProductID: cell(row, id), Category: cell(row, category), SubCategory: cell(row, sub)}
		if p.ProductID == "" {
			bad.add(n+2, errors.New("empty product id"))
			continue
		}
		out = append(out, p)
	}
	return out, bad.err()
}

// ParseLocations converts a header row plus records into locations. Duplicate
// postal codes are kept.
func ParseLocations(records [][]string) ([]core.Location, error) {
	if len(records) == 0 {
		return nil, nil
	}
	h := newHeader(records[0])
	code, err := h.require(TableLocation, "Postal Code", "Zip")
	if err != nil {
		return nil, err
	}
	city, state, region := h.col("City"), h.col("State"), h.col("Region")

	out := make([]core.Location, 0, len(records)-1)
	bad := rowErrors{table: TableLocation}
	for n, row := range records[1:] {
		if blank(row) {
			continue
		}
		l := core.Location{PostalCode: cell(row, code), City: cell(row, city), State: cell(row, state), Region: cell(row, region)}
		if l.PostalCode == "" {
			bad.add(n+2, errors.New("empty postal code"))
			continue
		}
		out = append(out, l)
	}
	return out, bad.err()
}

// Tables groups the raw records of the four tables, header row first.
type Tables struct {
	Orders    [][]string
	Customers [][]string
	Products  [][]string
	Locations [][]string
}

// Parse converts all four tables and reports every problem found.
func (t Tables) Parse(sourceName string) (*core.Dataset, error) {
	ds := &core.Dataset{Source: sourceName}
	var errs []error
	var err error
	if ds.Orders, err = ParseOrders(t.Orders); err != nil {
		errs = append(errs, err)
	}
	if ds.Customers, err = ParseCustomers(t.Customers); err != nil {
		errs = append(errs, err)
	}
	if ds.Products, err = ParseProducts(t.Products); err != nil {
		errs = append(errs, err)
	}
	if ds.Locations, err = ParseLocations(t.Locations); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ds, nil
}
