package kpi

import (
	"time"

	"ecomkpi/internal/core"
	"ecomkpi/internal/engine"
)

// Collection names exposed to pipelines.
const (
	Orders    = "Orders"
	Customers = "Customers"
	Products  = "Products"
	Location  = "Location"
)

// Row field names.
const (
	FieldOrderID      = "OrderID"
	FieldCustomerID   = "CustomerID"
	FieldProductID    = "ProductID"
	FieldPostalCode   = "PostalCode"
	FieldOrderDate    = "OrderDate"
	FieldShipDate     = "ShipDate"
	FieldShipMode     = "ShipMode"
	FieldSegment      = "Segment"
	FieldSales        = "Sales"
	FieldProfit       = "Profit"
	FieldQuantity     = "Quantity"
	FieldCustomerName = "CustomerName"
	FieldCategory     = "Category"
	FieldSubCategory  = "SubCategory"
	FieldCity         = "City"
	FieldState        = "State"
	FieldRegion       = "Region"
)

// Snapshot is the immutable, row-shaped view of a dataset that queries run
// against. Dimension tables are indexed on their join keys once, at build time.
type Snapshot struct {
	tables   *engine.Tables
	orders   []engine.Row
	source   string
	loadedAt time.Time
	counts   map[string]int
}

// NewSnapshot converts ds into rows. ds must not be modified afterwards.
func NewSnapshot(ds *core.Dataset) *Snapshot {
	orders := make([]engine.Row, len(ds.Orders))
	for i, o := range ds.Orders {
		orders[i] = orderRow(o)
	}
	customers := make([]engine.Row, len(ds.Customers))
	for i, c := range ds.Customers {
		customers[i] = engine.Row{
			FieldCustomerID:   c.CustomerID,
			FieldCustomerName: c.CustomerName,
			FieldSegment:      c.Segment,
		}
	}
	products := make([]engine.Row, len(ds.Products))
	for i, p := range ds.Products {
		products[i] = engine.Row{
			FieldProductID:   p.ProductID,
			FieldCategory:    p.Category,
			FieldSubCategory: p.SubCategory,
		}
	}
	locations := make([]engine.Row, len(ds.Locations))
	for i, l := range ds.Locations {
		locations[i] = engine.Row{
			FieldPostalCode: l.PostalCode,
			FieldCity:       l.City,
			FieldState:      l.State,
			FieldRegion:     l.Region,
		}
	}

	tables := engine.NewTables().
		Add(Orders, orders, FieldCustomerID, FieldProductID, FieldPostalCode).
		Add(Customers, customers, FieldCustomerID).
		Add(Products, products, FieldProductID).
		Add(Location, locations, FieldPostalCode)

	loadedAt := ds.LoadedAt
	if loadedAt.IsZero() {
		loadedAt = time.Now().UTC()
	}
	return &Snapshot{
		tables:   tables,
		orders:   orders,
		source:   ds.Source,
		loadedAt: loadedAt,
		counts:   ds.Counts(),
	}
}

func orderRow(o core.Order) engine.Row {
	r := engine.Row{
		FieldOrderID:    o.OrderID,
		FieldCustomerID: o.CustomerID,
		FieldProductID:  o.ProductID,
		FieldPostalCode: o.PostalCode,
		FieldOrderDate:  o.OrderDate,
		FieldShipMode:   o.ShipMode,
		FieldSegment:    o.Segment,
		FieldSales:      o.Sales,
		FieldProfit:     o.Profit,
		FieldQuantity:   o.Quantity,
	}
	if !o.ShipDate.IsZero() {
		r[FieldShipDate] = o.ShipDate
	}
	return r
}

func (s *Snapshot) Tables() engine.Collections { return s.tables }

func (s *Snapshot) Orders() []engine.Row { return s.orders }

func (s *Snapshot) Source() string { return s.source }

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Counts returns a copy of the per-table row counts.
func (s *Snapshot) Counts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
