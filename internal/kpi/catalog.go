package kpi

import (
	"sort"

	"ecomkpi/internal/engine"
)

// Query is a named KPI: a declarative pipeline over the Orders collection.
type Query struct {
	Name        string
	Description string
	Pipeline    engine.Pipeline
	// Unfiltered queries ignore the year filter.
	Unfiltered bool
}

// Lookup target names, kept from the original dashboard payloads.
const (
	asCustomer = "CustomerDetails"
	asProduct  = "ProductsDetails"
	asLocation = "LocationDetails"
)

var (
	lookupCustomer = engine.Lookup{From: Customers, LocalField: FieldCustomerID, ForeignField: FieldCustomerID, As: asCustomer}
	lookupProduct  = engine.Lookup{From: Products, LocalField: FieldProductID, ForeignField: FieldProductID, As: asProduct}
	lookupLocation = engine.Lookup{From: Location, LocalField: FieldPostalCode, ForeignField: FieldPostalCode, As: asLocation}
)

func sum(name, field string) engine.Accumulator {
	return engine.Accumulator{Name: name, Op: engine.Sum, Expr: engine.Field(field)}
}

func count(name string) engine.Accumulator {
	return engine.Accumulator{Name: name, Op: engine.Count}
}

func as(name string, e engine.Expr) engine.Projection {
	return engine.Projection{Name: name, Expr: e}
}

func id(name string) engine.Projection { return as(name, engine.Field("_id")) }

func keep(name string) engine.Projection { return as(name, engine.Field(name)) }

// global folds all orders into a single row with one metric.
func global(metric engine.Accumulator) engine.Pipeline {
	return engine.Pipeline{
		engine.Group{Accumulators: []engine.Accumulator{metric}},
		engine.Project{Fields: []engine.Projection{keep(metric.Name)}},
	}
}

// breakdown groups by an order field and sorts by the metric, largest first.
func breakdown(key, field string, metric engine.Accumulator) engine.Pipeline {
	return engine.Pipeline{
		engine.Group{By: []engine.Projection{engine.By(key, field)}, Accumulators: []engine.Accumulator{metric}},
		engine.Project{Fields: []engine.Projection{id(key), keep(metric.Name)}},
		engine.Sort{Keys: []engine.SortKey{{Field: metric.Name, Desc: true}, {Field: key}}},
	}
}

// joinedBreakdown groups by a dimension attribute. Orders without a match are
// dropped from the breakdown by the unwind.
func joinedBreakdown(lookup engine.Lookup, key string, metric engine.Accumulator) engine.Pipeline {
	return append(engine.Pipeline{lookup, engine.Unwind{Field: lookup.As}},
		breakdown(key, lookup.As+"."+key, metric)...)
}

var catalog = buildCatalog()

func buildCatalog() map[string]Query {
	queries := []Query{
		{
			Name:        "total_sales",
			Description: "Sum of Sales over all orders",
			Pipeline:    global(sum("totalSales", FieldSales)),
		},
		{
			Name:        "total_profits",
			Description: "Sum of Profit over all orders",
			Pipeline:    global(sum("totalProfit", FieldProfit)),
		},
		{
			Name:        "total_orders",
			Description: "Number of order lines",
			Pipeline:    global(count("Order ID")),
		},
		{
			Name:        "average_sales",
			Description: "Total sales divided by the number of orders",
			Pipeline: engine.Pipeline{
				engine.Group{Accumulators: []engine.Accumulator{sum("totalSales", FieldSales), count("orderCount")}},
				engine.Project{Fields: []engine.Projection{
					as("averageSalesPerOrder", engine.Divide(engine.Field("totalSales"), engine.Field("orderCount"))),
				}},
			},
		},
		{
			Name:        "total_quantity",
			Description: "Sum of Quantity over all orders",
			Pipeline:    global(sum("totalQuantity", FieldQuantity)),
		},
		{
			Name:        "total_client",
			Description: "Number of distinct customers with at least one order",
			Pipeline: engine.Pipeline{
				engine.Group{By: []engine.Projection{engine.By(FieldCustomerID, FieldCustomerID)}},
				engine.Group{Accumulators: []engine.Accumulator{count("Customers ID")}},
				engine.Project{Fields: []engine.Projection{keep("Customers ID")}},
			},
		},
		{
			Name:        "orders_by_customers",
			Description: "Order count per customer",
			Pipeline:    breakdown(FieldCustomerID, FieldCustomerID, count("orderCount")),
		},
		{
			Name:        "average_orders_by_customers",
			Description: "Mean of the per-customer order count",
			Pipeline: engine.Pipeline{
				engine.Group{By: []engine.Projection{engine.By(FieldCustomerID, FieldCustomerID)}, Accumulators: []engine.Accumulator{count("orderCount")}},
				engine.Group{Accumulators: []engine.Accumulator{{Name: "averageOrdersPerCustomer", Op: engine.Avg, Expr: engine.Field("orderCount")}}},
				engine.Project{Fields: []engine.Projection{keep("averageOrdersPerCustomer")}},
			},
		},
		{
			Name:        "retention_by_customers",
			Description: "First and last order per returning customer",
			Pipeline: engine.Pipeline{
				engine.Group{
					By: []engine.Projection{engine.By(FieldCustomerID, FieldCustomerID)},
					Accumulators: []engine.Accumulator{
						{Name: "firstOrderDate", Op: engine.Min, Expr: engine.Field(FieldOrderDate)},
						{Name: "lastOrderDate", Op: engine.Max, Expr: engine.Field(FieldOrderDate)},
						count("orderCount"),
					},
				},
				engine.Match{Pred: func(r engine.Row) bool {
					n, _ := r.Get("orderCount").(int64)
					return n > 1
				}},
				engine.Project{Fields: []engine.Projection{
					id(FieldCustomerID),
					keep("firstOrderDate"),
					keep("lastOrderDate"),
					keep("orderCount"),
					as("retentionPeriodDays", engine.DaysBetween(engine.Field("firstOrderDate"), engine.Field("lastOrderDate"))),
				}},
				engine.Sort{Keys: []engine.SortKey{{Field: "retentionPeriodDays", Desc: true}, {Field: FieldCustomerID}}},
			},
		},
		{
			Name:        "revenue_by_category",
			Description: "Sales per product category",
			Pipeline:    joinedBreakdown(lookupProduct, FieldCategory, sum("totalSales", FieldSales)),
		},
		{
			Name:        "orders_by_category",
			Description: "Order count per product category",
			Pipeline:    joinedBreakdown(lookupProduct, FieldCategory, count("totalOrders")),
		},
		{
			Name:        "quantity_by_category",
			Description: "Quantity per product category",
			Pipeline:    joinedBreakdown(lookupProduct, FieldCategory, sum("totalQuantity", FieldQuantity)),
		},
		{
			Name:        "revenue_per_customer",
			Description: "Sales per customer name",
			Pipeline:    joinedBreakdown(lookupCustomer, FieldCustomerName, sum("totalSales", FieldSales)),
		},
		{
			Name:        "orders_per_customer",
			Description: "Order count per customer name",
			Pipeline:    joinedBreakdown(lookupCustomer, FieldCustomerName, count("totalOrders")),
		},
		{
			Name:        "quantity_per_customer",
			Description: "Quantity per customer name",
			Pipeline:    joinedBreakdown(lookupCustomer, FieldCustomerName, sum("totalQuantity", FieldQuantity)),
		},
		{
			Name:        "revenue_by_segment",
			Description: "Sales per customer segment",
			Pipeline:    breakdown(FieldSegment, FieldSegment, sum("totalRevenue", FieldSales)),
		},
		{
			Name:        "orders_by_segment",
			Description: "Order count per customer segment",
			Pipeline:    breakdown(FieldSegment, FieldSegment, count("TotalOrders")),
		},
		{
			Name:        "category_by_segment",
			Description: "Most ordered product category in each segment",
			Pipeline: engine.Pipeline{
				lookupProduct,
				// Orders without a product still count towards their segment.
				engine.Unwind{Field: asProduct, PreserveEmpty: true},
				engine.Group{
					By:           []engine.Projection{engine.By(FieldSegment, FieldSegment), engine.By(FieldCategory, asProduct+"."+FieldCategory)},
					Accumulators: []engine.Accumulator{count("count")},
				},
				engine.Project{Fields: append(engine.Keep("_id", "count"),
					as("matched", engine.Exists(engine.Field("_id."+FieldCategory))))},
				// A known category beats the missing one regardless of count.
				engine.Sort{Keys: []engine.SortKey{
					{Field: "matched", Desc: true},
					{Field: "count", Desc: true},
					{Field: "_id." + FieldCategory},
				}},
				engine.Group{
					By:           []engine.Projection{engine.By(FieldSegment, "_id."+FieldSegment)},
					Accumulators: []engine.Accumulator{{Name: "TopCategory", Op: engine.First, Expr: engine.Field("_id." + FieldCategory)}},
				},
				engine.Project{Fields: []engine.Projection{id(FieldSegment), keep("TopCategory")}},
				engine.Sort{Keys: []engine.SortKey{{Field: FieldSegment}}},
			},
		},
		{
			Name:        "average_per_ship_mode",
			Description: "Mean days between order and shipment per ship mode",
			Pipeline: engine.Pipeline{
				engine.Group{
					By: []engine.Projection{engine.By(FieldShipMode, FieldShipMode)},
					Accumulators: []engine.Accumulator{{
						Name: "AverageDaysDifference",
						Op:   engine.Avg,
						Expr: engine.DaysBetween(engine.Field(FieldOrderDate), engine.Field(FieldShipDate)),
					}},
				},
				engine.Project{Fields: []engine.Projection{
					id(FieldShipMode),
					as("AverageDaysDifference", engine.Round(engine.Field("AverageDaysDifference"), 1)),
				}},
				engine.Sort{Keys: []engine.SortKey{{Field: FieldShipMode}}},
			},
		},
		{
			Name:        "years",
			Description: "Distinct order years, ascending",
			Unfiltered:  true,
			Pipeline: engine.Pipeline{
				engine.Group{By: []engine.Projection{as("Year", engine.YearOf(engine.Field(FieldOrderDate)))}},
				engine.Match{Pred: func(r engine.Row) bool { return r.Get("_id") != nil }},
				engine.Project{Fields: []engine.Projection{id("Year")}},
				engine.Sort{Keys: []engine.SortKey{{Field: "Year"}}},
			},
		},
		{
			Name:        "orders_with_details",
			Description: "Every order with its customer, product and location matches",
			Pipeline: engine.Pipeline{
				lookupCustomer,
				lookupProduct,
				lookupLocation,
			},
		},
		{
			Name:        "quantity_per_products",
			Description: "Quantity per product",
			Pipeline:    breakdown(FieldProductID, FieldProductID, sum("quantity_per_products", FieldQuantity)),
		},
		{
			Name:        "total_orders_per_products",
			Description: "Order count per product",
			Pipeline:    breakdown(FieldProductID, FieldProductID, count("total_orders_per_products")),
		},
		{
			Name:        "revenue_by_products",
			Description: "Sales per product, largest first",
			Pipeline:    breakdown(FieldProductID, FieldProductID, sum("totalRevenue", FieldSales)),
		},
		{
			Name:        "revenue_by_region",
			Description: "Sales per region",
			Pipeline:    joinedBreakdown(lookupLocation, FieldRegion, sum("totalSales", FieldSales)),
		},
	}

	out := make(map[string]Query, len(queries)+len(aliases))
	for _, q := range queries {
		out[q.Name] = q
	}
	for alias, name := range aliases {
		out[alias] = out[name]
	}
	return out
}

// aliases keeps the misspelled route of the original dashboard working.
var aliases = map[string]string{
	"revenus_by_products": "revenue_by_products",
}

// Lookup returns the query registered under name or one of its aliases.
func Lookup(name string) (Query, bool) {
	q, ok := catalog[name]
	return q, ok
}

// Names lists the canonical query names in lexical order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		if _, alias := aliases[name]; alias {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
