package kpi

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ecomkpi/internal/core"
	"ecomkpi/internal/log"
)

func d(y int, m time.Month, day int) time.Time { return time.Date(y, m, day, 0, 0, 0, 0, time.UTC) }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

// fixture is a small dataset spanning 2022-2024. Consumer orders split five
// Office Supplies to three Furniture; O10 references a product and a postal
// code that do not exist.
func fixture() *core.Dataset {
	order := func(id, cust, prod, zip string, od, sd time.Time, mode, seg, sales, profit string, qty int64) core.Order {
		return core.Order{
			OrderID: id, CustomerID: cust, ProductID: prod, PostalCode: zip,
			OrderDate: od, ShipDate: sd, ShipMode: mode, Segment: seg,
			Sales: money(sales), Profit: money(profit), Quantity: qty,
		}
	}
	return &core.Dataset{
		Source:   "fixture",
		LoadedAt: d(2024, 6, 1),
		Orders: []core.Order{
			order("O1", "C1", "OS1", "10001", d(2023, 1, 1), d(2023, 1, 3), "Second Class", "Consumer", "10.10", "1.01", 1),
			order("O2", "C1", "OS1", "10001", d(2023, 1, 11), d(2023, 1, 15), "Standard Class", "Consumer", "20.20", "2.02", 2),
			order("O3", "C3", "OS1", "90001", d(2022, 6, 1), d(2022, 6, 5), "Standard Class", "Consumer", "0.10", "0.01", 1),
			order("O4", "C3", "OS1", "90001", d(2022, 7, 1), d(2022, 7, 2), "First Class", "Consumer", "0.20", "-0.50", 3),
			order("O5", "C3", "OS1", "90001", d(2024, 1, 1), d(2024, 1, 2), "First Class", "Consumer", "0.30", "0.03", 1),
			order("O6", "C1", "FU1", "10001", d(2022, 2, 2), d(2022, 2, 6), "Standard Class", "Consumer", "100.00", "10", 1),
			order("O7", "C3", "FU1", "90001", d(2023, 12, 31), d(2024, 1, 3), "Standard Class", "Consumer", "200.00", "20", 2),
			order("O8", "C1", "FU1", "10001", d(2022, 3, 3), d(2022, 3, 5), "Second Class", "Consumer", "300.00", "30", 1),
			order("O9", "C2", "TE1", "10001", d(2023, 5, 5), d(2023, 5, 5), "Same Day", "Corporate", "999.99", "99.99", 4),
			order("O10", "C2", "ZZZ", "99999", d(2023, 6, 6), d(2023, 6, 7), "Same Day", "Corporate", "0.01", "0", 1),
		},
		Customers: []core.Customer{
			{CustomerID: "C1", CustomerName: "Alice Ames", Segment: "Consumer"},
			{CustomerID: "C2", CustomerName: "Bob Burns", Segment: "Corporate"},
			{CustomerID: "C3", CustomerName: "Carol Cole", Segment: "Consumer"},
		},
		Products: []core.Product{
			{ProductID: "OS1", Category: "Office Supplies", SubCategory: "Paper"},
			{ProductID: "FU1", Category: "Furniture", SubCategory: "Chairs"},
			{ProductID: "TE1", Category: "Technology", SubCategory: "Phones"},
		},
		Locations: []core.Location{
			{PostalCode: "10001", City: "New York City", State: "New York", Region: "East"},
			{PostalCode: "90001", City: "Los Angeles", State: "California", Region: "West"},
		},
	}
}

func newTestService(t *testing.T, ds *core.Dataset) *Service {
	t.Helper()
	s := NewService(Config{CacheSize: 32, CacheTTL: time.Minute, QueryTimeout: 5 * time.Second}, quietLogger())
	if ds != nil {
		s.SetDataset(ds)
	}
	return s
}
