package source

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomkpi/internal/core"
)

func TestParseOrders(t *testing.T) {
	records := [][]string{
		{"\ufeffOrder ID", "Order Date", "Ship Date", "Ship Mode", "Customer ID", "Segment", "Postal Code", "Product ID", "Sales", "Quantity", "Profit"},
		{"CA-2016-152156", "11/8/2016", "11/11/2016", "Second Class", "CG-12520", "Consumer", "42420", "FUR-BO-10001798", "261.96", "2", "41.9136"},
		{"", "", "", "", "", "", "", "", "", "", ""},
		{"US-2015-108966", "2015-10-11", "2015-10-18", "Standard Class", "SO-20335", "Consumer", "33311", "FUR-TA-10000577", "$957.58", "5", "-383.031"},
	}
	orders, err := ParseOrders(records)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	o := orders[0]
	assert.Equal(t, "CA-2016-152156", o.OrderID)
	assert.Equal(t, time.Date(2016, 11, 8, 0, 0, 0, 0, time.UTC), o.OrderDate)
	assert.Equal(t, "42420", o.PostalCode)
	assert.Equal(t, "261.96", o.Sales.String())
	assert.Equal(t, int64(2), o.Quantity)
	assert.Equal(t, "-383.031", orders[1].Profit.String())
	assert.Equal(t, "957.58", orders[1].Sales.String())
}

func TestParseOrdersReportsBadRows(t *testing.T) {
	records := [][]string{
		{"Order ID", "Customer ID", "Product ID", "Postal Code", "Order Date", "Ship Date", "Sales", "Profit", "Quantity"},
		{"A", "C", "P", "1", "2016-01-05", "2016-01-01", "1", "1", "1"},
		{"B", "C", "P", "1", "yesterday", "", "1", "1", "1"},
		{"C", "C", "P", "1", "2016-01-01", "", "abc", "1", "1"},
		{"D", "C", "P", "1", "2016-01-01", "", "1", "1", "1.5"},
		{"E", "C", "P", "1", "2016-01-01", "", "1", "1", "1"},
	}
	orders, err := ParseOrders(records)
	require.Error(t, err)
	assert.Len(t, orders, 1)
	assert.True(t, errors.Is(err, core.ErrInvalidOrder))
	assert.True(t, errors.Is(err, core.ErrInvalidAmount))
	assert.Contains(t, err.Error(), "orders line 3")
	assert.Contains(t, err.Error(), "quantity \"1.5\"")
}

func TestParseOrdersMissingColumn(t *testing.T) {
	_, err := ParseOrders([][]string{{"Order ID", "Order Date"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "Customer ID"`)
}

func TestParseDimensions(t *testing.T) {
	customers, err := ParseCustomers([][]string{
		{"Customer ID", "Customer Name", "Segment"},
		{"CG-12520", "Claire Gute", "Consumer"},
	})
	require.NoError(t, err)
	assert.Equal(t, []core.Customer{{CustomerID: "CG-12520", CustomerName: "Claire Gute", Segment: "Consumer"}}, customers)

	products, err := ParseProducts([][]string{
		{"Products ID", "Category", "Sub-Category"},
		{"FUR-BO-10001798", "Furniture", "Bookcases"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bookcases", products[0].SubCategory)

	locations, err := ParseLocations([][]string{
		{"Postal Code", "City", "State", "Region"},
		{"42420", "Henderson", "Kentucky", "South"},
		{"42420", "Henderson", "Kentucky", "South"},
		{"", "Nowhere", "", ""},
	})
	require.Error(t, err)
	assert.Len(t, locations, 2)
}

func TestRowErrorsAreBounded(t *testing.T) {
	records := [][]string{{"Customer ID", "Customer Name"}}
	for i := 0; i < maxRowErrors+5; i++ {
		records = append(records, []string{"", "nameless"})
	}
	_, err := ParseCustomers(records)
	require.Error(t, err)
	assert.Equal(t, maxRowErrors+1, strings.Count(err.Error(), "\n")+1)
	assert.Contains(t, err.Error(), "5 more invalid rows")
}

func TestTablesParse(t *testing.T) {
	ds, err := Tables{
		Orders: [][]string{
			{"Order ID", "Customer ID", "Product ID", "Postal Code", "Order Date", "Sales", "Profit", "Quantity"},
			{"A", "C", "P", "1", "2016-01-01", "1.10", "0.10", "1"},
		},
		Customers: [][]string{{"Customer ID"}, {"C"}},
	}.Parse("test")
	require.NoError(t, err)
	assert.Equal(t, "test", ds.Source)
	assert.Len(t, ds.Orders, 1)
	assert.Len(t, ds.Customers, 1)
	assert.Empty(t, ds.Products)
}
