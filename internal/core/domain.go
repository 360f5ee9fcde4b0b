// Package core holds the sales domain: orders, customers, products and
// locations, the immutable Dataset they are loaded into, and the optional
// Year filter applied to queries.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Order is one line of the orders table. Sales and Profit are currency
	// values and must never be accumulated as floats.
	Order struct {
		OrderID    string
		CustomerID string
		ProductID  string
		PostalCode string
		OrderDate  time.Time
		ShipDate   time.Time
		ShipMode   string
		Segment    string
		Sales      decimal.Decimal
		Profit     decimal.Decimal
		Quantity   int64
	}

	Customer struct {
		CustomerID   string
		CustomerName string
		Segment      string
	}

	Product struct {
		ProductID   string
		Category    string
		SubCategory string
	}

	// Location is keyed by PostalCode. The key is not guaranteed unique.
	Location struct {
		PostalCode string
		City       string
		State      string
		Region     string
	}
)

// Validate checks the invariants the engine relies on.
func (o Order) Validate() error {
	if strings.TrimSpace(o.OrderID) == "" {
		return fmt.Errorf("%w: empty order id", ErrInvalidOrder)
	}
	if o.OrderDate.IsZero() {
		return fmt.Errorf("%w: order %s has no order date", ErrInvalidOrder, o.OrderID)
	}
	if !o.ShipDate.IsZero() && o.ShipDate.Before(o.OrderDate) {
		return fmt.Errorf("%w: order %s ships before it was placed", ErrInvalidOrder, o.OrderID)
	}
	if o.Quantity < 0 {
		return fmt.Errorf("%w: order %s has negative quantity", ErrInvalidOrder, o.OrderID)
	}
	return nil
}
