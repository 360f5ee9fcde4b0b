// Package source defines where datasets come from and how tabular exports
// are turned into core entities.
package source

import (
	"context"

	"ecomkpi/internal/core"
)

// Ports for dataset backends.
type (
	// DatasetLoader reads a complete snapshot of the four tables.
	DatasetLoader interface {
		Load(ctx context.Context) (*core.Dataset, error)
	}

	// DatasetImporter replaces the stored dataset.
	DatasetImporter interface {
		Import(ctx context.Context, ds *core.Dataset) error
	}
)

// Table names shared by every tabular backend (CSV files, sheet tabs).
const (
	TableOrders    = "orders"
	TableCustomers = "customers"
	TableProducts  = "products"
	TableLocation  = "location"
)
