package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"ecomkpi/internal/core"
	"ecomkpi/internal/log"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339

// SQLiteRepository persists the four dataset tables. Load and Import are safe
// to call concurrently; Import replaces the whole dataset in one transaction.
type SQLiteRepository struct {
	db     *sql.DB
	path   string
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SQLiteRepository{
		db:     db,
		path:   dbPath,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads a full snapshot. The four tables are read in parallel.
func (r *SQLiteRepository) Load(ctx context.Context) (*core.Dataset, error) {
	ds := &core.Dataset{Source: "sqlite:" + r.path}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ds.Orders, err = r.loadOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Customers, err = r.loadCustomers(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Products, err = r.loadProducts(gctx)
		return err
	})
	g.Go(func() (err error) {
		ds.Locations, err = r.loadLocations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDataSourceUnavailable, err)
	}

	imported, err := r.lastImport(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDataSourceUnavailable, err)
	}
	ds.LoadedAt = imported
	if ds.LoadedAt.IsZero() {
		ds.LoadedAt = time.Now().UTC()
	}

	r.logger.InfoContext(ctx, "Dataset loaded from SQLite",
		log.FieldOrders, len(ds.Orders),
		"customers", len(ds.Customers),
		"products", len(ds.Products),
		"locations", len(ds.Locations))
	return ds, nil
}

func (r *SQLiteRepository) loadOrders(ctx context.Context) ([]core.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, customer_id, product_id, postal_code, order_date, ship_date,
		       ship_mode, segment, sales, profit, quantity
		FROM orders ORDER BY row_id`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []core.Order
	for rows.Next() {
		var (
			o                   core.Order
			orderDate, shipDate string
			sales, profit       string
		)
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.ProductID, &o.PostalCode, &orderDate, &shipDate,
			&o.ShipMode, &o.Segment, &sales, &profit, &o.Quantity); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if o.OrderDate, err = parseTime(orderDate); err != nil {
			return nil, fmt.Errorf("order %s: order date: %w", o.OrderID, err)
		}
		if o.ShipDate, err = parseTime(shipDate); err != nil {
			return nil, fmt.Errorf("order %s: ship date: %w", o.OrderID, err)
		}
		if o.Sales, err = decimal.NewFromString(sales); err != nil {
			return nil, fmt.Errorf("order %s: sales: %w", o.OrderID, err)
		}
		if o.Profit, err = decimal.NewFromString(profit); err != nil {
			return nil, fmt.Errorf("order %s: profit: %w", o.OrderID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT customer_id, customer_name, segment FROM customers ORDER BY row_id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var out []core.Customer
	for rows.Next() {
		var c core.Customer
		if err := rows.Scan(&c.CustomerID, &c.CustomerName, &c.Segment); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT product_id, category, sub_category FROM products ORDER BY row_id`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []core.Product
	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ProductID, &p.Category, &p.SubCategory); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadLocations(ctx context.Context) ([]core.Location, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT postal_code, city, state, region FROM locations ORDER BY row_id`)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var out []core.Location
	for rows.Next() {
		var l core.Location
		if err := rows.Scan(&l.PostalCode, &l.City, &l.State, &l.Region); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) lastImport(ctx context.Context) (time.Time, error) {
	var at string
	err := r.db.QueryRowContext(ctx, `SELECT imported_at FROM imports ORDER BY id DESC LIMIT 1`).Scan(&at)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query imports: %w", err)
	}
	return parseTime(at)
}

// Import replaces the stored dataset with ds. The dataset is validated first
// and nothing is written when validation fails.
func (r *SQLiteRepository) Import(ctx context.Context, ds *core.Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("validate dataset: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"orders", "customers", "products", "locations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertAll(ctx, tx, `
		INSERT INTO orders (order_id, customer_id, product_id, postal_code, order_date, ship_date,
		                    ship_mode, segment, sales, profit, quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, ds.Orders, func(o core.Order) []any {
		return []any{o.OrderID, o.CustomerID, o.ProductID, o.PostalCode, formatTime(o.OrderDate), formatTime(o.ShipDate),
			o.ShipMode, o.Segment, o.Sales.String(), o.Profit.String(), o.Quantity}
	}); err != nil {
		return fmt.Errorf("insert orders: %w", err)
	}
	if err := insertAll(ctx, tx, `INSERT INTO customers (customer_id, customer_name, segment) VALUES (?, ?, ?)`,
		ds.Customers, func(c core.Customer) []any { return []any{c.CustomerID, c.CustomerName, c.Segment} }); err != nil {
		return fmt.Errorf("insert customers: %w", err)
	}
	if err := insertAll(ctx, tx, `INSERT INTO products (product_id, category, sub_category) VALUES (?, ?, ?)`,
		ds.Products, func(p core.Product) []any { return []any{p.ProductID, p.Category, p.SubCategory} }); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	if err := insertAll(ctx, tx, `INSERT INTO locations (postal_code, city, state, region) VALUES (?, ?, ?, ?)`,
		ds.Locations, func(l core.Location) []any { return []any{l.PostalCode, l.City, l.State, l.Region} }); err != nil {
		return fmt.Errorf("insert locations: %w", err)
	}

	source := ds.Source
	if source == "" {
		source = "unknown"
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO imports (source, imported_at, orders) VALUES (?, ?, ?)`,
		source, formatTime(time.Now()), len(ds.Orders)); err != nil {
		return fmt.Errorf("record import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	r.logger.InfoContext(ctx, "Dataset imported into SQLite",
		log.FieldSource, source,
		log.FieldOrders, len(ds.Orders))
	return nil
}

func insertAll[T any](ctx context.Context, tx *sql.Tx, query string, items []T, args func(T) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, args(it)...); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
