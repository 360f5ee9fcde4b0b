// Package memory provides dataset loaders that need no external service: a
// directory of CSV exports and a fixed in-process dataset.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ecomkpi/internal/core"
	"ecomkpi/internal/source"
)

var (
	_ source.DatasetLoader   = (*CSVDir)(nil)
	_ source.DatasetLoader   = (*Store)(nil)
	_ source.DatasetImporter = (*Store)(nil)
)

// FileNames are the CSV files read from a data directory.
var FileNames = map[string]string{
	source.TableOrders:    "orders.csv",
	source.TableCustomers: "customers.csv",
	source.TableProducts:  "products.csv",
	source.TableLocation:  "location.csv",
}

// CSVDir loads the four tables from CSV files in a directory. Only the orders
// file is required; missing dimension files yield empty tables.
type CSVDir struct {
	dir string
}

func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{dir: dir}
}

func (c *CSVDir) Load(ctx context.Context) (*core.Dataset, error) {
	var t source.Tables
	g, _ := errgroup.WithContext(ctx)
	read := func(table string, dst *[][]string, required bool) {
		g.Go(func() error {
			records, err := readCSV(filepath.Join(c.dir, FileNames[table]))
			if errors.Is(err, os.ErrNotExist) && !required {
				return nil
			}
			if err != nil {
				return err
			}
			*dst = records
			return nil
		})
	}
	read(source.TableOrders, &t.Orders, true)
	read(source.TableCustomers, &t.Customers, false)
	read(source.TableProducts, &t.Products, false)
	read(source.TableLocation, &t.Locations, false)
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrDataSourceUnavailable, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, err := t.Parse("csv:" + c.dir)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", c.dir, err)
	}
	ds.LoadedAt = time.Now().UTC()
	return ds, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var out [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Store keeps a dataset in memory. Import replaces it; Load returns it.
type Store struct {
	mu sync.RWMutex
	ds *core.Dataset
}

func NewStore(ds *core.Dataset) *Store {
	return &Store{ds: ds}
}

func (s *Store) Load(_ context.Context) (*core.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return nil, fmt.Errorf("%w: memory store is empty", core.ErrDataSourceUnavailable)
	}
	return s.ds, nil
}

func (s *Store) Import(_ context.Context, ds *core.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds = ds
	return nil
}
