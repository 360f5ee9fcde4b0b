package core

import (
	"errors"
	"fmt"
	"time"
)

// Dataset is an immutable snapshot of the four linked tables. Once handed to
// the query layer it must not be modified.
type Dataset struct {
	Orders    []Order
	Customers []Customer
	Products  []Product
	Locations []Location
	LoadedAt  time.Time
	Source    string
}

// Validate checks every order. All violations are reported together.
func (d *Dataset) Validate() error {
	if d == nil {
		return errors.New("nil dataset")
	}
	var errs []error
	for _, o := range d.Orders {
		if err := o.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Counts returns the row count of each table, for logging.
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"orders":    len(d.Orders),
		"customers": len(d.Customers),
		"products":  len(d.Products),
		"locations": len(d.Locations),
	}
}

func (d *Dataset) String() string {
	return fmt.Sprintf("dataset(source=%s orders=%d customers=%d products=%d locations=%d)",
		d.Source, len(d.Orders), len(d.Customers), len(d.Products), len(d.Locations))
}
