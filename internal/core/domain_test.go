package core

import (
	"errors"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestOrderValidate(t *testing.T) {
	cases := []struct {
		name string
		o    Order
		ok   bool
	}{
		{"valid", Order{OrderID: "CA-1", OrderDate: day(2016, 1, 1), ShipDate: day(2016, 1, 4), Quantity: 2}, true},
		{"same day", Order{OrderID: "CA-2", OrderDate: day(2016, 1, 1), ShipDate: day(2016, 1, 1)}, true},
		{"unshipped", Order{OrderID: "CA-3", OrderDate: day(2016, 1, 1)}, true},
		{"empty id", Order{OrderDate: day(2016, 1, 1)}, false},
		{"no date", Order{OrderID: "CA-4"}, false},
		{"ships early", Order{OrderID: "CA-5", OrderDate: day(2016, 1, 5), ShipDate: day(2016, 1, 4)}, false},
		{"negative qty", Order{OrderID: "CA-6", OrderDate: day(2016, 1, 1), Quantity: -1}, false},
	}
	for _, tc := range cases {
		err := tc.o.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidOrder) {
			t.Fatalf("%s: expected ErrInvalidOrder, got %v", tc.name, err)
		}
	}
}

func TestDatasetValidateJoinsErrors(t *testing.T) {
	ds := &Dataset{Orders: []Order{
		{OrderID: "ok", OrderDate: day(2016, 1, 1)},
		{OrderID: "", OrderDate: day(2016, 1, 1)},
		{OrderID: "late", OrderDate: day(2016, 2, 1), ShipDate: day(2016, 1, 1)},
	}}
	err := ds.Validate()
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	if ds.Counts()["orders"] != 3 {
		t.Fatal("unexpected count")
	}
}
