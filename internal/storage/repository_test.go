package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomkpi/internal/core"
	"ecomkpi/internal/log"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "kpi.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleDataset() *core.Dataset {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return &core.Dataset{
		Source: "csv:test",
		Orders: []core.Order{
			{
				OrderID: "CA-2016-152156", CustomerID: "CG-12520", ProductID: "FUR-BO-10001798", PostalCode: "42420",
				OrderDate: day(2016, 11, 8), ShipDate: day(2016, 11, 11), ShipMode: "Second Class", Segment: "Consumer",
				Sales: decimal.RequireFromString("261.96"), Profit: decimal.RequireFromString("41.9136"), Quantity: 2,
			},
			{
				OrderID: "US-2015-108966", CustomerID: "SO-20335", ProductID: "FUR-TA-10000577", PostalCode: "33311",
				OrderDate: day(2015, 10, 11), ShipDate: day(2015, 10, 18), ShipMode: "Standard Class", Segment: "Consumer",
				Sales: decimal.RequireFromString("957.5775"), Profit: decimal.RequireFromString("-383.031"), Quantity: 5,
			},
		},
		Customers: []core.Customer{{CustomerID: "CG-12520", CustomerName: "Claire Gute", Segment: "Consumer"}},
		Products:  []core.Product{{ProductID: "FUR-BO-10001798", Category: "Furniture", SubCategory: "Bookcases"}},
		Locations: []core.Location{
			{PostalCode: "42420", City: "Henderson", State: "Kentucky", Region: "South"},
			{PostalCode: "42420", City: "Henderson", State: "Kentucky", Region: "South"},
		},
	}
}

func TestImportThenLoadRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	want := sampleDataset()
	require.NoError(t, repo.Import(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)

	require.Len(t, got.Orders, 2)
	assert.Equal(t, want.Orders[0].OrderID, got.Orders[0].OrderID)
	assert.True(t, want.Orders[1].Profit.Equal(got.Orders[1].Profit))
	assert.True(t, want.Orders[1].Sales.Equal(got.Orders[1].Sales))
	assert.Equal(t, want.Orders[0].OrderDate, got.Orders[0].OrderDate)
	assert.Equal(t, want.Orders[0].ShipDate, got.Orders[0].ShipDate)
	assert.Equal(t, int64(5), got.Orders[1].Quantity)
	assert.Equal(t, want.Customers, got.Customers)
	assert.Equal(t, want.Products, got.Products)
	assert.Len(t, got.Locations, 2, "duplicate postal codes are stored as-is")
	assert.False(t, got.LoadedAt.IsZero())
}

func TestImportReplacesPreviousData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Import(ctx, sampleDataset()))
	smaller := sampleDataset()
	smaller.Orders = smaller.Orders[:1]
	smaller.Locations = nil
	require.NoError(t, repo.Import(ctx, smaller))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Orders, 1)
	assert.Empty(t, got.Locations)
}

func TestImportRejectsInvalidDataset(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Import(ctx, sampleDataset()))

	bad := sampleDataset()
	bad.Orders[0].ShipDate = bad.Orders[0].OrderDate.AddDate(0, 0, -1)
	err := repo.Import(ctx, bad)
	assert.True(t, errors.Is(err, core.ErrInvalidOrder))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Orders, 2, "failed import leaves previous data in place")
}

func TestLoadEmptyDatabase(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Orders)
}

func TestMigrationsApplied(t *testing.T) {
	repo := newTestRepo(t)
	v, dirty, err := SchemaVersion(repo.path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), v)
	require.NoError(t, RunMigrations(repo.path), "re-running migrations is a no-op")
}
