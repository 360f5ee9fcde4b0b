package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomkpi/internal/amqp"
	"ecomkpi/internal/core"
	"ecomkpi/internal/kpi"
	"ecomkpi/internal/log"
)

type fakeLoader struct {
	calls atomic.Int32
	load  func(ctx context.Context) (*core.Dataset, error)
}

func (f *fakeLoader) Load(ctx context.Context) (*core.Dataset, error) {
	f.calls.Add(1)
	return f.load(ctx)
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func dataset(source string, sales string) *core.Dataset {
	return &core.Dataset{
		Source: source,
		Orders: []core.Order{{
			OrderID:    "O1",
			CustomerID: "C1",
			ProductID:  "P1",
			OrderDate:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			Sales:      decimal.RequireFromString(sales),
			Quantity:   1,
		}},
	}
}

func newService() *kpi.Service {
	return kpi.NewService(kpi.Config{CacheSize: 8, CacheTTL: time.Minute, QueryTimeout: time.Second}, quietLogger())
}

func totalSales(t *testing.T, s *kpi.Service) string {
	t.Helper()
	rows, err := s.Run(context.Background(), "total_sales", core.AllYears())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	return rows[0]["totalSales"].(decimal.Decimal).String()
}

func TestReloadInstallsSnapshot(t *testing.T) {
	svc := newService()
	loader := &fakeLoader{load: func(context.Context) (*core.Dataset, error) { return dataset("a", "12.50"), nil }}
	w := NewReloadWorker(loader, svc, time.Second, quietLogger())

	require.NoError(t, w.Reload(context.Background(), "startup"))
	assert.True(t, svc.Ready())
	assert.Equal(t, "12.5", totalSales(t, svc))

	st := w.Status()
	assert.Equal(t, int64(1), st.Reloads)
	assert.Empty(t, st.LastError)
	assert.False(t, st.LastSuccess.IsZero())
}

func TestFailedReloadKeepsPreviousSnapshot(t *testing.T) {
	svc := newService()
	fail := false
	loader := &fakeLoader{load: func(context.Context) (*core.Dataset, error) {
		if fail {
			return nil, core.ErrDataSourceUnavailable
		}
		return dataset("a", "5"), nil
	}}
	w := NewReloadWorker(loader, svc, time.Second, quietLogger())
	require.NoError(t, w.Reload(context.Background(), "startup"))

	fail = true
	err := w.Reload(context.Background(), "interval")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrDataSourceUnavailable)
	assert.Equal(t, "5", totalSales(t, svc))

	st := w.Status()
	assert.Equal(t, int64(1), st.Failures)
	assert.NotEmpty(t, st.LastError)
}

func TestReloadRejectsInvalidDataset(t *testing.T) {
	svc := newService()
	bad := dataset("a", "1")
	bad.Orders[0].ShipDate = bad.Orders[0].OrderDate.AddDate(0, 0, -1)
	w := NewReloadWorker(&fakeLoader{load: func(context.Context) (*core.Dataset, error) { return bad, nil }}, svc, time.Second, quietLogger())

	err := w.Reload(context.Background(), "startup")
	assert.ErrorIs(t, err, core.ErrInvalidOrder)
	assert.False(t, svc.Ready())
}

func TestReloadTimeout(t *testing.T) {
	svc := newService()
	loader := &fakeLoader{load: func(ctx context.Context) (*core.Dataset, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	w := NewReloadWorker(loader, svc, 20*time.Millisecond, quietLogger())

	err := w.Reload(context.Background(), "startup")
	assert.ErrorIs(t, err, core.ErrDataSourceUnavailable)
}

func TestHandleReloadMessage(t *testing.T) {
	svc := newService()
	loader := &fakeLoader{load: func(context.Context) (*core.Dataset, error) { return dataset("b", "3"), nil }}
	w := NewReloadWorker(loader, svc, time.Second, quietLogger())

	msg := &amqp.DatasetReloadMessage{ID: uuid.New(), Source: "sqlite", Reason: "import", Timestamp: time.Now()}
	require.NoError(t, w.HandleReloadMessage(context.Background(), msg))
	assert.Equal(t, int32(1), loader.calls.Load())
	assert.Equal(t, "b", svc.Snapshot().Source())
}

func TestRunReloadsPeriodically(t *testing.T) {
	svc := newService()
	loader := &fakeLoader{load: func(context.Context) (*core.Dataset, error) { return dataset("c", "1"), nil }}
	w := NewReloadWorker(loader, svc, time.Second, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, 10*time.Millisecond) }()

	assert.Eventually(t, func() bool { return loader.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
}

func TestRunDisabled(t *testing.T) {
	w := NewReloadWorker(&fakeLoader{}, newService(), time.Second, quietLogger())
	assert.NoError(t, w.Run(context.Background(), 0))
}
