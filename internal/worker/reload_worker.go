// Package worker keeps the served snapshot in step with the dataset backend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ecomkpi/internal/amqp"
	"ecomkpi/internal/core"
	"ecomkpi/internal/kpi"
	"ecomkpi/internal/log"
	"ecomkpi/internal/source"
)

// SnapshotTarget installs a freshly loaded dataset.
type SnapshotTarget interface {
	SetDataset(ds *core.Dataset) *kpi.Snapshot
}

// Status describes the outcome of the most recent reloads.
type Status struct {
	LastSuccess time.Time `json:"lastSuccess"`
	LastError   string    `json:"lastError,omitempty"`
	Reloads     int64     `json:"reloads"`
	Failures    int64     `json:"failures"`
}

// ReloadWorker loads the dataset and swaps the snapshot. Reloads are
// serialized; a failed reload leaves the previous snapshot in place.
type ReloadWorker struct {
	loader  source.DatasetLoader
	target  SnapshotTarget
	timeout time.Duration
	logger  *log.Logger

	mu     sync.Mutex
	status Status
}

func NewReloadWorker(loader source.DatasetLoader, target SnapshotTarget, timeout time.Duration, logger *log.Logger) *ReloadWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReloadWorker{
		loader:  loader,
		target:  target,
		timeout: timeout,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// Reload loads a new dataset and installs it.
func (w *ReloadWorker) Reload(ctx context.Context, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	ds, err := w.load(ctx)
	if err != nil {
		w.status.Failures++
		w.status.LastError = err.Error()
		w.logger.ErrorContext(ctx, "Dataset reload failed, keeping previous snapshot",
			log.FieldReason, reason,
			log.FieldError, err,
			log.FieldDuration, time.Since(start).Milliseconds())
		return err
	}

	snap := w.target.SetDataset(ds)
	w.status.Reloads++
	w.status.LastSuccess = time.Now().UTC()
	w.status.LastError = ""

	counts := snap.Counts()
	w.logger.InfoContext(ctx, "Dataset reloaded",
		log.FieldReason, reason,
		log.FieldSource, snap.Source(),
		log.FieldOrders, counts["orders"],
		"customers", counts["customers"],
		"products", counts["products"],
		"locations", counts["locations"],
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func (w *ReloadWorker) load(ctx context.Context) (*core.Dataset, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	ds, err := w.loader.Load(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: load timed out after %s", core.ErrDataSourceUnavailable, w.timeout)
		}
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if ds == nil {
		return nil, fmt.Errorf("%w: loader returned no dataset", core.ErrDataSourceUnavailable)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("validate dataset: %w", err)
	}
	return ds, nil
}

// HandleReloadMessage processes a reload notification from AMQP.
func (w *ReloadWorker) HandleReloadMessage(ctx context.Context, msg *amqp.DatasetReloadMessage) error {
	w.logger.InfoContext(ctx, "Processing reload message",
		log.FieldMessage, msg.ID.String(),
		log.FieldSource, msg.Source,
		"published_at", msg.Timestamp)

	reason := "amqp"
	if msg.Reason != "" {
		reason = "amqp: " + msg.Reason
	}
	return w.Reload(ctx, reason)
}

// Run reloads every interval until ctx is done. A non-positive interval
// disables periodic reloads and Run returns immediately.
func (w *ReloadWorker) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Periodic reload started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// failures are logged and recorded in Status
			_ = w.Reload(ctx, "interval")
		}
	}
}

// Status returns a copy of the reload status.
func (w *ReloadWorker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}
