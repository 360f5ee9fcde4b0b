// Package kpi maps named KPI queries onto engine pipelines and runs them
// against the current dataset snapshot.
package kpi

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"ecomkpi/internal/cache"
	"ecomkpi/internal/core"
	"ecomkpi/internal/engine"
	"ecomkpi/internal/log"
)

// Config tunes the result cache and the per-query deadline.
type Config struct {
	CacheSize    int
	CacheTTL     time.Duration
	QueryTimeout time.Duration
}

// QueryInfo describes a catalog entry.
type QueryInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	YearFilter  bool   `json:"yearFilter"`
}

type generation struct {
	*Snapshot
	id uint64
}

// Service is safe for concurrent use. The read path takes no locks besides the
// cache's own; dataset swaps are a single pointer store.
type Service struct {
	current atomic.Pointer[generation]
	nextGen atomic.Uint64
	cache   *cache.LRUCache[[]engine.Row]
	flight  singleflight.Group
	timeout time.Duration
	logger  *log.Logger
	audit   *log.StructuredLogger
}

func NewService(cfg Config, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentKPI)

	var c *cache.LRUCache[[]engine.Row]
	if cfg.CacheTTL > 0 {
		c = cache.NewLRUCache[[]engine.Row](cfg.CacheSize, cfg.CacheTTL)
	}
	return &Service{
		cache:   c,
		timeout: cfg.QueryTimeout,
		logger:  logger,
		audit:   log.NewStructuredLogger(logger),
	}
}

// SetDataset builds a snapshot from ds and makes it current. Cached results
// of earlier snapshots are dropped.
func (s *Service) SetDataset(ds *core.Dataset) *Snapshot {
	snap := NewSnapshot(ds)
	s.current.Store(&generation{Snapshot: snap, id: s.nextGen.Add(1)})
	if s.cache != nil {
		s.cache.Purge()
	}
	s.logger.Info("Dataset snapshot installed",
		log.FieldSource, snap.Source(),
		log.FieldOrders, len(snap.Orders()))
	return snap
}

// Snapshot returns the current snapshot, or nil before the first load.
func (s *Service) Snapshot() *Snapshot {
	if g := s.current.Load(); g != nil {
		return g.Snapshot
	}
	return nil
}

func (s *Service) Ready() bool { return s.current.Load() != nil }

// Cache exposes the result cache for registration with a cleanup manager. It
// is nil when caching is disabled.
func (s *Service) Cache() *cache.LRUCache[[]engine.Row] { return s.cache }

// Queries lists the catalog.
func (s *Service) Queries() []QueryInfo {
	names := Names()
	out := make([]QueryInfo, 0, len(names))
	for _, n := range names {
		q, _ := Lookup(n)
		out = append(out, QueryInfo{Name: q.Name, Description: q.Description, YearFilter: !q.Unfiltered})
	}
	return out
}

// Run executes the named query. The returned rows may be shared with other
// callers through the cache and must not be modified.
func (s *Service) Run(ctx context.Context, name string, year core.Year) ([]engine.Row, error) {
	q, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownQuery, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	gen := s.current.Load()
	if gen == nil {
		return nil, fmt.Errorf("%w: dataset not loaded yet", core.ErrDataSourceUnavailable)
	}
	if q.Unfiltered {
		year = core.AllYears()
	}

	start := time.Now()
	key := fmt.Sprintf("%d|%s|%s", gen.id, q.Name, year)
	if s.cache != nil {
		if rows, ok := s.cache.Get(key); ok {
			s.audit.LogQuery(ctx, q.Name, year.String(), len(rows), true, time.Since(start).Milliseconds())
			return rows, nil
		}
	}

	ch := s.flight.DoChan(key, func() (any, error) {
		qctx := context.WithoutCancel(ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			qctx, cancel = context.WithTimeout(qctx, s.timeout)
			defer cancel()
		}
		rows, err := execute(qctx, gen.Snapshot, q, year)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Set(key, rows)
		}
		return rows, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.audit.LogError(ctx, "Query failed", res.Err, log.OpQuery, log.NewFields().WithQuery(q.Name, year.String(), 0, false))
			return nil, fmt.Errorf("query %s: %w", q.Name, res.Err)
		}
		rows := res.Val.([]engine.Row)
		s.audit.LogQuery(ctx, q.Name, year.String(), len(rows), false, time.Since(start).Milliseconds())
		return rows, nil
	}
}

// execute runs q against snap, with the year filter as the first stage.
func execute(ctx context.Context, snap *Snapshot, q Query, year core.Year) ([]engine.Row, error) {
	p := q.Pipeline
	if year.IsSet() {
		p = append(engine.Pipeline{yearFilter(year)}, q.Pipeline...)
	}
	return engine.Run(ctx, snap.Orders(), p, snap.Tables())
}

func yearFilter(year core.Year) engine.Match {
	return engine.Match{Pred: func(r engine.Row) bool {
		t, ok := r.Get(FieldOrderDate).(time.Time)
		return ok && year.Contains(t)
	}}
}
