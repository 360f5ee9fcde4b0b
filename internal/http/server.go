// Package http serves the KPI catalog as JSON over HTTP.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ecomkpi/internal/core"
	"ecomkpi/internal/engine"
	"ecomkpi/internal/kpi"
	"ecomkpi/internal/log"
	"ecomkpi/internal/middleware/ratelimit"
	"ecomkpi/internal/middleware/security"
	"ecomkpi/internal/middleware/trace"
)

// QueryRunner executes catalog queries against the current snapshot.
type QueryRunner interface {
	Run(ctx context.Context, name string, year core.Year) ([]engine.Row, error)
	Queries() []kpi.QueryInfo
	Ready() bool
}

// Options configures the server. Zero values select defaults.
type Options struct {
	RateLimitRPM int
	Logger       *log.Logger
	// Status, when set, is reported under "reload" by /readyz.
	Status func() any
}

type Server struct {
	http.Server
	queries  QueryRunner
	status   func() any
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, q QueryRunner, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector(logger)
	s := &Server{
		queries:  q,
		status:   opts.Status,
		logger:   logger,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitRPM}),
		detector: detector,
		tracer:   trace.NewMiddleware(detector.ExtractClientIP, logger),
		started:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /{$}", s.handleCatalog)
	mux.HandleFunc("GET /api/queries", s.handleCatalog)
	mux.HandleFunc("GET /api/{name}", s.handleQuery)
	// Bare paths used by the original dashboard.
	mux.HandleFunc("GET /{name}", s.handleQuery)

	api := s.limiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(mux)
	api = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(api)
	api = detector.Middleware(api)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(api),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, retry later")
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
