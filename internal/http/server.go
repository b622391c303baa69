package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"seppe/internal/cache"
	"seppe/internal/core"
	"seppe/internal/history"
	"seppe/internal/log"
	"seppe/internal/metrics"
	"seppe/internal/middleware/ratelimit"
	"seppe/internal/middleware/security"
	"seppe/internal/middleware/trace"
	"seppe/internal/services"
)

// Options holds listener and request limits.
type Options struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64

	// RateLimit throttles import requests per client; nil disables it.
	RateLimit *ratelimit.Config
}

// Deps are the application services behind the API.
type Deps struct {
	Imports   *services.ImportService
	Dashboard *services.DashboardService
	History   history.Recorder
	Catalog   *core.Catalog
	Metrics   *metrics.Metrics
	Logger    *log.Logger

	// Caches is stopped together with the server when set.
	Caches *cache.Manager

	// Ready reports backend readiness for /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	imports     *services.ImportService
	dashboard   *services.DashboardService
	history     history.Recorder
	catalog     *core.Catalog
	metrics     *metrics.Metrics
	logger      *log.Logger
	caches      *cache.Manager
	ready       func(ctx context.Context) error
	rateLimiter *ratelimit.Limiter
	ipExtractor *security.IPExtractor
	maxUpload   int64
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	catalog := deps.Catalog
	if catalog == nil {
		catalog = core.DefaultCatalog()
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultUploadMax
	}

	s := &Server{
		Server: http.Server{
			Addr:           opts.Addr,
			ReadTimeout:    opts.ReadTimeout,
			WriteTimeout:   opts.WriteTimeout,
			IdleTimeout:    opts.IdleTimeout,
			MaxHeaderBytes: 1 << 16, // 64KB
		},
		imports:     deps.Imports,
		dashboard:   deps.Dashboard,
		history:     deps.History,
		catalog:     catalog,
		metrics:     deps.Metrics,
		logger:      logger.WithComponent(log.ComponentHTTP),
		caches:      deps.Caches,
		ready:       deps.Ready,
		ipExtractor: security.NewIPExtractor(),
		maxUpload:   maxUpload,
		started:     time.Now(),
	}
	if opts.RateLimit != nil {
		s.rateLimiter = ratelimit.NewLimiter(*opts.RateLimit)
		s.rateLimiter.Start()
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	var observer trace.Observer
	if s.metrics != nil {
		observer = s.metrics
	}
	tracer := trace.NewMiddleware(s.ipExtractor.ClientIP, s.logger, observer)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	r := chi.NewRouter()
	r.Use(log.Middleware(s.logger))
	r.Use(tracer.Middleware)
	r.Use(log.RequestIDMiddleware(trace.RequestID))
	r.Use(headers.Middleware)
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, errNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = render.Render(w, r, errMethodNotAllowed)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/secretariats", s.handleSecretariats)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/records", s.handleRecords)
		r.Get("/export.csv", s.handleExport)
		r.Get("/imports", s.handleListImports)
		r.Get("/imports/{id}/skips", s.handleImportSkips)

		r.Group(func(r chi.Router) {
			if s.rateLimiter != nil {
				r.Use(s.rateLimiter.Middleware(s.ipExtractor.ClientIP, s.onRateLimit))
			}
			r.Post("/import", s.handleImport)
			r.Post("/import/sheets", s.handleImportSheets)
		})
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.ipExtractor.ClientIP(r),
		log.FieldPath, r.URL.Path)
	_ = render.Render(w, r, errRateLimited)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
