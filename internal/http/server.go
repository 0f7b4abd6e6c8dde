package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"legalintel/internal/backend"
	"legalintel/internal/cache"
	"legalintel/internal/core"
	"legalintel/internal/log"
	"legalintel/internal/middleware/ratelimit"
	"legalintel/internal/middleware/security"
	"legalintel/internal/middleware/trace"
	"legalintel/internal/services"
	appweb "legalintel/web"
)

// Config holds the HTTP layer settings.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	CacheSize          int
	CacheTTL           time.Duration
	SourceTimeout      time.Duration
}

type Server struct {
	http.Server
	logger    *log.Logger
	templates *template.Template
	now       func() time.Time
	started   time.Time

	reader    *services.CachedReader
	snapshots *cache.LRUCache[any]
	caches    *cache.Manager
	dashboard *services.DashboardService
	events    *services.EventService
	pinger    backend.Pinger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware around the data backend b.
func NewServer(cfg Config, logger *log.Logger, b *backend.BackendResult) (*Server, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	snapshots := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
	reader := services.NewCachedReader(b.Reader, snapshots, cfg.SourceTimeout)

	s := &Server{
		logger:      logger.WithComponent(log.ComponentHTTP),
		templates:   t,
		now:         time.Now,
		started:     time.Now(),
		reader:      reader,
		snapshots:   snapshots,
		caches:      cache.NewManager(),
		dashboard:   services.NewDashboardService(reader, cfg.SourceTimeout),
		events:      services.NewEventService(b.Writer, b.Publisher, reader.Invalidate),
		pinger:      b.Pinger,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector:    security.NewDetector(),
		tracer:      trace.NewMiddleware(),
	}
	s.caches.Register(snapshots)
	if cfg.CacheTTL > 0 {
		s.caches.StartCleanup(max(cfg.CacheTTL, time.Minute))
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	api := func(h http.HandlerFunc) http.Handler { return security.NoStore(h) }
	mux.Handle("GET /api/legal/timeline", api(s.handleTimeline))
	mux.Handle("GET /api/legal/loan-details", api(s.handleLoanDetails))
	mux.Handle("GET /api/legal/pov-analysis/{perspective}", api(s.handlePOVAnalysis))
	mux.Handle("GET /api/legal/financial-data", api(s.handleFinancialData))
	mux.Handle("GET /api/legal/case-status", api(s.handleCaseStatus))
	mux.Handle("GET /api/legal/chart", api(s.handleChart))
	mux.Handle("POST /api/legal/events", s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)(
		api(s.handleCreateEvent)))

	var h http.Handler = mux
	h = log.Middleware(logger, trace.FromRequest, s.detector.ExtractClientIP)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

var templateFuncs = template.FuncMap{
	"compact": core.FormatCurrencyCompact,
	"isoTime": func(t time.Time) string { return t.Format(time.RFC3339) },
}

// Shutdown stops background goroutines and then the HTTP server. Only the
// first call does anything.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
