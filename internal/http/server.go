package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fatture/internal/cache"
	"fatture/internal/core"
	"fatture/internal/ledger"
	applog "fatture/internal/log"
	"fatture/internal/middleware/ratelimit"
	"fatture/internal/middleware/security"
	"fatture/internal/middleware/trace"
	appweb "fatture/web"
)

// Ports bundles the ledger interfaces the dashboard needs.
type Ports struct {
	Writer  ledger.InvoiceWriter
	Editor  ledger.InvoiceEditor
	Deleter ledger.InvoiceDeleter
	Lister  ledger.InvoiceLister
}

type Server struct {
	http.Server
	templates *template.Template
	ports     Ports

	limiter  *ratelimit.Limiter
	detector *security.Detector
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware
	slogger  *applog.StructuredLogger

	// Rendered table partials keyed by the canonical query string.
	// Invalidated wholesale on every mutation; correctness never depends
	// on a hit.
	viewCache    *cache.LRUCache[string]
	cacheManager *cache.Manager
	cacheGen     uint64
	cacheMu      sync.Mutex

	// Injectable clock so date-sensitive rendering is testable.
	now func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, ports Ports) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ports:     ports,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  security.NewDetector(),
		headers:   security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:    trace.NewMiddleware(nil),
		viewCache: cache.NewLRUCache[string](200, 5*time.Minute),
		slogger:   applog.NewStructuredLogger(applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)),
		now:       time.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	// Expired partials get swept in the background; the generation check
	// already keeps stale entries from being served.
	s.cacheManager = cache.NewManager()
	s.cacheManager.Register(s.viewCache)
	s.cacheManager.StartCleanup(time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.protect(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/ui/invoices", s.protect(s.handleInvoicesPartial))
	mux.HandleFunc("/invoices", s.protect(s.handleCreateInvoice))
	mux.HandleFunc("/invoices/update", s.protect(s.handleUpdateInvoice))
	mux.HandleFunc("/invoices/paid", s.protect(s.handleMarkPaid))
	mux.HandleFunc("/invoices/delete", s.protect(s.handleDeleteInvoice))
	mux.HandleFunc("/export.csv", s.protect(s.handleExportCSV))

	return s
}

// protect stacks tracing, security headers and POST rate limiting around a
// handler.
func (s *Server) protect(next http.HandlerFunc) http.HandlerFunc {
	limited := func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			clientIP := s.detector.ExtractClientIP(r)
			if !s.limiter.Allow(clientIP) {
				slog.WarnContext(r.Context(), "Rate limit exceeded",
					"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}
		next(w, r)
	}
	h := s.headers.Middleware(http.HandlerFunc(limited))
	h = s.tracer.Middleware(h)
	return h.ServeHTTP
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ports.Lister.List(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "backend not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// cachedPartial returns a previously rendered table partial for the
// canonical query string, if the cache generation still matches.
func (s *Server) cachedPartial(key string) (string, bool) {
	s.cacheMu.Lock()
	gen := s.cacheGen
	s.cacheMu.Unlock()
	return s.viewCache.Get(s.cacheKey(gen, key))
}

func (s *Server) storePartial(key, html string) {
	s.cacheMu.Lock()
	gen := s.cacheGen
	s.cacheMu.Unlock()
	s.viewCache.Set(s.cacheKey(gen, key), html)
}

// invalidateViews drops all cached partials by bumping the generation.
func (s *Server) invalidateViews() {
	s.cacheMu.Lock()
	s.cacheGen++
	s.cacheMu.Unlock()
}

// cacheKey prefixes the generation and the current date, so mutations and
// day rollovers both miss: derived statuses depend on today.
func (s *Server) cacheKey(gen uint64, key string) string {
	return formatUint(gen) + "|" + s.today().Format("2006-01-02") + "|" + key
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}
