// Package server exposes the journal over a local REST API and
// serves the embedded frontend.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	gosync "sync"
	"time"

	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/importer"
	"github.com/daylog/daylog/internal/nlparse"
	"github.com/daylog/daylog/internal/web"
)

// VersionInfo holds build-time version metadata.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// ParseFunc turns free text into staged log entries. The default
// calls the OpenAI API; tests substitute a stub.
type ParseFunc func(
	ctx context.Context, cfg config.Config, req nlparse.Request,
) ([]nlparse.ParsedEntry, error)

func defaultParse(
	ctx context.Context, cfg config.Config, req nlparse.Request,
) ([]nlparse.ParsedEntry, error) {
	return nlparse.NewClient(cfg.OpenAIKey, cfg.OpenAIModel).Parse(ctx, req)
}

// Server is the HTTP server that serves the frontend and REST API.
type Server struct {
	mu      gosync.RWMutex
	cfg     config.Config
	db      *db.DB
	engine  *importer.Engine
	mux     *http.ServeMux
	httpSrv *http.Server
	version VersionInfo

	parseFunc  ParseFunc
	spaFS      fs.FS
	spaHandler http.Handler

	// handlerDelay is injected before each timeout-wrapped
	// handler, used only by tests to guarantee handlers
	// exceed a short timeout. Zero in production.
	handlerDelay time.Duration
}

// New creates a new Server.
func New(
	cfg config.Config, database *db.DB, engine *importer.Engine,
	opts ...Option,
) *Server {
	dist, err := web.Assets()
	if err != nil {
		log.Fatalf("embedded frontend not found: %v", err)
	}

	s := &Server{
		cfg:        cfg,
		db:         database,
		engine:     engine,
		mux:        http.NewServeMux(),
		parseFunc:  defaultParse,
		spaFS:      dist,
		spaHandler: http.FileServerFS(dist),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the build-time version metadata.
func WithVersion(v VersionInfo) Option {
	return func(s *Server) { s.version = v }
}

// WithParseFunc overrides the natural-language parse function,
// allowing tests to substitute a stub. Nil is ignored.
func WithParseFunc(f ParseFunc) Option {
	return func(s *Server) {
		if f != nil {
			s.parseFunc = f
		}
	}
}

func (s *Server) routes() {
	// API v1 routes
	s.mux.Handle("GET /api/v1/catalog", s.withTimeout(s.handleGetCatalog))

	s.mux.Handle("GET /api/v1/groups", s.withTimeout(s.handleListGroups))
	s.mux.Handle("POST /api/v1/groups", s.withTimeout(s.handleCreateGroup))
	s.mux.Handle("PUT /api/v1/groups/{id}", s.withTimeout(s.handleUpdateGroup))
	s.mux.Handle("DELETE /api/v1/groups/{id}", s.withTimeout(s.handleDeleteGroup))

	s.mux.Handle("GET /api/v1/categories", s.withTimeout(s.handleListCategories))
	s.mux.Handle("POST /api/v1/categories", s.withTimeout(s.handleCreateCategory))
	s.mux.Handle("PUT /api/v1/categories/{id}", s.withTimeout(s.handleUpdateCategory))
	s.mux.Handle("DELETE /api/v1/categories/{id}", s.withTimeout(s.handleDeleteCategory))

	s.mux.Handle("GET /api/v1/logs", s.withTimeout(s.handleListLogs))
	s.mux.Handle("GET /api/v1/logs/{day}/{hour}", s.withTimeout(s.handleGetLog))
	s.mux.Handle("PUT /api/v1/logs", s.withTimeout(s.handleSaveLog))
	s.mux.Handle("DELETE /api/v1/logs/{day}/{hour}", s.withTimeout(s.handleDeleteLog))
	s.mux.Handle("POST /api/v1/logs/parse", s.withTimeout(s.handleParseLogs))

	s.mux.Handle("GET /api/v1/report", s.withTimeout(s.handleGetReport))

	// Export: no timeout handler, to avoid buffering downloads.
	s.mux.Handle("GET /api/v1/export", http.HandlerFunc(s.handleExport))
	s.mux.Handle("POST /api/v1/import", s.withTimeout(s.handleImport))
	s.mux.HandleFunc("POST /api/v1/import/run", s.handleImportRun)
	s.mux.Handle("GET /api/v1/import/status", s.withTimeout(s.handleImportStatus))

	s.mux.Handle("GET /api/v1/stats", s.withTimeout(s.handleGetStats))
	s.mux.Handle("GET /api/v1/version", s.withTimeout(s.handleGetVersion))
	s.mux.Handle("GET /api/v1/config/openai", s.withTimeout(s.handleGetOpenAIConfig))
	s.mux.Handle("POST /api/v1/config/openai", s.withTimeout(s.handleSetOpenAIConfig))

	// SPA fallback: serve embedded frontend.
	// No timeout handler for static assets, to avoid buffering.
	s.mux.Handle("/", http.HandlerFunc(s.handleSPA))
}

func (s *Server) handleGetVersion(
	w http.ResponseWriter, _ *http.Request,
) {
	writeJSON(w, http.StatusOK, s.version)
}

func (s *Server) handleSPA(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		path = "index.html"
	}

	f, err := s.spaFS.Open(path)
	if err == nil {
		f.Close()
		s.spaHandler.ServeHTTP(w, r)
		return
	}

	// SPA fallback: serve index.html for all routes
	r.URL.Path = "/"
	s.spaHandler.ServeHTTP(w, r)
}

// openAIKey returns the current OpenAI key (thread-safe).
func (s *Server) openAIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.OpenAIKey
}

// Handler returns the http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(logMiddleware(s.mux))
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()
	log.Printf("Starting server at http://%s", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpSrv
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// FindAvailablePort finds an available port starting from the
// given port, binding to the specified host.
func FindAvailablePort(host string, start int) int {
	for port := start; port < start+100; port++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			ln.Close()
			return port
		}
	}
	return start
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set(
				"Access-Control-Allow-Origin", "*",
			)
			w.Header().Set(
				"Access-Control-Allow-Methods",
				"GET, POST, PUT, DELETE, OPTIONS",
			)
			w.Header().Set(
				"Access-Control-Allow-Headers",
				"Content-Type",
			)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}
