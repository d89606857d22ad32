// Package server serves a built site under its base URL. Requests are resolved
// through the route table and fall back to static files and the 404 page.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/config"
	derrors "git.home.luguber.info/inful/docsite/internal/foundation/errors"
	"git.home.luguber.info/inful/docsite/internal/logfields"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/routes"
)

// Options configures optional server features.
type Options struct {
	// Registry is exposed at the metrics path when metrics are enabled.
	Registry *prom.Registry
	Recorder metrics.Recorder
	// LiveReload enables the SSE endpoint and script injection when non-nil.
	LiveReload *LiveReloadHub
	Logger     *slog.Logger
}

// Server is the static site server.
type Server struct {
	cfg          *config.Config
	opts         Options
	outDir       string
	table        atomic.Pointer[routes.Table]
	errorAdapter *derrors.HTTPErrorAdapter
	router       chi.Router

	httpServer *http.Server
	addr       string
}

// New wires the router. The server is not ready until a table is loaded.
func New(cfg *config.Config, opts Options) *Server {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		cfg:          cfg,
		opts:         opts,
		outDir:       cfg.OutputDir(),
		errorAdapter: derrors.NewHTTPErrorAdapter(opts.Logger),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.opts.Logger))
	r.Use(recoverer(s.opts.Logger, s.errorAdapter))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/_routes", s.handleRoutes)
	if s.cfg.Metrics.Enabled {
		r.Handle(s.cfg.Metrics.Path, metrics.HTTPHandler(s.opts.Registry))
	}
	if s.opts.LiveReload != nil {
		r.Handle("/livereload", s.opts.LiveReload)
		r.Get("/livereload.js", handleLiveReloadScript)
	}

	var site http.Handler = http.HandlerFunc(s.serveSite)
	if s.opts.LiveReload != nil {
		site = injectLiveReload(site)
	}

	base := s.cfg.BaseURL
	if base != "/" {
		redirect := http.RedirectHandler(base, http.StatusFound)
		r.Method(http.MethodGet, "/", redirect)
		r.Method(http.MethodGet, strings.TrimSuffix(base, "/"), redirect)
	}
	r.Method(http.MethodGet, base+"*", site)
	r.Method(http.MethodHead, base+"*", site)
	r.NotFound(site.ServeHTTP)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// SetTable swaps the route table used for lookups.
func (s *Server) SetTable(t *routes.Table) {
	s.table.Store(t)
}

// Table returns the current route table, or nil before the first load.
func (s *Server) Table() *routes.Table { return s.table.Load() }

// Reload reads the route manifest from the output directory and swaps it in.
func (s *Server) Reload() error {
	m, err := routes.ReadFile(filepath.Join(s.outDir, routes.ManifestFile))
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryServer, "load route manifest").
			WithContext("dir", s.outDir).
			Build()
	}
	t, err := routes.NewTable(m)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryRoutes, "invalid route manifest").Build()
	}
	s.SetTable(t)
	s.opts.Logger.Info("Route table loaded", logfields.Count(len(t.Entries())))
	return nil
}

// Start binds the listen address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr())
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryServer, "listen").
			WithContext("addr", s.cfg.ListenAddr()).
			Fatal().
			Build()
	}
	s.addr = ln.Addr().String()
	// No write timeout: LiveReload streams are long-lived.
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.opts.Logger.Error("Server error", logfields.Error(err))
		}
	}()
	s.opts.Logger.Info("Serving site",
		logfields.URL(fmt.Sprintf("http://%s%s", s.addr, s.cfg.BaseURL)))
	return nil
}

// Addr is the bound address after Start.
func (s *Server) Addr() string { return s.addr }

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.opts.LiveReload != nil {
		s.opts.LiveReload.Shutdown()
	}
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.opts.Logger.Info("Server stopped")
	return nil
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	t := s.table.Load()
	if t == nil {
		s.errorAdapter.WriteErrorResponse(w, r, notBuilt())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "routes": len(t.Entries())})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	t := s.table.Load()
	if t == nil {
		s.errorAdapter.WriteErrorResponse(w, r, notBuilt())
		return
	}
	data, err := t.Manifest().Marshal()
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, derrors.WrapError(err, derrors.CategoryInternal, "encode manifest").Build())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func handleLiveReloadScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(LiveReloadScript))
}

func notBuilt() error {
	return derrors.NewError(derrors.CategoryServer, "site has not been built yet").Retryable().Build()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
